package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fitlife/tracker/internal/activity"
)

// ActivityRepository is an activity.Repository backed by the activities
// table. Timestamps are stored as UTC unix nanoseconds.
type ActivityRepository struct {
	db  *DB
	now func() time.Time
}

var _ activity.Repository = (*ActivityRepository)(nil)

func NewActivityRepository(db *DB) *ActivityRepository {
	return &ActivityRepository{db: db, now: time.Now}
}

const activityColumns = `id, day, steps, distance_km, active_time, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanActivity(row rowScanner) (activity.Activity, error) {
	var (
		a                activity.Activity
		created, updated int64
	)
	if err := row.Scan(&a.ID, &a.Day, &a.Steps, &a.DistanceKm, &a.ActiveTime, &created, &updated); err != nil {
		return activity.Activity{}, err
	}
	a.CreatedAt = time.Unix(0, created).UTC()
	a.UpdatedAt = time.Unix(0, updated).UTC()
	return a, nil
}

func (r *ActivityRepository) Create(ctx context.Context, a activity.Activity) (activity.Activity, error) {
	if err := a.Validate(); err != nil {
		return activity.Activity{}, err
	}
	a.ID = uuid.NewString()
	a.CreatedAt = r.now().UTC()
	a.UpdatedAt = a.CreatedAt

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO activities (`+activityColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Day, a.Steps, a.DistanceKm, a.ActiveTime, a.CreatedAt.UnixNano(), a.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return activity.Activity{}, fmt.Errorf("insert activity: %w", err)
	}
	return a, nil
}

func (r *ActivityRepository) Get(ctx context.Context, id string) (activity.Activity, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+activityColumns+` FROM activities WHERE id = ?`, id)
	a, err := scanActivity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return activity.Activity{}, fmt.Errorf("get %s: %w", id, activity.ErrNotFound)
	}
	if err != nil {
		return activity.Activity{}, fmt.Errorf("get %s: %w", id, err)
	}
	return a, nil
}

// List returns activities oldest first.
func (r *ActivityRepository) List(ctx context.Context) ([]activity.Activity, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+activityColumns+` FROM activities ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	out := []activity.Activity{}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update applies p inside a transaction so concurrent patches of the same row
// do not lose fields.
func (r *ActivityRepository) Update(ctx context.Context, id string, p activity.Patch) (activity.Activity, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return activity.Activity{}, err
	}
	defer tx.Rollback()

	current, err := scanActivity(tx.QueryRowContext(ctx, `SELECT `+activityColumns+` FROM activities WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return activity.Activity{}, fmt.Errorf("update %s: %w", id, activity.ErrNotFound)
	}
	if err != nil {
		return activity.Activity{}, fmt.Errorf("update %s: %w", id, err)
	}

	updated, err := p.Apply(current)
	if err != nil {
		return activity.Activity{}, err
	}
	updated.UpdatedAt = r.now().UTC()

	_, err = tx.ExecContext(ctx,
		`UPDATE activities SET day = ?, steps = ?, distance_km = ?, active_time = ?, updated_at = ? WHERE id = ?`,
		updated.Day, updated.Steps, updated.DistanceKm, updated.ActiveTime, updated.UpdatedAt.UnixNano(), id,
	)
	if err != nil {
		return activity.Activity{}, fmt.Errorf("update %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return activity.Activity{}, err
	}
	return updated, nil
}

func (r *ActivityRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM activities WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("delete %s: %w", id, activity.ErrNotFound)
	}
	return nil
}

func (r *ActivityRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM activities`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count activities: %w", err)
	}
	return n, nil
}
