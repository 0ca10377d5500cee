// Package mongostore is an activity.Repository backed by a MongoDB
// collection, for deployments that keep activity history in a shared
// document store instead of the local SQLite file.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fitlife/tracker/internal/activity"
	"github.com/fitlife/tracker/internal/monitoring"
)

var logf = monitoring.Prefixed("mongostore")

// DefaultCollection is the collection activities are stored in.
const DefaultCollection = "activities"

const opTimeout = 5 * time.Second

// Connect dials uri, pings the server and returns the named database.
func Connect(ctx context.Context, uri, database string) (*mongo.Database, error) {
	if uri == "" {
		return nil, errors.New("MongoDB URI not provided")
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	logf("connected to MongoDB database %s", database)
	return client.Database(database), nil
}

// document is the stored shape of an activity.
type document struct {
	ID         string    `bson:"_id"`
	Day        string    `bson:"day"`
	Steps      int       `bson:"steps"`
	DistanceKm float64   `bson:"distanceKm"`
	ActiveTime string    `bson:"activeTime"`
	CreatedAt  time.Time `bson:"createdAt"`
	UpdatedAt  time.Time `bson:"updatedAt"`
}

func toDocument(a activity.Activity) document {
	return document{
		ID:         a.ID,
		Day:        a.Day,
		Steps:      a.Steps,
		DistanceKm: a.DistanceKm,
		ActiveTime: a.ActiveTime,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

func (d document) activity() activity.Activity {
	return activity.Activity{
		ID:         d.ID,
		Day:        d.Day,
		Steps:      d.Steps,
		DistanceKm: d.DistanceKm,
		ActiveTime: d.ActiveTime,
		CreatedAt:  d.CreatedAt.UTC(),
		UpdatedAt:  d.UpdatedAt.UTC(),
	}
}

// Repository stores activities in a MongoDB collection.
type Repository struct {
	collection *mongo.Collection
	now        func() time.Time
}

var _ activity.Repository = (*Repository)(nil)

// New returns a repository over db's activities collection.
func New(db *mongo.Database) *Repository {
	return NewWithCollection(db.Collection(DefaultCollection))
}

// NewWithCollection returns a repository over coll.
func NewWithCollection(coll *mongo.Collection) *Repository {
	return &Repository{collection: coll, now: time.Now}
}

// EnsureIndexes creates the listing index.
func (r *Repository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: 1}},
	})
	return err
}

func (r *Repository) Create(ctx context.Context, a activity.Activity) (activity.Activity, error) {
	if err := a.Validate(); err != nil {
		return activity.Activity{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	a.ID = uuid.NewString()
	// Mongo stores milliseconds
	a.CreatedAt = r.now().UTC().Truncate(time.Millisecond)
	a.UpdatedAt = a.CreatedAt
	if _, err := r.collection.InsertOne(ctx, toDocument(a)); err != nil {
		return activity.Activity{}, fmt.Errorf("insert activity: %w", err)
	}
	return a, nil
}

func (r *Repository) Get(ctx context.Context, id string) (activity.Activity, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var doc document
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return activity.Activity{}, fmt.Errorf("get %s: %w", id, activity.ErrNotFound)
	}
	if err != nil {
		return activity.Activity{}, fmt.Errorf("get %s: %w", id, err)
	}
	return doc.activity(), nil
}

// List returns activities oldest first.
func (r *Repository) List(ctx context.Context) ([]activity.Activity, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	out := make([]activity.Activity, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.activity())
	}
	return out, nil
}

// Update applies p to the stored record. The write is conditional on the
// record's updatedAt so a concurrent update is reported instead of lost.
func (r *Repository) Update(ctx context.Context, id string, p activity.Patch) (activity.Activity, error) {
	current, err := r.Get(ctx, id)
	if err != nil {
		return activity.Activity{}, fmt.Errorf("update: %w", err)
	}
	updated, err := p.Apply(current)
	if err != nil {
		return activity.Activity{}, err
	}
	updated.UpdatedAt = r.now().UTC().Truncate(time.Millisecond)

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "updatedAt": current.UpdatedAt},
		bson.M{"$set": bson.M{
			"day":        updated.Day,
			"steps":      updated.Steps,
			"distanceKm": updated.DistanceKm,
			"activeTime": updated.ActiveTime,
			"updatedAt":  updated.UpdatedAt,
		}},
	)
	if err != nil {
		return activity.Activity{}, fmt.Errorf("update %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return activity.Activity{}, fmt.Errorf("update %s: record changed concurrently", id)
	}
	return updated, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("delete %s: %w", id, activity.ErrNotFound)
	}
	return nil
}

func (r *Repository) Count(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	n, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count activities: %w", err)
	}
	return int(n), nil
}
