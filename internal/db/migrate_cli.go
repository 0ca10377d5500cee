package db

import (
	"fmt"
	"io"
	"os"
	"strconv"
)

// RunMigrateCommand handles the 'migrate' subcommand. Output goes to out.
func RunMigrateCommand(args []string, dbPath string, out io.Writer) error {
	if len(args) < 1 || args[0] == "help" {
		PrintMigrateHelp(out)
		if len(args) < 1 {
			return fmt.Errorf("missing migrate action")
		}
		return nil
	}

	// the schema is managed by migrations, so open without applying them
	database, err := OpenDB(dbPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	action := args[0]
	switch action {
	case "up":
		if err := database.MigrateUp(migrationsFS); err != nil {
			return err
		}
		fmt.Fprintln(out, "✓ All migrations applied successfully")
		return printVersion(database, out)

	case "down":
		if err := database.MigrateDown(migrationsFS); err != nil {
			return err
		}
		fmt.Fprintln(out, "✓ Migration rolled back successfully")
		return printVersion(database, out)

	case "status":
		return printStatus(database, out)

	case "version", "force", "baseline":
		if len(args) < 2 {
			return fmt.Errorf("usage: tracker migrate %s <version_number>", action)
		}
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 0 {
			return fmt.Errorf("invalid version number: %s", args[1])
		}
		switch action {
		case "version":
			err = database.MigrateTo(migrationsFS, uint(n))
		case "force":
			err = database.MigrateForce(migrationsFS, n)
		default:
			err = database.BaselineAtVersion(uint(n))
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ %s %d done\n", action, n)
		return printVersion(database, out)
	}

	PrintMigrateHelp(out)
	return fmt.Errorf("unknown migrate action: %s", action)
}

func printVersion(database *DB, out io.Writer) error {
	version, dirty, err := database.MigrateVersion(migrationsFS)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Current version: %d (dirty: %v)\n", version, dirty)
	return nil
}

func printStatus(database *DB, out io.Writer) error {
	version, dirty, err := database.MigrateVersion(migrationsFS)
	if err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}
	latest, err := LatestMigrationVersion(migrationsFS)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "=== Migration Status ===")
	fmt.Fprintf(out, "Current version: %d\n", version)
	fmt.Fprintf(out, "Latest available: %d\n", latest)
	fmt.Fprintf(out, "Dirty: %v\n", dirty)
	switch {
	case dirty:
		fmt.Fprintln(out, "⚠️  A migration failed mid-execution. Inspect the database, then run: tracker migrate force <version>")
	case version < latest:
		fmt.Fprintf(out, "⚠️  Database is %d version(s) behind. Run 'tracker migrate up' to update.\n", latest-version)
	default:
		fmt.Fprintln(out, "✓ Database is up to date!")
	}
	return nil
}

// PrintMigrateHelp displays the help message for the migrate command
func PrintMigrateHelp(out io.Writer) {
	if out == nil {
		out = os.Stdout
	}
	fmt.Fprint(out, `Database Migration Commands

Usage: tracker migrate <command> [options]

Commands:
  up              Apply all pending migrations
  down            Rollback one migration
  status          Show current migration status and version
  version <N>     Migrate to specific version N
  force <N>       Force migration version to N (recovery only)
  baseline <N>    Set migration version to N without running migrations
  help            Show this help message

Options:
  -db <path>      Path to database file (default: activities.db)
`)
}
