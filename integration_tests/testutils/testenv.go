// Package testutils starts the Postgres and NATS containers shared by the
// integration suites and resets them between tests.
package testutils

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"testing"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"

	"github.com/Black-And-White-Club/keyquest/app"
	feedqueue "github.com/Black-And-White-Club/keyquest/app/modules/feed/infrastructure/queue"
	leaderboardmigrations "github.com/Black-And-White-Club/keyquest/app/modules/leaderboard/infrastructure/repositories/migrations"
	runmigrations "github.com/Black-And-White-Club/keyquest/app/modules/run/infrastructure/repositories/migrations"
	stationdomain "github.com/Black-And-White-Club/keyquest/app/modules/station/domain"
	stationdb "github.com/Black-And-White-Club/keyquest/app/modules/station/infrastructure/repositories"
	stationmigrations "github.com/Black-And-White-Club/keyquest/app/modules/station/infrastructure/repositories/migrations"
	"github.com/Black-And-White-Club/keyquest/integration_tests/containers"
)

// TestEnvironment holds all resources needed for integration testing
type TestEnvironment struct {
	Ctx           context.Context
	CancelContext context.CancelFunc
	Containers    *containers.Stack
	DB            *bun.DB
	DSN           string
	NatsURL       string
	Logger        *slog.Logger
}

// NewTestEnvironment starts Postgres and NATS, migrates, and seeds the default catalog.
func NewTestEnvironment(t *testing.T) (*TestEnvironment, error) {
	if testing.Short() {
		t.Skip("integration tests skipped with -short")
	}

	ctx, cancel := context.WithCancel(context.Background())
	env := &TestEnvironment{
		Ctx:           ctx,
		CancelContext: cancel,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	stack, err := containers.Start(ctx)
	if err != nil {
		cancel()
		return nil, err
	}
	env.Containers = stack
	env.DSN = stack.DSN
	env.NatsURL = stack.NatsURL

	db, err := app.OpenDB(ctx, env.DSN)
	if err != nil {
		env.Cleanup()
		return nil, err
	}
	env.DB = db

	if err := runMigrations(ctx, db, env.DSN); err != nil {
		env.Cleanup()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	if err := env.Reset(ctx); err != nil {
		env.Cleanup()
		return nil, err
	}
	return env, nil
}

func runMigrations(ctx context.Context, db *bun.DB, dsn string) error {
	// station_results references game_runs
	ordered := []struct {
		name       string
		migrations *migrate.Migrations
	}{
		{"run", runmigrations.Migrations},
		{"station", stationmigrations.Migrations},
		{"leaderboard", leaderboardmigrations.Migrations},
	}
	for _, mod := range ordered {
		migrator := migrate.NewMigrator(db, mod.migrations, migrate.WithTableName("bun_migrations_"+mod.name), migrate.WithLocksTableName("bun_migration_locks_"+mod.name))
		if err := migrator.Init(ctx); err != nil {
			return fmt.Errorf("failed to init %s migrations: %w", mod.name, err)
		}
		if _, err := migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run %s migrations: %w", mod.name, err)
		}
	}

	if _, err := feedqueue.Migrate(ctx, dsn); err != nil {
		return err
	}
	log.Println("All migrations ran successfully")
	return nil
}

// Reset truncates the ledger and runs, clears River jobs and reseeds the default catalog.
func (env *TestEnvironment) Reset(ctx context.Context) error {
	if _, err := env.DB.ExecContext(ctx, "TRUNCATE TABLE station_results, game_runs, station_defs CASCADE"); err != nil {
		return fmt.Errorf("failed to truncate tables: %w", err)
	}
	if _, err := env.DB.ExecContext(ctx, "DELETE FROM river_job"); err != nil {
		return fmt.Errorf("failed to clear river jobs: %w", err)
	}
	return SeedCatalog(ctx, env.DB, stationdomain.DefaultDefinitions())
}

// SeedCatalog writes defs into station_defs.
func SeedCatalog(ctx context.Context, db bun.IDB, defs []stationdomain.Definition) error {
	rows := make([]stationdb.StationDef, 0, len(defs))
	for _, d := range defs {
		rows = append(rows, stationdb.StationDef{
			StationKey: d.Key,
			Title:      d.Title,
			MaxScore:   d.MaxScore,
			OrderIndex: d.OrderIndex,
		})
	}
	return stationdb.NewRepository(db).UpsertDefinitions(ctx, db, rows)
}

// Cleanup closes connections and terminates the containers.
func (env *TestEnvironment) Cleanup() {
	if env.DB != nil {
		_ = env.DB.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if env.Containers != nil {
		env.Containers.Terminate(ctx)
	}
	if env.CancelContext != nil {
		env.CancelContext()
	}
}

// WaitFor repeatedly calls check until it returns nil or timeout elapses.
func WaitFor(timeout, interval time.Duration, check func() error) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := check(); err == nil {
				return nil
			}
			return fmt.Errorf("timed out waiting: %w", ctx.Err())
		case <-ticker.C:
			if err := check(); err == nil {
				return nil
			}
		}
	}
}
