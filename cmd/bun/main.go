package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v2"

	feedqueue "github.com/Black-And-White-Club/keyquest/app/modules/feed/infrastructure/queue"
	leaderboardmigrations "github.com/Black-And-White-Club/keyquest/app/modules/leaderboard/infrastructure/repositories/migrations"
	runmigrations "github.com/Black-And-White-Club/keyquest/app/modules/run/infrastructure/repositories/migrations"
	stationservice "github.com/Black-And-White-Club/keyquest/app/modules/station/application"
	stationdb "github.com/Black-And-White-Club/keyquest/app/modules/station/infrastructure/repositories"
	stationmigrations "github.com/Black-And-White-Club/keyquest/app/modules/station/infrastructure/repositories/migrations"
	"github.com/Black-And-White-Club/keyquest/app/shared/observability"
	"github.com/Black-And-White-Club/keyquest/config"
)

// moduleMigrator pairs a module with its migrator. Order matters: station_results
// references game_runs and the leaderboard indexes sit on both.
type moduleMigrator struct {
	name     string
	migrator *migrate.Migrator
}

func newMigrators(db *bun.DB) []moduleMigrator {
	mk := func(name string, m *migrate.Migrations) moduleMigrator {
		return moduleMigrator{
			name: name,
			migrator: migrate.NewMigrator(db, m,
				migrate.WithTableName("bun_migrations_"+name),
				migrate.WithLocksTableName("bun_migration_locks_"+name),
			),
		}
	}
	return []moduleMigrator{
		mk("run", runmigrations.Migrations),
		mk("station", stationmigrations.Migrations),
		mk("leaderboard", leaderboardmigrations.Migrations),
	}
}

func main() {
	var (
		cfg *config.Config
		db  *bun.DB
	)

	cliApp := &cli.App{
		Name:  "bun",
		Usage: "keyquest database tooling",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Value: "config.yaml",
				Usage: "Path to the configuration file",
			},
		},
		Before: func(c *cli.Context) error {
			var err error
			cfg, err = config.LoadConfig(c.String("config"))
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			pgdb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.DSN)))
			db = bun.NewDB(pgdb, pgdialect.New())
			return nil
		},
		After: func(c *cli.Context) error {
			if db != nil {
				return db.Close()
			}
			return nil
		},
		Commands: []*cli.Command{
			newMigrateCommand(func() []moduleMigrator { return newMigrators(db) }, func() *config.Config { return cfg }),
			newCatalogCommand(func() *bun.DB { return db }, func() *config.Config { return cfg }),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newMigrateCommand(migrators func() []moduleMigrator, cfg func() *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "database migrations",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "create migration tables",
				Action: func(c *cli.Context) error {
					for _, m := range migrators() {
						fmt.Printf("Initializing migrations for module: %s\n", m.name)
						if err := m.migrator.Init(c.Context); err != nil {
							return fmt.Errorf("init %s: %w", m.name, err)
						}
					}
					return nil
				},
			},
			{
				Name:  "migrate",
				Usage: "migrate database",
				Action: func(c *cli.Context) error {
					for _, m := range migrators() {
						if err := m.migrator.Lock(c.Context); err != nil {
							return err
						}
						group, err := m.migrator.Migrate(c.Context)
						unlockErr := m.migrator.Unlock(c.Context)
						if err != nil {
							return fmt.Errorf("migrate %s: %w", m.name, err)
						}
						if unlockErr != nil {
							return unlockErr
						}
						if group.IsZero() {
							fmt.Printf("No new migrations to run for module: %s\n", m.name)
						} else {
							fmt.Printf("Migrated module: %s to %s\n", m.name, group)
						}
					}
					return nil
				},
			},
			{
				Name:  "rollback",
				Usage: "rollback the last migration group of every module",
				Action: func(c *cli.Context) error {
					all := migrators()
					// dependents first
					for i := len(all) - 1; i >= 0; i-- {
						m := all[i]
						group, err := m.migrator.Rollback(c.Context)
						if err != nil {
							return fmt.Errorf("rollback %s: %w", m.name, err)
						}
						if group.IsZero() {
							fmt.Printf("No groups to roll back for module: %s\n", m.name)
						} else {
							fmt.Printf("Rolled back module: %s to %s\n", m.name, group)
						}
					}
					return nil
				},
			},
			{
				Name:  "status",
				Usage: "print migrations status",
				Action: func(c *cli.Context) error {
					for _, m := range migrators() {
						ms, err := m.migrator.MigrationsWithStatus(c.Context)
						if err != nil {
							return err
						}
						fmt.Printf("Migrations for module: %s\n", m.name)
						fmt.Printf("  Applied: %s\n", ms.Applied())
						fmt.Printf("  Unapplied: %s\n", ms.Unapplied())
					}
					return nil
				},
			},
			{
				Name:  "create_go",
				Usage: "create Go migration: create_go <module> <name...>",
				Action: func(c *cli.Context) error {
					moduleName := c.Args().First()
					for _, m := range migrators() {
						if m.name != moduleName {
							continue
						}
						mf, err := m.migrator.CreateGoMigration(c.Context, strings.Join(c.Args().Tail(), "_"))
						if err != nil {
							return err
						}
						fmt.Printf("Created migration for module %s: %s (%s)\n", moduleName, mf.Name, mf.Path)
						return nil
					}
					return fmt.Errorf("invalid module name: %s", moduleName)
				},
			},
			{
				Name:  "river",
				Usage: "create or upgrade the River job tables used by the feed outbox",
				Action: func(c *cli.Context) error {
					n, err := feedqueue.Migrate(c.Context, cfg().Postgres.DSN)
					if err != nil {
						return err
					}
					fmt.Printf("Applied %d River migration(s)\n", n)
					return nil
				},
			},
		},
	}
}

func newCatalogCommand(db func() *bun.DB, cfg func() *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "catalog",
		Usage: "station catalog",
		Subcommands: []*cli.Command{
			{
				Name:  "sync",
				Usage: "upsert the configured station catalog into station_defs",
				Action: func(c *cli.Context) error {
					obs := observability.NewNoop()
					conf := cfg()
					ledger := stationservice.NewLedgerService(
						stationdb.NewRepository(db()),
						nil, nil, nil,
						conf.Game.FinalStationKey,
						obs.Logger,
						obs.Metrics,
						obs.Tracer,
						db(),
					)
					if err := ledger.SyncCatalog(c.Context, conf.Game.Stations); err != nil {
						return fmt.Errorf("failed to sync catalog: %w", err)
					}
					fmt.Printf("Synced %d station(s)\n", len(conf.Game.Stations))
					return nil
				},
			},
			{
				Name:  "list",
				Usage: "print the stored catalog",
				Action: func(c *cli.Context) error {
					defs, err := stationdb.NewRepository(db()).ListDefinitions(c.Context, nil)
					if err != nil {
						return err
					}
					for _, d := range defs {
						fmt.Printf("%2d  %-16s %4d  %s\n", d.OrderIndex, d.StationKey, d.MaxScore, d.Title)
					}
					return nil
				},
			},
		},
	}
}
