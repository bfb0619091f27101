package leaderboardmigrations

import "github.com/uptrace/bun/migrate"

// Migrations holds the leaderboard read-side migrations.
var Migrations = migrate.NewMigrations()
