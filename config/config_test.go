package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	leaderboarddomain "github.com/Black-And-White-Club/keyquest/app/modules/leaderboard/domain"
	scoringdomain "github.com/Black-And-White-Club/keyquest/app/modules/scoring/domain"
	stationdomain "github.com/Black-And-White-Club/keyquest/app/modules/station/domain"
	sharedtypes "github.com/Black-And-White-Club/keyquest/app/shared/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DATABASE_URL", "HTTP_ADDR", "ALLOWED_ORIGINS", "STORE_TIMEOUT", "NATS_URL",
		"FEED_DRIVER", "METRICS_ADDRESS", "ENV", "LOG_LEVEL", "FINAL_STATION_KEY", "FRAGMENT_LENGTH",
	} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_FileWithDefaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
postgres:
  dsn: postgres://keyquest@localhost/keyquest
http:
  allowed_origins: ["https://play.example"]
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://keyquest@localhost/keyquest", cfg.Postgres.DSN)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 5*time.Second, cfg.HTTP.StoreTimeout)
	assert.Equal(t, FeedDriverDirect, cfg.Feed.Driver)
	assert.Equal(t, scoringdomain.StationMasterReset, cfg.Game.FinalStationKey)
	assert.Equal(t, scoringdomain.DefaultCompletionBonusConfig, cfg.Game.Bonus)
	assert.Equal(t, stationdomain.DefaultDefinitions(), cfg.Game.Stations)
	assert.Equal(t, leaderboarddomain.DefaultMaxTotal, cfg.Game.ScoreMax)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
postgres:
  dsn: postgres://file
feed:
  driver: direct
`)
	t.Setenv("DATABASE_URL", "postgres://env")
	t.Setenv("FEED_DRIVER", "outbox")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("STORE_TIMEOUT", "750ms")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://env", cfg.Postgres.DSN)
	assert.Equal(t, FeedDriverOutbox, cfg.Feed.Driver)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, 750*time.Millisecond, cfg.HTTP.StoreTimeout)
}

func TestLoadConfig_GameSection(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
postgres:
  dsn: postgres://file
game:
  final_station_key: vault
  score_max: 300
  bonus: {base: 10, per_fragment: 5, fast_max: 5, cap: 50}
  stations:
    - {key: lockpick, title: Lockpick, max_score: 250, order_index: 1}
    - {key: vault, title: Vault, max_score: 50, order_index: 2}
  tiers:
    - {name: Gold, short_label: Gold, min: 200, max: 300}
    - {name: Tin, short_label: Tin, min: 0, max: 199}
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, sharedtypes.StationKey("vault"), cfg.Game.FinalStationKey)
	assert.Equal(t, 10, cfg.Game.Bonus.Base)

	table, err := cfg.Game.TierTable()
	require.NoError(t, err)
	assert.Equal(t, "Gold", table.Classify(250).Name)

	catalog, err := cfg.Game.Catalog()
	require.NoError(t, err)
	assert.Equal(t, 300, catalog.TotalMax())
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "unknown feed driver",
			body: "postgres: {dsn: x}\nfeed: {driver: kafka}\n",
		},
		{
			name: "final station missing from catalog",
			body: "postgres: {dsn: x}\ngame:\n  final_station_key: nowhere\n",
		},
		{
			name: "tiers leave a gap",
			body: "postgres: {dsn: x}\ngame:\n  tiers:\n    - {name: A, min: 0, max: 10}\n    - {name: B, min: 20, max: 1100}\n",
		},
		{
			name: "malformed yaml",
			body: "postgres: [",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			_, err := LoadConfig(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_EnvFallback(t *testing.T) {
	clearEnv(t)
	missing := filepath.Join(t.TempDir(), "absent.yaml")

	_, err := LoadConfig(missing)
	assert.ErrorContains(t, err, "DATABASE_URL")

	t.Setenv("DATABASE_URL", "postgres://env-only")
	t.Setenv("FRAGMENT_LENGTH", "6")
	cfg, err := LoadConfig(missing)
	require.NoError(t, err)
	assert.Equal(t, "postgres://env-only", cfg.Postgres.DSN)
	assert.Equal(t, 6, cfg.Game.FragmentLength)

	t.Setenv("FRAGMENT_LENGTH", "six")
	_, err = LoadConfig(missing)
	assert.Error(t, err)
}
