package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	keysdomain "github.com/Black-And-White-Club/keyquest/app/modules/keys/domain"
	leaderboarddomain "github.com/Black-And-White-Club/keyquest/app/modules/leaderboard/domain"
	scoringdomain "github.com/Black-And-White-Club/keyquest/app/modules/scoring/domain"
	stationdomain "github.com/Black-And-White-Club/keyquest/app/modules/station/domain"
	sharedtypes "github.com/Black-And-White-Club/keyquest/app/shared/types"
)

// Feed drivers.
const (
	// FeedDriverDirect notifies the hub (and NATS) inline after each write.
	FeedDriverDirect = "direct"
	// FeedDriverOutbox enqueues a River job per write and delivers from workers.
	FeedDriverOutbox = "outbox"
)

// Config struct to hold the configuration settings
type Config struct {
	Postgres      PostgresConfig      `yaml:"postgres"`
	HTTP          HTTPConfig          `yaml:"http"`
	NATS          NATSConfig          `yaml:"nats"`
	Feed          FeedConfig          `yaml:"feed"`
	Observability ObservabilityConfig `yaml:"observability"`
	Game          GameConfig          `yaml:"game"`
}

// PostgresConfig holds Postgres configuration.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// HTTPConfig holds the API server settings.
type HTTPConfig struct {
	Addr           string        `yaml:"addr"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	StoreTimeout   time.Duration `yaml:"store_timeout"`
	// WriteRate is the sustained per-IP request rate on write endpoints.
	WriteRate  float64 `yaml:"write_rate"`
	WriteBurst int     `yaml:"write_burst"`
}

// NATSConfig holds NATS configuration. An empty URL disables NATS publishing.
type NATSConfig struct {
	URL string `yaml:"url"`
}

// FeedConfig selects how ledger change events reach listeners.
type FeedConfig struct {
	Driver     string `yaml:"driver"`
	BufferSize int    `yaml:"buffer_size"`
}

// ObservabilityConfig holds configuration for observability components
type ObservabilityConfig struct {
	MetricsAddress string `yaml:"metrics_address"`
	Environment    string `yaml:"environment"`
	LogLevel       string `yaml:"log_level"`
}

// GameConfig holds the scoring parameters and the station catalog seed.
type GameConfig struct {
	FinalStationKey sharedtypes.StationKey              `yaml:"final_station_key"`
	FragmentLength  int                                 `yaml:"fragment_length"`
	ScoreMax        int                                 `yaml:"score_max"`
	Bonus           scoringdomain.CompletionBonusConfig `yaml:"bonus"`
	Tiers           []leaderboarddomain.Tier            `yaml:"tiers"`
	Stations        []stationdomain.Definition          `yaml:"stations"`
}

// LoadConfig loads the configuration from a YAML file.
func LoadConfig(filename string) (*Config, error) {
	// Try reading configuration from the file first
	data, err := os.ReadFile(filename)
	if err != nil {
		// If the file is not found, try loading from environment variables
		return loadConfigFromEnv()
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// --- OVERRIDE WITH ENV VARS IF PRESENT ---
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadConfigFromEnv loads the configuration from environment variables.
func loadConfigFromEnv() (*Config, error) {
	var cfg Config

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if cfg.Postgres.DSN == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("STORE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid STORE_TIMEOUT value: %w", err)
		}
		cfg.HTTP.StoreTimeout = d
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("FEED_DRIVER"); v != "" {
		cfg.Feed.Driver = v
	}
	if v := os.Getenv("METRICS_ADDRESS"); v != "" {
		cfg.Observability.MetricsAddress = v
	}
	if v := os.Getenv("ENV"); v != "" {
		cfg.Observability.Environment = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
	if v := os.Getenv("FINAL_STATION_KEY"); v != "" {
		cfg.Game.FinalStationKey = sharedtypes.StationKey(v)
	}
	if v := os.Getenv("FRAGMENT_LENGTH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid FRAGMENT_LENGTH value: %w", err)
		}
		cfg.Game.FragmentLength = n
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) applyDefaults() {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.StoreTimeout == 0 {
		c.HTTP.StoreTimeout = 5 * time.Second
	}
	if c.HTTP.WriteRate == 0 {
		c.HTTP.WriteRate = 5
	}
	if c.HTTP.WriteBurst == 0 {
		c.HTTP.WriteBurst = 20
	}
	if c.Feed.Driver == "" {
		c.Feed.Driver = FeedDriverDirect
	}
	if c.Observability.Environment == "" {
		c.Observability.Environment = "development"
	}
	if c.Game.FinalStationKey == "" {
		c.Game.FinalStationKey = scoringdomain.StationMasterReset
	}
	if c.Game.FragmentLength == 0 {
		c.Game.FragmentLength = keysdomain.DefaultFragmentLength
	}
	if c.Game.Bonus == (scoringdomain.CompletionBonusConfig{}) {
		c.Game.Bonus = scoringdomain.DefaultCompletionBonusConfig
	}
	if len(c.Game.Stations) == 0 {
		c.Game.Stations = stationdomain.DefaultDefinitions()
	}
	if len(c.Game.Tiers) == 0 {
		c.Game.Tiers = leaderboarddomain.DefaultTiers()
	}
	if c.Game.ScoreMax == 0 {
		c.Game.ScoreMax = leaderboarddomain.DefaultMaxTotal
	}
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	switch c.Feed.Driver {
	case FeedDriverDirect, FeedDriverOutbox:
	default:
		errs = append(errs, fmt.Errorf("unknown feed driver %q", c.Feed.Driver))
	}
	if c.Game.FragmentLength < 0 {
		errs = append(errs, keysdomain.ErrInvalidLength)
	}
	if _, err := c.Game.Catalog(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Game.TierTable(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Catalog builds the configured station catalog. The final station must be in it.
func (g GameConfig) Catalog() (*stationdomain.Catalog, error) {
	catalog, err := stationdomain.NewCatalog(g.Stations)
	if err != nil {
		return nil, fmt.Errorf("invalid station catalog: %w", err)
	}
	if _, ok := catalog.Lookup(g.FinalStationKey); !ok {
		return nil, fmt.Errorf("final station %q is not in the catalog", g.FinalStationKey)
	}
	return catalog, nil
}

// TierTable builds the configured tier table over [0, ScoreMax].
func (g GameConfig) TierTable() (*leaderboarddomain.TierTable, error) {
	table, err := leaderboarddomain.NewTierTable(g.Tiers, g.ScoreMax)
	if err != nil {
		return nil, fmt.Errorf("invalid tier table: %w", err)
	}
	return table, nil
}
