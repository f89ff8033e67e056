// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
)

// Config is the full configuration surface of the feed service.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Logging  LoggingConfig
	Feed     FeedConfig
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `env:"SERVER_HOST,default=0.0.0.0"`
	Port            int           `env:"SERVER_PORT,default=8080"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT,default=10s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT,default=15s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT,default=10s"`

	RateLimitPerSecond int    `env:"RATE_LIMIT_PER_SECOND,default=5"`
	RateLimitBurst     int    `env:"RATE_LIMIT_BURST,default=10"`
	AuditLogSize       int    `env:"AUDIT_LOG_SIZE,default=200"`
	AuditLogPath       string `env:"AUDIT_LOG_PATH,default="`
}

// DatabaseConfig configures the optional Postgres store. When DSN is empty
// the service runs on the in-memory store.
type DatabaseConfig struct {
	Driver          string `env:"DATABASE_DRIVER,default=postgres"`
	DSN             string `env:"DATABASE_URL,default="`
	MaxOpenConns    int    `env:"DATABASE_MAX_OPEN_CONNS,default=10"`
	MaxIdleConns    int    `env:"DATABASE_MAX_IDLE_CONNS,default=5"`
	ConnMaxLifetime int    `env:"DATABASE_CONN_MAX_LIFETIME,default=300"`
}

// RedisConfig configures the optional Redis-backed seen store.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,default="`
	Password string `env:"REDIS_PASSWORD,default="`
	DB       int    `env:"REDIS_DB,default=0"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL,default=info"`
	Format string `env:"LOG_FORMAT,default=text"`
	Output string `env:"LOG_OUTPUT,default=stdout"`
}

// FeedConfig carries every tunable the feed pipeline reads at call time.
type FeedConfig struct {
	// Candidate pool sizes. Cold variants apply when the identity has fewer
	// follows than ColdStartFollowThreshold.
	FollowedPoolSize        int `env:"POOL_FOLLOWED,default=30"`
	InterestPoolSize        int `env:"POOL_INTEREST,default=20"`
	InterestPoolColdSize    int `env:"POOL_INTEREST_COLD,default=40"`
	TrendingPoolSize        int `env:"POOL_TRENDING,default=20"`
	TrendingPoolColdSize    int `env:"POOL_TRENDING_COLD,default=35"`
	FreshPoolSize           int `env:"POOL_FRESH,default=15"`
	ViralPoolSize           int `env:"POOL_VIRAL,default=10"`
	ExplorationPoolSize     int `env:"POOL_EXPLORATION,default=10"`
	ExplorationPoolColdSize int `env:"POOL_EXPLORATION_COLD,default=25"`

	ColdStartFollowThreshold int `env:"COLD_START_FOLLOW_THRESHOLD,default=5"`

	// Engagement cutoffs.
	TrendingMinEngagement int           `env:"TRENDING_MIN_ENGAGEMENT,default=50"`
	ViralMinEngagement    int           `env:"VIRAL_MIN_ENGAGEMENT,default=200"`
	ViralMaxAge           time.Duration `env:"VIRAL_MAX_AGE,default=6h"`

	// Session classification thresholds.
	RecentSignalCount   int           `env:"RECENT_SIGNAL_COUNT,default=20"`
	SignalWindow        time.Duration `env:"SIGNAL_WINDOW,default=24h"`
	EngagedSignalCount  int           `env:"ENGAGED_SIGNAL_COUNT,default=8"`
	EngagedRecency      time.Duration `env:"ENGAGED_RECENCY,default=2h"`
	FatiguedSignalCount int           `env:"FATIGUED_SIGNAL_COUNT,default=15"`
	FatigueAdViews      int           `env:"FATIGUE_AD_VIEWS,default=3"`

	// Ranker weights.
	WeightEngagement      float64       `env:"RANK_WEIGHT_ENGAGEMENT,default=1.0"`
	WeightRecency         float64       `env:"RANK_WEIGHT_RECENCY,default=2.0"`
	RecencyTau            time.Duration `env:"RANK_RECENCY_TAU,default=6h"`
	WeightInterest        float64       `env:"RANK_WEIGHT_INTEREST,default=1.5"`
	DiversityPenalty      float64       `env:"RANK_DIVERSITY_PENALTY,default=0.75"`
	FreeRepeatsPerCreator int           `env:"RANK_FREE_REPEATS,default=1"`

	// Ad insertion.
	AdSlateSize      int `env:"AD_SLATE_SIZE,default=5"`
	AdIntervalLow    int `env:"AD_INTERVAL_LOW,default=8"`
	AdIntervalNormal int `env:"AD_INTERVAL_NORMAL,default=5"`
	AdIntervalHigh   int `env:"AD_INTERVAL_HIGH,default=3"`

	// Pagination.
	DefaultLimit int `env:"FEED_DEFAULT_LIMIT,default=20"`
	MaxLimit     int `env:"FEED_MAX_LIMIT,default=50"`
	MaxOffset    int `env:"FEED_MAX_OFFSET,default=500"`

	// Seen-record dedup window and pruning cadence.
	SeenWindow    time.Duration `env:"SEEN_WINDOW,default=24h"`
	PruneInterval time.Duration `env:"SEEN_PRUNE_INTERVAL,default=10m"`
}

// Load decodes configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Feed.DefaultLimit <= 0 || c.Feed.MaxLimit < c.Feed.DefaultLimit {
		return fmt.Errorf("invalid pagination limits (default=%d max=%d)", c.Feed.DefaultLimit, c.Feed.MaxLimit)
	}
	if c.Feed.ColdStartFollowThreshold < 0 {
		return fmt.Errorf("cold start follow threshold must be non-negative")
	}
	if c.Feed.AdSlateSize < 0 {
		return fmt.Errorf("ad slate size must be non-negative")
	}
	return nil
}
