package config

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"glampbook/internal/pkg/errs"
)

const (
	StorageMemory = "memory"
	StorageMongo  = "mongo"
)

var ErrInvalidConfig = errs.New("config: invalid configuration")

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env      string `envconfig:"APP_ENV" default:"dev"`
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
	Storage  string `envconfig:"STORAGE" default:"memory"`

	MongoURI string `envconfig:"MONGO_URI"`
	MongoDB  string `envconfig:"MONGO_DB" default:"glampbook"`

	KafkaBrokers     []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopicPrefix string   `envconfig:"KAFKA_TOPIC_PREFIX"`

	RedisAddr string        `envconfig:"REDIS_ADDR"`
	LockTTL   time.Duration `envconfig:"LOCK_TTL" default:"10s"`
	LockWait  time.Duration `envconfig:"LOCK_WAIT" default:"3s"`

	HorizonDays        int             `envconfig:"AVAILABILITY_HORIZON_DAYS" default:"365"`
	ConflictMaxRetries uint64          `envconfig:"CONFLICT_MAX_RETRIES" default:"3"`
	RetryBackoff       []time.Duration `envconfig:"RETRY_BACKOFF" default:"20ms,200ms"`
	OutboxPollInterval time.Duration   `envconfig:"OUTBOX_POLL_INTERVAL" default:"500ms"`
	OutboxBackoff      []time.Duration `envconfig:"OUTBOX_BACKOFF" default:"1s,5s,30s"`
	ReconcileInterval  time.Duration   `envconfig:"RECONCILE_INTERVAL" default:"30s"`
	IdempotencyTTL     time.Duration   `envconfig:"IDEMP_TTL" default:"168h"`

	PropertyFixtures   string   `envconfig:"PROPERTY_FIXTURES"`
	NightlyPriceClamps string   `envconfig:"NIGHTLY_PRICE_CLAMPS"`
	CORSOrigins        []string `envconfig:"CORS_ORIGINS" default:"*"`
}

// Load parses configuration from the current environment.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, errs.Wrap(err, "config: parse environment")
	}
	cfg.Storage = strings.ToLower(strings.TrimSpace(cfg.Storage))
	if cfg.Storage == "" {
		cfg.Storage = StorageMemory
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Storage {
	case StorageMemory:
	case StorageMongo:
		if strings.TrimSpace(c.MongoURI) == "" {
			return errs.Wrap(ErrInvalidConfig, "MONGO_URI is required when STORAGE=mongo")
		}
	default:
		return errs.Wrapf(ErrInvalidConfig, "unknown STORAGE %q", c.Storage)
	}
	if c.HorizonDays <= 0 {
		return errs.Wrap(ErrInvalidConfig, "AVAILABILITY_HORIZON_DAYS must be positive")
	}
	if len(c.RetryBackoff) == 0 {
		return errs.Wrap(ErrInvalidConfig, "RETRY_BACKOFF needs at least one interval")
	}
	return nil
}

// RetryBounds returns the first and last RETRY_BACKOFF entries as the
// initial and maximum conflict retry intervals.
func (c Config) RetryBounds() (initial, max time.Duration) {
	initial = c.RetryBackoff[0]
	max = c.RetryBackoff[len(c.RetryBackoff)-1]
	if max < initial {
		max = initial
	}
	return initial, max
}
