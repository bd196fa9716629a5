// Package config loads service settings from STOREORDERS_* environment variables.
package config

import (
	"fmt"
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

// Config is shared by every binary; each reads only the sections it needs.
type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Completion   CompletionConfig
	Cron         CronConfig
}

// Load reads the environment and reports every invalid setting at once.
func Load() (*Config, error) {
	cfg := new(Config)
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.check(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) check() error {
	var err error
	if dsn, dsnErr := c.DB.resolveDSN(); dsnErr != nil {
		err = multierr.Append(err, dsnErr)
	} else {
		c.DB.DSN = dsn
	}
	if c.Outbox.MaxAttempts < 1 {
		err = multierr.Append(err, fmt.Errorf("%s must be at least 1", EnvOutboxMaxAttempts))
	}
	if c.Cron.LockTTL <= 0 || c.Cron.Interval <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s and %s must be positive", EnvCronInterval, EnvCronLockTTL))
	}
	if c.Completion.PollInterval <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvCompletionPollInterval))
	}
	return err
}

type AppConfig struct {
	Env                  string   `envconfig:"STOREORDERS_APP_ENV" required:"true"`
	Port                 string   `envconfig:"STOREORDERS_APP_PORT" required:"true"`
	LogLevel             string   `envconfig:"STOREORDERS_LOG_LEVEL" default:"info"`
	LogWarnStack         bool     `envconfig:"STOREORDERS_LOG_WARN_STACK" default:"false"`
	CORSOrigins          []string `envconfig:"STOREORDERS_CORS_ORIGINS" default:"http://localhost:3000"`
	NotificationLanguage string   `envconfig:"STOREORDERS_NOTIFICATION_LANGUAGE" default:"en"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

// IsProd accepts both "prod" and "production".
func (a AppConfig) IsProd() bool {
	env := strings.ToLower(a.Env)
	return env == AppEnvProd || env == "production"
}

// ServiceConfig.Kind is overwritten by each binary before logging starts.
type ServiceConfig struct {
	Kind string `envconfig:"STOREORDERS_SERVICE_KIND" default:"api"`
}

// DBConfig takes a full DSN or, failing that, the discrete host/user/name
// variables that older deployments still set.
type DBConfig struct {
	DSN    string `envconfig:"STOREORDERS_DB_DSN"`
	Driver string `envconfig:"STOREORDERS_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"STOREORDERS_DB_HOST"`
	Port     int    `envconfig:"STOREORDERS_DB_PORT" default:"5432"`
	User     string `envconfig:"STOREORDERS_DB_USER"`
	Password string `envconfig:"STOREORDERS_DB_PASSWORD"`
	Name     string `envconfig:"STOREORDERS_DB_NAME"`
	SSLMode  string `envconfig:"STOREORDERS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREORDERS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREORDERS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREORDERS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREORDERS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	// SlowQuery is the duration above which statements are logged at warn.
	SlowQuery time.Duration `envconfig:"STOREORDERS_DB_SLOW_QUERY" default:"500ms"`
}

func (db DBConfig) resolveDSN() (string, error) {
	if db.DSN != "" {
		return db.DSN, nil
	}

	var missing []string
	for env, value := range map[string]string{EnvDBHost: db.Host, EnvDBUser: db.User, EnvDBName: db.Name} {
		if value == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return "", fmt.Errorf("set %s or all of %s", EnvDBDSN, strings.Join(missing, ", "))
	}

	dsn := url.URL{
		Scheme: "postgres",
		User:   url.User(db.User),
		Host:   net.JoinHostPort(db.Host, strconv.Itoa(db.Port)),
		Path:   db.Name,
	}
	if db.Password != "" {
		dsn.User = url.UserPassword(db.User, db.Password)
	}
	if db.SSLMode != "" {
		dsn.RawQuery = url.Values{"sslmode": {db.SSLMode}}.Encode()
	}
	return dsn.String(), nil
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREORDERS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STOREORDERS_REDIS_ADDR"`
	Password     string        `envconfig:"STOREORDERS_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREORDERS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREORDERS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREORDERS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREORDERS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREORDERS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREORDERS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig carries the verification settings for bearer tokens minted by
// the identity service.
type JWTConfig struct {
	Secret            string `envconfig:"STOREORDERS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"STOREORDERS_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"STOREORDERS_JWT_EXPIRATION_MINUTES" default:"60"`
}

type RateLimitConfig struct {
	Window        time.Duration `envconfig:"STOREORDERS_RATE_LIMIT_WINDOW" default:"1m"`
	RequestsPerIP int           `envconfig:"STOREORDERS_RATE_LIMIT_REQUESTS_PER_IP" default:"120"`
	// SplitPerIP applies to the split endpoint on top of RequestsPerIP.
	SplitPerIP int `envconfig:"STOREORDERS_RATE_LIMIT_SPLIT_PER_IP" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"STOREORDERS_AUTO_MIGRATE" default:"false"`
	AutoSplit   bool `envconfig:"STOREORDERS_AUTO_SPLIT" default:"true"`
}

type EventingConfig struct {
	// OutboxIdempotencyTTL is how long consumers remember a handled event id.
	OutboxIdempotencyTTL time.Duration `envconfig:"STOREORDERS_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"STOREORDERS_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"STOREORDERS_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"STOREORDERS_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic              string `envconfig:"STOREORDERS_PUBSUB_ORDERS_TOPIC" required:"true"`
	NotificationSubscription string `envconfig:"STOREORDERS_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
	DLQTopic                 string `envconfig:"STOREORDERS_PUBSUB_DLQ_TOPIC"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"STOREORDERS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"STOREORDERS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"STOREORDERS_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// CompletionConfig tunes how clients are told to poll the delivery gate.
type CompletionConfig struct {
	PollInterval time.Duration `envconfig:"STOREORDERS_COMPLETION_POLL_INTERVAL" default:"30s"`
}

type CronConfig struct {
	Interval                 time.Duration `envconfig:"STOREORDERS_CRON_INTERVAL" default:"1h"`
	LockTTL                  time.Duration `envconfig:"STOREORDERS_CRON_LOCK_TTL" default:"10m"`
	NotificationRetention    time.Duration `envconfig:"STOREORDERS_CRON_NOTIFICATION_RETENTION" default:"720h"`
	OutboxRetention          time.Duration `envconfig:"STOREORDERS_CRON_OUTBOX_RETENTION" default:"720h"`
	DivisionBackfillBatchMax int           `envconfig:"STOREORDERS_CRON_DIVISION_BACKFILL_BATCH" default:"500"`
}
