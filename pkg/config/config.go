package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Catalog      CatalogConfig
	Outbox       OutboxConfig
	Cron         CronConfig
	Tracing      TracingConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Catalog.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"COMMERCE_APP_ENV" required:"true"`
	Port         string `envconfig:"COMMERCE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"COMMERCE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"COMMERCE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type DBConfig struct {
	DSN    string `envconfig:"COMMERCE_DB_DSN"`
	Driver string `envconfig:"COMMERCE_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"COMMERCE_DB_HOST"`
	Port     int    `envconfig:"COMMERCE_DB_PORT" default:"5432"`
	User     string `envconfig:"COMMERCE_DB_USER"`
	Password string `envconfig:"COMMERCE_DB_PASSWORD"`
	Name     string `envconfig:"COMMERCE_DB_NAME"`
	SSLMode  string `envconfig:"COMMERCE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"COMMERCE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"COMMERCE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"COMMERCE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"COMMERCE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// RedisConfig is optional. Without a URL or address the catalog runs with an
// in-process no-op lock.
type RedisConfig struct {
	URL          string        `envconfig:"COMMERCE_REDIS_URL"`
	Address      string        `envconfig:"COMMERCE_REDIS_ADDR"`
	Password     string        `envconfig:"COMMERCE_REDIS_PASSWORD"`
	DB           int           `envconfig:"COMMERCE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"COMMERCE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"COMMERCE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"COMMERCE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"COMMERCE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"COMMERCE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type CatalogConfig struct {
	CascadeBatchSize int           `envconfig:"COMMERCE_CATALOG_CASCADE_BATCH_SIZE" default:"100"`
	LockTTL          time.Duration `envconfig:"COMMERCE_CATALOG_LOCK_TTL" default:"2m"`
}

func (c CatalogConfig) validate() error {
	if c.CascadeBatchSize < 1 || c.CascadeBatchSize > MaxCascadeBatchSize {
		return fmt.Errorf("%s must be between 1 and %d", EnvCascadeBatchSize, MaxCascadeBatchSize)
	}
	if c.LockTTL <= 0 {
		return fmt.Errorf("%s must be positive", EnvCatalogLockTTL)
	}
	return nil
}

// OutboxConfig tunes the relay that publishes committed outbox events.
type OutboxConfig struct {
	BatchSize      int    `envconfig:"COMMERCE_OUTBOX_BATCH_SIZE" default:"50"`
	PollIntervalMS int    `envconfig:"COMMERCE_OUTBOX_POLL_INTERVAL_MS" default:"500"`
	MaxAttempts    int    `envconfig:"COMMERCE_OUTBOX_MAX_ATTEMPTS" default:"10"`
	ChannelPrefix  string `envconfig:"COMMERCE_OUTBOX_CHANNEL_PREFIX" default:"commerce.events"`
	RetentionDays  int    `envconfig:"COMMERCE_OUTBOX_RETENTION_DAYS" default:"30"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"COMMERCE_CRON_INTERVAL" default:"24h"`
}

type TracingConfig struct {
	Enabled     bool    `envconfig:"COMMERCE_OTEL_ENABLED" default:"false"`
	ServiceName string  `envconfig:"COMMERCE_OTEL_SERVICE_NAME" default:"commerce-core"`
	Version     string  `envconfig:"COMMERCE_OTEL_SERVICE_VERSION" default:"dev"`
	Endpoint    string  `envconfig:"COMMERCE_OTEL_EXPORTER_OTLP_ENDPOINT"`
	Insecure    bool    `envconfig:"COMMERCE_OTEL_EXPORTER_OTLP_INSECURE" default:"false"`
	SampleRatio float64 `envconfig:"COMMERCE_OTEL_SAMPLER_RATIO" default:"0.1"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"COMMERCE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"COMMERCE_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" {
		return nil
	}
	if useSQLite {
		db.Driver = DriverSQLite
		db.DSN = DefaultSQLiteDSN
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range discreteDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
