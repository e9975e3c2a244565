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
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SOUK_APP_ENV" required:"true"`
	Port         string `envconfig:"SOUK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SOUK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SOUK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SOUK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SOUK_DB_DSN"`
	Driver string `envconfig:"SOUK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SOUK_DB_HOST"`
	LegacyPort     int    `envconfig:"SOUK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SOUK_DB_USER"`
	LegacyPassword string `envconfig:"SOUK_DB_PASSWORD"`
	LegacyName     string `envconfig:"SOUK_DB_NAME"`
	LegacySSLMode  string `envconfig:"SOUK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SOUK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SOUK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SOUK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SOUK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SOUK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SOUK_REDIS_ADDR"`
	Password     string        `envconfig:"SOUK_REDIS_PASSWORD"`
	DB           int           `envconfig:"SOUK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SOUK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SOUK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SOUK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SOUK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SOUK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SOUK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SOUK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SOUK_JWT_EXPIRATION_MINUTES" required:"true"`
}

// Expiration returns the access token TTL configured in minutes.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SOUK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SOUK_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	IdempotencyTTL time.Duration `envconfig:"SOUK_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SOUK_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"SOUK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SOUK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"SOUK_PUBSUB_ORDERS_TOPIC" required:"true"`
	OrdersSubscription string `envconfig:"SOUK_PUBSUB_ORDERS_SUBSCRIPTION" required:"true"`
	AuditTopic         string `envconfig:"SOUK_PUBSUB_AUDIT_TOPIC" default:"souk-audit-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SOUK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SOUK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SOUK_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
