package config

// EnvPrefix is the envconfig prefix applied to all configuration keys.
const EnvPrefix = "SOUK"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "SOUK_APP_ENV"
	EnvPort     = "SOUK_APP_PORT"
	EnvLogLevel = "SOUK_LOG_LEVEL"

	EnvDBDSN  = "SOUK_DB_DSN"
	EnvDBHost = "SOUK_DB_HOST"
	EnvDBPort = "SOUK_DB_PORT"
	EnvDBUser = "SOUK_DB_USER"
	EnvDBName = "SOUK_DB_NAME"

	EnvRedisURL = "SOUK_REDIS_URL"

	EnvJWTSecret  = "SOUK_JWT_SECRET"
	EnvJWTIssuer  = "SOUK_JWT_ISSUER"
	EnvJWTExpMins = "SOUK_JWT_EXPIRATION_MINUTES"

	EnvGCPProjectID = "SOUK_GCP_PROJECT_ID"

	EnvPubSubOrdersTopic = "SOUK_PUBSUB_ORDERS_TOPIC"
	EnvPubSubOrdersSub   = "SOUK_PUBSUB_ORDERS_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
