package config

const EnvPrefix = "COMMERCE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	DriverPostgres   = "postgres"
	DriverSQLite     = "sqlite"
	DefaultSQLiteDSN = "file:commerce.db?cache=shared&_foreign_keys=on"

	MaxCascadeBatchSize = 1000
)

const (
	EnvAppEnv   = "COMMERCE_APP_ENV"
	EnvPort     = "COMMERCE_APP_PORT"
	EnvLogLevel = "COMMERCE_LOG_LEVEL"

	EnvDBDSN  = "COMMERCE_DB_DSN"
	EnvDBHost = "COMMERCE_DB_HOST"
	EnvDBUser = "COMMERCE_DB_USER"
	EnvDBName = "COMMERCE_DB_NAME"

	EnvRedisURL = "COMMERCE_REDIS_URL"

	EnvCascadeBatchSize = "COMMERCE_CATALOG_CASCADE_BATCH_SIZE"
	EnvCatalogLockTTL   = "COMMERCE_CATALOG_LOCK_TTL"

	EnvUseSQLite = "COMMERCE_USE_SQLITE"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
