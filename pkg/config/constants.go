package config

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	DefaultSQLiteDSN = "file:storefront.db?_foreign_keys=on"
)

const (
	EnvAppEnv  = "STOREFRONT_APP_ENV"
	EnvPort    = "STOREFRONT_APP_PORT"
	EnvLogLvl  = "STOREFRONT_LOG_LEVEL"
	EnvOrigins = "STOREFRONT_ALLOWED_ORIGINS"

	EnvDBDSN      = "STOREFRONT_DB_DSN"
	EnvDBDriver   = "STOREFRONT_DB_DRIVER"
	EnvDBHost     = "STOREFRONT_DB_HOST"
	EnvDBPort     = "STOREFRONT_DB_PORT"
	EnvDBUser     = "STOREFRONT_DB_USER"
	EnvDBPassword = "STOREFRONT_DB_PASSWORD"
	EnvDBName     = "STOREFRONT_DB_NAME"
	EnvDBSSLMode  = "STOREFRONT_DB_SSLMODE"

	EnvRedisURL = "STOREFRONT_REDIS_URL"

	EnvJWTSecret  = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer  = "STOREFRONT_JWT_ISSUER"
	EnvJWTExpMins = "STOREFRONT_JWT_EXPIRATION_MINUTES"

	EnvStripeAPIKey   = "STOREFRONT_STRIPE_API_KEY"
	EnvStripeSecret   = "STOREFRONT_STRIPE_SECRET"
	EnvStripeEnv      = "STOREFRONT_STRIPE_ENV"
	EnvStripeCurrency = "STOREFRONT_STRIPE_CURRENCY"

	EnvCartCookieName = "STOREFRONT_CART_COOKIE_NAME"

	EnvGCPProjectID       = "STOREFRONT_GCP_PROJECT_ID"
	EnvPubSubOrdersTopic  = "STOREFRONT_PUBSUB_ORDERS_TOPIC"
	EnvPubSubCatalogTopic = "STOREFRONT_PUBSUB_CATALOG_TOPIC"
	EnvOutboxMaxAttempts  = "STOREFRONT_OUTBOX_MAX_ATTEMPTS"
	EnvOutboxRetention    = "STOREFRONT_OUTBOX_RETENTION"
	EnvCronInterval       = "STOREFRONT_CRON_INTERVAL"
	EnvUseSQLite          = "STOREFRONT_USE_SQLITE"
	EnvAutoMigrate        = "STOREFRONT_AUTO_MIGRATE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
