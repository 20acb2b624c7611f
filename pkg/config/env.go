package config

const (
	EnvPrefix = "CANTEEN"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	EnvAppEnv      = "CANTEEN_APP_ENV"
	EnvPort        = "CANTEEN_APP_PORT"
	EnvLogLevel    = "CANTEEN_LOG_LEVEL"
	EnvCORSOrigins = "CANTEEN_CORS_ORIGINS"

	EnvDBDSN        = "CANTEEN_DB_DSN"
	EnvDBDriver     = "CANTEEN_DB_DRIVER"
	EnvDBSQLitePath = "CANTEEN_DB_SQLITE_PATH"

	EnvRedisURL = "CANTEEN_REDIS_URL"

	EnvJWTSecret  = "CANTEEN_JWT_SECRET"
	EnvJWTIssuer  = "CANTEEN_JWT_ISSUER"
	EnvJWTExpMins = "CANTEEN_JWT_EXPIRATION_MINUTES"

	EnvUseSQLite        = "CANTEEN_USE_SQLITE"
	EnvAutoMigrate      = "CANTEEN_AUTO_MIGRATE"
	EnvAllowStaffSignup = "CANTEEN_ALLOW_STAFF_SIGNUP"

	EnvOrdersDefaultPageSize = "CANTEEN_ORDERS_DEFAULT_PAGE_SIZE"
	EnvOrdersMaxPageSize     = "CANTEEN_ORDERS_MAX_PAGE_SIZE"
	EnvOrdersMaxLineQuantity = "CANTEEN_ORDERS_MAX_LINE_QUANTITY"

	EnvIdempotencyTTL = "CANTEEN_IDEMPOTENCY_TTL"

	EnvClientAPIBaseURL    = "CANTEEN_CLIENT_API_BASE_URL"
	EnvClientRedisURL      = "CANTEEN_CLIENT_REDIS_URL"
	EnvClientCartNamespace = "CANTEEN_CLIENT_CART_NAMESPACE"
	EnvClientCartTTL       = "CANTEEN_CLIENT_CART_TTL"
	EnvClientSession       = "CANTEEN_CLIENT_SESSION"
)
