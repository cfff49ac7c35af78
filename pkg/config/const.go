package config

const (
	// EnvPrefix is the envconfig prefix shared by all variables.
	EnvPrefix = "BOZORCHI"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv = "BOZORCHI_APP_ENV"
	EnvPort   = "BOZORCHI_APP_PORT"

	EnvDBDSN  = "BOZORCHI_DB_DSN"
	EnvDBHost = "BOZORCHI_DB_HOST"
	EnvDBUser = "BOZORCHI_DB_USER"
	EnvDBName = "BOZORCHI_DB_NAME"

	EnvRedisURL = "BOZORCHI_REDIS_URL"

	EnvJWTAccessSecret  = "BOZORCHI_JWT_ACCESS_SECRET"
	EnvJWTRefreshSecret = "BOZORCHI_JWT_REFRESH_SECRET"
	EnvJWTIssuer        = "BOZORCHI_JWT_ISSUER"
	EnvJWTAccessTTL     = "BOZORCHI_JWT_ACCESS_TTL_MINUTES"
	EnvJWTRefreshTTL    = "BOZORCHI_JWT_REFRESH_TTL_MINUTES"

	EnvDeveloperPhone = "BOZORCHI_DEVELOPER_PHONE"
	EnvDeveloperKey   = "BOZORCHI_DEVELOPER_KEY"
)

// legacyDBEnvVars are the discrete connection variables accepted when a full
// DSN is not provided.
var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
