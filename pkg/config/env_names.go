package config

const (
	EnvPrefix = "PREPNEST"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "PREPNEST_DB_DSN"
	EnvDBHost = "PREPNEST_DB_HOST"
	EnvDBUser = "PREPNEST_DB_USER"
	EnvDBName = "PREPNEST_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
