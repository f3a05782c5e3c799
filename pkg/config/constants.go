package config

const (
	// EnvPrefix is intentionally empty: every field carries a fully
	// qualified MENUBOT_ env tag so the prefix never doubles up.
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "MENUBOT_DB_DSN"
	EnvDBHost = "MENUBOT_DB_HOST"
	EnvDBUser = "MENUBOT_DB_USER"
	EnvDBName = "MENUBOT_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
