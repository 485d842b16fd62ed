package config

// EnvPrefix is passed to envconfig; individual fields carry full names so the
// prefix stays empty to keep variables greppable.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "SLIDEREEL_DB_DSN"
	EnvDBHost = "SLIDEREEL_DB_HOST"
	EnvDBUser = "SLIDEREEL_DB_USER"
	EnvDBName = "SLIDEREEL_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

const (
	// AssetModeDirect serves compositions straight from presigned download URLs.
	AssetModeDirect = "direct"
	// AssetModeExternalUpload re-hosts assets on the rendering provider first.
	AssetModeExternalUpload = "external-upload"
)
