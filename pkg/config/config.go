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
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	GCS          GCSConfig
	Assets       AssetsConfig
	Readiness    ReadinessConfig
	Render       RenderConfig
	PubSub       PubSubConfig
	Cron         CronConfig
	Auth         AuthConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Assets.validateMode(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SLIDEREEL_APP_ENV" required:"true"`
	Port         string `envconfig:"SLIDEREEL_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SLIDEREEL_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SLIDEREEL_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SLIDEREEL_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SLIDEREEL_DB_DSN"`
	Driver string `envconfig:"SLIDEREEL_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SLIDEREEL_DB_HOST"`
	LegacyPort     int    `envconfig:"SLIDEREEL_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SLIDEREEL_DB_USER"`
	LegacyPassword string `envconfig:"SLIDEREEL_DB_PASSWORD"`
	LegacyName     string `envconfig:"SLIDEREEL_DB_NAME"`
	LegacySSLMode  string `envconfig:"SLIDEREEL_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SLIDEREEL_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SLIDEREEL_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SLIDEREEL_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SLIDEREEL_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SLIDEREEL_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SLIDEREEL_REDIS_ADDR"`
	Password     string        `envconfig:"SLIDEREEL_REDIS_PASSWORD"`
	DB           int           `envconfig:"SLIDEREEL_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SLIDEREEL_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SLIDEREEL_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SLIDEREEL_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SLIDEREEL_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SLIDEREEL_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SLIDEREEL_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SLIDEREEL_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"SLIDEREEL_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SLIDEREEL_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	ImageBucket string `envconfig:"SLIDEREEL_GCS_IMAGE_BUCKET" required:"true"`
	AudioBucket string `envconfig:"SLIDEREEL_GCS_AUDIO_BUCKET" required:"true"`
	VideoBucket string `envconfig:"SLIDEREEL_GCS_VIDEO_BUCKET" required:"true"`

	UploadURLExpiry   time.Duration `envconfig:"SLIDEREEL_GCS_UPLOAD_URL_EXPIRY" default:"1h"`
	DownloadURLExpiry time.Duration `envconfig:"SLIDEREEL_GCS_DOWNLOAD_URL_EXPIRY" default:"24h"`
}

type AssetsConfig struct {
	// Mode selects how composition clips reference assets: "direct" presigned
	// URLs or "external-upload" re-hosting on the render provider.
	Mode                 string        `envconfig:"SLIDEREEL_ASSET_MODE" default:"direct"`
	StorageBasePath      string        `envconfig:"SLIDEREEL_STORAGE_BASE_PATH" default:"/var/lib/slidereel"`
	ExternalCacheHours   int           `envconfig:"SLIDEREEL_EXTERNAL_CACHE_HOURS" default:"20"`
	PendingCleanupAge    time.Duration `envconfig:"SLIDEREEL_PENDING_CLEANUP_AGE" default:"24h"`
	PublishLockWait      time.Duration `envconfig:"SLIDEREEL_PUBLISH_LOCK_WAIT" default:"30s"`
	URLValiditySafetyGap time.Duration `envconfig:"SLIDEREEL_URL_SAFETY_GAP" default:"5m"`
}

func (a AssetsConfig) ExternalUploadEnabled() bool {
	return strings.EqualFold(strings.TrimSpace(a.Mode), AssetModeExternalUpload)
}

func (a AssetsConfig) ExternalCacheTTL() time.Duration {
	if a.ExternalCacheHours <= 0 {
		return 0
	}
	return time.Duration(a.ExternalCacheHours) * time.Hour
}

func (a AssetsConfig) validateMode() error {
	mode := strings.ToLower(strings.TrimSpace(a.Mode))
	if mode != AssetModeDirect && mode != AssetModeExternalUpload {
		return fmt.Errorf("invalid asset mode %q (want %q or %q)", a.Mode, AssetModeDirect, AssetModeExternalUpload)
	}
	return nil
}

type ReadinessConfig struct {
	CacheTTL time.Duration `envconfig:"SLIDEREEL_READINESS_CACHE_TTL" default:"5m"`
}

type RenderConfig struct {
	Provider     string        `envconfig:"SLIDEREEL_RENDER_PROVIDER" default:"shotstack"`
	APIKey       string        `envconfig:"SLIDEREEL_RENDER_API_KEY"`
	Endpoint     string        `envconfig:"SLIDEREEL_RENDER_ENDPOINT" default:"https://api.shotstack.io/v1"`
	IngestURL    string        `envconfig:"SLIDEREEL_RENDER_INGEST_URL" default:"https://api.shotstack.io/ingest/v1"`
	PollInterval time.Duration `envconfig:"SLIDEREEL_RENDER_POLL_INTERVAL" default:"10s"`
	PollTimeout  time.Duration `envconfig:"SLIDEREEL_RENDER_POLL_TIMEOUT" default:"30m"`
}

type PubSubConfig struct {
	AssetEventsTopic  string `envconfig:"SLIDEREEL_PUBSUB_ASSET_TOPIC" default:"sr-asset-events"`
	RenderEventsTopic string `envconfig:"SLIDEREEL_PUBSUB_RENDER_TOPIC" default:"sr-render-events"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"SLIDEREEL_CRON_INTERVAL" default:"1h"`
	LockTTL  time.Duration `envconfig:"SLIDEREEL_CRON_LOCK_TTL" default:"55m"`
}

type AuthConfig struct {
	// ServiceToken is the static bearer token trusted on the internal API.
	ServiceToken string `envconfig:"SLIDEREEL_SERVICE_TOKEN"`
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
