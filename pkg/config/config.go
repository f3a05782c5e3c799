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
	DB           DBConfig
	Redis        RedisConfig
	Extraction   ExtractionConfig
	Conversation ConversationConfig
	AgentLock    AgentLockConfig
	Payments     PaymentsConfig
	Transport    TransportConfig
	Outbound     OutboundConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"MENUBOT_APP_ENV" required:"true"`
	Port         string `envconfig:"MENUBOT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MENUBOT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MENUBOT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"MENUBOT_DB_DSN"`
	Driver string `envconfig:"MENUBOT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MENUBOT_DB_HOST"`
	LegacyPort     int    `envconfig:"MENUBOT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MENUBOT_DB_USER"`
	LegacyPassword string `envconfig:"MENUBOT_DB_PASSWORD"`
	LegacyName     string `envconfig:"MENUBOT_DB_NAME"`
	LegacySSLMode  string `envconfig:"MENUBOT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MENUBOT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MENUBOT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MENUBOT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MENUBOT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MENUBOT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MENUBOT_REDIS_ADDR"`
	Password     string        `envconfig:"MENUBOT_REDIS_PASSWORD"`
	DB           int           `envconfig:"MENUBOT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MENUBOT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MENUBOT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MENUBOT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MENUBOT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MENUBOT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type ExtractionConfig struct {
	APIKey            string        `envconfig:"MENUBOT_EXTRACTION_API_KEY"`
	Model             string        `envconfig:"MENUBOT_EXTRACTION_MODEL" default:"gemini-2.0-flash"`
	EmbeddingModel    string        `envconfig:"MENUBOT_EXTRACTION_EMBEDDING_MODEL" default:"gemini-embedding-001"`
	Timeout           time.Duration `envconfig:"MENUBOT_EXTRACTION_TIMEOUT" default:"20s"`
	MinConfidence     float64       `envconfig:"MENUBOT_EXTRACTION_MIN_CONFIDENCE" default:"0.7"`
	MinItemConfidence float64       `envconfig:"MENUBOT_EXTRACTION_MIN_ITEM_CONFIDENCE" default:"0.5"`
	HistoryTurns      int           `envconfig:"MENUBOT_EXTRACTION_HISTORY_TURNS" default:"10"`
}

// Configured reports whether the completion service can be called at all.
// An unconfigured service degrades every interpretation to a handoff.
func (e ExtractionConfig) Configured() bool {
	return strings.TrimSpace(e.APIKey) != ""
}

type ConversationConfig struct {
	ProcessingLockTTL time.Duration `envconfig:"MENUBOT_CONVERSATION_LOCK_TTL" default:"30s"`
}

type AgentLockConfig struct {
	TTL time.Duration `envconfig:"MENUBOT_AGENT_LOCK_TTL" default:"2m"`
}

type PaymentsConfig struct {
	LinkExpiry  time.Duration `envconfig:"MENUBOT_PAYMENTS_LINK_EXPIRY" default:"30m"`
	LinkBaseURL string        `envconfig:"MENUBOT_PAYMENTS_LINK_BASE_URL"`
}

type TransportConfig struct {
	BaseURL     string        `envconfig:"MENUBOT_TRANSPORT_BASE_URL" default:"https://graph.facebook.com/v19.0"`
	AccessToken string        `envconfig:"MENUBOT_TRANSPORT_ACCESS_TOKEN"`
	VerifyToken string        `envconfig:"MENUBOT_TRANSPORT_VERIFY_TOKEN"`
	AppSecret   string        `envconfig:"MENUBOT_TRANSPORT_APP_SECRET"`
	Timeout     time.Duration `envconfig:"MENUBOT_TRANSPORT_TIMEOUT" default:"10s"`
}

type OutboundConfig struct {
	BatchSize    int           `envconfig:"MENUBOT_OUTBOUND_BATCH_SIZE" default:"50"`
	PollInterval time.Duration `envconfig:"MENUBOT_OUTBOUND_POLL_INTERVAL" default:"500ms"`
	MaxAttempts  int           `envconfig:"MENUBOT_OUTBOUND_MAX_ATTEMPTS" default:"10"`
}

type FeatureFlagsConfig struct {
	AutoMigrate  bool `envconfig:"MENUBOT_AUTO_MIGRATE" default:"false"`
	VectorSearch bool `envconfig:"MENUBOT_FEATURE_VECTOR_SEARCH" default:"false"`
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
