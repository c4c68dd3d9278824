// internal/config/config.go
package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	Name        string `mapstructure:"name"`
	FrontendURL string `mapstructure:"frontend_url"`
}

type StatsConfig struct {
	AccuracyPeriodDays int `mapstructure:"accuracy_period_days"`
	TopDeckLimit       int `mapstructure:"top_deck_limit"`
}

type SyncConfig struct {
	MaxBatchSessions  int `mapstructure:"max_batch_sessions"`
	MaxSessionAgeDays int `mapstructure:"max_session_age_days"`
	CacheCapacity     int `mapstructure:"cache_capacity"`
	CacheTTLMinutes   int `mapstructure:"cache_ttl_minutes"`
}

type JWTConfig struct {
	SecretKey      string        `mapstructure:"secret_key"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

type SMTPConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	From string `mapstructure:"from"`
}

type SESConfig struct {
	Region          string `mapstructure:"region"`
	AuthType        string `mapstructure:"auth_type"` // "static_credentials" or "iam_role"
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	From            string `mapstructure:"from"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type Config struct {
	Database struct {
		URL string `mapstructure:"url"`
	} `mapstructure:"database"`
	Server struct {
		Port string `mapstructure:"port"`
	} `mapstructure:"server"`
	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
	App   AppConfig   `mapstructure:"app"`
	Stats StatsConfig `mapstructure:"stats"`
	Sync  SyncConfig  `mapstructure:"sync"`
	Auth  struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"auth"`
	JWT    JWTConfig `mapstructure:"jwt"`
	Mailer struct {
		Type string `mapstructure:"type"` // "log", "smtp", "ses"
	} `mapstructure:"mailer"`
	SMTP SMTPConfig `mapstructure:"smtp"`
	SES  SESConfig  `mapstructure:"ses"`
	CORS CORSConfig `mapstructure:"cors"`
}

var Cfg Config

func LoadConfig(path string) error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(path)
	viper.AddConfigPath(".")

	// 環境変数でも上書き可能にする (例: APP_DATABASE_URL)
	viper.SetEnvPrefix("APP")
	viper.AutomaticEnv()
	viper.BindEnv("database.url", "DATABASE_URL")
	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")
	viper.BindEnv("auth.enabled", "AUTH_ENABLED")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("Warning: Config file not found. Using default settings or environment variables if available.")
		} else {
			log.Printf("Error reading config file: %s\n", err)
			return err
		}
	}

	if err := viper.Unmarshal(&Cfg); err != nil {
		log.Printf("Error unmarshalling config: %s\n", err)
		return err
	}

	// --- デフォルト値の設定 ---
	if Cfg.Server.Port == "" {
		Cfg.Server.Port = DefaultServerPort
	}
	if Cfg.Log.Level == "" {
		Cfg.Log.Level = DefaultLogLevel
	}
	if Cfg.App.Name == "" {
		Cfg.App.Name = AppName
	}
	if Cfg.Stats.AccuracyPeriodDays <= 0 {
		Cfg.Stats.AccuracyPeriodDays = DefaultAccuracyPeriodDays
	}
	if Cfg.Stats.TopDeckLimit <= 0 {
		Cfg.Stats.TopDeckLimit = DefaultTopDeckLimit
	}
	if Cfg.Sync.MaxBatchSessions <= 0 {
		Cfg.Sync.MaxBatchSessions = DefaultSyncMaxBatchSessions
	}
	if Cfg.Sync.MaxSessionAgeDays <= 0 {
		Cfg.Sync.MaxSessionAgeDays = DefaultSyncMaxSessionAgeDays
	}
	if Cfg.Sync.CacheCapacity <= 0 {
		Cfg.Sync.CacheCapacity = DefaultSyncCacheCapacity
	}
	if Cfg.Sync.CacheTTLMinutes <= 0 {
		Cfg.Sync.CacheTTLMinutes = DefaultSyncCacheTTLMinutes
	}
	if Cfg.JWT.AccessTokenTTL <= 0 {
		Cfg.JWT.AccessTokenTTL = 24 * time.Hour
	}
	if Cfg.Database.URL == "" {
		log.Println("Warning: Database URL is not set in config.")
	}

	// Auth.Enabled のデフォルト値を設定 (未設定なら true = 有効 にする)
	if !viper.IsSet("auth.enabled") {
		log.Println("Auth enabled flag not set, defaulting to true (enabled)")
		Cfg.Auth.Enabled = true
	}

	log.Println("Config loaded successfully")
	log.Printf("Server Port: %s", Cfg.Server.Port)
	log.Printf("Sync Max Batch Sessions: %d", Cfg.Sync.MaxBatchSessions)
	log.Printf("Auth Enabled: %t", Cfg.Auth.Enabled)

	return nil
}
