package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	JWTSecret         string `mapstructure:"JWT_SECRET"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// MongoDB configuration.
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	DatabaseName string `mapstructure:"DATABASE_NAME"`

	// Redis configuration.
	RedisAddr      string `mapstructure:"REDIS_ADDR"`
	RedisPassword  string `mapstructure:"REDIS_PASSWORD"`
	RedisEventDB   int    `mapstructure:"REDIS_EVENT_DB"`
	RedisQueueDB   int    `mapstructure:"REDIS_QUEUE_DB"`
	EventCacheName string `mapstructure:"EVENT_CACHE_NAME"`

	// Firebase service account used for FCM web push.
	FirebaseCredentialsFile string `mapstructure:"FIREBASE_CREDENTIALS_FILE"`

	// Portal and notification presentation.
	PortalBaseURL         string   `mapstructure:"PORTAL_BASE_URL"`
	CORSAllowedOrigins    []string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	NotificationIcon      string   `mapstructure:"NOTIFICATION_ICON"`
	NotificationBadge     string   `mapstructure:"NOTIFICATION_BADGE"`
	NotificationTagPrefix string   `mapstructure:"NOTIFICATION_TAG_PREFIX"`
	ClientMatchMode       string   `mapstructure:"CLIENT_MATCH_MODE"`

	// Worker lifecycle.
	EventRetention    time.Duration `mapstructure:"EVENT_RETENTION"`
	HandlerTimeout    time.Duration `mapstructure:"HANDLER_TIMEOUT"`
	SyncSchedule      string        `mapstructure:"SYNC_SCHEDULE"`
	CleanupSchedule   string        `mapstructure:"CLEANUP_SCHEDULE"`
	WorkerConcurrency int           `mapstructure:"WORKER_CONCURRENCY"`
}

var AppConfig Config

func LoadConfig() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("JWT_SECRET", "")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 200)
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "mytelmed")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_EVENT_DB", 0)
	viper.SetDefault("REDIS_QUEUE_DB", 1)
	viper.SetDefault("EVENT_CACHE_NAME", "notification-events")
	viper.SetDefault("FIREBASE_CREDENTIALS_FILE", "serviceAccountKey.json")
	viper.SetDefault("PORTAL_BASE_URL", "http://localhost:3000")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"})
	viper.SetDefault("NOTIFICATION_ICON", "/icons/icon-192x192.png")
	viper.SetDefault("NOTIFICATION_BADGE", "/icons/badge-72x72.png")
	viper.SetDefault("NOTIFICATION_TAG_PREFIX", "mytelmed-")
	viper.SetDefault("CLIENT_MATCH_MODE", "substring")
	viper.SetDefault("EVENT_RETENTION", 7*24*time.Hour)
	viper.SetDefault("HANDLER_TIMEOUT", 30*time.Second)
	viper.SetDefault("SYNC_SCHEDULE", "@every 15m")
	viper.SetDefault("CLEANUP_SCHEDULE", "@every 6h")
	viper.SetDefault("WORKER_CONCURRENCY", 5)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
