package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	JWTSecret   string
	MongoURI    string
	DBName      string
	SkipAuth    bool
	Environment string
	AppId       string
	FSPath      string // Physical directory for generated report files
	FSURL       string // URL path prefix for report file access

	// SMTP settings for report distribution
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	// Execution limits
	ExecutionTimeoutMinutes int // hard kill for a single report run
	ExecutionWarnMinutes    int // soft warning before the hard kill
	RetentionDays           int // terminal executions older than this are purged
	QueueWorkers            int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	} else {
		log.Println("Loaded .env file successfully")
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		JWTSecret:   getEnv("JWT_SECRET", "secret"),
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:      getEnv("DB_NAME", "go-reports"),
		SkipAuth:    getEnv("SKIP_AUTH", "false") == "true",
		Environment: getEnv("ENVIRONMENT", "development"),
		AppId:       getEnv("APP_ID", "go-reports"),
		FSPath:      getEnv("FS_PATH", "./media"),
		FSURL:       getEnv("FS_URL", "/media"),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", "reports@localhost"),

		ExecutionTimeoutMinutes: getEnvInt("EXECUTION_TIMEOUT_MINUTES", 30),
		ExecutionWarnMinutes:    getEnvInt("EXECUTION_WARN_MINUTES", 25),
		RetentionDays:           getEnvInt("RETENTION_DAYS", 90),
		QueueWorkers:            getEnvInt("QUEUE_WORKERS", 4),
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}
