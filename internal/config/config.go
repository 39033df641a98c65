package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	Env             string
	JWTSecret       string
	TokenTTL        time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	PublicDir       string
	CORSOrigins     []string

	DB       DBConfig
	Mongo    MongoConfig
	RedisURL string
	SMTP     SMTPConfig
	AWS      AWSConfig
	SMS      SMSConfig

	FirebaseServiceAccountPath string
	NotifyTimeout              time.Duration
}

type DBConfig struct {
	Driver   string // postgres, mongo or memory
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN returns DATABASE_URL when set, otherwise a key/value DSN built from
// the individual DB_* settings.
func (c DBConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode,
	)
}

type MongoConfig struct {
	URI          string
	Database     string
	Transactions bool
}

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.Username != ""
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SESFrom         string
	SNSSenderID     string
}

func (c AWSConfig) Enabled() bool {
	return c.Region != ""
}

type SMSConfig struct {
	Provider   string // africastalking or sns
	ATUsername string
	ATAPIKey   string
}

// Load reads an optional .env file followed by the process environment.
func Load() (*Config, error) {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv("PORT", "3000"),
		Env:             getEnv("ENV", "development"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		TokenTTL:        getDuration("TOKEN_TTL", 24*time.Hour),
		ReadTimeout:     getDuration("READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getDuration("WRITE_TIMEOUT", 15*time.Second),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		PublicDir:       getEnv("PUBLIC_DIR", "./public"),
		CORSOrigins:     splitList(getEnv("CORS_ORIGINS", "*")),
		DB: DBConfig{
			Driver:   strings.ToLower(getEnv("DB_DRIVER", "memory")),
			URL:      os.Getenv("DATABASE_URL"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     getEnv("DB_NAME", "carx"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Mongo: MongoConfig{
			URI:          getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database:     getEnv("MONGO_DATABASE", "carx"),
			Transactions: getBool("MONGO_TRANSACTIONS", true),
		},
		RedisURL: os.Getenv("REDIS_URL"),
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getEnv("SMTP_PORT", "587"),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("EMAIL_FROM"),
		},
		AWS: AWSConfig{
			Region:          os.Getenv("AWS_REGION"),
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			SESFrom:         os.Getenv("SES_FROM"),
			SNSSenderID:     os.Getenv("SNS_SENDER_ID"),
		},
		SMS: SMSConfig{
			Provider:   strings.ToLower(getEnv("SMS_PROVIDER", "africastalking")),
			ATUsername: os.Getenv("AT_USERNAME"),
			ATAPIKey:   os.Getenv("AT_API_KEY"),
		},
		FirebaseServiceAccountPath: os.Getenv("FIREBASE_SERVICE_ACCOUNT_PATH"),
		NotifyTimeout:              getDuration("NOTIFY_TIMEOUT", 30*time.Second),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) validate() error {
	switch c.DB.Driver {
	case "postgres", "mongo", "memory":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DB.Driver)
	}
	switch c.SMS.Provider {
	case "africastalking", "sns":
	default:
		return fmt.Errorf("unsupported SMS_PROVIDER %q", c.SMS.Provider)
	}
	if c.JWTSecret == "" {
		if c.Env != "development" && c.Env != "test" {
			return errors.New("JWT_SECRET is required")
		}
		c.JWTSecret = "development-secret"
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return b
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
