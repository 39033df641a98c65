package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DB_DRIVER", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DB.Driver != "memory" {
		t.Errorf("Expected memory driver, got %s", cfg.DB.Driver)
	}
	if cfg.JWTSecret == "" {
		t.Error("Expected a development secret")
	}
	if cfg.TokenTTL != 24*time.Hour {
		t.Errorf("Expected 24h token TTL, got %v", cfg.TokenTTL)
	}
}

func TestLoad_ProductionRequiresSecret(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Error("Expected error without JWT_SECRET in production")
	}
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("DB_DRIVER", "sqlite")

	if _, err := Load(); err == nil {
		t.Error("Expected error for unsupported driver")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("DB_DRIVER", "Mongo")
	t.Setenv("MONGO_TRANSACTIONS", "false")
	t.Setenv("NOTIFY_TIMEOUT", "5")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DB.Driver != "mongo" {
		t.Errorf("Expected mongo, got %s", cfg.DB.Driver)
	}
	if cfg.Mongo.Transactions {
		t.Error("Expected transactions disabled")
	}
	if cfg.NotifyTimeout != 5*time.Second {
		t.Errorf("Expected 5s, got %v", cfg.NotifyTimeout)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "http://b.test" {
		t.Errorf("Unexpected origins %v", cfg.CORSOrigins)
	}
}

func TestDSN(t *testing.T) {
	c := DBConfig{Host: "db", Port: "5432", User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	want := "host=db user=u password=p dbname=n port=5432 sslmode=disable"
	if got := c.DSN(); got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}
	c.URL = "postgres://x"
	if got := c.DSN(); got != "postgres://x" {
		t.Errorf("Expected DATABASE_URL to win, got %q", got)
	}
}
