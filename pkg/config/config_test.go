package config

import (
	"errors"
	"testing"
	"time"
)

func TestLoad_FileAndDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Store.Driver != "sqlite" {
		t.Errorf("expected sqlite driver, got %q", cfg.Store.Driver)
	}
	if cfg.Upload.MaxBytes != 15<<20 {
		t.Errorf("expected 15 MiB upload cap, got %d", cfg.Upload.MaxBytes)
	}
	if cfg.Upload.CacheMaxAge != 168*time.Hour {
		t.Errorf("expected 168h cache max age, got %v", cfg.Upload.CacheMaxAge)
	}
	if cfg.Chat.SendBuffer != 256 {
		t.Errorf("expected send buffer 256, got %d", cfg.Chat.SendBuffer)
	}
	if !cfg.IsDevelopment() {
		t.Error("expected development env")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("PARTYCHAT_STORE_DRIVER", "redis")
	t.Setenv("PARTYCHAT_CHAT_ECHO_SENDER", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Store.Driver != "redis" {
		t.Errorf("expected redis driver from env, got %q", cfg.Store.Driver)
	}
	if !cfg.Chat.EchoSender {
		t.Error("expected echo_sender from env")
	}
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("PARTYCHAT_STORE_DRIVER", "mongo")

	_, err := Load()
	if !errors.Is(err, ErrUnknownStoreDriver) {
		t.Errorf("expected ErrUnknownStoreDriver, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		Store:  StoreConfig{Driver: "postgres"},
		Upload: UploadConfig{Backend: "nats", MaxBytes: 1},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	bad := base
	bad.Upload.Backend = "s3"
	if err := bad.Validate(); !errors.Is(err, ErrUnknownUploadBackend) {
		t.Errorf("expected ErrUnknownUploadBackend, got %v", err)
	}

	bad = base
	bad.Upload.MaxBytes = 0
	if err := bad.Validate(); err == nil {
		t.Error("expected error for non-positive max_bytes")
	}
}

func TestPostgresDSN(t *testing.T) {
	db := DBConfig{Host: "db", User: "chat", Password: "pw", Name: "rooms", Port: 5433, SSLMode: "require"}
	want := "host=db user=chat password=pw dbname=rooms port=5433 sslmode=require TimeZone=UTC"
	if got := db.PostgresDSN(); got != want {
		t.Errorf("PostgresDSN() = %q, want %q", got, want)
	}
}
