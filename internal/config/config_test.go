package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultsWithoutFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != ":8080" || cfg.Timezone != "America/Sao_Paulo" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Offsets.RefreshInterval != 5*time.Minute || cfg.Worker.TickInterval != time.Second {
		t.Fatalf("unexpected intervals %+v %+v", cfg.Offsets, cfg.Worker)
	}
	if cfg.Storage.Backend != BackendFile || cfg.Storage.SaveDebounce != time.Second {
		t.Fatalf("unexpected storage %+v", cfg.Storage)
	}
}

func TestFileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("server:\n  port: \":9000\"\nstorage:\n  backend: sqlite\noffsets:\n  timeout: 3s\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BOSSWATCH_SERVER_PORT", ":9100")
	t.Setenv("BOSSWATCH_TELEGRAM_CHAT_IDS", "11,22")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != ":9100" {
		t.Fatalf("env should override file, got %q", cfg.Server.Port)
	}
	if cfg.Storage.Backend != BackendSQLite || cfg.Offsets.Timeout != 3*time.Second {
		t.Fatalf("unexpected file values %+v %+v", cfg.Storage, cfg.Offsets)
	}
	if len(cfg.Telegram.ChatIDs) != 2 || cfg.Telegram.ChatIDs[1] != 22 {
		t.Fatalf("unexpected chat ids %v", cfg.Telegram.ChatIDs)
	}
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	t.Setenv("BOSSWATCH_STORAGE_BACKEND", "redis")
	if _, err := LoadConfig(""); err == nil {
		t.Fatal("expected an error for an unknown backend")
	}
}
