package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var configEnvKeys = []string{
	"ENV_FILE", "PORT", "LOG_LEVEL", "LOG_FILE", "INSTRUMENTS_FILE",
	"PROCESS_INTERVAL", "REMATCH_DEPENDENTS", "READ_TIMEOUT",
	"WRITE_TIMEOUT", "IDLE_TIMEOUT", "SHUTDOWN_TIMEOUT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnvKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	// Point at a file that does not exist so a stray .env is never read.
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.LogFile != "" {
		t.Errorf("LogFile = %q, want empty", cfg.LogFile)
	}
	if cfg.InstrumentsFile != "instruments.yaml" {
		t.Errorf("InstrumentsFile = %q, want instruments.yaml", cfg.InstrumentsFile)
	}
	if cfg.ProcessInterval != 0 {
		t.Errorf("ProcessInterval = %v, want 0", cfg.ProcessInterval)
	}
	if !cfg.RematchDependents {
		t.Error("RematchDependents = false, want true")
	}
	if cfg.ReadTimeout != 5*time.Second {
		t.Errorf("ReadTimeout = %v, want 5s", cfg.ReadTimeout)
	}
	if cfg.WriteTimeout != 10*time.Second {
		t.Errorf("WriteTimeout = %v, want 10s", cfg.WriteTimeout)
	}
	if cfg.IdleTimeout != 60*time.Second {
		t.Errorf("IdleTimeout = %v, want 60s", cfg.IdleTimeout)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 10s", cfg.ShutdownTimeout)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FILE", "/tmp/matchbook.log")
	t.Setenv("INSTRUMENTS_FILE", "conf/instruments.yaml")
	t.Setenv("PROCESS_INTERVAL", "500ms")
	t.Setenv("REMATCH_DEPENDENTS", "false")
	t.Setenv("READ_TIMEOUT", "2s")
	t.Setenv("WRITE_TIMEOUT", "5s")
	t.Setenv("IDLE_TIMEOUT", "30s")
	t.Setenv("SHUTDOWN_TIMEOUT", "15s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if cfg.LogFile != "/tmp/matchbook.log" {
		t.Errorf("LogFile = %q", cfg.LogFile)
	}
	if cfg.InstrumentsFile != "conf/instruments.yaml" {
		t.Errorf("InstrumentsFile = %q", cfg.InstrumentsFile)
	}
	if cfg.ProcessInterval != 500*time.Millisecond {
		t.Errorf("ProcessInterval = %v, want 500ms", cfg.ProcessInterval)
	}
	if cfg.RematchDependents {
		t.Error("RematchDependents = true, want false")
	}
	if cfg.ShutdownTimeout != 15*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 15s", cfg.ShutdownTimeout)
	}
}

func TestLoad_EmptyInstrumentsFileDisablesBootstrap(t *testing.T) {
	clearEnv(t)
	t.Setenv("INSTRUMENTS_FILE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.InstrumentsFile != "" {
		t.Errorf("InstrumentsFile = %q, want empty", cfg.InstrumentsFile)
	}
}

func TestLoad_DotEnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("PORT=7070\nLOG_LEVEL=warn\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ENV_FILE", path)
	t.Setenv("LOG_LEVEL", "error") // environment wins over .env

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// godotenv sets PORT for the rest of the process; reset it for later tests.
	t.Cleanup(func() { os.Unsetenv("PORT") })

	if cfg.Port != 7070 {
		t.Errorf("Port = %d, want 7070 from .env", cfg.Port)
	}
	if cfg.LogLevel != "error" {
		t.Errorf("LogLevel = %q, want error from environment", cfg.LogLevel)
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	for _, v := range []string{"not-a-number", "0", "70000"} {
		t.Run(v, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("PORT", v)

			if _, err := Load(); err == nil {
				t.Fatalf("expected error for PORT=%s", v)
			}
		})
	}
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_LEVEL", "verbose")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for invalid LOG_LEVEL")
	}
}

func TestLoad_InvalidRematchDependents(t *testing.T) {
	clearEnv(t)
	t.Setenv("REMATCH_DEPENDENTS", "sometimes")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid REMATCH_DEPENDENTS")
	}
}

func TestLoad_NegativeProcessInterval(t *testing.T) {
	clearEnv(t)
	t.Setenv("PROCESS_INTERVAL", "-1s")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for negative PROCESS_INTERVAL")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	keys := []string{
		"PROCESS_INTERVAL", "READ_TIMEOUT", "WRITE_TIMEOUT",
		"IDLE_TIMEOUT", "SHUTDOWN_TIMEOUT",
	}

	for _, key := range keys {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, "not-a-duration")

			_, err := Load()
			if err == nil {
				t.Fatalf("expected error for invalid %s", key)
			}
		})
	}
}
