package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matzehuels/debsrc/pkg/errors"
)

// isolate points every lookup location at fresh temporary directories.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	t.Chdir(dir)
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDefault(t *testing.T) {
	dir := isolate(t)
	cfg := Default()

	if cfg.Workers < 1 {
		t.Errorf("Workers = %d, want at least 1", cfg.Workers)
	}
	if cfg.Cache.Backend != BackendFile {
		t.Errorf("Cache.Backend = %q, want file", cfg.Cache.Backend)
	}
	if want := filepath.Join(dir, "cache", AppName); cfg.Cache.Dir != want {
		t.Errorf("Cache.Dir = %q, want %q", cfg.Cache.Dir, want)
	}
	if cfg.Cache.TTL.Duration != 24*time.Hour {
		t.Errorf("Cache.TTL = %s, want 24h", cfg.Cache.TTL)
	}
	if cfg.Mongo.Database != "debsrc" || cfg.Mongo.Collection != "sources" {
		t.Errorf("Mongo = %+v", cfg.Mongo)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Server.Addr = %q, want :8080", cfg.Server.Addr)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() error: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "debsrc.toml")
	writeFile(t, path, `
workers = 3
passthrough = true

[cache]
backend = "redis"
redis_addr = "localhost:6379"
ttl = "72h"
namespace = "bookworm:"

[mongo]
uri = "mongodb://localhost:27017"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Workers != 3 || !cfg.Passthrough {
		t.Errorf("top level = %d %v", cfg.Workers, cfg.Passthrough)
	}
	if cfg.Cache.Backend != BackendRedis || cfg.Cache.RedisAddr != "localhost:6379" || cfg.Cache.Namespace != "bookworm:" {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if cfg.Cache.TTL.Duration != 72*time.Hour {
		t.Errorf("Cache.TTL = %s, want 72h", cfg.Cache.TTL)
	}
	if cfg.Mongo.URI != "mongodb://localhost:27017" || cfg.Mongo.Database != "debsrc" {
		t.Errorf("Mongo = %+v", cfg.Mongo)
	}
}

func TestLoadDefaultPath(t *testing.T) {
	dir := isolate(t)

	// Absent default file is fine.
	if _, err := Load(""); err != nil {
		t.Fatalf("Load(\"\") without config file error: %v", err)
	}

	writeFile(t, filepath.Join(dir, "config", AppName, "config.toml"), "workers = 5\n")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error: %v", err)
	}
	if cfg.Workers != 5 {
		t.Errorf("Workers = %d, want 5", cfg.Workers)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := isolate(t)

	if _, err := Load(filepath.Join(dir, "missing.toml")); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("missing explicit file error = %v, want FILE_NOT_FOUND", err)
	}

	tests := []struct {
		name    string
		content string
	}{
		{"unknown key", "wokers = 3\n"},
		{"bad syntax", "workers = \n"},
		{"bad duration", "[cache]\nttl = \"soon\"\n"},
		{"bad backend", "[cache]\nbackend = \"s3\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".toml")
			writeFile(t, path, tt.content)
			if _, err := Load(path); !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("Load() error = %v, want INVALID_INPUT", err)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"DEBSRC_WORKERS":           "7",
		"DEBSRC_FAIL_FAST":         "true",
		"DEBSRC_CACHE_BACKEND":     "memory",
		"DEBSRC_CACHE_TTL":         "90m",
		"DEBSRC_CACHE_MEMORY_SIZE": "128",
		"DEBSRC_MONGO_URI":         "mongodb://db:27017",
		"DEBSRC_SERVER_ADDR":       " :9090 ",
		"DEBSRC_REDIS_ADDR":        "",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	cfg.Cache.RedisAddr = "kept:6379"
	if err := cfg.applyEnv(lookup); err != nil {
		t.Fatalf("applyEnv() error: %v", err)
	}

	if cfg.Workers != 7 || !cfg.FailFast {
		t.Errorf("top level = %d %v", cfg.Workers, cfg.FailFast)
	}
	if cfg.Cache.Backend != BackendMemory || cfg.Cache.TTL.Duration != 90*time.Minute || cfg.Cache.MemorySize != 128 {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if cfg.Cache.RedisAddr != "kept:6379" {
		t.Errorf("empty variable should not override, got %q", cfg.Cache.RedisAddr)
	}
	if cfg.Mongo.URI != "mongodb://db:27017" || cfg.Server.Addr != ":9090" {
		t.Errorf("Mongo.URI = %q, Server.Addr = %q", cfg.Mongo.URI, cfg.Server.Addr)
	}
}

func TestApplyEnvInvalid(t *testing.T) {
	tests := []struct {
		name, value string
	}{
		{"DEBSRC_WORKERS", "many"},
		{"DEBSRC_PASSTHROUGH", "perhaps"},
		{"DEBSRC_CACHE_TTL", "1 day"},
		{"DEBSRC_REDIS_DB", "zero"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := func(k string) (string, bool) {
				if k == tt.name {
					return tt.value, true
				}
				return "", false
			}
			err := Default().applyEnv(lookup)
			if !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Fatalf("applyEnv() error = %v, want INVALID_INPUT", err)
			}
			if got := errors.FieldOf(err); got != tt.name {
				t.Errorf("FieldOf() = %q, want %q", got, tt.name)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := isolate(t)
	t.Setenv("DEBSRC_SERVER_ADDR", "")
	os.Unsetenv("DEBSRC_SERVER_ADDR")

	writeFile(t, filepath.Join(dir, ".env"), "DEBSRC_SERVER_ADDR=:7070\n")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Addr != ":7070" {
		t.Errorf("Server.Addr = %q, want :7070 from .env", cfg.Server.Addr)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"negative workers", func(c *Config) { c.Workers = -1 }, "workers"},
		{"unknown backend", func(c *Config) { c.Cache.Backend = "s3" }, "cache.backend"},
		{"negative ttl", func(c *Config) { c.Cache.TTL.Duration = -time.Second }, "cache.ttl"},
		{"negative memory", func(c *Config) { c.Cache.MemorySize = -1 }, "cache.memory_size"},
		{"redis without addr", func(c *Config) { c.Cache.Backend = BackendRedis }, "cache.redis_addr"},
		{"file without dir", func(c *Config) { c.Cache.Dir = "" }, "cache.dir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Cache.Dir = "/tmp/debsrc"
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Fatalf("Validate() error = %v, want INVALID_INPUT", err)
			}
			if got := errors.FieldOf(err); got != tt.field {
				t.Errorf("FieldOf() = %q, want %q", got, tt.field)
			}
		})
	}

	// none and memory backends need nothing else
	for _, backend := range []string{BackendNone, BackendMemory} {
		cfg := Default()
		cfg.Cache.Backend = backend
		cfg.Cache.Dir = ""
		if err := cfg.Validate(); err != nil {
			t.Errorf("backend %s: Validate() error: %v", backend, err)
		}
	}
}
