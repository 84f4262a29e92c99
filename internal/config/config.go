// Package config loads debsrc settings.
//
// Settings are layered, later layers winning:
//
//  1. built-in defaults ([Default])
//  2. a TOML file (the path given to [Load], or $XDG_CONFIG_HOME/debsrc/config.toml)
//  3. a .env file in the working directory
//  4. DEBSRC_* environment variables
//
// Command-line flags are applied on top by the CLI.
//
// Example config.toml:
//
//	workers = 8
//	passthrough = true
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
//	ttl = "72h"
//
//	[mongo]
//	uri = "mongodb://localhost:27017"
package config

import (
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/matzehuels/debsrc/pkg/errors"
)

// AppName names the configuration and cache directories.
const AppName = "debsrc"

// Cache backends.
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendNone   = "none"
)

// Backends lists the accepted cache backend names.
var Backends = []string{BackendFile, BackendMemory, BackendRedis, BackendNone}

// Config holds every setting of the tool.
type Config struct {
	Workers     int    `toml:"workers"`
	Passthrough bool   `toml:"passthrough"`
	FailFast    bool   `toml:"fail_fast"`
	Cache       Cache  `toml:"cache"`
	Mongo       Mongo  `toml:"mongo"`
	Server      Server `toml:"server"`
}

// Cache configures the parse-result cache.
type Cache struct {
	Backend       string   `toml:"backend"`
	Dir           string   `toml:"dir"`
	TTL           Duration `toml:"ttl"`
	Namespace     string   `toml:"namespace"`
	MemorySize    int      `toml:"memory_size"`
	RedisAddr     string   `toml:"redis_addr"`
	RedisPassword string   `toml:"redis_password"`
	RedisDB       int      `toml:"redis_db"`
}

// Mongo configures the MongoDB sink. An empty URI disables it.
type Mongo struct {
	URI        string `toml:"uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

// Server configures the HTTP API.
type Server struct {
	Addr string `toml:"addr"`
}

// Duration is a time.Duration written as a string such as "24h" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Workers: runtime.GOMAXPROCS(0),
		Cache: Cache{
			Backend:    BackendFile,
			Dir:        CacheDir(),
			TTL:        Duration{24 * time.Hour},
			MemorySize: 4096,
		},
		Mongo: Mongo{
			Database:   "debsrc",
			Collection: "sources",
		},
		Server: Server{Addr: ":8080"},
	}
}

// Load builds the configuration from all layers. An empty path means the
// default config file, which may be absent; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		if err := cfg.decodeFile(path, explicit); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "load .env")
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decodeFile(path string, required bool) error {
	md, err := toml.DecodeFile(path, c)
	if stderrors.Is(err, fs.ErrNotExist) {
		if required {
			return errors.Wrap(errors.ErrCodeFileNotFound, err, "config file %s", path)
		}
		return nil
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "config file %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return errors.New(errors.ErrCodeInvalidInput, "config file %s: unknown key %q", path, undecoded[0].String())
	}
	return nil
}

// applyEnv overrides settings from DEBSRC_* variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(name string, dst *int) error {
		v, ok := lookup(name)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return errors.ForField(errors.ErrCodeInvalidInput, name, "%s: not an integer: %q", name, v)
		}
		*dst = n
		return nil
	}
	flag := func(name string, dst *bool) error {
		v, ok := lookup(name)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return errors.ForField(errors.ErrCodeInvalidInput, name, "%s: not a boolean: %q", name, v)
		}
		*dst = b
		return nil
	}

	if err := num("DEBSRC_WORKERS", &c.Workers); err != nil {
		return err
	}
	if err := flag("DEBSRC_PASSTHROUGH", &c.Passthrough); err != nil {
		return err
	}
	if err := flag("DEBSRC_FAIL_FAST", &c.FailFast); err != nil {
		return err
	}

	str("DEBSRC_CACHE_BACKEND", &c.Cache.Backend)
	str("DEBSRC_CACHE_DIR", &c.Cache.Dir)
	str("DEBSRC_CACHE_NAMESPACE", &c.Cache.Namespace)
	if v, ok := lookup("DEBSRC_CACHE_TTL"); ok && strings.TrimSpace(v) != "" {
		if err := c.Cache.TTL.UnmarshalText([]byte(strings.TrimSpace(v))); err != nil {
			return errors.ForField(errors.ErrCodeInvalidInput, "DEBSRC_CACHE_TTL", "DEBSRC_CACHE_TTL: %v", err)
		}
	}
	if err := num("DEBSRC_CACHE_MEMORY_SIZE", &c.Cache.MemorySize); err != nil {
		return err
	}
	str("DEBSRC_REDIS_ADDR", &c.Cache.RedisAddr)
	str("DEBSRC_REDIS_PASSWORD", &c.Cache.RedisPassword)
	if err := num("DEBSRC_REDIS_DB", &c.Cache.RedisDB); err != nil {
		return err
	}

	str("DEBSRC_MONGO_URI", &c.Mongo.URI)
	str("DEBSRC_MONGO_DATABASE", &c.Mongo.Database)
	str("DEBSRC_MONGO_COLLECTION", &c.Mongo.Collection)
	str("DEBSRC_SERVER_ADDR", &c.Server.Addr)
	return nil
}

// Validate checks value ranges and cross-field requirements.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return errors.ForField(errors.ErrCodeInvalidInput, "workers", "workers must not be negative, got %d", c.Workers)
	}
	if !slices.Contains(Backends, c.Cache.Backend) {
		return errors.ForField(errors.ErrCodeInvalidInput, "cache.backend",
			"unknown cache backend %q (want one of %s)", c.Cache.Backend, strings.Join(Backends, ", "))
	}
	if c.Cache.TTL.Duration < 0 {
		return errors.ForField(errors.ErrCodeInvalidInput, "cache.ttl", "cache ttl must not be negative")
	}
	if c.Cache.MemorySize < 0 {
		return errors.ForField(errors.ErrCodeInvalidInput, "cache.memory_size", "memory size must not be negative")
	}
	if c.Cache.Backend == BackendRedis && c.Cache.RedisAddr == "" {
		return errors.ForField(errors.ErrCodeInvalidInput, "cache.redis_addr", "redis backend requires redis_addr")
	}
	if c.Cache.Backend == BackendFile && c.Cache.Dir == "" {
		return errors.ForField(errors.ErrCodeInvalidInput, "cache.dir", "file backend requires a cache directory")
	}
	return nil
}

// CacheDir returns the cache directory using the XDG standard
// (~/.cache/debsrc/), or "" if no home directory is known.
func CacheDir() string {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".cache", AppName)
}

// DefaultPath returns the default config file location
// (~/.config/debsrc/config.toml), or "" if no home directory is known.
func DefaultPath() string {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, AppName, "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", AppName, "config.toml")
}
