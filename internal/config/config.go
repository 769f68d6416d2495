package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Config aggregates application configuration values.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Graph   GraphConfig   `koanf:"graph"`
	Cache   CacheConfig   `koanf:"cache"`
	Builder BuilderConfig `koanf:"builder"`
	Logging LoggingConfig `koanf:"logging"`
}

// ServerConfig governs HTTP server behaviour.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	MetricsEnabled  bool          `koanf:"metrics_enabled"`
	AllowedOrigins  []string      `koanf:"allowed_origins"`
}

// GraphConfig describes connectivity to the graph engine (Neo4j/Neptune).
type GraphConfig struct {
	URI            string        `koanf:"uri"`
	Database       string        `koanf:"database"`
	Username       string        `koanf:"username"`
	Password       string        `koanf:"password"`
	MaxConnections int           `koanf:"max_connections"`
	QueryTimeout   time.Duration `koanf:"query_timeout"`
}

// CacheConfig locates the recommendation store.
type CacheConfig struct {
	Path     string `koanf:"path"`
	InMemory bool   `koanf:"in_memory"`
}

// BuilderConfig tunes the precompute pipeline.
type BuilderConfig struct {
	PageSize int `koanf:"page_size"`
	Limit    int `koanf:"limit"`
	Workers  int `koanf:"workers"`
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level         string `koanf:"level"`
	Format        string `koanf:"format"` // text|json
	IncludeCaller bool   `koanf:"include_caller"`
}

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfigPaths are searched in order; the first existing file wins.
var defaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/coview/config.yaml",
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MetricsEnabled:  false,
			AllowedOrigins:  nil,
		},
		Graph: GraphConfig{
			URI:            "",
			Database:       "",
			MaxConnections: 10,
			QueryTimeout:   30 * time.Second,
		},
		Cache: CacheConfig{
			Path:     "./data/recommendations",
			InMemory: false,
		},
		Builder: BuilderConfig{
			PageSize: 100,
			Limit:    20,
			Workers:  1,
		},
		Logging: LoggingConfig{
			Level:         "info",
			Format:        "text",
			IncludeCaller: false,
		},
	}
}

// Load layers configuration from struct defaults, an optional YAML file and
// environment variables (highest precedence). Environment variables map to
// config paths by section prefix: SERVER_PORT -> server.port,
// BUILDER_PAGE_SIZE -> builder.page_size, GRAPH_URI -> graph.uri.
func Load() (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load config defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return Config{}, fmt.Errorf("load config from environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d is out of range", c.Server.Port)
	}
	if c.Builder.PageSize <= 0 {
		return fmt.Errorf("builder page size must be positive, got %d", c.Builder.PageSize)
	}
	if c.Builder.Limit <= 0 {
		return fmt.Errorf("builder limit must be positive, got %d", c.Builder.Limit)
	}
	if c.Builder.Workers <= 0 {
		return fmt.Errorf("builder workers must be positive, got %d", c.Builder.Workers)
	}
	if !c.Cache.InMemory && c.Cache.Path == "" {
		return fmt.Errorf("cache path is required unless the in-memory store is selected")
	}
	return nil
}

func findConfigFile() string {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	for _, path := range defaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// known config sections; anything else in the environment is ignored.
var envSections = map[string]struct{}{
	"server":  {},
	"graph":   {},
	"cache":   {},
	"builder": {},
	"logging": {},
}

func envTransform(key string) string {
	parts := strings.SplitN(strings.ToLower(key), "_", 2)
	if len(parts) != 2 {
		return ""
	}
	if _, ok := envSections[parts[0]]; !ok {
		return ""
	}
	return parts[0] + "." + parts[1]
}
