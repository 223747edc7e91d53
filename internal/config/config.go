// Package config loads dotmap settings from defaults, an optional YAML or
// TOML file and DOTMAP_* environment variables, in that order.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "DOTMAP_"

// Config holds dotmap configuration.
type Config struct {
	HistoryLimit int     `mapstructure:"history_limit" validate:"gte=1"`
	HitRadius    float64 `mapstructure:"hit_radius" validate:"gte=0"`
	LogLevel     string  `mapstructure:"log_level" validate:"omitempty,oneof=debug info warn warning error DEBUG INFO WARN ERROR"`
	LogFormat    string  `mapstructure:"log_format" validate:"oneof=text json"`

	HTTP  HTTPConfig  `mapstructure:"http"`
	Store StoreConfig `mapstructure:"store"`
	MCP   MCPConfig   `mapstructure:"mcp"`
}

// HTTPConfig controls the HTTP server.
type HTTPConfig struct {
	Addr             string `mapstructure:"addr" validate:"required"`
	ValidateRequests bool   `mapstructure:"validate_requests"`
	CORS             bool   `mapstructure:"cors"`
}

// StoreConfig selects the session store.
type StoreConfig struct {
	Driver string      `mapstructure:"driver" validate:"oneof=memory file redis sqlite"`
	Path   string      `mapstructure:"path"`
	Redis  RedisConfig `mapstructure:"redis"`

	// EncryptionKey seals stored sessions with AES-256-GCM when set
	// (base64, 32 bytes). FallbackKeys still decrypt during rotation.
	EncryptionKey string   `mapstructure:"encryption_key" validate:"omitempty,base64"`
	FallbackKeys  []string `mapstructure:"fallback_keys" validate:"dive,base64"`
}

// RedisConfig configures the redis store and locker.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db" validate:"gte=0"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl" validate:"gte=0"`
}

// MCPConfig controls the MCP server.
type MCPConfig struct {
	Transport string `mapstructure:"transport" validate:"oneof=stdio sse"`
	Port      int    `mapstructure:"port" validate:"gte=0,lte=65535"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		HistoryLimit: 50,
		HitRadius:    10,
		LogLevel:     "info",
		LogFormat:    "text",
		HTTP: HTTPConfig{
			Addr:             ":8080",
			ValidateRequests: true,
			CORS:             true,
		},
		Store: StoreConfig{
			Driver: "memory",
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "dotmap:",
			},
		},
		MCP: MCPConfig{
			Transport: "stdio",
			Port:      8080,
		},
	}
}

// envKeys maps environment variables (without prefix) to config paths.
var envKeys = map[string]string{
	"HISTORY_LIMIT":          "history_limit",
	"HIT_RADIUS":             "hit_radius",
	"LOG_LEVEL":              "log_level",
	"LOG_FORMAT":             "log_format",
	"HTTP_ADDR":              "http.addr",
	"HTTP_VALIDATE_REQUESTS": "http.validate_requests",
	"HTTP_CORS":              "http.cors",
	"STORE_DRIVER":           "store.driver",
	"STORE_PATH":             "store.path",
	"STORE_REDIS_ADDR":       "store.redis.addr",
	"STORE_REDIS_PASSWORD":   "store.redis.password",
	"STORE_REDIS_DB":         "store.redis.db",
	"STORE_REDIS_PREFIX":     "store.redis.prefix",
	"STORE_REDIS_TTL":        "store.redis.ttl",
	"STORE_ENCRYPTION_KEY":   "store.encryption_key",
	"MCP_TRANSPORT":          "mcp.transport",
	"MCP_PORT":               "mcp.port",
}

// Load builds the configuration. path may be empty; otherwise its extension
// (.yaml, .yml or .toml) picks the parser.
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (*Config, error) {
	raw := map[string]any{}

	if path != "" {
		fromFile, err := readFile(path)
		if err != nil {
			return nil, err
		}
		merge(raw, fromFile)
	}

	for env, key := range envKeys {
		if v, ok := lookup(EnvPrefix + env); ok {
			set(raw, key, v)
		}
	}

	cfg := Default()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field ranges and enumerations.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func readFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	out := map[string]any{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &out)
	case ".toml":
		err = toml.Unmarshal(data, &out)
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return out, nil
}

// merge copies src into dst, descending into nested maps.
func merge(dst, src map[string]any) {
	for k, v := range src {
		if sub, ok := v.(map[string]any); ok {
			if existing, ok := dst[k].(map[string]any); ok {
				merge(existing, sub)
				continue
			}
			cp := map[string]any{}
			merge(cp, sub)
			dst[k] = cp
			continue
		}
		dst[k] = v
	}
}

// set stores v under a dotted path, creating intermediate maps.
func set(m map[string]any, path string, v any) {
	parts := strings.Split(path, ".")
	for _, p := range parts[:len(parts)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[p] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = v
}
