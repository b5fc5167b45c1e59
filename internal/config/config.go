// Package config loads server configuration from YAML with environment
// variable overrides.
package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds server-wide configuration settings.
type ServerConfig struct {
	Listen    string          `yaml:"listen"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Auth      AuthConfig      `yaml:"auth"`
	Database  DatabaseConfig  `yaml:"database"`
	Content   ContentConfig   `yaml:"content"`
	Features  FeaturesConfig  `yaml:"features"`
}

// WebSocketConfig holds WebSocket-specific settings.
type WebSocketConfig struct {
	// AllowedOrigins is a list of origins allowed to connect.
	// Empty list enforces same-origin policy; "*" allows all.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// MaxMessageSize is the maximum message size in bytes.
	MaxMessageSize int64 `yaml:"max_message_size"`
}

// AuthConfig holds gateway authentication settings.
type AuthConfig struct {
	// KeyHash is the bcrypt hash of the shared gateway key. Empty
	// disables authentication (local development only).
	KeyHash string `yaml:"key_hash"`
}

// DatabaseConfig selects the catalog persistence backend.
type DatabaseConfig struct {
	// Dialect is "sqlite" or "postgres".
	Dialect string `yaml:"dialect"`

	// Path is the SQLite database file path.
	Path string `yaml:"path"`

	// DSN is the PostgreSQL connection string (postgres dialect only).
	DSN string `yaml:"dsn"`
}

// ContentConfig points at authored quest content.
type ContentConfig struct {
	// QuestsDir is a directory of quest YAML files seeded into an empty
	// catalog at startup.
	QuestsDir string `yaml:"quests_dir"`
}

// FeaturesConfig holds feature toggles.
type FeaturesConfig struct {
	// AllowAbandon gates the abandonment operation globally; individual
	// quests additionally opt in.
	AllowAbandon bool `yaml:"allow_abandon"`

	// RepeatableCheckMinutes is the scheduler scan interval.
	RepeatableCheckMinutes int `yaml:"repeatable_check_minutes"`
}

// DefaultConfig returns a ServerConfig with workable defaults.
func DefaultConfig() *ServerConfig {
	return &ServerConfig{
		Listen: ":8337",
		WebSocket: WebSocketConfig{
			AllowedOrigins: []string{},
			MaxMessageSize: 65536,
		},
		Database: DatabaseConfig{
			Dialect: "sqlite",
			Path:    "data/questhall.db",
		},
		Content: ContentConfig{
			QuestsDir: "content/quests",
		},
		Features: FeaturesConfig{
			AllowAbandon:           true,
			RepeatableCheckMinutes: 5,
		},
	}
}

// LoadConfig loads server configuration from a YAML file. A missing
// file yields the defaults; a malformed file is an error.
func LoadConfig(path string) (*ServerConfig, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(config)
			return config, nil
		}
		return config, err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return DefaultConfig(), err
	}

	applyEnvOverrides(config)
	return config, nil
}

func applyEnvOverrides(config *ServerConfig) {
	if listen := os.Getenv("QUESTHALL_LISTEN"); listen != "" {
		config.Listen = listen
	}
	if dialect := os.Getenv("QUESTHALL_DB_DIALECT"); dialect != "" {
		config.Database.Dialect = dialect
	}
	if path := os.Getenv("QUESTHALL_DB_PATH"); path != "" {
		config.Database.Path = path
	}
	if dsn := os.Getenv("QUESTHALL_DB_DSN"); dsn != "" {
		config.Database.DSN = dsn
	}
	if keyHash := os.Getenv("QUESTHALL_AUTH_KEY_HASH"); keyHash != "" {
		config.Auth.KeyHash = keyHash
	}
	if allow := os.Getenv("QUESTHALL_ALLOW_ABANDON"); allow != "" {
		if parsed, err := strconv.ParseBool(allow); err == nil {
			config.Features.AllowAbandon = parsed
		}
	}
}

// IsOriginAllowed checks an Origin header value against the allow list.
// An empty list rejects every browser origin; clients that send no
// Origin header are admitted by the gateway before this check. "*"
// allows everything.
func (c *WebSocketConfig) IsOriginAllowed(origin string) bool {
	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
