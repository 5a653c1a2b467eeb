package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// --- YAML-Specific Structs ---

type YamlMongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type YamlFirestoreConfig struct {
	ProjectID  string `yaml:"project_id"`
	Collection string `yaml:"collection"`
}

type YamlStoreConfig struct {
	Type      string              `yaml:"type"` // "mongo" or "firestore"
	Mongo     YamlMongoConfig     `yaml:"mongo"`
	Firestore YamlFirestoreConfig `yaml:"firestore"`
}

type YamlRedisConfig struct {
	Addr string `yaml:"addr"`
}

type YamlPresenceConfig struct {
	Type       string          `yaml:"type"`
	Redis      YamlRedisConfig `yaml:"redis"`
	TTLSeconds int             `yaml:"ttl_seconds"`
}

// YamlConfig defines the structure for unmarshaling the config.yaml file.
type YamlConfig struct {
	RunMode        string             `yaml:"run_mode"`
	APIPort        string             `yaml:"api_port"`
	WebSocketPort  string             `yaml:"websocket_port"`
	JWTSecret      string             `yaml:"jwt_secret"`
	CatchupLimit   int                `yaml:"catchup_limit"`
	AllowedOrigins []string           `yaml:"allowed_origins"`
	Store          YamlStoreConfig    `yaml:"store"`
	Presence       YamlPresenceConfig `yaml:"presence"`
}

// NewConfigFromYaml converts the raw unmarshaled data into a base
// AppConfig, applying defaults for omitted fields.
func NewConfigFromYaml(yamlCfg *YamlConfig) (*AppConfig, error) {
	appCfg := &AppConfig{
		RunMode:        yamlCfg.RunMode,
		APIPort:        yamlCfg.APIPort,
		WebSocketPort:  yamlCfg.WebSocketPort,
		JWTSecret:      yamlCfg.JWTSecret,
		CatchupLimit:   yamlCfg.CatchupLimit,
		AllowedOrigins: yamlCfg.AllowedOrigins,
		Store: StoreConfig{
			Type:      yamlCfg.Store.Type,
			Mongo:     MongoConfig(yamlCfg.Store.Mongo),
			Firestore: FirestoreConfig(yamlCfg.Store.Firestore),
		},
		Presence: PresenceConfig{
			Type:       yamlCfg.Presence.Type,
			Redis:      RedisConfig(yamlCfg.Presence.Redis),
			TTLSeconds: yamlCfg.Presence.TTLSeconds,
		},
	}

	if appCfg.APIPort == "" {
		appCfg.APIPort = "8080"
	}
	if appCfg.WebSocketPort == "" {
		appCfg.WebSocketPort = "8081"
	}
	if appCfg.CatchupLimit <= 0 {
		appCfg.CatchupLimit = 50
	}
	if appCfg.Store.Type == "" {
		appCfg.Store.Type = "mongo"
	}
	if appCfg.Presence.Type == "" {
		appCfg.Presence.Type = "none"
	}

	return appCfg, nil
}

// Load reads and validates the configuration file at path. Secrets are
// overridable from the environment (JWT_SECRET, MONGO_URI, REDIS_ADDR) so
// they never have to live in the file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	var yamlCfg YamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("unmarshal config file %s: %w", path, err)
	}

	appCfg, err := NewConfigFromYaml(&yamlCfg)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("JWT_SECRET"); v != "" {
		appCfg.JWTSecret = v
	}
	if v := os.Getenv("MONGO_URI"); v != "" {
		appCfg.Store.Mongo.URI = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		appCfg.Presence.Redis.Addr = v
	}

	if err := appCfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return appCfg, nil
}
