// Package config defines and loads the service configuration.
package config

import "fmt"

type MongoConfig struct {
	URI      string
	Database string
}

type FirestoreConfig struct {
	ProjectID  string
	Collection string
}

// StoreConfig selects and parameterizes the durable store backend.
type StoreConfig struct {
	Type      string // "mongo" or "firestore"
	Mongo     MongoConfig
	Firestore FirestoreConfig
}

type RedisConfig struct {
	Addr string
}

// PresenceConfig selects the optional cross-instance presence mirror.
type PresenceConfig struct {
	Type       string // "redis" or "none"
	Redis      RedisConfig
	TTLSeconds int
}

// AppConfig is the canonical, validated configuration object used
// throughout the application.
type AppConfig struct {
	RunMode       string
	APIPort       string
	WebSocketPort string
	JWTSecret     string
	CatchupLimit  int
	// AllowedOrigins lists the browser origins permitted to open WebSocket
	// connections, in addition to same-host requests.
	AllowedOrigins []string
	Store          StoreConfig
	Presence       PresenceConfig
}

// Validate checks the cross-field constraints that unmarshaling cannot.
func (c *AppConfig) Validate() error {
	if c.APIPort == "" || c.WebSocketPort == "" {
		return fmt.Errorf("api_port and websocket_port are required")
	}
	if c.RunMode != "local" && c.JWTSecret == "" {
		return fmt.Errorf("jwt secret is required outside local mode")
	}
	switch c.Store.Type {
	case "mongo":
		if c.RunMode != "local" && c.Store.Mongo.URI == "" {
			return fmt.Errorf("store type is mongo but no URI is configured")
		}
	case "firestore":
		if c.Store.Firestore.ProjectID == "" {
			return fmt.Errorf("store type is firestore but no project id is configured")
		}
	default:
		return fmt.Errorf("invalid store type: %s (must be 'mongo' or 'firestore')", c.Store.Type)
	}
	switch c.Presence.Type {
	case "redis":
		if c.Presence.Redis.Addr == "" {
			return fmt.Errorf("presence type is redis but no address is configured")
		}
	case "", "none":
	default:
		return fmt.Errorf("invalid presence type: %s (must be 'redis' or 'none')", c.Presence.Type)
	}
	return nil
}
