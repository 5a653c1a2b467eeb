package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anandupg/Lyvo-Backend1-sub001/notificationservice/config"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("Full config", func(t *testing.T) {
		path := writeConfigFile(t, `
run_mode: "production"
api_port: "9090"
websocket_port: "9091"
jwt_secret: "s3cret"
catchup_limit: 25
allowed_origins:
  - "https://app.lyvo.in"
store:
  type: "mongo"
  mongo:
    uri: "mongodb://db:27017"
    database: "lyvo"
presence:
  type: "redis"
  redis:
    addr: "redis:6379"
  ttl_seconds: 300
`)
		cfg, err := config.Load(path)
		require.NoError(t, err)
		assert.Equal(t, "9090", cfg.APIPort)
		assert.Equal(t, "9091", cfg.WebSocketPort)
		assert.Equal(t, 25, cfg.CatchupLimit)
		assert.Equal(t, []string{"https://app.lyvo.in"}, cfg.AllowedOrigins)
		assert.Equal(t, "mongo", cfg.Store.Type)
		assert.Equal(t, "mongodb://db:27017", cfg.Store.Mongo.URI)
		assert.Equal(t, "redis", cfg.Presence.Type)
		assert.Equal(t, 300, cfg.Presence.TTLSeconds)
	})

	t.Run("Defaults fill the gaps", func(t *testing.T) {
		path := writeConfigFile(t, `
run_mode: "local"
`)
		cfg, err := config.Load(path)
		require.NoError(t, err)
		assert.Equal(t, "8080", cfg.APIPort)
		assert.Equal(t, "8081", cfg.WebSocketPort)
		assert.Equal(t, 50, cfg.CatchupLimit)
		assert.Equal(t, "mongo", cfg.Store.Type)
		assert.Equal(t, "none", cfg.Presence.Type)
	})

	t.Run("Environment overrides secrets", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "env-secret")
		t.Setenv("MONGO_URI", "mongodb://env:27017")
		path := writeConfigFile(t, `
run_mode: "production"
store:
  type: "mongo"
  mongo:
    uri: "mongodb://file:27017"
`)
		cfg, err := config.Load(path)
		require.NoError(t, err)
		assert.Equal(t, "env-secret", cfg.JWTSecret)
		assert.Equal(t, "mongodb://env:27017", cfg.Store.Mongo.URI)
	})

	t.Run("Missing jwt secret outside local mode", func(t *testing.T) {
		path := writeConfigFile(t, `
run_mode: "production"
store:
  type: "mongo"
  mongo:
    uri: "mongodb://db:27017"
`)
		_, err := config.Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "jwt secret")
	})

	t.Run("Invalid store type", func(t *testing.T) {
		path := writeConfigFile(t, `
run_mode: "local"
store:
  type: "postgres"
`)
		_, err := config.Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid store type")
	})

	t.Run("Missing file", func(t *testing.T) {
		_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})
}
