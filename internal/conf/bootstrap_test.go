package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBootstrap_Defaults(t *testing.T) {
	// Create a minimal valid config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `server:
  http:
    addr: :8080
data:
  redis:
    addr: 127.0.0.1:6379
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	// Set required environment variables
	t.Setenv("BACKEND_BASE_URL", "https://api.store.example.com")

	// Load configuration
	bc, err := NewBootstrap(configPath)
	require.NoError(t, err)
	require.NotNil(t, bc)

	// Verify server defaults
	assert.Equal(t, ":8080", bc.Server.Http.Addr)
	assert.Equal(t, "tcp", bc.Server.Http.Network)
	assert.Equal(t, 30*time.Second, bc.Server.Http.Timeout)

	// Verify backend values
	assert.Equal(t, "https://api.store.example.com", bc.Backend.BaseURL)
	assert.Equal(t, "en", bc.Backend.DefaultLocale)
	assert.Equal(t, 10*time.Second, bc.Backend.Timeout)

	// Verify poller defaults (development profile)
	assert.Equal(t, 30*time.Second, bc.Poller.Interval)
	assert.Equal(t, 10*time.Second, bc.Poller.Timeout)
	assert.Equal(t, 1*time.Second, bc.Poller.InitialDelay)
	assert.False(t, bc.Poller.Production)

	// Verify data defaults
	assert.Equal(t, "127.0.0.1:6379", bc.Data.Redis.Addr)
	assert.Equal(t, "tcp", bc.Data.Redis.Network)
	assert.Equal(t, 200*time.Millisecond, bc.Data.Redis.ReadTimeout)
	assert.Equal(t, 200*time.Millisecond, bc.Data.Redis.WriteTimeout)

	// Verify log defaults
	assert.Equal(t, "info", bc.Log.Level)
	assert.Equal(t, "json", bc.Log.Format)
}

func TestNewBootstrap_ProductionWidensPollerTimings(t *testing.T) {
	t.Setenv("BACKEND_BASE_URL", "https://api.store.example.com")
	t.Setenv("CREDITPULSE_POLLER_PRODUCTION", "true")

	bc, err := NewBootstrap("")
	require.NoError(t, err)

	assert.True(t, bc.Poller.Production)
	assert.Equal(t, 45*time.Second, bc.Poller.Interval)
	assert.Equal(t, 15*time.Second, bc.Poller.Timeout)
	assert.Equal(t, 2*time.Second, bc.Poller.InitialDelay)
}

func TestNewBootstrap_ProductionKeepsExplicitTimings(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `poller:
  production: true
  interval: 60s
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	t.Setenv("BACKEND_BASE_URL", "https://api.store.example.com")

	bc, err := NewBootstrap(configPath)
	require.NoError(t, err)

	// Explicit interval wins over the production default
	assert.Equal(t, 60*time.Second, bc.Poller.Interval)
	assert.Equal(t, 15*time.Second, bc.Poller.Timeout)
}

func TestNewBootstrap_MissingBaseURL(t *testing.T) {
	t.Setenv("BACKEND_BASE_URL", "")

	_, err := NewBootstrap("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend.base_url")
}

func TestNewBootstrap_MissingConfigFile(t *testing.T) {
	t.Setenv("BACKEND_BASE_URL", "https://api.store.example.com")

	_, err := NewBootstrap("/nonexistent/config.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestValidate_InvalidLocale(t *testing.T) {
	bc := &Bootstrap{
		Backend: &Backend{
			BaseURL:       "https://api.store.example.com",
			DefaultLocale: "fr",
		},
	}

	err := Validate(bc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default_locale")
}

func TestValidate_IntervalTooShort(t *testing.T) {
	bc := &Bootstrap{
		Backend: &Backend{BaseURL: "https://api.store.example.com"},
		Poller:  &Poller{Interval: 100 * time.Millisecond},
	}

	err := Validate(bc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "poller.interval")
}
