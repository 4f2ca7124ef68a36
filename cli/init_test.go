package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netresearch/occi-now/test"
)

func TestValidateEndpoint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		wantErr bool
	}{
		{"http://now.example.com:8080", false},
		{"https://now.example.com", false},
		{"", true},
		{"now.example.com", true},
		{"ftp://now.example.com", true},
		{"http://", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := validateEndpoint(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateTimeoutAndRateLimit(t *testing.T) {
	t.Parallel()

	assert.NoError(t, validateTimeout("1m30s"))
	assert.Error(t, validateTimeout("soon"))
	assert.Error(t, validateTimeout("-1s"))

	assert.NoError(t, validateRateLimit("0"))
	assert.NoError(t, validateRateLimit("600"))
	assert.Error(t, validateRateLimit("-1"))
	assert.Error(t, validateRateLimit("many"))
}

func TestSaveConfigNOW(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "dir", "occi-now.ini")
	config := NewConfig(nil)
	config.Global.LogLevel = "debug"
	config.Global.RateLimit = 120
	config.Backend.Endpoint = "http://now.example.com:8080"
	config.Backend.Timeout = 45 * time.Second

	require.NoError(t, saveConfig(path, config))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "data-source")

	loaded, err := BuildFromFile(path, test.NewTestLogger())
	require.NoError(t, err)
	assert.Equal(t, config.Global, loaded.Global)
	assert.Equal(t, BackendNOW, loaded.Backend.Type)
	assert.Equal(t, "http://now.example.com:8080", loaded.Backend.Endpoint)
	assert.Equal(t, 45*time.Second, loaded.Backend.Timeout)
}

func TestSaveConfigSQLite(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "occi-now.ini")
	config := NewConfig(nil)
	config.Backend.Type = BackendSQLite
	config.Backend.DataSource = "/var/lib/occi-now/networks.db"

	require.NoError(t, saveConfig(path, config))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "endpoint")

	loaded, err := BuildFromFile(path, nil)
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, loaded.Backend.Type)
	assert.Equal(t, "/var/lib/occi-now/networks.db", loaded.Backend.DataSource)
}
