package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "neardeal/cli/internal/errors"
)

func isolate(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", base)
	t.Setenv(EnvAPIURL, "")
	t.Setenv(EnvStorage, "")
	t.Setenv(EnvLogLevel, "")
	return filepath.Join(base, "neardeal", "config.json")
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	isolate(t)

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
	assert.Equal(t, 10*time.Second, c.StartupTimeout())
}

func TestSaveLoad_RoundTripAndPermissions(t *testing.T) {
	p := isolate(t)

	want := Default()
	want.Storage = Storage{Backend: BackendSQLite, SQLitePath: "/tmp/creds.db"}
	want.StartupTimeoutSeconds = 3
	require.NoError(t, Save(want))

	info, err := os.Stat(p)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, 3*time.Second, got.StartupTimeout())
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv(EnvAPIURL, "http://localhost:8080")
	t.Setenv(EnvStorage, "MEMORY")
	t.Setenv(EnvLogLevel, "debug")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", c.APIBaseURL)
	assert.Equal(t, BackendMemory, c.Storage.Backend)
	assert.Equal(t, "debug", c.LogLevel)
}

func TestLoad_CorruptFile(t *testing.T) {
	p := isolate(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o700))
	require.NoError(t, os.WriteFile(p, []byte("{not json"), 0o600))

	_, err := Load()
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ConfigInvalid))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		storage Storage
		wantErr bool
	}{
		{"keyring", Storage{Backend: BackendKeyring}, false},
		{"memory", Storage{Backend: BackendMemory}, false},
		{"redis without addr", Storage{Backend: BackendRedis}, true},
		{"redis with addr", Storage{Backend: BackendRedis, RedisAddr: "localhost:6379"}, false},
		{"postgres without dsn", Storage{Backend: BackendPostgres}, true},
		{"postgres with malformed dsn", Storage{Backend: BackendPostgres, PostgresDSN: "localhost:5432"}, true},
		{"postgres with dsn", Storage{Backend: BackendPostgres, PostgresDSN: "postgres://cli:pw@localhost/auth"}, false},
		{"unknown", Storage{Backend: "asyncstorage"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			c.Storage = tt.storage
			err := c.Validate()
			if tt.wantErr {
				assert.True(t, apperrors.Is(err, apperrors.ConfigInvalid))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
