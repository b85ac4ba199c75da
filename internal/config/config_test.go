package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServer_Defaults(t *testing.T) {
	cfg, err := LoadServer()
	require.NoError(t, err)

	assert.Equal(t, DefaultServicePort, cfg.HTTPPort)
	assert.Equal(t, DriverSQLite, cfg.DB.Driver)
	assert.Equal(t, "./internal/repository/migrations/sqlite", cfg.DB.MigrationsPath)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.False(t, cfg.Seed)
}

func TestLoadServer_FromEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("REQUEST_TIMEOUT", "2s")
	t.Setenv("SEED", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://cafe.local:8080")

	cfg, err := LoadServer()
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.DB.Driver)
	assert.Equal(t, 6543, cfg.DB.Port)
	assert.Equal(t, "./internal/repository/migrations/postgres", cfg.DB.MigrationsPath)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
	assert.Equal(t, []string{"http://cafe.local:8080"}, cfg.CORSOrigins)
	assert.True(t, cfg.Seed)
}

func TestLoadServer_InvalidValues(t *testing.T) {
	t.Setenv("DB_PORT", "not-a-port")
	_, err := LoadServer()
	assert.ErrorContains(t, err, "invalid DB_PORT")

	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_DRIVER", "mysql")
	_, err = LoadServer()
	assert.ErrorContains(t, err, "invalid DB_DRIVER")
}

func TestLoadClient_DerivesServiceURLFromPage(t *testing.T) {
	t.Setenv("TABLE_URL", "http://192.168.1.20:8080/Stol%201")

	cfg, err := LoadClient()
	require.NoError(t, err)

	assert.Equal(t, "http://192.168.1.20:8081", cfg.ServiceURL)
	assert.Equal(t, 10*time.Second, cfg.SubmitTimeout)
}

func TestLoadClient_ExplicitServiceURL(t *testing.T) {
	t.Setenv("SERVICE_URL", "http://orders.local:9000/")

	cfg, err := LoadClient()
	require.NoError(t, err)
	assert.Equal(t, "http://orders.local:9000", cfg.ServiceURL)
}

func TestLoadClientFor_OverridesTableURL(t *testing.T) {
	t.Setenv("TABLE_URL", "http://192.168.1.20:8080/Stol%201")
	t.Setenv("SERVICE_PORT", "9100")

	cfg, err := LoadClientFor("http://10.0.0.7:8080/Stol%204")
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.7:8080/Stol%204", cfg.TableURL)
	assert.Equal(t, "http://10.0.0.7:9100", cfg.ServiceURL)

	t.Setenv("SERVICE_URL", "http://orders.local:9000")
	cfg, err = LoadClientFor("http://10.0.0.7:8080/Stol%204")
	require.NoError(t, err)
	assert.Equal(t, "http://orders.local:9000", cfg.ServiceURL)
}

func TestServiceURLFromPage(t *testing.T) {
	got, err := ServiceURLFromPage("", "8081")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8081", got)

	got, err = ServiceURLFromPage("https://cafe.example/Stol%203", "9000")
	require.NoError(t, err)
	assert.Equal(t, "https://cafe.example:9000", got)

	_, err = ServiceURLFromPage("/only/a/path", "8081")
	assert.Error(t, err)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("OBY_TEST_VALUE=from-file\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("OBY_TEST_VALUE") })

	LoadEnvFile(filepath.Join(dir, "missing.env"), path)

	assert.Equal(t, "from-file", os.Getenv("OBY_TEST_VALUE"))
}
