package neotraverse

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets the connection variables for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range []string{EnvURI, EnvUsername, EnvPassword, EnvDatabase, EnvFetchSize} {
		t.Setenv(env, "")
		require.NoError(t, os.Unsetenv(env))
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_YAMLAndEnv(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.yaml", `
uri: neo4j+s://graph.example.com:7687
username: reader
password: secret
database: films
fetch_size: 500
max_connection_pool_size: 20
`)
	t.Setenv(EnvPassword, "from-env")
	t.Setenv(EnvFetchSize, "50")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, Config{
		URI:                   "neo4j+s://graph.example.com:7687",
		Username:              "reader",
		Password:              "from-env",
		Database:              "films",
		FetchSize:             50,
		MaxConnectionPoolSize: 20,
	}, cfg)
}

func TestLoadConfig_EnvFile(t *testing.T) {
	clearEnv(t)
	envFile := writeFile(t, ".env", "NEO4J_URI=bolt://db:7687\nNEO4J_DATABASE=people\n")
	t.Setenv(EnvDatabase, "explicit")

	cfg, err := LoadConfig("", envFile)
	require.NoError(t, err)
	assert.Equal(t, "bolt://db:7687", cfg.URI)
	assert.Equal(t, "explicit", cfg.Database, "the process environment wins over env files")
}

func TestLoadConfig_Errors(t *testing.T) {
	clearEnv(t)

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "error reading config file")

	_, err = LoadConfig(writeFile(t, "bad.yaml", "uri: [not a string"))
	assert.ErrorContains(t, err, "error parsing YAML")

	_, err = LoadConfig(writeFile(t, "invalid.yaml", "uri: \"\"\n"))
	assert.ErrorContains(t, err, "invalid config")

	_, err = LoadConfig(writeFile(t, "negative.yaml", "fetch_size: -2\n"))
	assert.ErrorContains(t, err, "invalid config")

	t.Setenv(EnvFetchSize, "lots")
	_, err = LoadConfig("")
	assert.ErrorContains(t, err, EnvFetchSize)
}

func TestLoadConfig_MissingEnvFile(t *testing.T) {
	clearEnv(t)

	_, err := LoadConfig("", filepath.Join(t.TempDir(), ".env"))
	assert.ErrorContains(t, err, "error loading env files")
}
