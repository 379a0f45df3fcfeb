package svcconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadEnvVarPrefersDirectValue(t *testing.T) {
	t.Setenv("SAPFLUXD_TEST_DIRECT", "direct-value")
	var got string
	require.NoError(t, LoadEnvVar(&got, "SAPFLUXD_TEST_DIRECT", "default"))
	require.Equal(t, "direct-value", got)
}

func TestLoadEnvVarFallsBackToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secret")
	require.NoError(t, os.WriteFile(path, []byte("from-file\n"), 0o600))
	t.Setenv("SAPFLUXD_TEST_FILE_FILE", path)

	var got string
	require.NoError(t, LoadEnvVar(&got, "SAPFLUXD_TEST_FILE", "default"))
	require.Equal(t, "from-file", got)
}

func TestLoadEnvVarFallsBackToDefault(t *testing.T) {
	var got string
	require.NoError(t, LoadEnvVar(&got, "SAPFLUXD_TEST_UNSET", "fallback"))
	require.Equal(t, "fallback", got)
}

func TestLoadReportsAllMissingRequiredVars(t *testing.T) {
	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "SAPFLUXD_DATABASE_DSN")
	require.Contains(t, err.Error(), "SAPFLUXD_S3_BUCKET")
}

func TestLoadSucceedsWithRequiredVarsSet(t *testing.T) {
	t.Setenv("SAPFLUXD_DATABASE_DSN", "postgres://localhost/sapflux")
	t.Setenv("SAPFLUXD_S3_BUCKET", "sapflux-artifacts")
	t.Setenv("SAPFLUXD_S3_ACCESS_KEY_ID", "id")
	t.Setenv("SAPFLUXD_S3_SECRET_ACCESS_KEY", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "postgres://localhost/sapflux", cfg.DatabaseDSN)
	require.Equal(t, ":8080", cfg.HTTPBindAddress)
	require.Equal(t, "earliest", cfg.DSTFallbackPolicy)
}

func TestLoadRejectsInvalidDSTPolicy(t *testing.T) {
	t.Setenv("SAPFLUXD_DATABASE_DSN", "postgres://localhost/sapflux")
	t.Setenv("SAPFLUXD_S3_BUCKET", "sapflux-artifacts")
	t.Setenv("SAPFLUXD_S3_ACCESS_KEY_ID", "id")
	t.Setenv("SAPFLUXD_S3_SECRET_ACCESS_KEY", "secret")
	t.Setenv("SAPFLUXD_DST_FALLBACK_POLICY", "nonsense")

	_, err := Load()
	require.Error(t, err)
}
