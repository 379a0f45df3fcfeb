package objstore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyConstruction(t *testing.T) {
	require.Equal(t, "raw-files/abc123", RawFileKey("abc123"))
	require.Equal(t, "outputs/out-1.parquet", ArtifactKey("out-1"))
	require.Equal(t, "repro-cartridges/out-1.zip", ReproBundleKey("out-1"))
}

func TestConfigValidateRejectsMissingFields(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)

	_, err = New(Config{Bucket: "b"})
	require.Error(t, err)

	_, err = New(Config{Bucket: "b", AccessKeyID: "id", SecretAccessKey: "secret"})
	require.Error(t, err, "region is still missing")
}
