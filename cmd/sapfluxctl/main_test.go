package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunExitsZeroOnAcceptedReceipt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "rileyleff", r.FormValue("username"))
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"outcome": "ACCEPTED"})
	}))
	defer srv.Close()

	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "manifest.json")
	require.NoError(t, os.WriteFile(manifestPath, []byte(`{"deployments":[]}`), 0o600))

	var stdout, stderr bytes.Buffer
	code := run([]string{
		"-server", srv.URL,
		"-user", "rileyleff",
		"-message", "test submission",
		"-manifest", manifestPath,
	}, &stdout, &stderr)

	require.Equal(t, 0, code)
	require.Contains(t, stdout.String(), "ACCEPTED")
	require.Empty(t, stderr.String())
}

func TestRunExitsNonZeroOnRejectedReceipt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"outcome": "REJECTED"})
	}))
	defer srv.Close()

	var stdout, stderr bytes.Buffer
	code := run([]string{"-server", srv.URL, "-message", "bad batch"}, &stdout, &stderr)

	require.Equal(t, 1, code)
	require.Contains(t, stdout.String(), "REJECTED")
}

func TestRunExitsNonZeroWhenManifestUnreadable(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"-manifest", "/nonexistent/manifest.json"}, &stdout, &stderr)
	require.Equal(t, 1, code)
	require.Contains(t, stderr.String(), "read manifest")
}

func TestRunAttachesFiles(t *testing.T) {
	dir := t.TempDir()
	dataPath := filepath.Join(dir, "TOA5_sample.dat")
	require.NoError(t, os.WriteFile(dataPath, []byte("sample data"), 0o600))

	var gotFilename string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		files := r.MultipartForm.File["files[]"]
		require.Len(t, files, 1)
		gotFilename = files[0].Filename
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"outcome": "ACCEPTED"})
	}))
	defer srv.Close()

	var stdout, stderr bytes.Buffer
	code := run([]string{"-server", srv.URL, dataPath}, &stdout, &stderr)

	require.Equal(t, 0, code)
	require.Equal(t, "TOA5_sample.dat", gotFilename)
}
