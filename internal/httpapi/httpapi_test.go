package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSelectDownloadKey(t *testing.T) {
	key, err := selectDownloadKey("", "artifact-key", "repro-key")
	require.NoError(t, err)
	require.Equal(t, "artifact-key", key)

	key, err = selectDownloadKey("table", "artifact-key", "repro-key")
	require.NoError(t, err)
	require.Equal(t, "artifact-key", key)

	key, err = selectDownloadKey("repro", "artifact-key", "repro-key")
	require.NoError(t, err)
	require.Equal(t, "repro-key", key)

	_, err = selectDownloadKey("bogus", "artifact-key", "repro-key")
	require.Error(t, err)
}

func TestHealthzDoesNotTouchBackends(t *testing.T) {
	s := NewServer(nil, nil, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestSubmitTransactionRejectsMalformedMultipart(t *testing.T) {
	s := NewServer(nil, nil, nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/transactions", nil)
	req.Header.Set("Content-Type", "multipart/form-data; boundary=not-actually-multipart")
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
