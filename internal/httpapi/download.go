package httpapi

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
)

// handleDownload implements spec §6's output download endpoint: given an
// output id, redirect to a short-lived presigned URL for either the tabular
// artifact or the reproducibility bundle, selected by ?artifact=table|repro.
// Object bytes are never proxied through the service.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	idStr := r.PathValue("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid output id")
		return
	}

	out, err := s.store.GetOutput(r.Context(), id)
	if err != nil {
		writeJSONError(w, http.StatusNotFound, "output not found")
		return
	}

	key, err := selectDownloadKey(r.URL.Query().Get("artifact"), out.ArtifactKey, out.ReproBundleKey)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	url, err := s.blobs.Presign(r.Context(), key, downloadTTL)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "could not create download link")
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

func selectDownloadKey(which, artifactKey, reproKey string) (string, error) {
	switch which {
	case "", "table":
		return artifactKey, nil
	case "repro":
		return reproKey, nil
	default:
		return "", errors.New("artifact must be \"table\" or \"repro\"")
	}
}
