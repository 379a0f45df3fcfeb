package httpapi

import (
	"io"
	"net/http"
	"strconv"

	"github.com/rileyleff/sapfluxd/internal/logging"
	"github.com/rileyleff/sapfluxd/internal/txn"
)

// maxUploadBytes bounds one multipart submission. TOA5 files are small
// (tens of KB per deployment-month); this is generous headroom, not a
// tuned production limit.
const maxUploadBytes = 256 << 20 // 256 MiB

// handleSubmitTransaction implements spec §6's transaction submission
// endpoint: a multipart request with `message`, `dry_run`, `metadata_
// manifest`, and zero or more `files[]` blobs, answered with the
// structured receipt JSON regardless of outcome.
func (s *Server) handleSubmitTransaction(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid multipart request: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	req := txn.Request{
		User:         r.FormValue("username"),
		Message:      r.FormValue("message"),
		ManifestText: r.FormValue("metadata_manifest"),
	}
	if dr := r.FormValue("dry_run"); dr != "" {
		dryRun, err := strconv.ParseBool(dr)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "dry_run must be a boolean")
			return
		}
		req.DryRun = dryRun
	}

	if r.MultipartForm != nil {
		for _, fh := range r.MultipartForm.File["files[]"] {
			f, err := fh.Open()
			if err != nil {
				writeJSONError(w, http.StatusBadRequest, "reading upload "+fh.Filename+": "+err.Error())
				return
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				writeJSONError(w, http.StatusBadRequest, "reading upload "+fh.Filename+": "+err.Error())
				return
			}
			req.Files = append(req.Files, txn.UploadedFile{Filename: fh.Filename, Data: data})
		}
	}

	receipt, err := s.orchestrator.Submit(r.Context(), req)
	if err != nil {
		s.log.Error("transaction submission failed before a receipt could be composed",
			logging.KVErr(err), logging.KV("username", req.User))
		writeJSONError(w, http.StatusInternalServerError, "transaction could not be recorded: "+err.Error())
		return
	}

	status := http.StatusOK
	if receipt.Outcome == txn.OutcomeRejected {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, receipt)
}
