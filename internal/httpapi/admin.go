package httpapi

import (
	"net/http"

	"github.com/rileyleff/sapfluxd/internal/logging"
)

// handleAdminMigrate applies the embedded schema. Idempotent — safe to call
// on an already-migrated database.
func (s *Server) handleAdminMigrate(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Migrate(r.Context()); err != nil {
		s.log.Error("schema migration failed", logging.KVErr(err))
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "migrated"})
}

// handleAdminSeed populates the parameter catalog's global defaults and
// reports the parser families compiled into this binary. Idempotent.
func (s *Server) handleAdminSeed(w http.ResponseWriter, r *http.Request) {
	report, err := s.store.Seed(r.Context())
	if err != nil {
		s.log.Error("seed failed", logging.KVErr(err))
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// gcResponse reports what an /admin/gc call found. Deletion only happens
// when dry_run=false is explicitly requested; the default is a dry-run
// report, matching the other admin endpoints' safe-by-default idempotence.
type gcResponse struct {
	OrphanedKeys []string `json:"orphaned_keys"`
	Deleted      bool     `json:"deleted"`
}

// handleAdminGC reconciles live database references against the object
// store's actual contents and reports (or, if requested, removes) orphaned
// objects left behind by the upload-first rule when a transaction uploaded
// a blob but failed before its referencing row committed.
func (s *Server) handleAdminGC(w http.ResponseWriter, r *http.Request) {
	live, err := s.store.LiveObjectKeys(r.Context())
	if err != nil {
		s.log.Error("gc: loading live keys failed", logging.KVErr(err))
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var orphans []string
	for _, prefix := range []string{"raw-files/", "outputs/", "repro-cartridges/"} {
		found, err := s.blobs.Reconcile(r.Context(), prefix, live)
		if err != nil {
			s.log.Error("gc: reconcile failed", logging.KVErr(err), logging.KV("prefix", prefix))
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		orphans = append(orphans, found...)
	}

	deleteRequested := r.URL.Query().Get("dry_run") == "false"
	if deleteRequested {
		for _, key := range orphans {
			if err := s.blobs.Delete(r.Context(), key); err != nil {
				s.log.Error("gc: delete failed", logging.KVErr(err), logging.KV("key", key))
				writeJSONError(w, http.StatusInternalServerError, err.Error())
				return
			}
		}
	}

	writeJSON(w, http.StatusOK, gcResponse{OrphanedKeys: orphans, Deleted: deleteRequested})
}
