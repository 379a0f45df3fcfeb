// Package httpapi is the service's HTTP surface: one multipart transaction
// submission endpoint, one output-download redirect, and three idempotent
// admin endpoints — migrate, seed, and gc. Per spec §6 these are specified
// only by interface; the teacher's own HTTP ingesters reach for plain
// net/http rather than a router framework, and the handler surface here is
// small enough that Go 1.22's pattern-based ServeMux needs no help.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rileyleff/sapfluxd/internal/db"
	"github.com/rileyleff/sapfluxd/internal/logging"
	"github.com/rileyleff/sapfluxd/internal/objstore"
	"github.com/rileyleff/sapfluxd/internal/txn"
)

// downloadTTL is how long a presigned download URL stays valid.
const downloadTTL = 15 * time.Minute

// Server holds the dependencies every handler needs.
type Server struct {
	orchestrator *txn.Orchestrator
	store        *db.Store
	blobs        *objstore.Store
	log          *logging.Logger
}

func NewServer(orchestrator *txn.Orchestrator, store *db.Store, blobs *objstore.Store, log *logging.Logger) *Server {
	if log == nil {
		log = logging.NewDiscard()
	}
	return &Server{orchestrator: orchestrator, store: store, blobs: blobs, log: log}
}

// Routes builds the complete handler. Mounted directly by cmd/sapfluxd.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /transactions", s.handleSubmitTransaction)
	mux.HandleFunc("GET /outputs/{id}/download", s.handleDownload)
	mux.HandleFunc("POST /admin/migrate", s.handleAdminMigrate)
	mux.HandleFunc("POST /admin/seed", s.handleAdminSeed)
	mux.HandleFunc("POST /admin/gc", s.handleAdminGC)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	return mux
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

