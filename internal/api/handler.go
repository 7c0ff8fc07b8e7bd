// Package api exposes the document question-answering backends over HTTP
// and as MCP tools.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/pdfqa/internal/backend"
	"github.com/kalambet/pdfqa/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Deps holds what the HTTP handlers need.
type Deps struct {
	Backends *backend.Registry
	// Feedback is optional; the /feedback routes answer 503 without it.
	Feedback        *storage.Store
	DefaultLanguage string
	Token           string
	// UploadDir receives uploaded files while they are ingested. Empty
	// selects the system temp dir.
	UploadDir string
	Logger    *slog.Logger
}

// NewHandler returns the HTTP API router. /health is never authenticated.
func NewHandler(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Post("/documents", handleUpload(deps))
		r.Get("/documents", handleListDocuments(deps))
		r.Delete("/documents/{name}", handleDeleteDocument(deps))
		r.Post("/ask", handleAsk(deps))
		r.Get("/store/info", handleStoreInfo(deps))
		r.Get("/store/chunks", handleStoreChunks(deps))
		r.Post("/feedback", handleAddFeedback(deps))
		r.Get("/feedback", handleListFeedback(deps))
		r.Delete("/feedback", handleClearFeedback(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// selectBackend resolves ?backend= and writes a 400 when it names nothing.
func selectBackend(w http.ResponseWriter, r *http.Request, deps Deps) (backend.Backend, bool) {
	b, err := deps.Backends.Get(r.URL.Query().Get("backend"))
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
		return nil, false
	}
	return b, true
}
