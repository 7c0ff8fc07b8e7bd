package api

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/pdfqa/internal/ingest"
	"github.com/kalambet/pdfqa/internal/loader"
	"github.com/kalambet/pdfqa/internal/vectorstore"
)

const maxUploadSize = 50 << 20 // 50MB

func handleUpload(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, ok := selectBackend(w, r, deps)
		if !ok {
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
		file, header, err := r.FormFile("file")
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "multipart field \"file\" is required: %v", err)
			return
		}
		defer file.Close()

		name := strings.TrimSpace(r.FormValue("name"))
		if name == "" {
			name = filepath.Base(header.Filename)
		}
		if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
			httpError(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "only PDF files are accepted, got %q", header.Filename)
			return
		}

		var head bytes.Buffer
		if err := loader.Sniff(io.TeeReader(io.LimitReader(file, 5), &head)); err != nil {
			httpError(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "%s: %v", header.Filename, err)
			return
		}

		tmp, err := os.CreateTemp(deps.UploadDir, "upload-*.pdf")
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to stage upload: %v", err)
			return
		}
		defer os.Remove(tmp.Name())

		_, err = io.Copy(tmp, io.MultiReader(&head, file))
		if cerr := tmp.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "failed to read upload: %v", err)
			return
		}

		res, err := b.Store(r.Context(), tmp.Name(), name)
		if err != nil {
			writeIngestError(w, name, err)
			return
		}

		deps.Logger.Info("document uploaded", "backend", b.Name(), "document", name, "chunks", res.Chunks, "failed", res.Failed)
		writeJSON(w, http.StatusOK, map[string]any{
			"backend": b.Name(),
			"result":  res,
		})
	}
}

// writeIngestError maps a failed ingestion to a status. Model failures that
// abort the call fall through to 502.
func writeIngestError(w http.ResponseWriter, name string, err error) {
	switch {
	case errors.Is(err, loader.ErrNotPDF):
		httpError(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "%v", err)
	case errors.Is(err, ingest.ErrDocumentExists):
		httpError(w, http.StatusConflict, "conflict", "%v", err)
	case errors.Is(err, ingest.ErrExtraction):
		httpError(w, http.StatusUnprocessableEntity, "unprocessable_document", "failed to read %s: %v", name, err)
	case errors.Is(err, ingest.ErrStoreFailed):
		httpError(w, http.StatusInternalServerError, "api_error", "failed to store %s: %v", name, err)
	default:
		httpError(w, http.StatusBadGateway, "api_error", "failed to ingest %s: %v", name, err)
	}
}

func handleListDocuments(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, ok := selectBackend(w, r, deps)
		if !ok {
			return
		}
		info, err := b.Info(r.Context())
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list documents: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, info.DocumentList())
	}
}

func handleDeleteDocument(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, ok := selectBackend(w, r, deps)
		if !ok {
			return
		}

		// chi matches on RawPath when it is set, leaving the segment escaped.
		name := chi.URLParam(r, "name")
		if r.URL.RawPath != "" {
			if unescaped, err := url.PathUnescape(name); err == nil {
				name = unescaped
			}
		}

		removed, err := b.Delete(r.Context(), name)
		if errors.Is(err, vectorstore.ErrUnsupported) {
			httpError(w, http.StatusNotImplemented, "unsupported_operation", "backend %s cannot delete documents", b.Name())
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to delete %s: %v", name, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"document": name, "removed": removed})
	}
}

func handleStoreInfo(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, ok := selectBackend(w, r, deps)
		if !ok {
			return
		}
		info, err := b.Info(r.Context())
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to read store info: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"backend": b.Name(), "info": info})
	}
}

func handleStoreChunks(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, ok := selectBackend(w, r, deps)
		if !ok {
			return
		}
		limit := parseIntParam(r, "limit", 20, 100)
		if limit == 0 {
			limit = 20
		}

		chunks, err := b.Inspect(r.Context(), limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list chunks: %v", err)
			return
		}
		if chunks == nil {
			chunks = []vectorstore.ChunkView{}
		}
		writeJSON(w, http.StatusOK, chunks)
	}
}
