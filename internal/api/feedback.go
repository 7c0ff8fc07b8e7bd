package api

import (
	"encoding/json"
	"net/http"

	"github.com/kalambet/pdfqa/internal/storage"
)

// FeedbackRequest is the body of POST /feedback.
type FeedbackRequest struct {
	Question string `json:"question" validate:"required"`
	Response string `json:"response" validate:"required"`
	Rating   string `json:"rating" validate:"required"`
}

func feedbackAvailable(w http.ResponseWriter, deps Deps) bool {
	if deps.Feedback == nil {
		httpError(w, http.StatusServiceUnavailable, "api_error", "feedback storage is not configured")
		return false
	}
	return true
}

func handleAddFeedback(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !feedbackAvailable(w, deps) {
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req FeedbackRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if err := validate.Struct(req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%s", validationMessage(err))
			return
		}
		rating, err := storage.ParseRating(req.Rating)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}

		id, err := deps.Feedback.InsertFeedback(r.Context(), req.Question, req.Response, rating)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save feedback: %v", err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"id": id, "rating": rating})
	}
}

func handleListFeedback(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !feedbackAvailable(w, deps) {
			return
		}
		records, err := deps.Feedback.ListFeedback(r.Context())
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list feedback: %v", err)
			return
		}
		if records == nil {
			records = []storage.Feedback{}
		}
		writeJSON(w, http.StatusOK, records)
	}
}

func handleClearFeedback(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !feedbackAvailable(w, deps) {
			return
		}
		n, err := deps.Feedback.DeleteAllFeedback(r.Context())
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to clear feedback: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": n})
	}
}
