package api

import (
	"encoding/json"
	"net/http"
)

// AskRequest is the body of POST /ask.
type AskRequest struct {
	Question string `json:"question" validate:"required"`
	Language string `json:"language"`
	K        int    `json:"k" validate:"gte=0,lte=50"`
}

// AskResponse is the reply of POST /ask.
type AskResponse struct {
	Answer  string `json:"answer"`
	Backend string `json:"backend"`
}

func handleAsk(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, ok := selectBackend(w, r, deps)
		if !ok {
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req AskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if err := validate.Struct(req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%s", validationMessage(err))
			return
		}
		if req.Language == "" {
			req.Language = deps.DefaultLanguage
		}

		answer, err := b.Answer(r.Context(), req.Question, req.Language, req.K)
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "failed to answer: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, AskResponse{Answer: answer, Backend: b.Name()})
	}
}
