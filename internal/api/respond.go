package api

import (
	"encoding/json"
	"net/http"
	"net/url"

	"carrental/internal/auth"
	apperr "carrental/internal/errors"
	"carrental/internal/logger"
)

const maxJSONBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

// writeError answers with {"error": ...}. Only unexpected errors are logged.
func writeError(w http.ResponseWriter, r *http.Request, log logger.ILogger, err error) {
	code, msg := apperr.StatusOf(err)
	if code >= http.StatusInternalServerError {
		log.Error("request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Error(err))
	}
	writeJSON(w, code, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.BadRequest("Invalid request body")
	}
	return nil
}

// claims is only called behind auth.Authenticate, so the claims are always there.
func claims(r *http.Request) *auth.Claims {
	c, _ := auth.ClaimsFrom(r.Context())
	if c == nil {
		return &auth.Claims{}
	}
	return c
}

// searchTerm reads the free-text filter from ?q=, accepting ?search= as well.
func searchTerm(q url.Values) string {
	if v := q.Get("q"); v != "" {
		return v
	}
	return q.Get("search")
}
