package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ropbridge/ropbridge/internal/common"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps a service error onto a status code. All credential
// and token failures collapse into one generic 401 body.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrRefreshTokenExpired),
		errors.Is(err, common.ErrTokenReplayed),
		errors.Is(err, common.ErrorNotFound):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, common.ErrorInternal):
		writeError(w, http.StatusInternalServerError, "internal_error")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error")
	}
}
