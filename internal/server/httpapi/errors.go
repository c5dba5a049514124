package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"calswap/internal/errs"
)

const (
	codeNotFound          = "not_found"
	codeForbidden         = "forbidden"
	codeNotSwappable      = "not_swappable"
	codeLocked            = "locked"
	codeInvalidTransition = "invalid_transition"
	codeAlreadyResolved   = "already_resolved"
	codeSelfSwap          = "self_swap"
	codeConflict          = "conflict"
	codeUnauthorized      = "unauthorized"
	codeRateLimited       = "rate_limited"
	codeAlreadyExists     = "already_exists"
	codeBadRequest        = "bad_request"
	codeInternalError     = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorResponse{Error: msg, Code: code}); err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
	}
}

// writeServiceError maps sentinel errors to HTTP responses. Unknown errors
// become opaque 500s; their detail stays in the server log.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, err.Error())
	case errors.Is(err, errs.ErrForbidden):
		writeError(w, http.StatusForbidden, codeForbidden, err.Error())
	case errors.Is(err, errs.ErrNotSwappable):
		writeError(w, http.StatusConflict, codeNotSwappable, err.Error())
	case errors.Is(err, errs.ErrLocked):
		writeError(w, http.StatusConflict, codeLocked, err.Error())
	case errors.Is(err, errs.ErrInvalidTransition):
		writeError(w, http.StatusConflict, codeInvalidTransition, err.Error())
	case errors.Is(err, errs.ErrAlreadyResolved):
		writeError(w, http.StatusConflict, codeAlreadyResolved, err.Error())
	case errors.Is(err, errs.ErrSelfSwap):
		writeError(w, http.StatusBadRequest, codeSelfSwap, err.Error())
	case errors.Is(err, errs.ErrTransientConflict):
		// Bounded retries already happened server-side; tell the client to try again.
		writeError(w, http.StatusConflict, codeConflict, "concurrent update, retry")
	case errors.Is(err, errs.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "bad credentials")
	case errors.Is(err, errs.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, codeRateLimited, "too many attempts")
	case errors.Is(err, errs.ErrAlreadyExists):
		writeError(w, http.StatusConflict, codeAlreadyExists, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
