package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/marcioluisms/hotelly2-sub000/internal/domain"
)

const (
	codeMethodNotAllowed   = "method_not_allowed"
	codeNotFound           = "not_found"
	codeInvalidRequestBody = "invalid_request_body"
	codeInvalidDate        = "invalid_date"
	codeForbidden          = "forbidden"
	codeInternalError      = "internal_error"
)

var (
	errInvalidFrom = errors.New("invalid from date")
	errInvalidTo   = errors.New("invalid to date")
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// badRequestErrs are input problems rather than state problems.
var badRequestErrs = []error{
	domain.ErrInvalidRange,
	domain.ErrTokenRequired,
	domain.ErrInvalidID,
}

// writeDomainError maps the error taxonomy onto status codes: NotFound is
// 404, Conflict/Unavailable/InvalidState are 409, malformed input is 400,
// everything unclassified is a 500 for queue- or caller-level retry.
func writeDomainError(w http.ResponseWriter, err error) {
	for _, bad := range badRequestErrs {
		if errors.Is(err, bad) {
			code, _ := domain.ReasonCode(err)
			writeError(w, http.StatusBadRequest, code, err.Error())
			return
		}
	}

	code, ok := domain.ReasonCode(err)
	if !ok {
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
		return
	}

	switch domain.CategoryOf(err) {
	case domain.CategoryNotFound:
		writeError(w, http.StatusNotFound, code, err.Error())
	case domain.CategoryInvalidState, domain.CategoryUnavailable, domain.CategoryConflict:
		writeError(w, http.StatusConflict, code, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
