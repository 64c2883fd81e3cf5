package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/propscan/internal/common"
	"github.com/dmitrijs2005/propscan/internal/devserver/accounts"
	"github.com/dmitrijs2005/propscan/internal/devserver/listings"
)

// validationDetail mirrors one entry of a FastAPI 422 body.
type validationDetail struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

type detailBody struct {
	Detail any `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, detailBody{Detail: msg})
}

func writeValidation(w http.ResponseWriter, field, msg string) {
	loc := []string{"body"}
	if field != "" {
		loc = append(loc, field)
	}
	writeJSON(w, http.StatusUnprocessableEntity, detailBody{
		Detail: []validationDetail{{Loc: loc, Msg: msg, Type: "value_error"}},
	})
}

// writeError maps service errors to HTTP responses.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var fe *accounts.FieldError
	switch {
	case errors.As(err, &fe):
		writeValidation(w, fe.Field, fe.Message)
	case errors.Is(err, listings.ErrInvalidURL):
		writeValidation(w, "url", "value is not a valid http(s) url")
	case errors.Is(err, accounts.ErrBadCredentials):
		writeDetail(w, http.StatusBadRequest, "Incorrect email or password")
	case errors.Is(err, accounts.ErrQuotaExceeded):
		writeDetail(w, http.StatusForbidden, "Scan limit reached. Upgrade your plan to continue.")
	case errors.Is(err, common.ErrConflict):
		writeDetail(w, http.StatusConflict, "Email already registered")
	case errors.Is(err, common.ErrNotFound):
		writeDetail(w, http.StatusNotFound, "Not found")
	default:
		s.log.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": map[string]string{"message": "Internal server error"}})
	}
}
