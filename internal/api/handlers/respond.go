// Package handlers provides HTTP handlers for the journey API.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/oncocare/journey/internal/apperrors"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps an application error onto the response. Typed errors keep
// their status and details (including raw model output for audit).
func writeError(w http.ResponseWriter, err error) {
	appErr := apperrors.From(err)
	writeJSON(w, appErr.HTTPStatus, map[string]interface{}{
		"error":   appErr.Message,
		"code":    appErr.Code,
		"details": appErr.Details,
	})
}

// queryInt reads an integer query parameter clamped to [min, max],
// falling back to def when absent or unparseable.
func queryInt(r *http.Request, name string, def, min, max int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}
