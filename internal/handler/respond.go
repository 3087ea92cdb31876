package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

var (
	errNotObject    = errors.New("body must be a JSON object")
	errTrailingData = errors.New("unexpected data after JSON object")
)

// decodeObject decodes a body holding exactly one JSON object into v.
func decodeObject(body io.Reader, v any) error {
	dec := json.NewDecoder(body)

	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errTrailingData
	}
	if trimmed := bytes.TrimSpace(raw); len(trimmed) == 0 || trimmed[0] != '{' {
		return errNotObject
	}
	return json.Unmarshal(raw, v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeText(w http.ResponseWriter, status int, s string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(s))
}

// writeStorageError reports a failed store call as a 500 with the underlying
// error as debug detail. Storage errors are never retried.
func writeStorageError(w http.ResponseWriter, logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error":  msg,
		"detail": err.Error(),
	})
}

// writeRequestShapeError reports a malformed body or a missing required field.
func writeRequestShapeError(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

// Diagnostic writes the catch-all response naming the request URI.
func Diagnostic(w http.ResponseWriter, r *http.Request, status int) {
	writeText(w, status, fmt.Sprintf("'%d %s' \n I couldn't find '%s'. Try something else?",
		status, http.StatusText(status), r.URL.RequestURI()))
}

// NotFound is the handler for every unmatched method and path.
func NotFound(w http.ResponseWriter, r *http.Request) {
	Diagnostic(w, r, http.StatusNotFound)
}
