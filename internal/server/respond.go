package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
)

// Encode writes v as JSON indented by two spaces. Non-ASCII and HTML
// characters are written as is.
func Encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := Encode(&buf, v); err != nil {
		slog.Error("failed to encode response", "error", err)
		http.Error(w, `{"error":"internal error","kind":"internal"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
