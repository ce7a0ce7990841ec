// helpers.go: Shared request decoding and response helpers for the KinemaTV API.
package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeRawJSON writes an already-encoded JSON document.
func writeRawJSON(w http.ResponseWriter, status int, b []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

// writeError writes the {"error": msg} body the frontend expects.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON decodes the request body into v. An empty body decodes as {}.
// Returns false and writes a 400 if decoding fails.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return false
	}
	writeError(w, http.StatusBadRequest, "Invalid JSON body")
	return false
}

// yearField accepts a JSON number, a numeric string, or null. Anything else
// is remembered as invalid so the handler can answer "Invalid year" instead
// of rejecting the whole body.
type yearField struct {
	value   int
	invalid bool
}

func (y *yearField) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*y = yearField{}
		return nil
	}
	s := string(b)
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			y.invalid = true
			return nil
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*y = yearField{}
			return nil
		}
	}
	if n, err := strconv.Atoi(s); err == nil {
		*y = yearField{value: n}
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int(f)) {
		*y = yearField{value: int(f)}
		return nil
	}
	*y = yearField{invalid: true}
	return nil
}

// resolve returns the requested year, substituting current when omitted.
func (y yearField) resolve(current int) (int, bool) {
	if y.invalid {
		return 0, false
	}
	if y.value == 0 {
		return current, true
	}
	return y.value, true
}

// parseMediaType returns "movie" or "tv", defaulting to "movie".
func parseMediaType(raw string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "movie":
		return "movie", true
	case "tv":
		return "tv", true
	default:
		return "", false
	}
}
