// Package handlers provides the HTTP handlers of the portfolio API and shared
// response helpers.
package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"

	derrors "git.home.luguber.info/inful/portfolio/internal/foundation/errors"
	"git.home.luguber.info/inful/portfolio/internal/logfields"
)

// maxJSONBody bounds admin JSON payloads; post content is at most 50000 characters.
const maxJSONBody = 1 << 20

// writeJSON serializes the provided value to JSON and writes it with the given
// status code. Encoding is performed into an intermediate buffer so that we
// don't send partial responses if serialization fails.
func writeJSON(w http.ResponseWriter, status int, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("failed writing JSON response body", logfields.Error(err))
		return err
	}
	return nil
}

// respond writes v, or err through the adapter when err is set.
func respond(a *derrors.HTTPErrorAdapter, w http.ResponseWriter, r *http.Request, status int, v any, err error) {
	if err != nil {
		a.WriteErrorResponse(w, r, err)
		return
	}
	if werr := writeJSON(w, status, v); werr != nil {
		a.WriteErrorResponse(w, r, derrors.WrapError(werr, derrors.CategoryInternal, "failed to encode response").Build())
	}
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return derrors.ValidationError("request body too large").Build()
		case errors.Is(err, io.EOF):
			return derrors.ValidationError("request body is required").Build()
		default:
			return derrors.WrapError(err, derrors.CategoryValidation, "malformed JSON body").Build()
		}
	}
	return nil
}

// clientIP returns the host part of RemoteAddr. RealIP middleware has
// already applied trusted forwarding headers.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
