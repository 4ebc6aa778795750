package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeySlug       = "slug"
	KeyProjectID  = "project_id"
	KeyPath       = "path"
	KeyFile       = "file"
	KeyAction     = "action"
	KeyPosts      = "posts"
	KeyRequestID  = "request_id"
	KeyMethod     = "method"
	KeyStatus     = "status"
	KeyRemoteAddr = "remote_addr"
	KeyResponseSz = "response_size"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Stage(name string) slog.Attr      { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }
func Slug(s string) slog.Attr          { return slog.String(KeySlug, s) }
func ProjectID(id string) slog.Attr    { return slog.String(KeyProjectID, id) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func File(name string) slog.Attr       { return slog.String(KeyFile, name) }
func Action(a string) slog.Attr        { return slog.String(KeyAction, a) }
func Posts(n int) slog.Attr            { return slog.Int(KeyPosts, n) }
func RequestID(id string) slog.Attr    { return slog.String(KeyRequestID, id) }
func Method(m string) slog.Attr        { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr        { return slog.Int(KeyStatus, code) }
func RemoteAddr(a string) slog.Attr    { return slog.String(KeyRemoteAddr, a) }
func ResponseSize(n int64) slog.Attr   { return slog.Int64(KeyResponseSz, n) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
