package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeySessionID  = "session_id"
	KeyTarget     = "target"
	KeyOutputPath = "output_path"
	KeyBackupPath = "backup_path"
	KeyGroup      = "group"
	KeyStage      = "stage"
	KeyState      = "state"
	KeyFiles      = "files"
	KeyFailures   = "failures"
	KeyPath       = "path"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func SessionID(id string) slog.Attr     { return slog.String(KeySessionID, id) }
func Target(name string) slog.Attr      { return slog.String(KeyTarget, name) }
func OutputPath(p string) slog.Attr     { return slog.String(KeyOutputPath, p) }
func BackupPath(p string) slog.Attr     { return slog.String(KeyBackupPath, p) }
func Group(g string) slog.Attr          { return slog.String(KeyGroup, g) }
func Stage(name string) slog.Attr       { return slog.String(KeyStage, name) }
func State(s string) slog.Attr          { return slog.String(KeyState, s) }
func Files(n int) slog.Attr             { return slog.Int(KeyFiles, n) }
func Failures(n int) slog.Attr          { return slog.Int(KeyFailures, n) }
func Path(p string) slog.Attr           { return slog.String(KeyPath, p) }
func DurationMS(ms float64) slog.Attr   { return slog.Float64(KeyDurationMS, ms) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
