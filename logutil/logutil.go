// Package logutil - Trace-Level Logging
//
// Ein duenner Wrapper um log/slog fuer ein Trace-Level unterhalb von
// Debug, gegrounded auf ml/backend/ggml/context.go's logutil.Trace-
// Aufrufe (Graph-Reserve-Diagnostik) im Lehrer-Repo.
package logutil

import (
	"log/slog"
	"os"
)

var traceEnabled = os.Getenv("BITNET_TRACE") != ""

// Trace logs at debug level, gated by BITNET_TRACE so it's free when
// unset — used by the generate engine to mark each stream's start and
// finish, which would otherwise be too noisy for routine debug logging.
func Trace(msg string, args ...any) {
	if !traceEnabled {
		return
	}
	slog.Debug(msg, args...)
}
