package textsync

import "log/slog"

const (
	logGroup = "textsync"
)

var logger *slog.Logger

func init() {
	logger = slog.Default().WithGroup(logGroup)
}

// SetLogger replaces the package logger. A controller created with
// WithLogger uses its own logger instead.
func SetLogger(log *slog.Logger) {
	logger = log.WithGroup(logGroup)
}
