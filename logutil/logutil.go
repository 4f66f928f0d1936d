// logutil.go - slog-Logger mit zusaetzlichem TRACE-Level
package logutil

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"time"
)

// LevelTrace liegt unterhalb von Debug und ist ueber MAYO_DEBUG=2 aktivierbar.
const LevelTrace slog.Level = -8

// NewLogger erstellt einen Text-Logger, der TRACE als eigenes Level ausgibt
// und Quelldateien auf ihren Basisnamen kuerzt.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return attr
			}

			switch attr.Key {
			case slog.LevelKey:
				if attr.Value.Any().(slog.Level) == LevelTrace {
					attr.Value = slog.StringValue("TRACE")
				}
			case slog.SourceKey:
				source := attr.Value.Any().(*slog.Source)
				source.File = filepath.Base(source.File)
			}
			return attr
		},
	}))
}

// Trace loggt msg auf TRACE-Level ueber den Default-Logger.
func Trace(msg string, args ...any) {
	trace(context.Background(), msg, args...)
}

// TraceContext ist Trace mit explizitem Context.
func TraceContext(ctx context.Context, msg string, args ...any) {
	trace(ctx, msg, args...)
}

func trace(ctx context.Context, msg string, args ...any) {
	logger := slog.Default()
	if !logger.Enabled(ctx, LevelTrace) {
		return
	}

	// Callers, trace und Trace/TraceContext ueberspringen
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])
	r := slog.NewRecord(time.Now(), LevelTrace, msg, pcs[0])
	r.Add(args...)
	_ = logger.Handler().Handle(ctx, r)
}
