package logging

import (
	"context"
	"fmt"
	"log/slog"
)

// Printf adapts a *slog.Logger to the Infof/Warnf/Errorf logger interface of the export packages.
type Printf struct {
	Logger *slog.Logger
}

// NewPrintf returns a Printf adapter; attrs are attached to every message.
func NewPrintf(l *slog.Logger, attrs ...any) Printf {
	if len(attrs) > 0 {
		l = l.With(attrs...)
	}
	return Printf{Logger: l}
}

func (p Printf) Infof(format string, args ...any)  { p.log(slog.LevelInfo, format, args) }
func (p Printf) Warnf(format string, args ...any)  { p.log(slog.LevelWarn, format, args) }
func (p Printf) Errorf(format string, args ...any) { p.log(slog.LevelError, format, args) }

func (p Printf) log(level slog.Level, format string, args []any) {
	ctx := context.Background()
	if !p.Logger.Enabled(ctx, level) {
		return
	}
	p.Logger.Log(ctx, level, fmt.Sprintf(format, args...))
}
