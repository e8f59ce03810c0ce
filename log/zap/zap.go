// Package zap adapts a *zap.Logger to confita.Logger.
package zap

import (
	"go.uber.org/zap"

	"github.com/unkn0wn-root/confita"
)

var _ confita.Logger = ZapLogger{}

type ZapLogger struct{ L *zap.Logger }

// New wraps l; a nil l logs nothing.
func New(l *zap.Logger) ZapLogger {
	if l == nil {
		l = zap.NewNop()
	}
	return ZapLogger{L: l}
}

func (z ZapLogger) Debug(msg string, f confita.Fields) { z.L.Debug(msg, zf(f)...) }
func (z ZapLogger) Info(msg string, f confita.Fields)  { z.L.Info(msg, zf(f)...) }
func (z ZapLogger) Warn(msg string, f confita.Fields)  { z.L.Warn(msg, zf(f)...) }
func (z ZapLogger) Error(msg string, f confita.Fields) { z.L.Error(msg, zf(f)...) }

func zf(f confita.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(f))
	for k, v := range f {
		if err, ok := v.(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, v))
	}
	return out
}
