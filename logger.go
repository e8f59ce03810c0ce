package confita

// Fields is a minimal structured field map for logs.
type Fields map[string]any

// Logger is the observability collaborator of the resolver and the backends.
// Provide an adapter around your logging stack (see log/zap, log/logrus, log/slog).
// Logging never affects resolution.
type Logger interface {
	Debug(msg string, f Fields)
	Info(msg string, f Fields)
	Warn(msg string, f Fields)
	Error(msg string, f Fields)
}

// Level selects a Logger method for Log.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Log dispatches msg to l at lvl. Unknown levels log at info; a nil l is a no-op.
func Log(l Logger, lvl Level, msg string, f Fields) {
	if l == nil {
		return
	}
	switch lvl {
	case LevelDebug:
		l.Debug(msg, f)
	case LevelWarn:
		l.Warn(msg, f)
	case LevelError:
		l.Error(msg, f)
	default:
		l.Info(msg, f)
	}
}

type NopLogger struct{}

func (NopLogger) Debug(string, Fields) {}
func (NopLogger) Info(string, Fields)  {}
func (NopLogger) Warn(string, Fields)  {}
func (NopLogger) Error(string, Fields) {}
