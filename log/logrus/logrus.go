// Package logrus adapts a *logrus.Entry to confita.Logger.
package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/confita"
)

var _ confita.Logger = LogrusLogger{}

type LogrusLogger struct{ E *logrus.Entry }

// New wraps l; a nil l uses logrus' standard logger.
func New(l *logrus.Logger) LogrusLogger {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return LogrusLogger{E: logrus.NewEntry(l)}
}

func (l LogrusLogger) Debug(msg string, f confita.Fields) { l.with(f).Debug(msg) }
func (l LogrusLogger) Info(msg string, f confita.Fields)  { l.with(f).Info(msg) }
func (l LogrusLogger) Warn(msg string, f confita.Fields)  { l.with(f).Warn(msg) }
func (l LogrusLogger) Error(msg string, f confita.Fields) { l.with(f).Error(msg) }

func (l LogrusLogger) with(f confita.Fields) *logrus.Entry {
	if len(f) == 0 {
		return l.E
	}
	return l.E.WithFields(logrus.Fields(f))
}
