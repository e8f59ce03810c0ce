package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/confita"
	"github.com/unkn0wn-root/confita/internal/logging"
	logruslog "github.com/unkn0wn-root/confita/log/logrus"
	slogadapter "github.com/unkn0wn-root/confita/log/slog"
	zaplog "github.com/unkn0wn-root/confita/log/zap"
)

// newLogger builds the library logger for --log-backend. slogger is non-nil
// only for the slog backend, so cache events can be logged through the same
// handler.
func newLogger(src sources, stderr io.Writer) (log confita.Logger, slogger *slog.Logger, flush func(), err error) {
	switch src.logBackend {
	case "", "zap":
		z, err := logging.New(src.logLevel)
		if err != nil {
			return nil, nil, nil, err
		}
		return zaplog.New(z), nil, func() { _ = z.Sync() }, nil
	case "logrus":
		lvl, err := logrus.ParseLevel(src.logLevel)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("parse log level: %w", err)
		}
		l := logrus.New()
		l.SetOutput(stderr)
		l.SetLevel(lvl)
		l.SetFormatter(&logrus.JSONFormatter{})
		return logruslog.New(l), nil, func() {}, nil
	case "slog":
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(src.logLevel)); err != nil {
			return nil, nil, nil, fmt.Errorf("parse log level: %w", err)
		}
		s := slog.New(slog.NewJSONHandler(stderr, &slog.HandlerOptions{Level: lvl}))
		return slogadapter.New(s), s, func() {}, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown log backend %q", src.logBackend)
}
