// Package logger builds the logrus loggers used by every KinemaTV component.
//
// Usage:
//
//	log := logger.New("kinema", "info", "json")
//	ctx := logger.WithContext(ctx, log.WithField("request_id", id))
//	// ... later:
//	logger.FromContext(ctx).WithField("status", 200).Info("request complete")
package logger

import (
	"context"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// contextKey is an unexported type for context keys in this package.
type contextKey struct{}

// New creates a logrus entry tagged with the service name.
//
// format: "json" (default, production) or "pretty" (text, development).
// level:  any logrus level name; unknown values fall back to info.
func New(service, level, format string) *logrus.Entry {
	return NewWithOutput(os.Stdout, service, level, format)
}

// NewWithOutput is New with an explicit writer.
func NewWithOutput(out io.Writer, service, level, format string) *logrus.Entry {
	log := logrus.New()
	log.SetOutput(out)
	if format == "pretty" {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil || level == "" {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	return log.WithField("service", service)
}

// Discard returns an entry that writes nowhere. Useful as a default in tests
// and for components constructed without a logger.
func Discard() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

// WithContext returns a new context that carries the given entry.
func WithContext(ctx context.Context, e *logrus.Entry) context.Context {
	return context.WithValue(ctx, contextKey{}, e)
}

// FromContext returns the entry stored by WithContext, or an entry on the
// logrus standard logger when none is present.
func FromContext(ctx context.Context) *logrus.Entry {
	if ctx != nil {
		if e, ok := ctx.Value(contextKey{}).(*logrus.Entry); ok && e != nil {
			return e
		}
	}
	return logrus.NewEntry(logrus.StandardLogger())
}
