package rooster

import (
	"io"
	"log/slog"
	"time"

	"southwinds.dev/rooster/audit"
	"southwinds.dev/rooster/internal/format"
)

// Option configures a Store.
type Option func(*options)

type options struct {
	schemes format.Registry
	logger  *slog.Logger
	audit   audit.Logger
	now     func() time.Time
}

func newOptions(opts []Option) options {
	o := options{
		schemes: format.DefaultRegistry(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		audit:   audit.NewNoOpLogger(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithSchemes replaces the format registry. Tests use it to register cheaper
// key derivation parameters.
func WithSchemes(r format.Registry) Option {
	return func(o *options) {
		o.schemes = r
	}
}

// WithLogger sets the structured logger. Secrets are never logged.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithAudit sets the audit trail.
func WithAudit(l audit.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.audit = l
		}
	}
}

// WithClock sets the time source for entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
