package services

import (
	"log/slog"
	"time"

	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/log"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/otelhelper"
	"go.opentelemetry.io/otel/trace"
)

// Option customizes a service.
type Option func(*options)

type options struct {
	authorizer Authorizer
	logger     *slog.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

func WithAuthorizer(authorizer Authorizer) Option {
	return func(o *options) {
		o.authorizer = authorizer
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		o.tracer = tracer
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func newOptions(module string, opts []Option) options {
	o := options{
		authorizer: NewRoleAuthorizer(),
		logger:     log.WithModule(module),
		tracer:     otelhelper.Noop(),
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(&o)
	}

	return o
}

func (o options) clock() time.Time {
	return o.now().UTC()
}
