package logging

import (
	"time"

	"github.com/rs/zerolog"
)

// Registry holds one logger per category. All loggers share the console, sink and
// the in-flight write tracking.
type Registry struct {
	App      *Logger
	Auth     *Logger
	Airbyte  *Logger
	Webhook  *Logger
	API      *Logger
	Database *Logger

	core *core
}

// NewRegistry builds the category loggers from opts
func NewRegistry(opts Options) *Registry {
	timeout := opts.SinkTimeout
	if timeout <= 0 {
		timeout = defaultSinkTimeout
	}
	c := &core{
		console: opts.Console,
		sink:    opts.Sink,
		metrics: opts.Metrics,
		debug:   opts.Debug,
		timeout: timeout,
		now:     time.Now,
	}
	r := &Registry{core: c}
	r.App = r.For(SourceApp)
	r.Auth = r.For(SourceAuth)
	r.Airbyte = r.For(SourceAirbyte)
	r.Webhook = r.For(SourceWebhook)
	r.API = r.For(SourceAPI)
	r.Database = r.For(SourceDatabase)
	return r
}

// NewNop returns a registry that discards everything
func NewNop() *Registry {
	return NewRegistry(Options{Console: zerolog.Nop()})
}

// For returns a logger for an arbitrary source sharing the registry's outputs
func (r *Registry) For(source string) *Logger {
	return &Logger{source: source, core: r.core}
}

// Console returns the underlying zerolog logger
func (r *Registry) Console() zerolog.Logger {
	return r.core.console
}

// Wait blocks until every pending sink write has finished
func (r *Registry) Wait() {
	r.core.inflight.Wait()
}
