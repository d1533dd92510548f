package errortracking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Feature installs request-scoped error tracking into a request pipeline.
//
// Per request it moves through three states: Init stores a fresh Context in
// the request's attribute store, Reset swaps it for a new one, and Cleanup
// removes it. The pipeline must run Init before any hook that may report
// errors and Cleanup after its fallback handlers.
type Feature struct {
	opts    Options
	client  *Client
	manager *requestContextManager
	metrics *Metrics
	logger  *slog.Logger
}

// Install resolves the options and builds the feature's client. overrides
// run after opts, so programmatic settings win over file settings. A blank
// DSN falls back to the SENTRY_DSN environment variable; when that is empty
// too Install fails with a *ConfigurationError and no client is built.
func Install(opts Options, logger *slog.Logger, overrides ...func(*Options)) (*Feature, error) {
	if logger == nil {
		logger = slog.Default()
	}

	for _, override := range overrides {
		override(&opts)
	}

	if strings.TrimSpace(opts.DSN) == "" {
		opts.DSN = os.Getenv(EnvDSN)
	}

	dsn, err := opts.EncodeDSN()
	if err != nil {
		return nil, fmt.Errorf("installing error tracking: %w", err)
	}

	f := &Feature{
		opts:    opts,
		metrics: NewMetrics(opts.Registerer),
		logger:  logger.With(slog.String("component", "errortracking.Feature")),
	}
	f.manager = &requestContextManager{feature: f}

	var clientOpts []ClientOption
	if opts.BeforeSend != nil {
		clientOpts = append(clientOpts, WithBeforeSend(opts.BeforeSend))
	}

	f.client, err = NewClient(dsn, featureFactory{feature: f}, logger, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("installing error tracking: %w", err)
	}
	f.client.metrics = f.metrics

	if opts.InitStaticClient {
		def, err := InitDefault(dsn, logger, clientOpts...)
		if err != nil {
			return nil, fmt.Errorf("initializing default client: %w", err)
		}
		def.metrics = f.metrics
	}

	f.logger.Info("error tracking installed",
		slog.String("dsn_host", redactedDSN(opts)),
		slog.String("environment", opts.Environment),
		slog.Bool("async", opts.Async.Enabled),
		slog.Bool("static_client", opts.InitStaticClient),
	)

	return f, nil
}

// Client returns the request-scoped client.
func (f *Feature) Client() *Client {
	return f.client
}

// Options returns the resolved options.
func (f *Feature) Options() Options {
	return f.opts
}

// Bind primes ctx with the feature and req. Code that only receives the
// returned context resolves req's Context through it.
func (f *Feature) Bind(ctx context.Context, req *Request) context.Context {
	return withBinding(ctx, binding{feature: f, request: req})
}

// Init creates and stores the Context for req and returns ctx primed for it.
// Initializing a request twice replaces its Context.
func (f *Feature) Init(ctx context.Context, req *Request) context.Context {
	store := req.contexts()
	if !store.held() {
		f.metrics.contextOpened()
	}
	store.put(f.newContext(req))

	return f.Bind(ctx, req)
}

// Cleanup removes req's Context from its attribute store.
func (f *Feature) Cleanup(req *Request) {
	if req.contexts().remove() {
		f.metrics.contextClosed()
	}
}

// Reset replaces req's Context with a fresh, enriched one and returns it.
// Other requests are not touched.
func (f *Feature) Reset(req *Request) (*Context, error) {
	current, err := req.contexts().get()
	if err != nil {
		return nil, fmt.Errorf("resetting context: %w", err)
	}

	next := current.Reset()
	f.enrich(next)
	req.contexts().put(next)
	f.metrics.contextReset()

	f.logger.Debug("error tracking context reset", slog.String("path", req.Path()))

	return next, nil
}

// Name implements the health checker port.
func (f *Feature) Name() string {
	return "error-tracking"
}

// Check implements the health checker port.
func (f *Feature) Check(context.Context) error {
	if f.client == nil || f.client.sentry == nil {
		return errors.New("error tracking client not configured")
	}

	return nil
}

// Close flushes the feature's client.
func (f *Feature) Close() {
	f.client.Close()
}

func (f *Feature) newContext(req *Request) *Context {
	c := NewContext(req, f.opts.MaxBreadcrumbs)
	f.enrich(c)

	return c
}

func (f *Feature) enrich(c *Context) {
	req := c.Request()

	if f.opts.AutoCallID && req.CallID() != "" {
		c.AddExtra(ExtraCallID, req.CallID())
	}

	if f.opts.AutoRequestPath {
		c.AddExtra(ExtraRequestPath, req.Path())
	}
}
