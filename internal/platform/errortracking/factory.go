package errortracking

import (
	"log/slog"
	"net"
	"net/url"
	"strconv"

	"github.com/getsentry/sentry-go"
)

// ClientFactory supplies the ContextManager a new Client consults.
// It is the only thing that differs between the request-scoped client and
// the process-wide default one.
type ClientFactory interface {
	CreateContextManager(opts Options) ContextManager
}

// ClientOption adjusts the sentry options before the client is built.
type ClientOption func(*sentry.ClientOptions)

// WithBeforeSend installs a hook that runs after the built-in event
// processing. Returning nil drops the event.
func WithBeforeSend(fn func(*sentry.Event, *sentry.EventHint) *sentry.Event) ClientOption {
	return func(co *sentry.ClientOptions) {
		co.BeforeSend = fn
	}
}

// WithTransport replaces the transport chosen from the async options.
func WithTransport(t sentry.Transport) ClientOption {
	return func(co *sentry.ClientOptions) {
		co.Transport = t
	}
}

type defaultFactory struct{}

// DefaultFactory returns the factory used by the process-wide client: a
// single Context shared by every caller.
func DefaultFactory() ClientFactory {
	return defaultFactory{}
}

func (defaultFactory) CreateContextManager(opts Options) ContextManager {
	return newStaticContextManager(opts.MaxBreadcrumbs)
}

// featureFactory hands out the feature's request-scoped manager.
type featureFactory struct {
	feature *Feature
}

func (f featureFactory) CreateContextManager(Options) ContextManager {
	return f.feature.manager
}

// NewClient builds a client from a DSN carrying all options as query
// parameters (see Options.EncodeDSN).
func NewClient(dsn string, factory ClientFactory, logger *slog.Logger, clientOpts ...ClientOption) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}

	co := sentryOptions(opts)
	for _, apply := range clientOpts {
		apply(&co)
	}

	co.BeforeSend = chainBeforeSend(opts, co.BeforeSend)

	sc, err := sentry.NewClient(co)
	if err != nil {
		return nil, &ConfigurationError{Field: "dsn", Err: err}
	}

	return &Client{
		sentry:  sc,
		manager: factory.CreateContextManager(opts),
		opts:    opts,
		dsn:     dsn,
		logger:  logger.With(slog.String("component", "errortracking.Client")),
	}, nil
}

// sentryOptions maps the options sentry-go understands. Buffering,
// compression and worker tuning have no sentry-go equivalent.
func sentryOptions(opts Options) sentry.ClientOptions {
	co := sentry.ClientOptions{
		Dsn:              opts.DSN,
		Release:          opts.Release,
		Dist:             opts.Dist,
		Environment:      opts.Environment,
		ServerName:       opts.ServerName,
		SampleRate:       opts.SampleRate,
		MaxBreadcrumbs:   opts.MaxBreadcrumbs,
		AttachStacktrace: true,
	}

	if opts.ProxyHost != "" {
		proxy := "http://" + opts.ProxyHost
		if opts.ProxyPort > 0 {
			proxy = "http://" + net.JoinHostPort(opts.ProxyHost, strconv.Itoa(opts.ProxyPort))
		}
		co.HTTPProxy = proxy
		co.HTTPSProxy = proxy
	}

	if opts.Async.Enabled {
		t := sentry.NewHTTPTransport()
		if opts.Async.QueueSize > 0 {
			t.BufferSize = opts.Async.QueueSize
		}
		if opts.Timeout > 0 {
			t.Timeout = opts.Timeout
		}
		co.Transport = t
	} else {
		t := sentry.NewHTTPSyncTransport()
		if opts.Timeout > 0 {
			t.Timeout = opts.Timeout
		}
		co.Transport = t
	}

	return co
}

// redactedDSN returns the DSN host and project for logging.
func redactedDSN(opts Options) string {
	u, err := url.Parse(opts.DSN)
	if err != nil {
		return "invalid"
	}

	return u.Host + u.Path
}
