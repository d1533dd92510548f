package errortracking

import (
	"context"
	"log/slog"
	"sync"

	"github.com/getsentry/sentry-go"

	"github.com/jsamuelsen/reqsentry/internal/platform/logging"
)

var (
	defaultMu     sync.Mutex
	defaultClient *Client
)

// InitDefault builds the process-wide default client from the same DSN the
// feature uses and binds it to sentry's global hub. It is meant for code
// paths that run outside any request.
func InitDefault(dsn string, logger *slog.Logger, clientOpts ...ClientOption) (*Client, error) {
	client, err := NewClient(dsn, DefaultFactory(), logger, clientOpts...)
	if err != nil {
		return nil, err
	}

	sentry.CurrentHub().BindClient(client.sentry)

	defaultMu.Lock()
	defaultClient = client
	defaultMu.Unlock()

	return client, nil
}

// Default returns the process-wide default client. Before InitDefault it
// falls back to whatever sentry's global hub holds, logging a warning once;
// events sent through it share one Context and are not request-scoped.
func Default() *Client {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultClient != nil {
		return defaultClient
	}

	logger := slog.Default().With(slog.String("component", "errortracking.Client"))
	logger.Warn("default error tracking client not initialized, using library defaults")

	defaultClient = &Client{
		sentry:  sentry.CurrentHub().Client(),
		manager: DefaultFactory().CreateContextManager(DefaultOptions()),
		opts:    DefaultOptions(),
		logger:  logger,
	}

	return defaultClient
}

// CurrentClient returns the client of the feature primed into ctx. When no
// feature is reachable it logs a warning and returns Default(); contexts are
// then not request-scoped.
func CurrentClient(ctx context.Context) *Client {
	if client, ok := ClientFromContext(ctx); ok {
		return client
	}

	logging.FromContext(ctx).Warn("error tracking unavailable for request, falling back to default client",
		slog.Any("error", ErrFeatureNotInstalled),
	)

	return Default()
}

// ClientFromContext returns the client of the feature primed into ctx
// without logging.
func ClientFromContext(ctx context.Context) (*Client, bool) {
	b, ok := bindingFromContext(ctx)
	if !ok || b.feature == nil {
		return nil, false
	}

	return b.feature.client, true
}
