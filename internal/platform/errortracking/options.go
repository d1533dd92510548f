package errortracking

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus"
)

// EnvDSN is the environment variable consulted when no DSN is configured.
const EnvDSN = "SENTRY_DSN"

// Default option values.
const (
	DefaultSampleRate       = 1.0
	DefaultMaxBreadcrumbs   = 100
	DefaultMaxMessageLength = 1000
	DefaultTimeout          = time.Second
	DefaultAsyncQueueSize   = 50
	DefaultAsyncThreads     = 1
	DefaultAsyncPriority    = 1
	DefaultBufferSize       = 10
	DefaultBufferFlushTime  = time.Minute
	DefaultShutdownTimeout  = time.Second
)

// Extra keys written by request enrichment.
const (
	ExtraCallID      = "RequestCallId"
	ExtraRequestPath = "RequestPath"
)

// BufferOptions configures offline event buffering.
type BufferOptions struct {
	Dir              string
	Size             int
	FlushTime        time.Duration
	ShutdownTimeout  time.Duration
	GracefulShutdown bool
}

// AsyncOptions configures asynchronous event delivery.
type AsyncOptions struct {
	Enabled          bool
	ShutdownTimeout  time.Duration
	GracefulShutdown bool
	QueueSize        int
	Threads          int
	Priority         int
}

// Options is the resolved error tracking configuration.
// It is treated as immutable once the feature is installed.
type Options struct {
	DSN         string
	Release     string
	Dist        string
	Environment string
	ServerName  string

	// Tags and Extra are attached to every event unless the request context
	// already carries the same key.
	Tags  map[string]string
	Extra map[string]string

	// MDCTags names request attributes copied onto events as tags.
	MDCTags []string

	StacktraceAppPackages []string
	StacktraceHideCommon  bool

	SampleRate             float64
	UncaughtHandlerEnabled bool

	Buffer BufferOptions
	Async  AsyncOptions

	Compression      bool
	MaxMessageLength int
	MaxBreadcrumbs   int
	Timeout          time.Duration

	ProxyHost string
	ProxyPort int

	InitStaticClient bool
	AutoCallID       bool
	AutoRequestPath  bool

	// BeforeSend and Registerer can only be set programmatically; they are
	// not carried through the DSN.
	BeforeSend func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event
	Registerer prometheus.Registerer
}

// DefaultOptions returns the option defaults used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		SampleRate:             DefaultSampleRate,
		UncaughtHandlerEnabled: true,
		Buffer: BufferOptions{
			Size:             DefaultBufferSize,
			FlushTime:        DefaultBufferFlushTime,
			ShutdownTimeout:  DefaultShutdownTimeout,
			GracefulShutdown: true,
		},
		Async: AsyncOptions{
			Enabled:          true,
			ShutdownTimeout:  DefaultShutdownTimeout,
			GracefulShutdown: true,
			QueueSize:        DefaultAsyncQueueSize,
			Threads:          DefaultAsyncThreads,
			Priority:         DefaultAsyncPriority,
		},
		Compression:      true,
		MaxMessageLength: DefaultMaxMessageLength,
		MaxBreadcrumbs:   DefaultMaxBreadcrumbs,
		Timeout:          DefaultTimeout,
		AutoCallID:       true,
		AutoRequestPath:  true,
	}
}

// DSN query parameter names.
const (
	paramRelease          = "release"
	paramDist             = "dist"
	paramEnvironment      = "environment"
	paramServerName       = "servername"
	paramTags             = "tags"
	paramExtra            = "extra"
	paramMDCTags          = "mdctags"
	paramAppPackages      = "stacktrace.app.packages"
	paramHideCommon       = "stacktrace.hidecommon"
	paramSampleRate       = "sample.rate"
	paramUncaughtHandler  = "uncaught.handler.enabled"
	paramBufferDir        = "buffer.dir"
	paramBufferSize       = "buffer.size"
	paramBufferFlushTime  = "buffer.flushtime"
	paramBufferShutdown   = "buffer.shutdowntimeout"
	paramBufferGraceful   = "buffer.gracefulshutdown"
	paramAsync            = "async"
	paramAsyncShutdown    = "async.shutdowntimeout"
	paramAsyncGraceful    = "async.gracefulshutdown"
	paramAsyncQueueSize   = "async.queuesize"
	paramAsyncThreads     = "async.threads"
	paramAsyncPriority    = "async.priority"
	paramCompression      = "compression"
	paramMaxMessageLength = "maxmessagelength"
	paramMaxBreadcrumbs   = "maxbreadcrumbs"
	paramTimeout          = "timeout"
	paramProxyHost        = "http.proxy.host"
	paramProxyPort        = "http.proxy.port"
	paramInitStaticClient = "init.static.client"
	paramAutoCallID       = "auto.callid"
	paramAutoRequestPath  = "auto.requestpath"
)

// EncodeDSN serializes the options as query parameters appended to the DSN.
// Durations are written in milliseconds.
func (o Options) EncodeDSN() (string, error) {
	if strings.TrimSpace(o.DSN) == "" {
		return "", &ConfigurationError{Field: "dsn", Err: ErrMissingDSN}
	}

	u, err := url.Parse(o.DSN)
	if err != nil {
		return "", &ConfigurationError{Field: "dsn", Err: err}
	}

	q := u.Query()
	setString := func(key, value string) {
		if value != "" {
			q.Set(key, value)
		}
	}

	setString(paramRelease, o.Release)
	setString(paramDist, o.Dist)
	setString(paramEnvironment, o.Environment)
	setString(paramServerName, o.ServerName)
	setString(paramTags, encodePairs(o.Tags))
	setString(paramExtra, encodePairs(o.Extra))
	setString(paramMDCTags, strings.Join(o.MDCTags, ","))
	setString(paramAppPackages, strings.Join(o.StacktraceAppPackages, ","))
	setString(paramBufferDir, o.Buffer.Dir)
	setString(paramProxyHost, o.ProxyHost)

	q.Set(paramHideCommon, strconv.FormatBool(o.StacktraceHideCommon))
	q.Set(paramSampleRate, strconv.FormatFloat(o.SampleRate, 'f', -1, 64))
	q.Set(paramUncaughtHandler, strconv.FormatBool(o.UncaughtHandlerEnabled))
	q.Set(paramBufferSize, strconv.Itoa(o.Buffer.Size))
	q.Set(paramBufferFlushTime, formatMillis(o.Buffer.FlushTime))
	q.Set(paramBufferShutdown, formatMillis(o.Buffer.ShutdownTimeout))
	q.Set(paramBufferGraceful, strconv.FormatBool(o.Buffer.GracefulShutdown))
	q.Set(paramAsync, strconv.FormatBool(o.Async.Enabled))
	q.Set(paramAsyncShutdown, formatMillis(o.Async.ShutdownTimeout))
	q.Set(paramAsyncGraceful, strconv.FormatBool(o.Async.GracefulShutdown))
	q.Set(paramAsyncQueueSize, strconv.Itoa(o.Async.QueueSize))
	q.Set(paramAsyncThreads, strconv.Itoa(o.Async.Threads))
	q.Set(paramAsyncPriority, strconv.Itoa(o.Async.Priority))
	q.Set(paramCompression, strconv.FormatBool(o.Compression))
	q.Set(paramMaxMessageLength, strconv.Itoa(o.MaxMessageLength))
	q.Set(paramMaxBreadcrumbs, strconv.Itoa(o.MaxBreadcrumbs))
	q.Set(paramTimeout, formatMillis(o.Timeout))
	q.Set(paramInitStaticClient, strconv.FormatBool(o.InitStaticClient))
	q.Set(paramAutoCallID, strconv.FormatBool(o.AutoCallID))
	q.Set(paramAutoRequestPath, strconv.FormatBool(o.AutoRequestPath))

	if o.ProxyPort > 0 {
		q.Set(paramProxyPort, strconv.Itoa(o.ProxyPort))
	}

	u.RawQuery = q.Encode()

	return u.String(), nil
}

// ParseDSN decodes a DSN produced by EncodeDSN. Parameters that are absent
// keep their DefaultOptions value.
func ParseDSN(raw string) (Options, error) {
	opts := DefaultOptions()

	if strings.TrimSpace(raw) == "" {
		return opts, &ConfigurationError{Field: "dsn", Err: ErrMissingDSN}
	}

	u, err := url.Parse(raw)
	if err != nil {
		return opts, &ConfigurationError{Field: "dsn", Err: err}
	}

	r := &queryReader{values: u.Query()}
	u.RawQuery = ""
	opts.DSN = u.String()

	r.str(paramRelease, &opts.Release)
	r.str(paramDist, &opts.Dist)
	r.str(paramEnvironment, &opts.Environment)
	r.str(paramServerName, &opts.ServerName)
	r.pairs(paramTags, &opts.Tags)
	r.pairs(paramExtra, &opts.Extra)
	r.list(paramMDCTags, &opts.MDCTags)
	r.list(paramAppPackages, &opts.StacktraceAppPackages)
	r.boolean(paramHideCommon, &opts.StacktraceHideCommon)
	r.float(paramSampleRate, &opts.SampleRate)
	r.boolean(paramUncaughtHandler, &opts.UncaughtHandlerEnabled)
	r.str(paramBufferDir, &opts.Buffer.Dir)
	r.integer(paramBufferSize, &opts.Buffer.Size)
	r.millis(paramBufferFlushTime, &opts.Buffer.FlushTime)
	r.millis(paramBufferShutdown, &opts.Buffer.ShutdownTimeout)
	r.boolean(paramBufferGraceful, &opts.Buffer.GracefulShutdown)
	r.boolean(paramAsync, &opts.Async.Enabled)
	r.millis(paramAsyncShutdown, &opts.Async.ShutdownTimeout)
	r.boolean(paramAsyncGraceful, &opts.Async.GracefulShutdown)
	r.integer(paramAsyncQueueSize, &opts.Async.QueueSize)
	r.integer(paramAsyncThreads, &opts.Async.Threads)
	r.integer(paramAsyncPriority, &opts.Async.Priority)
	r.boolean(paramCompression, &opts.Compression)
	r.integer(paramMaxMessageLength, &opts.MaxMessageLength)
	r.integer(paramMaxBreadcrumbs, &opts.MaxBreadcrumbs)
	r.millis(paramTimeout, &opts.Timeout)
	r.str(paramProxyHost, &opts.ProxyHost)
	r.integer(paramProxyPort, &opts.ProxyPort)
	r.boolean(paramInitStaticClient, &opts.InitStaticClient)
	r.boolean(paramAutoCallID, &opts.AutoCallID)
	r.boolean(paramAutoRequestPath, &opts.AutoRequestPath)

	if r.err != nil {
		return opts, r.err
	}

	return opts, nil
}

// queryReader decodes typed query parameters, keeping the first error.
type queryReader struct {
	values url.Values
	err    error
}

func (r *queryReader) lookup(key string) (string, bool) {
	if r.err != nil || !r.values.Has(key) {
		return "", false
	}

	return r.values.Get(key), true
}

func (r *queryReader) fail(key string, err error) {
	r.err = &ConfigurationError{Field: key, Err: err}
}

func (r *queryReader) str(key string, dst *string) {
	if v, ok := r.lookup(key); ok {
		*dst = v
	}
}

func (r *queryReader) list(key string, dst *[]string) {
	if v, ok := r.lookup(key); ok && v != "" {
		*dst = strings.Split(v, ",")
	}
}

func (r *queryReader) pairs(key string, dst *map[string]string) {
	v, ok := r.lookup(key)
	if !ok || v == "" {
		return
	}

	out := make(map[string]string)
	for _, pair := range strings.Split(v, ",") {
		rawName, rawValue, found := strings.Cut(pair, ":")
		if !found || rawName == "" {
			r.fail(key, fmt.Errorf("malformed pair %q", pair))
			return
		}

		name, err := url.QueryUnescape(rawName)
		if err != nil {
			r.fail(key, err)
			return
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			r.fail(key, err)
			return
		}
		out[name] = value
	}

	*dst = out
}

func (r *queryReader) boolean(key string, dst *bool) {
	if v, ok := r.lookup(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			r.fail(key, err)
			return
		}
		*dst = b
	}
}

func (r *queryReader) integer(key string, dst *int) {
	if v, ok := r.lookup(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			r.fail(key, err)
			return
		}
		*dst = n
	}
}

func (r *queryReader) float(key string, dst *float64) {
	if v, ok := r.lookup(key); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			r.fail(key, err)
			return
		}
		*dst = f
	}
}

func (r *queryReader) millis(key string, dst *time.Duration) {
	var n int
	if _, ok := r.lookup(key); !ok {
		return
	}

	r.integer(key, &n)
	if r.err == nil {
		*dst = time.Duration(n) * time.Millisecond
	}
}

func formatMillis(d time.Duration) string {
	return strconv.FormatInt(d.Milliseconds(), 10)
}

// encodePairs writes a map as "k1:v1,k2:v2" with keys sorted. Keys and
// values are query-escaped so they may contain the separators.
func encodePairs(m map[string]string) string {
	if len(m) == 0 {
		return ""
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, url.QueryEscape(k)+":"+url.QueryEscape(m[k]))
	}

	return strings.Join(parts, ",")
}
