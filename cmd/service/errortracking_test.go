package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jsamuelsen/reqsentry/internal/platform/config"
)

func TestErrorTrackingOptions(t *testing.T) {
	app := config.AppConfig{Name: "reqsentry", Version: "1.2.3", Environment: "qa"}

	s := config.SentryConfig{
		DSN:            "https://public@sentry.example.com/1",
		ServerName:     "pod-1",
		Tags:           map[string]string{"team": "payments"},
		MDCTags:        []string{"request_id"},
		Stacktrace:     config.SentryStacktraceConfig{AppPackages: []string{"github.com/jsamuelsen/reqsentry"}, HideCommon: true},
		SampleRate:     0.5,
		MaxBreadcrumbs: 30,
		Timeout:        2 * time.Second,
		Async:          config.SentryAsyncConfig{Enabled: true, QueueSize: 20, GracefulShutdown: true},
		HTTPProxy:      config.SentryProxyConfig{Host: "proxy.internal", Port: 3128},
		AutoCallID:     true,
	}

	opts := errorTrackingOptions(app, s)

	assert.Equal(t, s.DSN, opts.DSN)
	assert.Equal(t, "reqsentry@1.2.3", opts.Release)
	assert.Equal(t, "qa", opts.Environment)
	assert.Equal(t, "pod-1", opts.ServerName)
	assert.Equal(t, s.Tags, opts.Tags)
	assert.Equal(t, s.MDCTags, opts.MDCTags)
	assert.Equal(t, s.Stacktrace.AppPackages, opts.StacktraceAppPackages)
	assert.True(t, opts.StacktraceHideCommon)
	assert.InDelta(t, 0.5, opts.SampleRate, 0)
	assert.Equal(t, 30, opts.MaxBreadcrumbs)
	assert.Equal(t, 2*time.Second, opts.Timeout)
	assert.True(t, opts.Async.Enabled)
	assert.Equal(t, 20, opts.Async.QueueSize)
	assert.Equal(t, "proxy.internal", opts.ProxyHost)
	assert.Equal(t, 3128, opts.ProxyPort)
	assert.True(t, opts.AutoCallID)
	assert.False(t, opts.AutoRequestPath)
}

func TestErrorTrackingOptions_ExplicitReleaseWins(t *testing.T) {
	opts := errorTrackingOptions(
		config.AppConfig{Name: "reqsentry", Version: "1.2.3", Environment: "qa"},
		config.SentryConfig{Release: "custom", Environment: "prod"},
	)

	assert.Equal(t, "custom", opts.Release)
	assert.Equal(t, "prod", opts.Environment)
}

func TestLogMiddleware(t *testing.T) {
	assert.Empty(t, logMiddleware(config.SentryConfig{}))
	assert.Len(t, logMiddleware(config.SentryConfig{LogBreadcrumbs: "warn"}), 1)
}
