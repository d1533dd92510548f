package main

import (
	"github.com/jsamuelsen/reqsentry/internal/platform/config"
	"github.com/jsamuelsen/reqsentry/internal/platform/errortracking"
)

// errorTrackingOptions maps the sentry config section onto feature options.
// Release and environment fall back to the app's own values.
func errorTrackingOptions(app config.AppConfig, s config.SentryConfig) errortracking.Options {
	opts := errortracking.Options{
		DSN:                    s.DSN,
		Release:                s.Release,
		Dist:                   s.Dist,
		Environment:            s.Environment,
		ServerName:             s.ServerName,
		Tags:                   s.Tags,
		Extra:                  s.Extra,
		MDCTags:                s.MDCTags,
		StacktraceAppPackages:  s.Stacktrace.AppPackages,
		StacktraceHideCommon:   s.Stacktrace.HideCommon,
		SampleRate:             s.SampleRate,
		UncaughtHandlerEnabled: s.UncaughtHandlerEnabled,
		Buffer: errortracking.BufferOptions{
			Dir:              s.Buffer.Dir,
			Size:             s.Buffer.Size,
			FlushTime:        s.Buffer.FlushTime,
			ShutdownTimeout:  s.Buffer.ShutdownTimeout,
			GracefulShutdown: s.Buffer.GracefulShutdown,
		},
		Async: errortracking.AsyncOptions{
			Enabled:          s.Async.Enabled,
			ShutdownTimeout:  s.Async.ShutdownTimeout,
			GracefulShutdown: s.Async.GracefulShutdown,
			QueueSize:        s.Async.QueueSize,
			Threads:          s.Async.Threads,
			Priority:         s.Async.Priority,
		},
		Compression:      s.Compression,
		MaxMessageLength: s.MaxMessageLength,
		MaxBreadcrumbs:   s.MaxBreadcrumbs,
		Timeout:          s.Timeout,
		ProxyHost:        s.HTTPProxy.Host,
		ProxyPort:        s.HTTPProxy.Port,
		InitStaticClient: s.InitStaticClient,
		AutoCallID:       s.AutoCallID,
		AutoRequestPath:  s.AutoRequestPath,
	}

	if opts.Release == "" {
		opts.Release = app.Name + "@" + app.Version
	}

	if opts.Environment == "" {
		opts.Environment = app.Environment
	}

	return opts
}
