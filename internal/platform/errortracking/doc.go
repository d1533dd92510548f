// Package errortracking scopes error-tracking context to individual requests.
//
// Every request gets its own Context (tags, extras, breadcrumbs) stored in
// the pipeline's per-request attribute store. The pipeline primes the
// request's context.Context with Feature.Init; any code holding that
// context.Context can reach the request's Context and client without access
// to the request object.
//
// # Lifecycle
//
//	feature, err := errortracking.Install(opts, logger)
//
//	// per request
//	req := errortracking.NewRequest(attrs, requestID, path)
//	ctx = feature.Init(ctx, req)
//	defer feature.Cleanup(req)
//
// # Reporting
//
//	client := errortracking.CurrentClient(ctx)
//	_ = client.AddTag(ctx, "tenant", tenantID)
//	if _, err := client.CaptureException(ctx, err); err != nil {
//	    // ctx was never primed: programming error
//	}
//
// Goroutines started by a handler must receive the request's ctx. A ctx that
// was never primed resolves to ErrNoActiveContext rather than to another
// request's data.
package errortracking
