// Package httpserver runs an http.Handler with production timeouts and
// drains it when the supplied context is cancelled.
//
// Run owns the listener; the caller owns signal handling, typically through
// signal.NotifyContext and an errgroup shared with background workers:
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	g.Go(func() error { return srv.Run(ctx, router) })
//
// LivenessHandler and ReadinessHandler provide JSON probes. Readiness runs
// its named checks concurrently and answers 503 when any of them fails.
//
// Listen failures are wrapped with ErrStart and drain failures with
// ErrShutdown.
package httpserver
