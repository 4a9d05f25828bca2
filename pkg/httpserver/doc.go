// Package httpserver runs an http.Handler with graceful shutdown.
//
// Run binds the listener up front, so a bad address fails immediately with
// ErrStart, and then serves until the context is cancelled, SIGINT or
// SIGTERM arrives, or Shutdown is called. Shutdown drains in-flight requests
// and then runs the stop hooks, which is where long-lived dependencies such
// as the session activity worker and the Redis client are closed.
//
//	srv := httpserver.NewFromConfig(cfg,
//		httpserver.WithLogger(log),
//		httpserver.WithStopHook(initializer.Close),
//	)
//	r.Get("/livez", httpserver.Probe(log))
//	r.Get("/readyz", httpserver.Probe(log, httpserver.Check{Name: "redis", Fn: ping}))
//	err := srv.Run(ctx, r)
package httpserver
