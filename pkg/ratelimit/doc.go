// Package ratelimit implements sliding-window rate limiting over Redis or
// process memory.
//
// Every request, allowed or not, is recorded in the window for its key. A
// request is allowed when fewer than the limit were recorded in the
// preceding window.
//
//	store := ratelimit.NewRedisStore(client, "scix_")
//	limiter, err := ratelimit.NewSlidingWindow(store, 100, time.Minute)
//	r.With(ratelimit.Middleware(limiter)).Get("/api/user", handler)
//
// Middleware fails open: if the store is unreachable the request is served.
package ratelimit
