// Package bootstrap mints tokens from the upstream identity service.
//
// A bootstrap is a GET to the configured endpoint that forwards the caller's
// existing upstream session cookie, if any, so the service can extend a known
// session instead of minting a fresh anonymous one. The response carries the
// token in its JSON body and the (possibly rotated) session cookie in
// Set-Cookie.
//
// Failures are soft: Client.Bootstrap returns nil for transport errors,
// non-2xx responses and undecodable bodies, and callers treat that as "no
// valid token".
package bootstrap
