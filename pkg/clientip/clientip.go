// Package clientip resolves the originating client address of a request
// behind the ingress proxies the app is deployed behind.
package clientip

import (
	"context"
	"net"
	"net/http"
	"strings"
)

// Unknown is returned when no header or remote address yields a valid IP.
const Unknown = "unknown"

// headers are consulted in order; list-valued headers use their first valid
// entry.
var headers = []string{
	"X-Original-Forwarded-For",
	"X-Forwarded-For",
	"X-Real-IP",
	"CF-Connecting-IP",
}

// GetIP returns the client IP for r.
func GetIP(r *http.Request) string {
	for _, h := range headers {
		v := r.Header.Get(h)
		if v == "" {
			continue
		}
		for part := range strings.SplitSeq(v, ",") {
			if ip := parseIP(part); ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if ip := parseIP(host); ip != "" {
		return ip
	}
	return Unknown
}

func parseIP(s string) string {
	ip := net.ParseIP(strings.TrimSpace(s))
	if ip == nil {
		return ""
	}
	return ip.String()
}

type contextKey struct{}

func WithContext(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, contextKey{}, ip)
}

// FromContext returns the IP stored by Middleware, or "" if none.
func FromContext(ctx context.Context) string {
	ip, _ := ctx.Value(contextKey{}).(string)
	return ip
}

// Middleware resolves the client IP once and stores it in the request
// context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), GetIP(r))))
	})
}
