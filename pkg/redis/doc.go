// Package redis wires github.com/redis/go-redis/v9 into the application:
// configuration from the environment, an eager Connect with retries for
// tooling, and a Lazy accessor for request paths that must keep serving when
// the cache is down.
package redis
