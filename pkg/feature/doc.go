// Package feature holds the runtime toggles that steer session handling:
// whether a session is served from the networked store (with a stable
// percentage rollout keyed by session id), whether activity tracking and
// verbose logging are on, and whether rate limiting is backed by Redis.
//
// Flags are read once from the environment and are immutable afterwards.
package feature
