// Package session keeps every request supplied with a usable upstream token.
//
// Each request carries a small sealed cookie (State) holding the session id,
// the current token and the hash of the upstream session cookie it was
// minted against. The Initializer middleware decides per request whether
// that token can be reused or a new one must be bootstrapped from the
// identity service.
//
// Two backends hold the authoritative session record:
//
//   - RedisBackend stores the full Record in Redis under session:{id}, with a
//     per-user index under session_index:{userId}:{id} for enumeration and
//     revocation.
//   - CookieBackend uses the sealed cookie itself and needs no shared state.
//
// Which backend serves a request is a rollout decision keyed by session id.
// When Redis fails the request is rerun against the cookie backend, and when
// that fails too the response is passed through untouched: serving an
// unauthenticated page is always preferred to failing the request.
//
// Store methods never return Redis errors to callers of the total API (Get,
// Set, Touch, Destroy, ...); failures are logged and mapped to nil, false or
// zero. Lookup and Save expose errors for the backend layer.
package session
