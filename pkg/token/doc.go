// Package token models the bearer token minted by the upstream identity
// service and the pure predicates that decide whether it can still be used.
//
// Two historical expiry encodings exist: expires_at (epoch seconds, sent as
// either a JSON string or number) and expire_in (an ISO-8601 timestamp). A
// token carrying expires_at is judged by it; otherwise expire_in is used.
// An expiry that cannot be parsed counts as already expired.
//
//	if tok.IsAuthenticated() {
//		// real user, not the anonymous identity
//	}
package token
