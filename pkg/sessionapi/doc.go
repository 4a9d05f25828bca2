// Package sessionapi serves the session JSON endpoints:
//
//	GET  /api/user                  current token, rate limited per client
//	GET  /api/sessions              the signed-in user's sessions
//	POST /api/sessions/revoke       {"sessionId": "..."}; never the current one
//	POST /api/sessions/revoke-all   every session except the current one
//	GET  /api/health                Redis status, session counts, flags
//
// Session management only works while the request is served by the Redis
// backend; otherwise those endpoints answer 503
// session-management-unavailable.
package sessionapi
