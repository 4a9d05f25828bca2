// Package handler adapts typed request handlers to http.HandlerFunc.
//
// A HandlerFunc receives the request and a value decoded by the configured
// binder and returns a Response. Binding and rendering failures go through
// the ErrorHandler, which by default renders the {"success":false,"error":key}
// envelope used across the JSON API.
//
//	type revokeRequest struct {
//		SessionID string `json:"sessionId"`
//	}
//
//	r.Post("/api/sessions/revoke", handler.Wrap(api.revoke,
//		handler.WithBinder[revokeRequest](binder.JSON()),
//	))
package handler
