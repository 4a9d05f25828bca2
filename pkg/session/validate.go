package session

// CanReuse reports whether rec's token may be served without contacting the
// identity service.
//
// Bots keep any valid token. Everyone else additionally needs a cookie hash
// that matches the upstream cookie presented now: a different hash means the
// identity service rotated or dropped the session behind our back. A forced
// refresh always disqualifies non-bot sessions.
func CanReuse(rec *Record, incomingHash string, forceRefresh bool) bool {
	if rec == nil {
		return false
	}
	valid := rec.Token.IsValid()
	if rec.Bot && valid {
		return true
	}
	return !forceRefresh &&
		valid &&
		incomingHash != "" &&
		rec.APICookieHash != "" &&
		incomingHash == rec.APICookieHash
}
