package session

import "errors"

var (
	ErrStoreUnavailable = errors.New("session.store_unavailable")
	ErrEncode           = errors.New("session.encode_failed")
	ErrPanic            = errors.New("session.panic")
	ErrNoSessionID      = errors.New("session.no_session_id")
)
