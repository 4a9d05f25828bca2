package session

import "time"

func SetStoreClock(s *Store, now func() time.Time) { s.now = now }

func SetRandRead(fn func([]byte) (int, error)) (restore func()) {
	prev := randRead
	randRead = fn
	return func() { randRead = prev }
}

var WithClock = withClock
