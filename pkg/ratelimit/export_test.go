package ratelimit

import "time"

var WithClock = withClock

func (s *MemoryStore) Cleanup(now time.Time) { s.cleanup(now) }
