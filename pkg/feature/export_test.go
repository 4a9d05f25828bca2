package feature

func WithRandom(r Rollout, fn func() float64) Rollout {
	r.random = fn
	return r
}
