package feature

import (
	"math/rand/v2"

	"github.com/cespare/xxhash/v2"
)

// Rollout admits a stable percentage of ids.
type Rollout struct {
	Percentage int
	// random is used when there is no id to bucket on.
	random func() float64
}

func NewRollout(percentage int) Rollout {
	return Rollout{Percentage: percentage, random: rand.Float64}
}

// Bucket maps id onto [0, 100).
func Bucket(id string) int {
	return int(xxhash.Sum64String(id) % 100)
}

// Allows reports whether id falls inside the rollout. The same id always gets
// the same answer. An empty id is admitted at random with the configured
// probability.
func (r Rollout) Allows(id string) bool {
	switch {
	case r.Percentage >= 100:
		return true
	case r.Percentage <= 0:
		return false
	case id != "":
		return Bucket(id) < r.Percentage
	}
	random := r.random
	if random == nil {
		random = rand.Float64
	}
	return random()*100 < float64(r.Percentage)
}
