package camera

import (
	"math/rand"
	"time"

	"crowdwatch/internal/model"
)

// FluctuationStrategy produces the occupancy delta applied to a non-live
// camera on each simulation tick. It is a stand-in data generator; swapping
// it for a real sensor feed does not touch the rule engine.
type FluctuationStrategy interface {
	Delta(cam model.Camera) int
}

// RandomWalk is the reference strategy: a bounded random step in
// [-maxDelta, +maxDelta].
type RandomWalk struct {
	maxDelta int
	rnd      *rand.Rand
}

func NewRandomWalk(maxDelta int) *RandomWalk {
	if maxDelta <= 0 {
		maxDelta = 10
	}
	return &RandomWalk{
		maxDelta: maxDelta,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (w *RandomWalk) Delta(cam model.Camera) int {
	return w.rnd.Intn(2*w.maxDelta+1) - w.maxDelta
}
