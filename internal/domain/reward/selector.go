package reward

import (
	"errors"
	"math"
	"math/rand/v2"
)

const DefaultPicks = 2

var (
	ErrNoCandidates    = errors.New("no reward candidates")
	ErrMalformedWeight = errors.New("malformed reward weight")
	ErrInvalidPicks    = errors.New("invalid pick count")
)

type Weighted interface {
	RewardWeight() float64
}

// Source is the randomness used by a Selector.
type Source interface {
	Float64() float64
	IntN(n int) int
}

type Selector struct {
	Rand  Source
	Picks int
}

func NewSelector(seed1, seed2 uint64) Selector {
	return Selector{Rand: rand.New(rand.NewPCG(seed1, seed2)), Picks: DefaultPicks}
}

// Draw picks Picks candidates independently and with replacement. Each draw
// takes r uniformly from [0, 1+sum(weights)) and returns the first candidate
// whose running sum reaches r; when the padding unit is hit the draw falls
// back to a uniform pick over all candidates.
func Draw[T Weighted](s Selector, candidates []T) ([]T, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}
	picks := s.Picks
	if picks == 0 {
		picks = DefaultPicks
	}
	if picks < 0 {
		return nil, ErrInvalidPicks
	}
	total, err := TotalWeight(candidates)
	if err != nil {
		return nil, err
	}
	src := s.Rand
	if src == nil {
		src = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	out := make([]T, 0, picks)
	for i := 0; i < picks; i++ {
		out = append(out, drawOne(src, candidates, total))
	}
	return out, nil
}

func drawOne[T Weighted](src Source, candidates []T, total float64) T {
	r := src.Float64() * (1 + total)
	sum := 0.0
	for _, c := range candidates {
		sum += c.RewardWeight()
		if sum >= r {
			return c
		}
	}
	return candidates[src.IntN(len(candidates))]
}

func TotalWeight[T Weighted](candidates []T) (float64, error) {
	total := 0.0
	for _, c := range candidates {
		w := c.RewardWeight()
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return 0, ErrMalformedWeight
		}
		total += w
	}
	return total, nil
}

// Chance is the probability that a single draw returns the candidate at
// index i, padding fallback included.
func Chance[T Weighted](candidates []T, i int) (float64, error) {
	if i < 0 || i >= len(candidates) {
		return 0, ErrNoCandidates
	}
	total, err := TotalWeight(candidates)
	if err != nil {
		return 0, err
	}
	return (candidates[i].RewardWeight() + 1/float64(len(candidates))) / (1 + total), nil
}
