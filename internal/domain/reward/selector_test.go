package reward

import (
	"errors"
	"math"
	"testing"

	"crateworks/internal/domain/crate"
)

type candidate struct {
	name   string
	weight float64
}

func (c candidate) RewardWeight() float64 { return c.weight }

type fixedSource struct {
	floats []float64
	ints   []int
	fi, ii int
}

func (f *fixedSource) Float64() float64 {
	v := f.floats[f.fi%len(f.floats)]
	f.fi++
	return v
}

func (f *fixedSource) IntN(n int) int {
	v := f.ints[f.ii%len(f.ints)] % n
	f.ii++
	return v
}

func TestDraw_EqualWeightsSplitEvenly(t *testing.T) {
	s := NewSelector(7, 11)
	s.Picks = 1
	cands := []candidate{{"A", 50}, {"B", 50}}

	const draws = 100000
	counts := map[string]int{}
	for i := 0; i < draws; i++ {
		got, err := Draw(s, cands)
		if err != nil {
			t.Fatalf("draw: %v", err)
		}
		counts[got[0].name]++
	}
	ratio := float64(counts["A"]) / draws
	if math.Abs(ratio-0.5) > 0.01 {
		t.Fatalf("A ratio out of tolerance: got=%.4f want=0.5±0.01", ratio)
	}
}

func TestDraw_PaddingFallsBackToUniform(t *testing.T) {
	cands := []candidate{{"A", 50}, {"B", 50}}
	// r = 0.999 * 101 = 100.899, past the running sum of 100.
	src := &fixedSource{floats: []float64{0.999}, ints: []int{1}}
	got, err := Draw(Selector{Rand: src, Picks: 1}, cands)
	if err != nil {
		t.Fatalf("draw: %v", err)
	}
	if got[0].name != "B" {
		t.Fatalf("expected uniform fallback to pick B, got=%s", got[0].name)
	}
	if src.ii != 1 {
		t.Fatalf("expected exactly one uniform fallback, got=%d", src.ii)
	}
}

func TestDraw_FirstCandidateReachingRWins(t *testing.T) {
	cands := []candidate{{"A", 50}, {"B", 1}}
	// r = 0.5 * 52 = 26 lands inside A.
	src := &fixedSource{floats: []float64{0.5, 0.99}, ints: []int{0}}
	got, err := Draw(Selector{Rand: src, Picks: 2}, cands)
	if err != nil {
		t.Fatalf("draw: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("picks mismatch: got=%d want=2", len(got))
	}
	if got[0].name != "A" {
		t.Fatalf("first pick: got=%s want=A", got[0].name)
	}
	// r = 0.99 * 52 = 51.48 is past 51: fallback picks index 0.
	if got[1].name != "A" {
		t.Fatalf("second pick: got=%s want=A", got[1].name)
	}
}

func TestDraw_Errors(t *testing.T) {
	if _, err := Draw(Selector{}, []candidate{}); !errors.Is(err, ErrNoCandidates) {
		t.Fatalf("expected ErrNoCandidates, got %v", err)
	}
	bad := []candidate{{"A", math.NaN()}}
	if _, err := Draw(Selector{}, bad); !errors.Is(err, ErrMalformedWeight) {
		t.Fatalf("expected ErrMalformedWeight, got %v", err)
	}
	if _, err := Draw(Selector{Picks: -1}, []candidate{{"A", 1}}); !errors.Is(err, ErrInvalidPicks) {
		t.Fatalf("expected ErrInvalidPicks, got %v", err)
	}
}

func TestChance_IncludesPadding(t *testing.T) {
	cands := []candidate{{"A", 50}, {"B", 50}}
	got, err := Chance(cands, 0)
	if err != nil {
		t.Fatalf("chance: %v", err)
	}
	if math.Abs(got-0.5) > 1e-12 {
		t.Fatalf("chance mismatch: got=%v want=0.5", got)
	}
}

func TestDraw_FiveSlotPoolOfTwoPrizes(t *testing.T) {
	pool := crate.NewPool(5)
	a := crate.Prize{Slot: 0, Item: crate.Item{Material: "A", Amount: 1}, Weight: 50}
	b := crate.Prize{Slot: 1, Item: crate.Item{Material: "B", Amount: 1}, Weight: 1}
	for _, p := range []crate.Prize{a, b} {
		if err := pool.Add(p); err != nil {
			t.Fatalf("add slot %d: %v", p.Slot, err)
		}
	}
	if err := pool.Add(crate.Prize{Slot: 5, Item: a.Item, Weight: 1}); !errors.Is(err, crate.ErrSlotOutOfRange) {
		t.Fatalf("slot 5 in a 5-slot pool: got=%v want=ErrSlotOutOfRange", err)
	}

	s := NewSelector(3, 5)
	for i := 0; i < 1000; i++ {
		batch, err := Draw(s, pool.Candidates())
		if err != nil {
			t.Fatalf("draw: %v", err)
		}
		if len(batch) != DefaultPicks {
			t.Fatalf("batch size got=%d want=%d", len(batch), DefaultPicks)
		}
		for _, p := range batch {
			if p.Slot != a.Slot && p.Slot != b.Slot {
				t.Fatalf("drawn prize outside the pool: %+v", p)
			}
		}
	}

	got, err := Chance(pool.Candidates(), 0)
	if err != nil {
		t.Fatalf("chance: %v", err)
	}
	if want := 50.0/52.0 + (1.0/52.0)/2; math.Abs(got-want) > 1e-9 {
		t.Fatalf("chance of A got=%v want=%v", got, want)
	}
}
