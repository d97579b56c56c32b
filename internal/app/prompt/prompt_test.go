package prompt

import (
	"context"
	"errors"
	"testing"
	"time"

	"crateworks/internal/app/schedule"
	"crateworks/internal/domain/world"
)

type notes map[world.ObserverID][]string

func (n notes) Notify(id world.ObserverID, msg string) { n[id] = append(n[id], msg) }
func (n notes) Broadcast(string)                       {}

func newManager(t *testing.T) (*Manager, *schedule.Scheduler, notes) {
	t.Helper()
	sched, err := schedule.New(time.Hour)
	if err != nil {
		t.Fatalf("scheduler: %v", err)
	}
	t.Cleanup(sched.Close)
	n := notes{}
	return NewManager(sched, n, Texts{}), sched, n
}

func TestParseValue(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		err  error
	}{
		{in: "1", want: 1},
		{in: "42.5", want: 42.5},
		{in: "100", want: 100},
		{in: "0.5", err: ErrOutOfRange},
		{in: "101", err: ErrOutOfRange},
		{in: "-3", err: ErrNotANumber},
		{in: "4e2", err: ErrNotANumber},
		{in: "12.", err: ErrNotANumber},
		{in: "abc", err: ErrNotANumber},
	}
	for _, tc := range cases {
		got, err := ParseValue(tc.in, 1, 100)
		if tc.err != nil {
			if !errors.Is(err, tc.err) {
				t.Fatalf("%q: expected %v, got=%v", tc.in, tc.err, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("%q: got=%v,%v want=%v", tc.in, got, err, tc.want)
		}
	}
}

func TestAnswer_AppliesValueOnce(t *testing.T) {
	m, _, n := newManager(t)
	var applied []float64
	err := m.Ask(Request{Observer: "alice", Min: 1, Max: 100, Timeout: 20, Apply: func(_ context.Context, v float64) error {
		applied = append(applied, v)
		return nil
	}})
	if err != nil {
		t.Fatalf("ask: %v", err)
	}

	handled, err := m.Answer(context.Background(), "alice", " 25 ")
	if !handled || err != nil {
		t.Fatalf("answer got=%v,%v want=true,nil", handled, err)
	}
	if handled, _ := m.Answer(context.Background(), "alice", "30"); handled {
		t.Fatalf("second line should be ordinary chat")
	}
	if len(applied) != 1 || applied[0] != 25 {
		t.Fatalf("applied got=%v want=[25]", applied)
	}
	if got := n["alice"]; len(got) != 2 || got[1] != "Chance set to 25." {
		t.Fatalf("notes got=%v", got)
	}
}

func TestAnswer_InvalidLineClosesPrompt(t *testing.T) {
	m, _, n := newManager(t)
	called := false
	_ = m.Ask(Request{Observer: "alice", Min: 1, Max: 100, Timeout: 20, Apply: func(context.Context, float64) error {
		called = true
		return nil
	}})

	if _, err := m.Answer(context.Background(), "alice", "lots"); !errors.Is(err, ErrNotANumber) {
		t.Fatalf("expected ErrNotANumber, got=%v", err)
	}
	if called || m.Pending("alice") {
		t.Fatalf("invalid answer should close the prompt without applying")
	}
	if got := n["alice"][1]; got != "lots is not a number." {
		t.Fatalf("note got=%q", got)
	}
}

func TestAsk_TimesOut(t *testing.T) {
	m, sched, n := newManager(t)
	_ = m.Ask(Request{Observer: "alice", Min: 1, Max: 100, Timeout: 2, Apply: func(context.Context, float64) error { return nil }})

	sched.Step()
	if !m.Pending("alice") {
		t.Fatalf("prompt expired early")
	}
	sched.Step()
	if m.Pending("alice") {
		t.Fatalf("prompt should have timed out")
	}
	if got := n["alice"]; got[len(got)-1] != DefaultTexts().TimedOut {
		t.Fatalf("expected timeout note, got=%v", got)
	}
}

func TestAsk_ReplacingPromptCancelsOldTimer(t *testing.T) {
	m, sched, n := newManager(t)
	apply := func(context.Context, float64) error { return nil }
	_ = m.Ask(Request{Observer: "alice", Min: 1, Max: 100, Timeout: 1, Apply: apply})
	_ = m.Ask(Request{Observer: "alice", Min: 1, Max: 100, Timeout: 5, Apply: apply})

	sched.Step()
	if !m.Pending("alice") {
		t.Fatalf("old timer closed the new prompt")
	}
	for _, msg := range n["alice"] {
		if msg == DefaultTexts().TimedOut {
			t.Fatalf("unexpected timeout note")
		}
	}
}

func TestAsk_Validates(t *testing.T) {
	m, _, _ := newManager(t)
	if err := m.Ask(Request{Observer: "alice", Timeout: 1}); !errors.Is(err, ErrInvalidPrompt) {
		t.Fatalf("expected ErrInvalidPrompt, got=%v", err)
	}
}
