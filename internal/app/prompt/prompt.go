package prompt

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"crateworks/internal/app/ports"
	"crateworks/internal/app/schedule"
	"crateworks/internal/domain/world"
)

var (
	ErrInvalidPrompt = errors.New("invalid prompt")
	ErrNotANumber    = errors.New("not a number")
	ErrOutOfRange    = errors.New("value out of range")
)

var numberPattern = regexp.MustCompile(`^[0-9]\d*(\.[0-9]+)?$`)

// Texts are the prompt messages. %value% is replaced with the answer.
type Texts struct {
	Ask        string `yaml:"ask"`
	NotANumber string `yaml:"not_a_number"`
	OutOfRange string `yaml:"out_of_range"`
	Changed    string `yaml:"changed"`
	TimedOut   string `yaml:"timed_out"`
}

func DefaultTexts() Texts {
	return Texts{
		Ask:        "Type the new chance in chat (1-100).",
		NotANumber: "%value% is not a number.",
		OutOfRange: "%value% is not a valid chance.",
		Changed:    "Chance set to %value%.",
		TimedOut:   "No answer received, nothing changed.",
	}
}

// Request asks one observer for a number. Apply runs on the answering
// goroutine with the parsed value.
type Request struct {
	Observer world.ObserverID
	Question string
	Min      float64
	Max      float64
	Timeout  int
	Apply    func(ctx context.Context, v float64) error
}

type pending struct {
	id    uint64
	req   Request
	timer *schedule.Task
}

// Manager holds at most one open prompt per observer. Each prompt takes the
// observer's next chat line, valid or not.
type Manager struct {
	sched     *schedule.Scheduler
	announcer ports.Announcer
	texts     Texts

	mu      sync.Mutex
	seq     uint64
	pending map[world.ObserverID]*pending
}

func NewManager(sched *schedule.Scheduler, announcer ports.Announcer, texts Texts) *Manager {
	d := DefaultTexts()
	if texts.Ask == "" {
		texts.Ask = d.Ask
	}
	if texts.NotANumber == "" {
		texts.NotANumber = d.NotANumber
	}
	if texts.OutOfRange == "" {
		texts.OutOfRange = d.OutOfRange
	}
	if texts.Changed == "" {
		texts.Changed = d.Changed
	}
	if texts.TimedOut == "" {
		texts.TimedOut = d.TimedOut
	}
	return &Manager{sched: sched, announcer: announcer, texts: texts, pending: map[world.ObserverID]*pending{}}
}

// Ask opens a prompt, replacing any prompt the observer still had open.
func (m *Manager) Ask(req Request) error {
	if req.Observer == "" || req.Apply == nil || req.Timeout <= 0 || req.Min > req.Max {
		return ErrInvalidPrompt
	}
	m.mu.Lock()
	m.seq++
	id := m.seq
	if old, ok := m.pending[req.Observer]; ok {
		old.timer.Cancel()
	}
	timer, err := m.sched.After(req.Timeout, func() { m.expire(req.Observer, id) })
	if err != nil {
		delete(m.pending, req.Observer)
		m.mu.Unlock()
		return fmt.Errorf("schedule prompt timeout: %w", err)
	}
	m.pending[req.Observer] = &pending{id: id, req: req, timer: timer}
	m.mu.Unlock()

	q := req.Question
	if q == "" {
		q = m.texts.Ask
	}
	m.notify(req.Observer, q)
	return nil
}

func (m *Manager) Pending(observer world.ObserverID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.pending[observer]
	return ok
}

// Cancel drops the observer's prompt without a message.
func (m *Manager) Cancel(observer world.ObserverID) bool {
	p := m.take(observer, 0)
	if p == nil {
		return false
	}
	p.timer.Cancel()
	return true
}

// Answer feeds a chat line to the observer's prompt. handled is false when
// no prompt was open and the line is ordinary chat.
func (m *Manager) Answer(ctx context.Context, observer world.ObserverID, text string) (handled bool, err error) {
	p := m.take(observer, 0)
	if p == nil {
		return false, nil
	}
	p.timer.Cancel()

	text = strings.TrimSpace(text)
	v, err := ParseValue(text, p.req.Min, p.req.Max)
	switch {
	case errors.Is(err, ErrNotANumber):
		m.notify(observer, fill(m.texts.NotANumber, text))
		return true, err
	case errors.Is(err, ErrOutOfRange):
		m.notify(observer, fill(m.texts.OutOfRange, text))
		return true, err
	}
	if err := p.req.Apply(ctx, v); err != nil {
		return true, err
	}
	m.notify(observer, fill(m.texts.Changed, strconv.FormatFloat(v, 'f', -1, 64)))
	return true, nil
}

// ParseValue accepts unsigned decimals within [min, max].
func ParseValue(text string, min, max float64) (float64, error) {
	if !numberPattern.MatchString(text) {
		return 0, fmt.Errorf("%w: %q", ErrNotANumber, text)
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrNotANumber, text)
	}
	if v < min || v > max {
		return 0, fmt.Errorf("%w: %v", ErrOutOfRange, v)
	}
	return v, nil
}

func (m *Manager) expire(observer world.ObserverID, id uint64) {
	if m.take(observer, id) != nil {
		m.notify(observer, m.texts.TimedOut)
	}
}

// take removes the observer's prompt; id 0 matches any prompt.
func (m *Manager) take(observer world.ObserverID, id uint64) *pending {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pending[observer]
	if !ok || (id != 0 && p.id != id) {
		return nil
	}
	delete(m.pending, observer)
	return p
}

func (m *Manager) notify(observer world.ObserverID, msg string) {
	if m.announcer != nil && msg != "" {
		m.announcer.Notify(observer, msg)
	}
}

func fill(tmpl, value string) string {
	return strings.ReplaceAll(tmpl, "%value%", value)
}
