package inmemory

import "sync"

type Snapshot struct {
	TriggerTotal  uint64            `json:"trigger_total"`
	TriggerOK     uint64            `json:"trigger_started"`
	ByOutcome     map[string]uint64 `json:"by_outcome"`
	GrantTotal    uint64            `json:"grant_total"`
	GrantRare     uint64            `json:"grant_rare"`
	GrantQueued   uint64            `json:"grant_queued"`
	BatchRedeemed uint64            `json:"batch_redeemed"`
	Faults        uint64            `json:"faults"`
}

type Recorder struct {
	mu        sync.Mutex
	byOutcome map[string]uint64
	grants    uint64
	rare      uint64
	queued    uint64
	redeemed  uint64
	faults    uint64
}

func NewRecorder() *Recorder {
	return &Recorder{
		byOutcome: map[string]uint64{},
	}
}

func (r *Recorder) RecordTrigger(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byOutcome[outcome]++
}

func (r *Recorder) RecordGrant(rare, queued bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.grants++
	if rare {
		r.rare++
	}
	if queued {
		r.queued++
	}
}

func (r *Recorder) RecordRedeemed(batches int) {
	if batches <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.redeemed += uint64(batches)
}

func (r *Recorder) RecordFault() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.faults++
}

func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := Snapshot{
		GrantTotal:    r.grants,
		GrantRare:     r.rare,
		GrantQueued:   r.queued,
		BatchRedeemed: r.redeemed,
		Faults:        r.faults,
		ByOutcome:     make(map[string]uint64, len(r.byOutcome)),
	}
	for k, v := range r.byOutcome {
		out.ByOutcome[k] = v
		out.TriggerTotal += v
	}
	out.TriggerOK = r.byOutcome["started"]
	return out
}

func (r *Recorder) SnapshotAny() any {
	return r.Snapshot()
}
