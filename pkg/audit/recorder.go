package audit

import "sync"

// Recorder keeps every record in memory. Used by tests and by report
// generation at the end of a run.
type Recorder struct {
	mu          sync.Mutex
	transitions []OrderEvent
	fills       []FillEvent
	snapshots   []SnapshotEvent
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) OrderTransition(event OrderEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, event)
}

func (r *Recorder) Fill(event FillEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fills = append(r.fills, event)
}

func (r *Recorder) Snapshot(event SnapshotEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, event)
}

func (r *Recorder) Transitions() []OrderEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]OrderEvent(nil), r.transitions...)
}

func (r *Recorder) Fills() []FillEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]FillEvent(nil), r.fills...)
}

func (r *Recorder) Snapshots() []SnapshotEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]SnapshotEvent(nil), r.snapshots...)
}
