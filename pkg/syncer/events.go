package syncer

import "sync"

// Phase is a step of the session state machine.
type Phase string

const (
	PhaseIdle              Phase = "idle"
	PhaseScanning          Phase = "scanning"
	PhaseDownloading       Phase = "downloading"
	PhaseApplyingOverrides Phase = "applying_overrides"
	PhaseFinalizing        Phase = "finalizing"
	PhaseCompleted         Phase = "completed"
	PhaseCancelled         Phase = "cancelled"
	PhaseFailed            Phase = "failed"
)

// IsTerminal reports whether no event follows this phase.
func (p Phase) IsTerminal() bool {
	return p == PhaseCompleted || p == PhaseCancelled || p == PhaseFailed
}

// Event is one progress report. Completed and Total count manifest files to
// download; CurrentFile is set while downloading. The terminal event carries
// Err unless the phase is PhaseCompleted.
type Event struct {
	Instance    string
	Phase       Phase
	Percent     float64
	CurrentFile string
	Completed   int
	Total       int
	Err         error
}

// ProgressSink receives session events. Calls for one session never overlap.
type ProgressSink interface {
	OnProgress(Event)
}

// SinkFunc adapts a function to ProgressSink.
type SinkFunc func(Event)

// OnProgress implements ProgressSink.
func (f SinkFunc) OnProgress(e Event) {
	f(e)
}

// Recorder is a ProgressSink keeping every event, for tests and dry runs.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// OnProgress implements ProgressSink.
func (r *Recorder) OnProgress(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Phases returns the distinct phases in the order first seen.
func (r *Recorder) Phases() []Phase {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Phase
	for _, e := range r.events {
		if len(out) == 0 || out[len(out)-1] != e.Phase {
			out = append(out, e.Phase)
		}
	}
	return out
}

// emitter serializes events of one session.
type emitter struct {
	mu       sync.Mutex
	sink     ProgressSink
	instance string
}

func (e *emitter) emit(ev Event) {
	if e.sink == nil {
		return
	}
	ev.Instance = e.instance
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sink.OnProgress(ev)
}

func percent(done, total int) float64 {
	if total == 0 {
		return 100
	}
	return float64(done) * 100 / float64(total)
}
