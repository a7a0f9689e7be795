package player

import (
	"sync"

	"github.com/sencha/orion-core/api/schemas"
)

// TranscriptRecorder turns played signals into a persistent record of what
// the player actually did. The harness stamps spec boundaries with SetSpec so
// the archive can slice entries per test.
type TranscriptRecorder struct {
	mu      sync.Mutex
	specID  string
	entries []schemas.TranscriptEntry
	off     func()
}

// NewTranscriptRecorder attaches a recorder to a player. Call Close to
// detach.
func NewTranscriptRecorder(pl *Player) *TranscriptRecorder {
	r := &TranscriptRecorder{}
	r.off = pl.On(SignalPlayed, func(ev Event) {
		if ev.Playable == nil {
			return
		}
		r.record(ev.Playable)
	})
	return r
}

// SetSpec tags subsequent entries with a spec identifier.
func (r *TranscriptRecorder) SetSpec(id string) {
	r.mu.Lock()
	r.specID = id
	r.mu.Unlock()
}

// Entries returns a copy of everything recorded so far.
func (r *TranscriptRecorder) Entries() []schemas.TranscriptEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]schemas.TranscriptEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Reset drops all recorded entries.
func (r *TranscriptRecorder) Reset() {
	r.mu.Lock()
	r.entries = nil
	r.mu.Unlock()
}

// Close detaches the recorder from its player.
func (r *TranscriptRecorder) Close() {
	if r.off != nil {
		r.off()
		r.off = nil
	}
}

func (r *TranscriptRecorder) record(p *Playable) {
	entry := schemas.TranscriptEntry{
		Seq:      p.id,
		Kind:     p.kind.String(),
		State:    p.State().String(),
		Enqueued: p.enqueuedAt,
		Finished: p.finishedAt,
	}
	if p.kind == KindEvent {
		entry.Event = p.ev.Type
	}
	if el := p.resolvedTarget; el != nil {
		entry.Target = el.Describe()
	}
	if p.hasWaited {
		entry.Waited = p.waitingFor + " " + p.waitingState
	}
	if err := p.Err(); err != nil {
		entry.Error = err.Error()
	}

	r.mu.Lock()
	entry.SpecID = r.specID
	r.entries = append(r.entries, entry)
	r.mu.Unlock()
}
