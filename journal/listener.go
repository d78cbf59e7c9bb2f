package journal

import (
	"errors"
	"sync"

	"github.com/rustyeddy/tradeledger/sim"
)

// Recorder is a sim.Listener that writes close events and equity
// snapshots to a Journal. Listener callbacks cannot return errors, so
// write failures are kept and reported by Err.
type Recorder struct {
	sim.NopListener

	j     Journal
	runID string

	mu   sync.Mutex
	errs []error
}

// NewRecorder stamps every row it writes with runID.
func NewRecorder(j Journal, runID string) *Recorder {
	return &Recorder{j: j, runID: runID}
}

func (r *Recorder) OnPositionClosed(p sim.Position, c sim.PartialClose) {
	rec := FromClose(p, c)
	rec.RunID = r.runID
	r.keep(r.j.RecordClose(rec))
}

func (r *Recorder) OnEquity(s sim.EquitySnapshot) {
	snap := FromEquity(s)
	snap.RunID = r.runID
	r.keep(r.j.RecordEquity(snap))
}

// Err returns every write failure seen so far.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return errors.Join(r.errs...)
}

func (r *Recorder) keep(err error) {
	if err == nil {
		return
	}
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
}
