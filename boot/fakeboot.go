package boot

import (
	"sync"
)

// Recorder is an in-memory Manager counting invocations, for tests and the
// smoke harness.
type Recorder struct {
	mu         sync.Mutex
	upgrades   int
	confirms   int
	upgradeErr error
}

var _ Manager = (*Recorder)(nil)

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) RequestUpgrade() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.upgradeErr != nil {
		err := r.upgradeErr
		r.upgradeErr = nil
		return err
	}
	r.upgrades++
	return nil
}

func (r *Recorder) ConfirmCurrent() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.confirms++
	return nil
}

// SetUpgradeErr makes the next RequestUpgrade fail with err.
func (r *Recorder) SetUpgradeErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upgradeErr = err
}

// Upgrades returns the number of successful upgrade requests.
func (r *Recorder) Upgrades() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.upgrades
}

// Confirms returns the number of ConfirmCurrent calls.
func (r *Recorder) Confirms() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.confirms
}
