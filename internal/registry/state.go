package registry

import (
	"context"
	"sync"

	"git.home.luguber.info/inful/outputkeeper/internal/fileops"
)

// State is the lifecycle position of a backup or clean track.
type State int

const (
	StateNotStarted State = iota
	StateEmpty
	StateSuccess
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	default:
		return "not_started"
	}
}

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	return s != StateNotStarted
}

// Track identifies one of the two independent operations on a record.
type Track string

const (
	TrackBackup Track = "backup"
	TrackClean  Track = "clean"
)

// Outcome is the memoized result of a track.
type Outcome struct {
	State State
	// Destination is the timestamped backup directory (backup success only).
	Destination string
	// Files is the number of files copied or removed.
	Files int
	// Failures holds per-file problems that did not change State.
	Failures []fileops.Failure
	Err      error
}

// Stage memoizes one track of a record. It may be claimed exactly once; every
// other caller waits for the claimant's outcome.
type Stage struct {
	mu      sync.Mutex
	claimed bool
	done    chan struct{}
	outcome Outcome
}

func newStage() *Stage {
	return &Stage{done: make(chan struct{})}
}

// Claim marks the stage as started. Only the first call returns true.
func (s *Stage) Claim() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.claimed {
		return false
	}
	s.claimed = true
	return true
}

// Claimed reports whether some caller has started the stage.
func (s *Stage) Claimed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.claimed
}

// Complete stores the terminal outcome and releases waiters. Later calls are ignored.
func (s *Stage) Complete(o Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.done:
		return
	default:
	}
	s.outcome = o
	close(s.done)
}

// Done is closed once the stage reached a terminal state.
func (s *Stage) Done() <-chan struct{} {
	return s.done
}

// Outcome returns the terminal outcome, or a NotStarted outcome while pending.
func (s *Stage) Outcome() Outcome {
	select {
	case <-s.done:
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.outcome
	default:
		return Outcome{State: StateNotStarted}
	}
}

// Wait blocks until the stage is terminal. Cancelling ctx only abandons the
// wait; the operation itself keeps running.
func (s *Stage) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-s.done:
		return s.Outcome(), nil
	case <-ctx.Done():
		return Outcome{State: StateNotStarted}, ctx.Err()
	}
}
