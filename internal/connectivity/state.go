// Package connectivity holds the process-wide online/queue-depth state and
// the probe loop that feeds it. Writers are the orchestrator and the monitor
// only; everything else observes through Snapshot or a subscription.
package connectivity

import "sync"

// Status is an immutable snapshot of the shared state.
type Status struct {
	Online     bool  `json:"online"`
	QueueDepth int64 `json:"queue_depth"`
}

type State struct {
	mu        sync.RWMutex
	online    bool
	depth     int64
	listeners []func(Status)
}

// NewState starts online: the first failed probe flips it, and starting
// pessimistic would needlessly queue the first scans on a healthy network.
func NewState() *State {
	return &State{online: true}
}

// Subscribe registers a listener invoked after every change. Listeners must
// not block; they run on the mutating goroutine.
func (s *State) Subscribe(fn func(Status)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// SetOnline updates the flag and reports whether it changed.
func (s *State) SetOnline(online bool) bool {
	s.mu.Lock()
	changed := s.online != online
	s.online = online
	st := Status{Online: s.online, QueueDepth: s.depth}
	listeners := s.listeners
	s.mu.Unlock()

	if changed {
		for _, fn := range listeners {
			fn(st)
		}
	}
	return changed
}

func (s *State) SetQueueDepth(n int64) {
	s.mu.Lock()
	changed := s.depth != n
	s.depth = n
	st := Status{Online: s.online, QueueDepth: s.depth}
	listeners := s.listeners
	s.mu.Unlock()

	if changed {
		for _, fn := range listeners {
			fn(st)
		}
	}
}

func (s *State) Online() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.online
}

func (s *State) Snapshot() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{Online: s.online, QueueDepth: s.depth}
}
