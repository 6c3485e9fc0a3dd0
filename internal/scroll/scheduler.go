package scroll

import "sync"

// Handle identifies a scheduled callback. The zero Handle is never issued.
type Handle uint64

// Scheduler runs callbacks on a later animation frame.
type Scheduler interface {
	Schedule(fn func()) Handle
	Cancel(h Handle)
}

// FrameScheduler queues callbacks until the owner of the frame loop calls
// RunFrame. Callbacks scheduled while a frame runs land in the next frame.
type FrameScheduler struct {
	mu      sync.Mutex
	last    Handle
	pending []scheduled
}

type scheduled struct {
	handle Handle
	fn     func()
}

func NewFrameScheduler() *FrameScheduler { return &FrameScheduler{} }

func (s *FrameScheduler) Schedule(fn func()) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last++
	s.pending = append(s.pending, scheduled{handle: s.last, fn: fn})
	return s.last
}

func (s *FrameScheduler) Cancel(h Handle) {
	if h == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, item := range s.pending {
		if item.handle == h {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return
		}
	}
}

// Pending returns the number of callbacks waiting for the next frame.
func (s *FrameScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// RunFrame runs every callback queued before the call and returns how many ran.
func (s *FrameScheduler) RunFrame() int {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, item := range batch {
		item.fn()
	}
	return len(batch)
}
