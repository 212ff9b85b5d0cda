package tasks

import (
	"sync"

	"audioscribe/internal/domain"
)

// subscriber buffers snapshots for one observer. Pushes append to an
// unbounded pending queue under a short lock; a pump goroutine drains
// the queue into the outbound channel so a slow receiver never blocks
// the store's mutation path.
type subscriber struct {
	mu      sync.Mutex
	pending []domain.TaskRecord
	wake    chan struct{}
	die     chan struct{}
	once    sync.Once
	out     chan domain.TaskRecord
}

func newSubscriber() *subscriber {
	sub := &subscriber{
		wake: make(chan struct{}, 1),
		die:  make(chan struct{}),
		out:  make(chan domain.TaskRecord),
	}
	go sub.pump()
	return sub
}

// push enqueues one snapshot. Snapshots pushed after close are dropped.
func (s *subscriber) push(snapshot domain.TaskRecord) {
	select {
	case <-s.die:
		return
	default:
	}

	s.mu.Lock()
	s.pending = append(s.pending, snapshot)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// close terminates the stream. The outbound channel is closed even if
// the receiver has stopped draining it.
func (s *subscriber) close() {
	s.once.Do(func() { close(s.die) })
}

func (s *subscriber) pump() {
	defer close(s.out)

	for {
		s.mu.Lock()
		batch := s.pending
		s.pending = nil
		s.mu.Unlock()

		for _, snapshot := range batch {
			select {
			case s.out <- snapshot:
			case <-s.die:
				return
			}
		}

		select {
		case <-s.wake:
		case <-s.die:
			return
		}
	}
}
