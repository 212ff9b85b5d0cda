package tasks

import (
	"errors"
	"sync"
	"time"

	"audioscribe/internal/domain"
)

// ErrNotFound is returned for operations on an unknown task id.
var ErrNotFound = errors.New("task not found")

// ErrDuplicateID is returned when creating a task under an existing id.
var ErrDuplicateID = errors.New("task id already exists")

// Update describes a partial mutation of a task record. Nil fields are
// left unchanged; Segments replaces the whole slice when non-nil.
type Update struct {
	Status     *domain.TaskStatus
	Progress   *float64
	Message    *string
	ResultText *string
	Segments   []domain.Segment
	Error      *string
	Log        *domain.TaskLog
}

// Store is the single source of truth for task records. All mutations
// are serialized through it and fanned out to live subscribers.
// Snapshots are enqueued to subscribers before the mutation lock is
// released; subscriber queues are unbounded, so enqueueing never blocks
// and every subscriber observes mutations of one task in order.
type Store struct {
	mu    sync.Mutex
	tasks map[string]*domain.TaskRecord
	subs  map[string][]*subscriber
	now   func() time.Time
}

// NewStore creates an empty in-memory task store.
func NewStore() *Store {
	return &Store{
		tasks: make(map[string]*domain.TaskRecord),
		subs:  make(map[string][]*subscriber),
		now:   time.Now,
	}
}

// Create registers a new record under its id and publishes the initial
// snapshot to any pre-existing subscribers.
func (s *Store) Create(record domain.TaskRecord) (domain.TaskRecord, error) {
	s.mu.Lock()
	if _, exists := s.tasks[record.ID]; exists {
		s.mu.Unlock()
		return domain.TaskRecord{}, ErrDuplicateID
	}

	now := s.now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	if record.Status == "" {
		record.Status = domain.TaskStatusQueued
	}

	stored := record
	s.tasks[record.ID] = &stored
	snapshot := snapshotLocked(&stored)
	for _, sub := range s.subs[record.ID] {
		sub.push(snapshot)
	}
	s.mu.Unlock()

	return snapshot, nil
}

// Apply mutates the record under id with the provided partial update,
// advances UpdatedAt, and publishes the resulting snapshot to all
// current subscribers. A concurrent delete surfaces as ErrNotFound;
// pipeline callers treat that as a benign stop, not a failure. An
// update trying to move a terminal record to another status is a
// no-op returning the unchanged snapshot.
func (s *Store) Apply(id string, update Update) (domain.TaskRecord, error) {
	s.mu.Lock()
	record, ok := s.tasks[id]
	if !ok {
		s.mu.Unlock()
		return domain.TaskRecord{}, ErrNotFound
	}

	// Terminal states are final. A late pause/resume racing the
	// worker's terminal write is dropped without mutating or
	// publishing anything.
	if record.Status.Terminal() && update.Status != nil && *update.Status != record.Status {
		snapshot := snapshotLocked(record)
		s.mu.Unlock()
		return snapshot, nil
	}

	if update.Status != nil {
		record.Status = *update.Status
	}
	if update.Progress != nil {
		record.Progress = *update.Progress
	}
	if update.Message != nil {
		record.Message = *update.Message
	}
	if update.ResultText != nil {
		record.ResultText = *update.ResultText
	}
	if update.Segments != nil {
		record.Segments = update.Segments
	}
	if update.Error != nil {
		record.Error = *update.Error
	}
	if update.Log != nil {
		entry := *update.Log
		if entry.Timestamp.IsZero() {
			entry.Timestamp = s.now()
		}
		record.Logs = append(record.Logs, entry)
	}
	record.UpdatedAt = s.now()

	snapshot := snapshotLocked(record)
	for _, sub := range s.subs[id] {
		sub.push(snapshot)
	}
	s.mu.Unlock()

	return snapshot, nil
}

// Get returns a snapshot of the record under id.
func (s *Store) Get(id string) (domain.TaskRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.tasks[id]
	if !ok {
		return domain.TaskRecord{}, ErrNotFound
	}
	return snapshotLocked(record), nil
}

// List returns snapshots of all records in unspecified order.
func (s *Store) List() []domain.TaskRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.TaskRecord, 0, len(s.tasks))
	for _, record := range s.tasks {
		out = append(out, snapshotLocked(record))
	}
	return out
}

// Delete removes the record and terminates every subscriber stream for
// that id.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	if _, ok := s.tasks[id]; !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	delete(s.tasks, id)
	subs := s.subs[id]
	delete(s.subs, id)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
	return nil
}

// Subscribe returns a channel of task snapshots for id, starting with
// the current snapshot when the task exists, followed by every
// subsequent mutation. The channel closes when the task is deleted or
// the returned cancel func is called. Every subscriber receives every
// snapshot; slow subscribers never stall the mutating side.
func (s *Store) Subscribe(id string) (<-chan domain.TaskRecord, func()) {
	sub := newSubscriber()

	s.mu.Lock()
	s.subs[id] = append(s.subs[id], sub)
	if record, ok := s.tasks[id]; ok {
		sub.push(snapshotLocked(record))
	}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		watchers := s.subs[id]
		for i, candidate := range watchers {
			if candidate == sub {
				s.subs[id] = append(watchers[:i], watchers[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
		sub.close()
	}
	return sub.out, cancel
}

// snapshotLocked copies the record for publication. Slice headers are
// cloned so that append-only growth of logs never aliases a snapshot;
// segments are only ever replaced wholesale, so sharing their backing
// array is safe.
func snapshotLocked(record *domain.TaskRecord) domain.TaskRecord {
	snapshot := *record
	if record.Logs != nil {
		snapshot.Logs = append([]domain.TaskLog(nil), record.Logs...)
	}
	if record.Source != nil {
		source := make(map[string]string, len(record.Source))
		for k, v := range record.Source {
			source[k] = v
		}
		snapshot.Source = source
	}
	return snapshot
}
