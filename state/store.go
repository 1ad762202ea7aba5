package state

import (
	"context"
	"fmt"
	"sync"

	"github.com/warp/payroll-engine/generic"
)

// =============================================================================
// PERSISTER - Load/save collaborator
// =============================================================================

// Persister stores the snapshot documents. Load returns an empty map when
// nothing was saved yet.
type Persister interface {
	Load(ctx context.Context) (Documents, error)
	Save(ctx context.Context, docs Documents) error
}

// =============================================================================
// STORE
// =============================================================================

// Store owns the current snapshot. Dispatch calls are serialized, so every
// transition sees the result of the one before it.
type Store struct {
	mu          sync.Mutex
	snap        Snapshot
	persister   Persister
	clock       generic.Clock
	newID       generic.IDGenerator
	onSaveError func(error)
}

type Option func(*Store)

func WithClock(c generic.Clock) Option {
	return func(s *Store) { s.clock = c }
}

func WithIDGenerator(g generic.IDGenerator) Option {
	return func(s *Store) { s.newID = g }
}

// WithSaveErrorHandler receives failures of the save that follows every
// accepted transition. The transition itself stays applied.
func WithSaveErrorHandler(fn func(error)) Option {
	return func(s *Store) { s.onSaveError = fn }
}

// New loads the last saved snapshot from p, or starts empty.
func New(ctx context.Context, p Persister, opts ...Option) (*Store, error) {
	s := &Store{
		persister:   p,
		clock:       generic.SystemClock{},
		newID:       generic.UUIDGenerator(),
		onSaveError: func(error) {},
	}
	for _, opt := range opts {
		opt(s)
	}

	docs, err := p.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load: %v", generic.ErrPersistence, err)
	}
	snap, err := FromDocuments(docs, s.clock.Now())
	if err != nil {
		return nil, err
	}
	s.snap = snap
	return s, nil
}

// Dispatch applies in and saves the result. The returned snapshot is a copy.
func (s *Store) Dispatch(ctx context.Context, in Intent) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := Apply(s.snap, in, Env{Now: s.clock.Now(), NewID: s.newID})
	if err != nil {
		return s.snap.Clone(), err
	}
	s.snap = next
	if err := s.save(ctx); err != nil {
		s.onSaveError(err)
	}
	return s.snap.Clone(), nil
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Clone()
}

// Clock is the time source the store applies intents with.
func (s *Store) Clock() generic.Clock {
	return s.clock
}

// Close flushes the snapshot one last time.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx)
}

func (s *Store) save(ctx context.Context) error {
	docs, err := s.snap.Documents()
	if err != nil {
		return err
	}
	if err := s.persister.Save(ctx, docs); err != nil {
		return fmt.Errorf("%w: save: %v", generic.ErrPersistence, err)
	}
	return nil
}
