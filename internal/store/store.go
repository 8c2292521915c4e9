// internal/store/store.go
package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"auto-uw-agent/internal/common/errors"
	"auto-uw-agent/internal/common/logger"
	"auto-uw-agent/internal/models"
)

// DefaultKey names the slot holding the submission collection.
const DefaultKey = "auto-uw-submissions"

// Slot is a single named value holding the serialized collection.
type Slot interface {
	// Load returns the stored bytes, or ok=false when the slot has never been written.
	Load(ctx context.Context) (data []byte, ok bool, err error)
	Store(ctx context.Context, data []byte) error
	Backend() string
}

// Updater is a pure transformation of one submission.
type Updater func(models.Submission) models.Submission

// WriteHook observes every persisted submission.
type WriteHook func(ctx context.Context, s models.Submission)

// Store holds every submission in one slot and rewrites the whole
// collection on each mutation. Mutations within one process are serialized;
// across processes the last writer wins.
type Store struct {
	slot   Slot
	logger logger.Logger
	seed   func(now time.Time) []models.Submission
	now    func() time.Time
	hooks  []WriteHook

	mu sync.Mutex
}

type Option func(*Store)

// WithSeed writes a fixed example set the first time an empty slot is read.
// Seeded records go through the write hooks like any other write.
func WithSeed(seed func(now time.Time) []models.Submission) Option {
	return func(s *Store) { s.seed = seed }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithWriteHook registers a hook run after every successful Save, Update or seed.
func WithWriteHook(h WriteHook) Option {
	return func(s *Store) { s.hooks = append(s.hooks, h) }
}

func New(slot Slot, log logger.Logger, opts ...Option) *Store {
	s := &Store{
		slot:   slot,
		logger: log.WithFields(map[string]interface{}{"component": "store", "backend": slot.Backend()}),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns all submissions, most recently created first. Unparseable
// slot content yields an empty collection rather than an error.
func (s *Store) List(ctx context.Context) ([]models.Submission, error) {
	s.mu.Lock()
	all, seeded, err := s.load(ctx)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.notify(ctx, seeded...)
	return all, nil
}

// Get looks a submission up by id.
func (s *Store) Get(ctx context.Context, id string) (models.Submission, bool, error) {
	all, err := s.List(ctx)
	if err != nil {
		return models.Submission{}, false, err
	}
	for _, sub := range all {
		if sub.ID == id {
			return sub, true, nil
		}
	}
	return models.Submission{}, false, nil
}

// Save inserts sub, or replaces the record with the same id in place.
func (s *Store) Save(ctx context.Context, sub models.Submission) error {
	s.mu.Lock()
	all, seeded, err := s.load(ctx)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	replaced := false
	for i := range all {
		if all[i].ID == sub.ID {
			all[i] = sub
			replaced = true
			break
		}
	}
	if !replaced {
		all = append([]models.Submission{sub}, all...)
	}

	err = s.persist(ctx, all)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.notify(ctx, seeded...)
	s.notify(ctx, sub)
	return nil
}

// Update applies fn to the submission with the given id and persists the
// collection. An unknown id is a no-op and reports found=false. The id and
// createdAt of the record are kept regardless of what fn returns.
func (s *Store) Update(ctx context.Context, id string, fn Updater) (models.Submission, bool, error) {
	s.mu.Lock()
	all, seeded, err := s.load(ctx)
	if err != nil {
		s.mu.Unlock()
		return models.Submission{}, false, err
	}

	idx := -1
	for i := range all {
		if all[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		s.notify(ctx, seeded...)
		return models.Submission{}, false, nil
	}

	prev := all[idx]
	next := fn(prev)
	next.ID = prev.ID
	next.CreatedAt = prev.CreatedAt
	all[idx] = next

	err = s.persist(ctx, all)
	s.mu.Unlock()
	if err != nil {
		return models.Submission{}, false, err
	}

	s.notify(ctx, seeded...)
	s.notify(ctx, next)
	return next, true, nil
}

// load reads the collection. When the slot was empty and a seed is
// configured, the seeded records are also returned separately so the caller
// can run the write hooks once mu is released.
func (s *Store) load(ctx context.Context) (all, seeded []models.Submission, err error) {
	data, ok, err := s.slot.Load(ctx)
	if err != nil {
		return nil, nil, errors.NewStorageReadFailedError(s.slot.Backend(), err)
	}

	if !ok {
		if s.seed == nil {
			return []models.Submission{}, nil, nil
		}
		seeded = s.seed(s.now())
		if err := s.persist(ctx, seeded); err != nil {
			s.logger.Warn("failed to write seed submissions", map[string]interface{}{"error": err})
			return []models.Submission{}, nil, nil
		}
		s.logger.Info("seeded example submissions", map[string]interface{}{"count": len(seeded)})
		return append([]models.Submission(nil), seeded...), seeded, nil
	}

	if err := json.Unmarshal(data, &all); err != nil {
		s.logger.Warn("submission slot is unreadable, treating as empty", map[string]interface{}{"error": err})
		return []models.Submission{}, nil, nil
	}
	if all == nil {
		all = []models.Submission{}
	}
	return all, nil, nil
}

func (s *Store) persist(ctx context.Context, all []models.Submission) error {
	data, err := json.Marshal(all)
	if err != nil {
		return errors.NewStorageWriteFailedError(s.slot.Backend(), err)
	}
	if err := s.slot.Store(ctx, data); err != nil {
		return errors.NewStorageWriteFailedError(s.slot.Backend(), err)
	}
	return nil
}

func (s *Store) notify(ctx context.Context, subs ...models.Submission) {
	for _, sub := range subs {
		for _, h := range s.hooks {
			h(ctx, sub)
		}
	}
}
