package store

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/greeeen013/QuizApp/internal/domain"
	"golang.org/x/sync/singleflight"
)

// Backend persists the state document as one opaque blob under one key.
type Backend interface {
	// Load returns the stored document. ok is false on a fresh install.
	Load(ctx context.Context) (data []byte, ok bool, err error)
	Save(ctx context.Context, data []byte) error
}

// DefaultDebounce is the save-coalescing window used when none is configured.
const DefaultDebounce = 500 * time.Millisecond

// Store owns the in-memory state and its best-effort durable copy. It loads
// once at startup and schedules a debounced save after every mutation; a
// mutation arriving before the pending save fires restarts the timer, so the
// write always carries the state as of the last mutation.
type Store struct {
	backend  Backend
	debounce time.Duration
	sf       singleflight.Group

	mu    sync.Mutex
	ready bool
	state domain.State
	timer *time.Timer
	dirty bool
}

// Option configures a Store.
type Option func(*Store)

// WithDebounce overrides the save-coalescing window.
func WithDebounce(d time.Duration) Option {
	return func(s *Store) { s.debounce = d }
}

func New(backend Backend, opts ...Option) *Store {
	s := &Store{backend: backend, debounce: DefaultDebounce}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init loads the document from the backend. Concurrent calls collapse into a
// single load. Missing or corrupt data yields defaults; a read failure is
// logged and likewise yields defaults, never an error to the caller.
func (s *Store) Init(ctx context.Context) error {
	_, err, _ := s.sf.Do("load", func() (interface{}, error) {
		s.mu.Lock()
		if s.ready {
			s.mu.Unlock()
			return nil, nil
		}
		s.mu.Unlock()

		state := domain.DefaultState()
		data, ok, err := s.backend.Load(ctx)
		if err != nil {
			log.Printf("store: load failed, using defaults: %v", err)
		} else if ok {
			state = decodeState(data)
		}

		s.mu.Lock()
		s.state = state
		s.ready = true
		s.mu.Unlock()
		return nil, nil
	})
	return err
}

// Update applies fn to the state under lock and schedules the debounced save.
func (s *Store) Update(fn func(*domain.State)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return domain.ErrStoreNotReady
	}
	fn(&s.state)
	s.dirty = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, s.saveNow)
	return nil
}

// View runs fn against the state under lock. fn must not retain pointers into
// the state beyond the call.
func (s *Store) View(fn func(*domain.State)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return domain.ErrStoreNotReady
	}
	fn(&s.state)
	return nil
}

// Flush cancels any pending debounce and writes immediately if dirty.
func (s *Store) Flush(ctx context.Context) {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	data, dirty := s.snapshotLocked()
	s.mu.Unlock()

	if dirty {
		s.write(ctx, data)
	}
}

// Close flushes and releases the store.
func (s *Store) Close() {
	s.Flush(context.Background())
}

// saveNow is the debounce timer callback.
func (s *Store) saveNow() {
	s.mu.Lock()
	data, dirty := s.snapshotLocked()
	s.mu.Unlock()
	if dirty {
		s.write(context.Background(), data)
	}
}

// snapshotLocked marshals the current state and clears the dirty flag.
func (s *Store) snapshotLocked() ([]byte, bool) {
	if !s.dirty {
		return nil, false
	}
	data, err := json.Marshal(s.state)
	if err != nil {
		log.Printf("store: marshal failed, skipping save: %v", err)
		return nil, false
	}
	s.dirty = false
	return data, true
}

// write is best-effort: a failed save is logged, never surfaced.
func (s *Store) write(ctx context.Context, data []byte) {
	if err := s.backend.Save(ctx, data); err != nil {
		log.Printf("store: save failed: %v", err)
	}
}
