package repository

import (
	"context"
	"sync"
	"time"

	"google.golang.org/api/iterator"

	"socialdm/internal/domain/entity"
)

// MemoryStore is an in-process document store with the same observable
// semantics as the Firestore adapters: atomic conversation mutations,
// store-assigned strictly increasing timestamps and full-state listeners.
// It backs STORE_BACKEND=memory and the use-case tests.
type MemoryStore struct {
	mu            sync.Mutex
	conversations map[string]*entity.ConversationDocument
	messages      map[string]map[string]*entity.Message
	profiles      map[string]entity.UserProfile
	watchers      map[*memoryWatcher]struct{}

	now      func() time.Time
	lastTick time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]*entity.ConversationDocument),
		messages:      make(map[string]map[string]*entity.Message),
		profiles:      make(map[string]entity.UserProfile),
		watchers:      make(map[*memoryWatcher]struct{}),
		now:           time.Now,
	}
}

// tick plays the role of the server timestamp. Values never repeat, so
// sequential writes keep their order. Callers hold mu.
func (s *MemoryStore) tick() time.Time {
	t := s.now().UTC().Truncate(time.Microsecond)
	if !t.After(s.lastTick) {
		t = s.lastTick.Add(time.Microsecond)
	}
	s.lastTick = t
	return t
}

type memoryWatcher struct {
	signal chan struct{}
}

func (s *MemoryStore) addWatcher() *memoryWatcher {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := &memoryWatcher{signal: make(chan struct{}, 1)}
	s.watchers[w] = struct{}{}
	return w
}

func (s *MemoryStore) removeWatcher(w *memoryWatcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.watchers, w)
}

// notifyLocked wakes every listener. Listeners re-read their whole result
// set, so a wake-up for an unrelated write only costs a redelivery.
func (s *MemoryStore) notifyLocked() {
	for w := range s.watchers {
		select {
		case w.signal <- struct{}{}:
		default:
		}
	}
}

func copyMessage(m *entity.Message) *entity.Message {
	c := *m
	if m.ReadAt != nil {
		readAt := *m.ReadAt
		c.ReadAt = &readAt
	}
	return &c
}

// memoryStream delivers snapshot() once immediately and again after every
// write to the store.
type memoryStream[T any] struct {
	store    *MemoryStore
	watcher  *memoryWatcher
	ctx      context.Context
	cancel   context.CancelFunc
	snapshot func() (T, error)
	started  bool
}

func newMemoryStream[T any](ctx context.Context, store *MemoryStore, snapshot func() (T, error)) *memoryStream[T] {
	ctx, cancel := context.WithCancel(ctx)
	return &memoryStream[T]{
		store:    store,
		watcher:  store.addWatcher(),
		ctx:      ctx,
		cancel:   cancel,
		snapshot: snapshot,
	}
}

func (s *memoryStream[T]) Next() (T, error) {
	var zero T
	if s.started {
		select {
		case <-s.watcher.signal:
		case <-s.ctx.Done():
			return zero, iterator.Done
		}
	}
	s.started = true

	if s.ctx.Err() != nil {
		return zero, iterator.Done
	}
	return s.snapshot()
}

func (s *memoryStream[T]) Stop() {
	s.cancel()
	s.store.removeWatcher(s.watcher)
}
