package session

import (
	"fmt"
	"log/slog"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMaxSessions is the store capacity when none is configured.
const DefaultMaxSessions = 256

// Store holds sessions in memory, keyed by ID. It keeps at most its capacity;
// creating one more drops the least recently used session.
type Store struct {
	sessions *lru.Cache[string, *Session]
	logger   *slog.Logger
}

type StoreOption func(*storeOptions)

type storeOptions struct {
	capacity int
	logger   *slog.Logger
}

// WithCapacity sets the maximum number of sessions kept.
func WithCapacity(n int) StoreOption {
	return func(o *storeOptions) {
		o.capacity = n
	}
}

func WithStoreLogger(logger *slog.Logger) StoreOption {
	return func(o *storeOptions) {
		o.logger = logger
	}
}

func NewStore(opts ...StoreOption) (*Store, error) {
	o := storeOptions{capacity: DefaultMaxSessions, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.capacity < 1 {
		return nil, fmt.Errorf("session store capacity must be at least 1, got %d", o.capacity)
	}

	st := &Store{logger: o.logger}
	cache, err := lru.NewWithEvict(o.capacity, st.evicted)
	if err != nil {
		return nil, fmt.Errorf("creating session store: %w", err)
	}
	st.sessions = cache
	return st, nil
}

func (st *Store) evicted(id string, _ *Session) {
	st.logger.Debug("session dropped from store", slog.String("session_id", id))
}

func (st *Store) Create() *Session {
	s := NewSession()
	st.sessions.Add(s.ID(), s)
	return s
}

// Get returns the session and marks it as recently used.
func (st *Store) Get(id string) (*Session, error) {
	s, ok := st.sessions.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Delete removes the session and reports whether it existed.
func (st *Store) Delete(id string) bool {
	return st.sessions.Remove(id)
}

// IDs returns the stored session IDs, oldest first.
func (st *Store) IDs() []string {
	all := st.sessions.Values()
	sort.Slice(all, func(i, j int) bool {
		a, b := all[i].CreatedAt(), all[j].CreatedAt()
		if a.Equal(b) {
			return all[i].ID() < all[j].ID()
		}
		return a.Before(b)
	})

	ids := make([]string, len(all))
	for i, s := range all {
		ids[i] = s.ID()
	}
	return ids
}

func (st *Store) Len() int {
	return st.sessions.Len()
}
