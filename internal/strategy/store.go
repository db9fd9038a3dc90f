package strategy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/pairdash/internal/core"
	"github.com/newthinker/pairdash/internal/storage/kv"
	"go.uber.org/zap"
)

// Key is the storage key holding the strategy list.
const Key = "trading-strategies"

// Store keeps the strategy list as one JSON array in a kv.Store.
type Store struct {
	mu     sync.Mutex
	kv     kv.Store
	logger *zap.Logger
	now    func() time.Time
}

// NewStore creates a strategy store backed by s.
func NewStore(s kv.Store, logger ...*zap.Logger) *Store {
	var l *zap.Logger
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	} else {
		l = zap.NewNop()
	}
	return &Store{kv: s, logger: l, now: time.Now}
}

// List returns all strategies in insertion order. An empty store yields an
// empty slice.
func (s *Store) List(ctx context.Context) ([]Strategy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Get returns the strategy with id.
func (s *Store) Get(ctx context.Context, id string) (*Strategy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID == id {
			st := all[i]
			return &st, nil
		}
	}
	return nil, notFound(id)
}

// Save creates st when its ID is empty and replaces the stored strategy
// otherwise. The saved copy is returned.
func (s *Store) Save(ctx context.Context, st Strategy) (*Strategy, error) {
	if err := st.Parameters.Validate(); err != nil {
		return nil, err
	}
	st.Name = strings.TrimSpace(st.Name)
	if st.Name == "" {
		st.Name = fmt.Sprintf("%s/%s", st.Parameters.CurrencyPair1, st.Parameters.CurrencyPair2)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if st.ID == "" {
		st.ID = uuid.New().String()
		st.CreatedAt = now
		st.UpdatedAt = now
		all = append(all, st)
	} else {
		idx := indexOf(all, st.ID)
		if idx < 0 {
			return nil, notFound(st.ID)
		}
		st.CreatedAt = all[idx].CreatedAt
		st.UpdatedAt = now
		all[idx] = st
	}

	if err := s.save(ctx, all); err != nil {
		return nil, err
	}
	s.logger.Info("strategy saved",
		zap.String("id", st.ID),
		zap.String("name", st.Name),
		zap.String("pair1", st.Parameters.CurrencyPair1),
		zap.String("pair2", st.Parameters.CurrencyPair2),
	)
	return &st, nil
}

// Delete removes the strategy with id.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load(ctx)
	if err != nil {
		return err
	}
	idx := indexOf(all, id)
	if idx < 0 {
		return notFound(id)
	}
	all = append(all[:idx], all[idx+1:]...)

	if err := s.save(ctx, all); err != nil {
		return err
	}
	s.logger.Info("strategy deleted", zap.String("id", id))
	return nil
}

func (s *Store) load(ctx context.Context) ([]Strategy, error) {
	var all []Strategy
	if err := kv.GetJSON(ctx, s.kv, Key, &all); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return []Strategy{}, nil
		}
		return nil, err
	}
	if all == nil {
		all = []Strategy{}
	}
	return all, nil
}

func (s *Store) save(ctx context.Context, all []Strategy) error {
	if err := kv.PutJSON(ctx, s.kv, Key, all); err != nil {
		return core.WrapError(core.ErrStorageFailed, err)
	}
	return nil
}

func indexOf(all []Strategy, id string) int {
	for i := range all {
		if all[i].ID == id {
			return i
		}
	}
	return -1
}

func notFound(id string) error {
	return core.WrapError(core.ErrNotFound, fmt.Errorf("strategy %q", id))
}
