// Package memory provides an in-process storage.Store backing, used by
// engine's unit tests and the devnet CLI (no real chain or database
// required).
package memory

import (
	"context"
	"sync"

	"github.com/infimum-network/infimum/poll"
	"github.com/infimum-network/infimum/storage"
)

// Store is a mutex-guarded, map-backed storage.Store.
type Store struct {
	mu sync.RWMutex

	coordinators map[poll.Account]*storage.Coordinator
	polls        map[poll.PollID]*poll.Poll
	coordPolls   map[poll.Account][]poll.PollID
	nextID       uint32
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		coordinators: make(map[poll.Account]*storage.Coordinator),
		polls:        make(map[poll.PollID]*poll.Poll),
		coordPolls:   make(map[poll.Account][]poll.PollID),
	}
}

func (s *Store) GetCoordinator(_ context.Context, account poll.Account) (*storage.Coordinator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.coordinators[account]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *Store) PutCoordinator(_ context.Context, c *storage.Coordinator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.coordinators[c.Account] = &cp
	return nil
}

func (s *Store) GetPoll(_ context.Context, id poll.PollID) (*poll.Poll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.polls[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return p, nil
}

func (s *Store) PutPoll(_ context.Context, p *poll.Poll) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polls[p.ID] = p
	return nil
}

func (s *Store) NextPollID(_ context.Context) (poll.PollID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := poll.PollID(s.nextID)
	s.nextID++
	return id, nil
}

func (s *Store) AppendCoordinatorPoll(_ context.Context, account poll.Account, id poll.PollID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coordPolls[account] = append(s.coordPolls[account], id)
	return nil
}

func (s *Store) CoordinatorPolls(_ context.Context, account poll.Account) ([]poll.PollID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]poll.PollID, len(s.coordPolls[account]))
	copy(out, s.coordPolls[account])
	return out, nil
}

var _ storage.Store = (*Store)(nil)
