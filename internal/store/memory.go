package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Collector/internal/scoring"
)

// MemoryStore keeps the case collection in process. It is the default when
// no database is configured.
type MemoryStore struct {
	mu       sync.RWMutex
	cases    []*Case
	index    map[int64]*Case
	users    map[uuid.UUID]*User
	attempts []*LoginAttempt
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		index: make(map[int64]*Case),
		users: make(map[uuid.UUID]*User),
	}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) AppendCases(_ context.Context, cases []*Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[int64]bool, len(cases))
	for _, c := range cases {
		if _, ok := s.index[c.ID]; ok || seen[c.ID] {
			return fmt.Errorf("%w: %d", ErrDuplicateID, c.ID)
		}
		seen[c.ID] = true
	}
	for _, c := range cases {
		cp := c.Clone()
		s.cases = append(s.cases, cp)
		s.index[cp.ID] = cp
	}
	sort.SliceStable(s.cases, func(i, j int) bool { return s.cases[i].ID < s.cases[j].ID })
	return nil
}

func (s *MemoryStore) GetCase(_ context.Context, id int64) (*Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.index[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c.Clone(), nil
}

func (s *MemoryStore) ListCases(_ context.Context, filter CaseFilter) ([]*Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Case
	skipped := 0
	for _, c := range s.cases {
		if !filter.Matches(c) {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		out = append(out, c.Clone())
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) MaxCaseID(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.cases) == 0 {
		return 0, nil
	}
	return s.cases[len(s.cases)-1].ID, nil
}

func (s *MemoryStore) UpdateCaseStatus(_ context.Context, id int64, status CaseStatus, at time.Time) (*Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.index[id]
	if !ok {
		return nil, ErrNotFound
	}
	c.Status = status
	c.LastUpdated = at
	return c.Clone(), nil
}

func (s *MemoryStore) UpdateCaseAssessment(_ context.Context, id int64, a scoring.Assessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.index[id]
	if !ok {
		return ErrNotFound
	}
	c.ApplyAssessment(a)
	return nil
}

func (s *MemoryStore) CaseStats(_ context.Context) (*CaseStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := newCaseStats()
	for _, c := range s.cases {
		stats.Total++
		stats.TotalAmount = stats.TotalAmount.Add(c.Amount)
		stats.ByStatus[c.Status]++
		stats.ByAgency[c.AssignedTo]++
	}
	return stats, nil
}

func (s *MemoryStore) CreateUser(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Username, u.Username) {
			return fmt.Errorf("%w: username %q", ErrUserExists, u.Username)
		}
		if u.Email != "" && strings.EqualFold(existing.Email, u.Email) {
			return fmt.Errorf("%w: email %q", ErrUserExists, u.Email)
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *MemoryStore) GetUser(_ context.Context, id uuid.UUID) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) GetUserByUsername(_ context.Context, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListUsers(_ context.Context) ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*User, 0, len(s.users))
	for _, u := range s.users {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *MemoryStore) DeleteUser(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *MemoryStore) TouchLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.LastLoginAt = &at
	return nil
}

func (s *MemoryStore) RecordLoginAttempt(_ context.Context, a *LoginAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.attempts = append(s.attempts, &cp)
	return nil
}

// LoginAttempts returns recorded attempts, oldest first.
func (s *MemoryStore) LoginAttempts() []*LoginAttempt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*LoginAttempt, len(s.attempts))
	copy(out, s.attempts)
	return out
}
