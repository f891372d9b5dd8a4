package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/shop-api/internal/model"
)

// MemoryUserStore keeps users in process memory.  It enforces the same
// uniqueness rules as the users table and is used when STORE_DRIVER=memory
// and in tests.
type MemoryUserStore struct {
	mu     sync.RWMutex
	nextID uint64
	byID   map[uint64]model.User
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{byID: make(map[uint64]model.User)}
}

func (s *MemoryUserStore) Create(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.byID {
		if existing.Username == u.Username {
			return ErrDuplicateUsername
		}
		if u.Email != "" && existing.Email == u.Email {
			return ErrDuplicateEmail
		}
	}
	s.nextID++
	u.ID = s.nextID
	s.byID[u.ID] = *u
	return nil
}

func (s *MemoryUserStore) ExistsByUsername(_ context.Context, username string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.byID {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryUserStore) GetByUsername(_ context.Context, username string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.byID {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryUserStore) GetByID(_ context.Context, id uint64) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

// MemoryProductStore keeps products in process memory.  A single mutex
// serialises mutations, which gives update and delete the same
// check-then-write atomicity as the row lock in ProductRepo.
type MemoryProductStore struct {
	mu     sync.RWMutex
	nextID uint64
	byID   map[uint64]model.Product
	now    func() time.Time
}

func NewMemoryProductStore() *MemoryProductStore {
	return &MemoryProductStore{byID: make(map[uint64]model.Product), now: utcSeconds}
}

func (s *MemoryProductStore) Create(_ context.Context, p *model.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	p.ID = s.nextID
	p.CreatedAt = s.now()
	p.UpdatedAt = p.CreatedAt
	s.byID[p.ID] = *p
	return nil
}

func (s *MemoryProductStore) GetByID(_ context.Context, id uint64) (*model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *MemoryProductStore) List(_ context.Context, q ProductQuery) ([]model.Product, int64, error) {
	s.mu.RLock()
	matched := make([]model.Product, 0, len(s.byID))
	for _, p := range s.byID {
		if q.Category == "" || p.Category == q.Category {
			matched = append(matched, p)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	total := int64(len(matched))
	start := q.Offset()
	if start < 0 || start >= len(matched) {
		return []model.Product{}, total, nil
	}
	end := start + q.Size
	if end < start || end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (s *MemoryProductStore) Update(_ context.Context, id uint64, f model.ProductFields, authorize Authorizer) (*model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	if authorize != nil {
		if err := authorize(p); err != nil {
			return nil, err
		}
	}
	p.Apply(f)
	p.UpdatedAt = s.now()
	s.byID[id] = p
	return &p, nil
}

func (s *MemoryProductStore) Delete(_ context.Context, id uint64, authorize Authorizer) (*model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	if authorize != nil {
		if err := authorize(p); err != nil {
			return nil, err
		}
	}
	delete(s.byID, id)
	return &p, nil
}
