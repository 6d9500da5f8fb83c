package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/go-ems-backend/internal/domain/entity"
	"github.com/oksasatya/go-ems-backend/internal/domain/repository"
)

// UserRepository is an in-memory implementation of repository.UserRepository.
// Records are copied on every read and write so callers never share state with the store.
type UserRepository struct {
	mu      sync.RWMutex
	byID    map[string]*entity.User
	byEmail map[string]string
	order   []string
	now     func() time.Time
}

var _ repository.UserRepository = (*UserRepository)(nil)

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[string]*entity.User),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

func (r *UserRepository) FindAll(ctx context.Context) ([]*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*entity.User, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, cloneUser(r.byID[id]))
	}
	return result, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneUser(r.byID[id]), nil
}

func (r *UserRepository) Save(ctx context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := u.Email
	now := r.now().UTC()

	if u.ID == "" {
		if _, taken := r.byEmail[key]; taken {
			return repository.ErrDuplicateEmail
		}
		stored := cloneUser(u)
		stored.ID = uuid.NewString()
		stored.CreatedAt = now
		stored.UpdatedAt = now
		r.byID[stored.ID] = stored
		r.byEmail[key] = stored.ID
		r.order = append(r.order, stored.ID)

		u.ID, u.CreatedAt, u.UpdatedAt = stored.ID, stored.CreatedAt, stored.UpdatedAt
		return nil
	}

	existing, ok := r.byID[u.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if owner, taken := r.byEmail[key]; taken && owner != u.ID {
		return repository.ErrDuplicateEmail
	}

	stored := cloneUser(u)
	stored.PasswordHash = cloneStr(existing.PasswordHash)
	stored.CreatedAt = existing.CreatedAt
	stored.UpdatedAt = now
	delete(r.byEmail, existing.Email)
	r.byEmail[key] = u.ID
	r.byID[u.ID] = stored

	u.PasswordHash = cloneStr(existing.PasswordHash)
	u.CreatedAt, u.UpdatedAt = stored.CreatedAt, stored.UpdatedAt
	return nil
}

func (r *UserRepository) SetAvatar(ctx context.Context, id string, avatar *string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	existing.Avatar = cloneStr(avatar)
	existing.UpdatedAt = r.now().UTC()
	return cloneUser(existing), nil
}

func (r *UserRepository) DeleteByID(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return nil
	}
	delete(r.byID, id)
	delete(r.byEmail, u.Email)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func cloneUser(u *entity.User) *entity.User {
	c := *u
	c.Avatar = cloneStr(u.Avatar)
	c.Bio = cloneStr(u.Bio)
	c.PasswordHash = cloneStr(u.PasswordHash)
	return &c
}

func cloneStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
