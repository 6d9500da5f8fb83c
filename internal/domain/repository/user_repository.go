package repository

import (
	"context"
	"errors"

	"github.com/oksasatya/go-ems-backend/internal/domain/entity"
)

var (
	// ErrNotFound is returned by lookups and updates when no row matches.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateEmail is returned when a save would break email uniqueness.
	ErrDuplicateEmail = errors.New("email already exists")
)

// UserRepository defines the interface for user-related storage operations.
// Save inserts when u.ID is empty (assigning ID and timestamps) and updates otherwise.
// The password hash is written on insert only; an update leaves the stored hash as is
// and reflects it back into u.
// SetAvatar changes only the avatar, in one atomic step, and returns the stored user.
// DeleteByID succeeds when the id does not exist.
type UserRepository interface {
	FindAll(ctx context.Context) ([]*entity.User, error)
	FindByID(ctx context.Context, id string) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	Save(ctx context.Context, u *entity.User) error
	SetAvatar(ctx context.Context, id string, avatar *string) (*entity.User, error)
	DeleteByID(ctx context.Context, id string) error
}
