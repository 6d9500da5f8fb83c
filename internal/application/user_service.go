package application

import (
	"context"
	"errors"
	"sync"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ems-backend/internal/domain/entity"
	repo "github.com/oksasatya/go-ems-backend/internal/domain/repository"
	"github.com/oksasatya/go-ems-backend/pkg/helpers"
	"github.com/oksasatya/go-ems-backend/pkg/mailer/templates"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrStorageUnavailable = errors.New("object storage not configured")
)

// UserDTO carries the client-editable fields of a user.
type UserDTO struct {
	Name   string
	Email  string
	Avatar *string
	Bio    *string
}

type Service struct {
	Repo   repo.UserRepository
	Hasher helpers.PasswordHasher
	Logger *logrus.Logger

	JWT          *helpers.JWTManager
	Redis        *redis.Client
	ES           *elasticsearch.Client
	ESUsersIndex string
	Mail         EmailPublisher
	MailOptions  []templates.Option
	Avatars      AvatarUploader
	Audit        repo.AuditRepository

	dummyOnce sync.Once
	dummyHash string
}

// Option configures optional collaborators of the Service.
type Option func(*Service)

func WithJWT(m *helpers.JWTManager) Option { return func(s *Service) { s.JWT = m } }
func WithRedis(r *redis.Client) Option     { return func(s *Service) { s.Redis = r } }
func WithAvatars(u AvatarUploader) Option  { return func(s *Service) { s.Avatars = u } }
func WithAudit(a repo.AuditRepository) Option {
	return func(s *Service) { s.Audit = a }
}

// WithSearch enables indexing of users into the given Elasticsearch index.
func WithSearch(es *elasticsearch.Client, index string) Option {
	return func(s *Service) {
		s.ES = es
		s.ESUsersIndex = index
	}
}

// WithMail enables the welcome email on registration.
func WithMail(p EmailPublisher, opts ...templates.Option) Option {
	return func(s *Service) {
		s.Mail = p
		s.MailOptions = opts
	}
}

func NewService(repo repo.UserRepository, hasher helpers.PasswordHasher, logger *logrus.Logger, opts ...Option) *Service {
	s := &Service{Repo: repo, Hasher: hasher, Logger: logger}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) FindAll(ctx context.Context) ([]*entity.User, error) {
	return s.Repo.FindAll(ctx)
}

func (s *Service) FindByID(ctx context.Context, id string) (*entity.User, error) {
	u, err := s.Repo.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Create stores a user without credentials. Such a user can never log in.
func (s *Service) Create(ctx context.Context, in UserDTO) (*entity.User, error) {
	u := &entity.User{
		Name:   in.Name,
		Email:  in.Email,
		Avatar: in.Avatar,
		Bio:    in.Bio,
	}
	if err := s.Repo.Save(ctx, u); err != nil {
		return nil, err
	}
	s.indexUser(ctx, u)
	return u, nil
}

// Register hashes the password and stores a new user.
// Duplicate emails are rejected by the store with repository.ErrDuplicateEmail.
func (s *Service) Register(ctx context.Context, name, email, rawPassword string) (*entity.User, error) {
	hash, err := s.Hasher.Hash(rawPassword)
	if err != nil {
		helpers.LogError(s.Logger, "hash password failed", err, nil)
		return nil, err
	}
	u := &entity.User{Name: name, Email: email, PasswordHash: &hash}
	if err := s.Repo.Save(ctx, u); err != nil {
		return nil, err
	}

	s.indexUser(ctx, u)
	s.enqueueWelcome(ctx, u)
	s.audit(ctx, entity.AuditRegister, u.ID, u.Email, nil)
	return u, nil
}

// Authenticate validates email/password and returns the user without issuing tokens.
// Unknown email, missing credentials and wrong password are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, email, rawPassword string) (*entity.User, error) {
	u, err := s.Repo.FindByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		s.burnHash(rawPassword)
		s.audit(ctx, entity.AuditLoginFailed, "", email, map[string]any{"reason": "unknown_email"})
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !u.CanAuthenticate() {
		s.burnHash(rawPassword)
		s.audit(ctx, entity.AuditLoginFailed, u.ID, email, map[string]any{"reason": "no_credentials"})
		return nil, ErrInvalidCredentials
	}

	ok, err := s.Hasher.Verify(rawPassword, *u.PasswordHash)
	if err != nil {
		helpers.LogWarn(s.Logger, "stored password hash unreadable", err, logrus.Fields{"user_id": u.ID})
	}
	if !ok {
		s.audit(ctx, entity.AuditLoginFailed, u.ID, email, map[string]any{"reason": "bad_password"})
		return nil, ErrInvalidCredentials
	}
	s.audit(ctx, entity.AuditLoginSuccess, u.ID, u.Email, nil)
	return u, nil
}

// burnHash spends the same bcrypt work as a real verify so that
// unknown emails are not faster to reject than wrong passwords.
func (s *Service) burnHash(rawPassword string) {
	s.dummyOnce.Do(func() {
		h, err := s.Hasher.Hash("not-a-real-password")
		if err == nil {
			s.dummyHash = h
		}
	})
	if s.dummyHash != "" {
		_, _ = s.Hasher.Verify(rawPassword, s.dummyHash)
	}
}

// Update overwrites name, email, avatar and bio. The password hash is never touched.
func (s *Service) Update(ctx context.Context, id string, in UserDTO) (*entity.User, error) {
	u, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Name = in.Name
	u.Email = in.Email
	u.Avatar = in.Avatar
	u.Bio = in.Bio

	if err := s.Repo.Save(ctx, u); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	s.indexUser(ctx, u)
	return u, nil
}

// Delete removes the user. Deleting an unknown id succeeds.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.Repo.DeleteByID(ctx, id); err != nil {
		return err
	}
	s.deleteUserDoc(ctx, id)
	return nil
}
