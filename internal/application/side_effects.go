package application

import (
	"context"
	"errors"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ems-backend/internal/domain/entity"
	repo "github.com/oksasatya/go-ems-backend/internal/domain/repository"
	"github.com/oksasatya/go-ems-backend/pkg/helpers"
	"github.com/oksasatya/go-ems-backend/pkg/mailer"
	"github.com/oksasatya/go-ems-backend/pkg/mailer/templates"
)

// EmailPublisher queues an email job for the worker.
type EmailPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// AvatarUploader stores an object and returns its public URL.
type AvatarUploader interface {
	Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error)
}

type clientKey struct{}

// ClientInfo describes the caller of a request, used for audit entries.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// WithClientInfo attaches caller details to ctx.
func WithClientInfo(ctx context.Context, ci ClientInfo) context.Context {
	return context.WithValue(ctx, clientKey{}, ci)
}

func clientInfo(ctx context.Context) ClientInfo {
	ci, _ := ctx.Value(clientKey{}).(ClientInfo)
	return ci
}

func (s *Service) audit(ctx context.Context, action, userID, email string, meta map[string]any) {
	if s.Audit == nil {
		return
	}
	ci := clientInfo(ctx)
	l := &entity.AuditLog{
		UserID:    userID,
		Email:     email,
		Action:    action,
		IP:        ci.IP,
		UserAgent: ci.UserAgent,
		Metadata:  meta,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Audit.Record(ctx, l); err != nil {
		helpers.LogWarn(s.Logger, "audit record failed", err, logrus.Fields{"action": action, "user_id": userID})
	}
}

func (s *Service) enqueueWelcome(ctx context.Context, u *entity.User) {
	if s.Mail == nil {
		return
	}
	opts := append([]templates.Option{templates.WithTime(time.Now())}, s.MailOptions...)
	job := mailer.EmailJob{
		To:       u.Email,
		Template: templates.Welcome,
		Data:     templates.ToMap(templates.NewWelcomeData(u.Name, u.Email, opts...)),
	}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := s.Mail.PublishJSON(c, job); err != nil {
		helpers.LogWarn(s.Logger, "enqueue welcome email failed", err, logrus.Fields{"user_id": u.ID})
	}
}

// UploadAvatar stores the image under avatars/<id>/ and points the user's avatar at it.
func (s *Service) UploadAvatar(ctx context.Context, userID string, r io.Reader, filename, contentType string) (*entity.User, error) {
	u, err := s.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.Avatars == nil {
		return nil, ErrStorageUnavailable
	}
	ext := strings.ToLower(filepath.Ext(filename))
	objectPath := path.Join("avatars", u.ID, uuid.NewString()+ext)
	url, err := s.Avatars.Upload(ctx, objectPath, contentType, r)
	if err != nil {
		helpers.LogError(s.Logger, "avatar upload failed", err, logrus.Fields{"user_id": u.ID, "object": objectPath})
		return nil, err
	}

	// avatar only, so a concurrent Update of the other fields is not overwritten
	u, err = s.Repo.SetAvatar(ctx, u.ID, &url)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	s.indexUser(ctx, u)
	return u, nil
}
