package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ems-backend/internal/domain/entity"
	repo "github.com/oksasatya/go-ems-backend/internal/domain/repository"
	"github.com/oksasatya/go-ems-backend/pkg/helpers"
)

const sessionTTL = 24 * time.Hour

type TokenPair struct {
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// Login authenticates and issues a token pair. Without a JWT manager the pair is empty.
func (s *Service) Login(ctx context.Context, email, password string) (*entity.User, TokenPair, error) {
	u, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, TokenPair{}, err
	}
	if s.JWT == nil {
		return u, TokenPair{}, nil
	}
	pair, err := s.IssueTokens(ctx, u)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return u, pair, nil
}

// IssueTokens generates access/refresh tokens and records a session in Redis.
func (s *Service) IssueTokens(ctx context.Context, u *entity.User) (TokenPair, error) {
	sid := uuid.NewString()
	pair, err := s.signPair(u.ID, sid)
	if err != nil {
		helpers.LogError(s.Logger, "generate tokens failed", err, logrus.Fields{"user_id": u.ID})
		return TokenPair{}, err
	}

	if s.Redis != nil {
		key := helpers.SessionKey(u.ID)
		pipe := s.Redis.Pipeline()
		pipe.HSet(ctx, key, map[string]any{
			"user_id":    u.ID,
			"email":      u.Email,
			"name":       u.Name,
			"sid":        sid,
			"logged_in":  true,
			"created_at": nowRFC3339(),
		})
		pipe.Expire(ctx, key, sessionTTL)
		if _, rErr := pipe.Exec(ctx); rErr != nil {
			helpers.LogWarn(s.Logger, "redis pipeline failed", rErr, logrus.Fields{"key": key})
		}
	}
	return pair, nil
}

// Refresh validates a refresh token against the live session and rotates both tokens.
// It returns the new pair and the user id.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, string, error) {
	if s.JWT == nil {
		return TokenPair{}, "", ErrInvalidCredentials
	}
	claims, err := s.JWT.ParseRefreshToken(refreshToken)
	if err != nil {
		return TokenPair{}, "", ErrInvalidCredentials
	}
	u, err := s.Repo.FindByID(ctx, claims.UserID)
	if errors.Is(err, repo.ErrNotFound) {
		return TokenPair{}, "", ErrInvalidCredentials
	}
	if err != nil {
		return TokenPair{}, "", err
	}

	// current session id must match the token's sid
	if s.Redis != nil {
		data, rErr := s.Redis.HGetAll(ctx, helpers.SessionKey(u.ID)).Result()
		if rErr != nil || len(data) == 0 || data["sid"] != claims.SessionID {
			return TokenPair{}, "", ErrInvalidCredentials
		}
	}

	sid := uuid.NewString()
	pair, err := s.signPair(u.ID, sid)
	if err != nil {
		return TokenPair{}, "", err
	}
	if s.Redis != nil {
		key := helpers.SessionKey(u.ID)
		pipe := s.Redis.Pipeline()
		pipe.HSet(ctx, key, map[string]any{
			"sid":        sid,
			"updated_at": nowRFC3339(),
		})
		pipe.Expire(ctx, key, sessionTTL)
		if _, rErr := pipe.Exec(ctx); rErr != nil {
			helpers.LogWarn(s.Logger, "redis pipeline failed", rErr, logrus.Fields{"key": key})
		}
	}
	return pair, u.ID, nil
}

// Logout drops the user's session so outstanding tokens stop validating.
func (s *Service) Logout(ctx context.Context, userID string) error {
	if s.Redis == nil {
		return nil
	}
	return s.Redis.Del(ctx, helpers.SessionKey(userID)).Err()
}

func (s *Service) signPair(userID, sid string) (TokenPair, error) {
	access, aexp, err := s.JWT.GenerateAccessToken(userID, sid)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, rexp, err := s.JWT.GenerateRefreshToken(userID, sid)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, AccessTokenExpiry: aexp, RefreshToken: refresh, RefreshTokenExpiry: rexp}, nil
}
