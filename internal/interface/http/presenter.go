package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	userapp "github.com/oksasatya/go-ems-backend/internal/application"
	"github.com/oksasatya/go-ems-backend/internal/domain/entity"
)

// userView is the public JSON shape of a user. The password hash is never exposed.
type userView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Avatar    *string   `json:"avatar,omitempty"`
	Bio       *string   `json:"bio,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toUserView(u *entity.User) userView {
	return userView{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Avatar:    u.Avatar,
		Bio:       u.Bio,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func toUserViews(users []*entity.User) []userView {
	out := make([]userView, 0, len(users))
	for _, u := range users {
		out = append(out, toUserView(u))
	}
	return out
}

// authResponse is the body returned by register and login.
type authResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func toAuthResponse(u *entity.User) authResponse {
	return authResponse{ID: u.ID, Name: u.Name, Email: u.Email}
}

func clientIP(c *gin.Context) string {
	if ip := c.GetString("real_ip"); ip != "" {
		return ip
	}
	return c.RemoteIP()
}

// requestContext carries caller details into the service for audit entries.
func requestContext(c *gin.Context) context.Context {
	return userapp.WithClientInfo(c.Request.Context(), userapp.ClientInfo{
		IP:        clientIP(c),
		UserAgent: c.GetHeader("User-Agent"),
	})
}
