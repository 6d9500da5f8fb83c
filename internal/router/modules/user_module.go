package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-ems-backend/internal/container"
	handlers "github.com/oksasatya/go-ems-backend/internal/interface/http"
	"github.com/oksasatya/go-ems-backend/internal/interface/middleware"
)

// UserModule exposes CRUD over /api/users plus search and avatar upload.
type UserModule struct {
	Handler *handlers.UserHandler
}

func NewUserModule(h *handlers.UserHandler) *UserModule {
	return &UserModule{Handler: h}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	users := rg.Group("/users")
	users.Use(middleware.RateLimit(container.GetRedis(), 300, time.Minute, middleware.KeyByIP(), nil))
	{
		users.GET("", m.Handler.List)
		users.GET("/search", m.Handler.Search)
		users.GET("/:id", m.Handler.Get)
		users.POST("", m.Handler.Create)
		users.PUT("/:id", m.Handler.Update)
		users.DELETE("/:id", m.Handler.Delete)
		users.POST("/:id/avatar", m.Handler.UploadAvatar)
	}
}
