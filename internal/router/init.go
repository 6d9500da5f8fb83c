package router

import (
	appuser "github.com/oksasatya/go-ems-backend/internal/application"
	"github.com/oksasatya/go-ems-backend/internal/container"
	handlers "github.com/oksasatya/go-ems-backend/internal/interface/http"
	"github.com/oksasatya/go-ems-backend/internal/router/modules"
	"github.com/oksasatya/go-ems-backend/pkg/mailer/templates"
)

type UserModuleDeps struct {
	Service     *appuser.Service
	AuthHandler *handlers.AuthHandler
	UserHandler *handlers.UserHandler
}

// BuildService assembles the user service from whatever the container holds.
func BuildService() *appuser.Service {
	cfg := container.GetConfig()

	opts := []appuser.Option{
		appuser.WithJWT(container.GetJWT()),
	}
	if rdb := container.GetRedis(); rdb != nil {
		opts = append(opts, appuser.WithRedis(rdb))
	}
	if es := container.GetES(); es != nil {
		opts = append(opts, appuser.WithSearch(es, cfg.ESUsersIndex))
	}
	if up := container.GetAvatars(); up != nil {
		opts = append(opts, appuser.WithAvatars(up))
	}
	if audit := container.GetAuditRepo(); audit != nil {
		opts = append(opts, appuser.WithAudit(audit))
	}
	if pub := container.GetRabbitPub(); pub != nil && cfg.MailSendEnabled {
		opts = append(opts, appuser.WithMail(pub,
			templates.WithCompany(cfg.CompanyName),
			templates.WithSupportURL(cfg.SupportURL),
			templates.WithLoginURL(cfg.LoginURL),
		))
	}

	return appuser.NewService(container.GetUserRepo(), container.GetHasher(), container.GetLogger(), opts...)
}

func buildUserDeps() UserModuleDeps {
	cfg := container.GetConfig()
	service := BuildService()

	return UserModuleDeps{
		Service:     service,
		AuthHandler: handlers.NewAuthHandler(service, container.GetLogger(), cfg.CookieDomain, cfg.CookieSecure),
		UserHandler: handlers.NewUserHandler(service, container.GetLogger()),
	}
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	deps := buildUserDeps()
	r.Add(modules.NewAuthModule(deps.AuthHandler, container.GetJWT()))
	r.Add(modules.NewUserModule(deps.UserHandler))
	if container.GetConfig().DebugMetricsEnabled {
		r.Add(modules.NewDebugModule())
	}
}
