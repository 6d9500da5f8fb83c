package container

import (
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ems-backend/config"
	repo "github.com/oksasatya/go-ems-backend/internal/domain/repository"
	"github.com/oksasatya/go-ems-backend/pkg/helpers"
)

// app-level container to share constructed components across packages
// Router can auto-wire modules from these singletons.
// Everything except config, logger and the user repository is optional.

var (
	cfg         *config.Config
	logger      *logrus.Logger
	userRepo    repo.UserRepository
	auditRepo   repo.AuditRepository
	redisClient *redis.Client
	avatars     *helpers.GCSUploader

	jwtManager *helpers.JWTManager
	hasher     helpers.PasswordHasher

	rabbitPub *helpers.RabbitPublisher
	esClient  *elasticsearch.Client
)

func SetConfig(c *config.Config)              { cfg = c }
func GetConfig() *config.Config               { return cfg }
func SetLogger(l *logrus.Logger)              { logger = l }
func GetLogger() *logrus.Logger               { return logger }
func SetUserRepo(r repo.UserRepository)       { userRepo = r }
func GetUserRepo() repo.UserRepository        { return userRepo }
func SetAuditRepo(r repo.AuditRepository)     { auditRepo = r }
func GetAuditRepo() repo.AuditRepository      { return auditRepo }
func SetRedis(r *redis.Client)                { redisClient = r }
func GetRedis() *redis.Client                 { return redisClient }
func SetAvatars(u *helpers.GCSUploader)       { avatars = u }
func GetAvatars() *helpers.GCSUploader        { return avatars }
func SetJWT(m *helpers.JWTManager)            { jwtManager = m }
func SetHasher(h helpers.PasswordHasher)      { hasher = h }
func SetRabbitPub(p *helpers.RabbitPublisher) { rabbitPub = p }
func GetRabbitPub() *helpers.RabbitPublisher  { return rabbitPub }
func SetES(c *elasticsearch.Client)           { esClient = c }
func GetES() *elasticsearch.Client            { return esClient }

// GetJWT returns the configured manager, or one built from config.
func GetJWT() *helpers.JWTManager {
	if jwtManager == nil && cfg != nil {
		jwtManager = helpers.NewJWTManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTTL, cfg.RefreshTTL)
	}
	return jwtManager
}

// GetHasher returns the shared password hasher, bcrypt at the default cost unless set.
func GetHasher() helpers.PasswordHasher {
	if hasher == nil {
		hasher = helpers.NewBcryptHasher(0)
	}
	return hasher
}
