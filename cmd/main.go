package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/oksasatya/go-ems-backend/config"
	"github.com/oksasatya/go-ems-backend/internal/container"
	"github.com/oksasatya/go-ems-backend/internal/infrastructure/memory"
	pginfra "github.com/oksasatya/go-ems-backend/internal/infrastructure/postgres"
	"github.com/oksasatya/go-ems-backend/internal/interface/middleware"
	"github.com/oksasatya/go-ems-backend/internal/router"
	"github.com/oksasatya/go-ems-backend/pkg/helpers"
	"github.com/oksasatya/go-ems-backend/pkg/validation"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	gin.SetMode(cfg.GinMode)
	validation.Init()

	ctx := context.Background()

	container.SetConfig(cfg)
	container.SetLogger(logger)

	// User store
	if cfg.UsesPostgres() {
		pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		defer pool.Close()

		// database/sql handle over pgx stdlib for migrations and the audit trail
		db, err := pginfra.OpenSQL(cfg.PostgresDSN())
		if err != nil {
			log.Fatalf("failed to open sql db: %v", err)
		}
		defer func() { _ = db.Close() }()

		if cfg.MigrationsEnabled {
			if err := pginfra.RunMigrations(db, cfg.MigrationsDir, logger); err != nil {
				log.Fatalf("migration failed: %v", err)
			}
		}
		container.SetUserRepo(pginfra.NewUserRepository(pool))
		if cfg.AuditEnabled {
			container.SetAuditRepo(pginfra.NewAuditRepository(db))
		}
	} else {
		logger.Warn("using in-memory user store; data is lost on restart")
		container.SetUserRepo(memory.NewUserRepository())
	}

	// Redis (sessions, rate limiting)
	if cfg.RedisEnabled {
		rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := helpers.PingRedis(ctx, rdb); err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer func() { _ = rdb.Close() }()
		container.SetRedis(rdb)
	}

	// Elasticsearch (user search)
	if addrs := cfg.ESAddrs(); len(addrs) > 0 {
		es, err := helpers.NewESClient(addrs, cfg.ElasticsearchUser, cfg.ElasticsearchPass)
		if err != nil {
			log.Fatalf("failed to init elasticsearch client: %v", err)
		}
		container.SetES(es)
	}

	// GCS (avatar uploads)
	if cfg.GCSBucket != "" {
		gcsClient, err := helpers.NewGCSClient(ctx, cfg.GCSCredentialsJSONPath)
		if err != nil {
			log.Fatalf("failed to init GCS client: %v", err)
		}
		defer func() { _ = gcsClient.Close() }()
		container.SetAvatars(helpers.NewGCSUploader(gcsClient, cfg.GCSBucket))
	}

	// RabbitMQ (welcome emails)
	if cfg.MailSendEnabled {
		pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
		if err != nil {
			log.Fatalf("failed to connect to rabbitmq: %v", err)
		}
		defer pub.Close()
		container.SetRabbitPub(pub)
	}

	container.SetJWT(helpers.NewJWTManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTTL, cfg.RefreshTTL))
	container.SetHasher(helpers.NewBcryptHasher(0))

	// Gin engine and global middleware
	r := gin.New()
	if err := r.SetTrustedProxies(cfg.TrustedProxyList()); err != nil {
		log.Fatalf("invalid TRUSTED_PROXIES: %v", err)
	}
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware(), middleware.RealIP(cfg.TrustedProxyList()))
	if cfg.HTTPLogEnabled {
		r.Use(middleware.RequestLogger(logger))
	}
	r.Use(middleware.CORS(cfg.CORSOrigins()))

	// Registry: auto-register modules using container
	reg := router.NewRegistry(r)
	router.InitModules(reg)
	reg.RegisterAll()

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Infof("server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %s\n", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Errorf("server forced to shutdown: %v", err)
		return
	}
	logger.Info("server exited properly")
}
