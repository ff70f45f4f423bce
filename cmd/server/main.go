package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/volunteer-map/internal/auth"
	"github.com/iliyamo/volunteer-map/internal/config"
	"github.com/iliyamo/volunteer-map/internal/database"
	"github.com/iliyamo/volunteer-map/internal/geo"
	"github.com/iliyamo/volunteer-map/internal/geocode"
	"github.com/iliyamo/volunteer-map/internal/handler"
	"github.com/iliyamo/volunteer-map/internal/logger"
	"github.com/iliyamo/volunteer-map/internal/queue"
	"github.com/iliyamo/volunteer-map/internal/repository"
	"github.com/iliyamo/volunteer-map/internal/router"
	"github.com/iliyamo/volunteer-map/internal/service"
	"github.com/iliyamo/volunteer-map/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	log, err := logger.New(cfg.Env)
	if err != nil {
		_, _ = os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, database.Options{
		User: cfg.DBUser,
		Pass: cfg.DBPass,
		Host: cfg.DBHost,
		Port: cfg.DBPort,
		Name: cfg.DBName,
	})
	if err != nil {
		return err
	}
	defer db.Close()
	if cfg.DBMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
		log.Info("schema ready")
	}

	rdb, err := config.NewRedisClient(ctx)
	if err != nil {
		log.Warn("redis unavailable, rate limiting and caches disabled", zap.Error(err))
	} else {
		defer rdb.Close()
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	posts := repository.NewPostRepo(db)
	comments := repository.NewCommentRepo(db)
	commits := repository.NewSupportCommitRepo(db)

	codec := utils.NewTokenCodec(cfg.AccessSecret, cfg.RefreshSecret, cfg.AccessTTL, cfg.RefreshTTL)
	publisher := queue.NewPublisher(cfg.RabbitURL, log)

	sessions := service.NewSessionService(users, tokens, codec, cfg.BcryptCost, log)
	postSvc := service.NewPostService(posts, geo.NewGuard(posts, cfg.DupRadiusKM), log)
	commentSvc := service.NewCommentService(comments)
	supportSvc := service.NewSupportService(commits, publisher, log)
	adminSvc := service.NewAdminService(posts, publisher, log)

	geocoder := geocode.New(cfg.GeocoderBaseURL, cfg.GeocoderUserAgent, cfg.GeocoderCountry, rdb, log)
	geocoder.Referer = cfg.FrontendURL

	e := router.New(router.Deps{
		Config:    cfg,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     config.LoadCacheConfig(),
		DB:        db,
		Redis:     rdb,
		Logger:    log,
		Codec:     codec,
		Bearer:    &auth.BearerResolver{Users: users},
		Posts:     postSvc,
		Auth: &handler.AuthHandler{
			Sessions:    sessions,
			Local:       &auth.LocalResolver{Users: users},
			OAuth:       &auth.OAuthResolver{Users: users},
			Google:      auth.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleCallbackURL),
			Cookie:      handler.CookieConfig{Name: cfg.RefreshCookieName, Secure: cfg.IsProduction(), MaxAge: cfg.RefreshTTL},
			FrontendURL: cfg.FrontendURL,
			Logger:      log,
		},
		Post:    &handler.PostHandler{Posts: postSvc},
		Comment: &handler.CommentHandler{Comments: commentSvc},
		Support: &handler.SupportHandler{Support: supportSvc},
		Admin:   &handler.AdminHandler{Admin: adminSvc},
		Geo:     &handler.GeoHandler{Geocoder: geocoder},
	})

	if cfg.RabbitURL != "" {
		consumer := queue.NewConsumer(cfg.RabbitURL, log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("event consumer stopped", zap.Error(err))
			}
		}()
	}

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
