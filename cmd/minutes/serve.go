package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/adeilh/minutes/api"
	"github.com/adeilh/minutes/auth"
	"github.com/adeilh/minutes/cache"
	"github.com/adeilh/minutes/cache/memory"
	"github.com/adeilh/minutes/cache/redis"
	"github.com/adeilh/minutes/db/sql/postgres"
	"github.com/adeilh/minutes/httpx"
	"github.com/adeilh/minutes/internal/config"
	mylog "github.com/adeilh/minutes/internal/log"
	"github.com/adeilh/minutes/meeting"
)

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg := config.FromCommand(cmd)
	mylog.InitLogger(cfg.LogLevel)
	logger := log.Log

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store cache.SetStore
	if !cfg.NoCache {
		store = redis.NewStore(redis.Options{
			Addr:        cfg.Redis.Addr(),
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			DialTimeout: cfg.Redis.DialTimeout,
		})
	}
	manager := cache.NewManager(ctx, store, append(cfg.CacheOptions(), cache.WithLogger(logger))...)
	defer manager.Close()

	// Sessions need somewhere to live even when Redis is down.
	var sessionBacking cache.Store = store
	if !manager.Enabled() {
		mem := memory.NewStore()
		defer mem.Close()
		sessionBacking = mem
		logger.Warn("sessions kept in process memory")
	}
	sessions := auth.NewCacheSessionStore(sessionBacking, auth.SessionStoreOptions{DefaultTTL: cfg.SessionTTL})

	meetingRepo, userRepo, closeDB, err := openRepositories(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeDB()

	if err := seed(ctx, meetingRepo, cfg.SeedFile, logger); err != nil {
		return err
	}

	meetings, err := meeting.NewService(meeting.ServiceConfig{Repository: meetingRepo, Cache: manager, Logger: logger})
	if err != nil {
		return err
	}
	users, err := auth.NewUserService(auth.UserServiceConfig{
		Repository: userRepo,
		Hasher:     auth.NewBcryptHasher(),
		Sessions:   sessions,
		SessionTTL: cfg.SessionTTL,
		Cache:      manager,
	})
	if err != nil {
		return err
	}
	handlers, err := api.New(api.Config{
		Meetings: meetings,
		Users:    users,
		Sessions: sessions,
		Cache:    manager,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	server := httpx.NewServer(httpx.WithAddress(cfg.Addr), httpx.WithLogger(logger))
	server.RegisterRoutes(handlers.Register)
	return server.Start(ctx)
}

func openRepositories(ctx context.Context, cfg config.Config, logger log.Interface) (meeting.Repository, auth.UserRepository, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Info("using in-memory repositories")
		return meeting.NewMemoryRepository(), auth.NewMemoryUserRepository(), func() {}, nil
	}
	db, err := postgres.Open(ctx, postgres.WithDSN(cfg.DatabaseURL), postgres.WithConnectTimeout(10*time.Second))
	if err != nil {
		return nil, nil, nil, err
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, nil, err
	}
	logger.Info("using postgres repositories")
	closeDB := func() {
		if err := db.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
			logger.WithError(err).Warn("closing database")
		}
	}
	return postgres.NewMeetingRepository(db), postgres.NewUserRepository(db), closeDB, nil
}

// seed loads the catalogue into an empty repository. A repository that
// already holds meetings or templates is left alone.
func seed(ctx context.Context, repo meeting.Repository, path string, logger log.Interface) error {
	existing, err := repo.ListMeetings(ctx)
	if err != nil {
		return err
	}
	templates, err := repo.ListTemplates(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 || len(templates) > 0 {
		return nil
	}

	var catalogue meeting.Catalogue
	if path == "" {
		catalogue, err = meeting.DefaultCatalogue()
	} else {
		var f *os.File
		f, err = os.Open(path)
		if err != nil {
			return fmt.Errorf("open seed file: %w", err)
		}
		defer f.Close()
		catalogue, err = meeting.DecodeCatalogue(f)
	}
	if err != nil {
		return err
	}
	if err := meeting.Seed(ctx, repo, catalogue); err != nil {
		return err
	}
	logger.WithField("meetings", len(catalogue.Meetings)).WithField("templates", len(catalogue.Templates)).Info("store seeded")
	return nil
}
