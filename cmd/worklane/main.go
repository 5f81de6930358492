package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/worklane/worklane/internal/app"
	"github.com/worklane/worklane/internal/audit"
	"github.com/worklane/worklane/internal/authz"
	"github.com/worklane/worklane/internal/members"
	"github.com/worklane/worklane/internal/orgs"
	"github.com/worklane/worklane/internal/permissions"
	"github.com/worklane/worklane/internal/platform/db"
	"github.com/worklane/worklane/internal/projects"
	"github.com/worklane/worklane/internal/roles"
	"github.com/worklane/worklane/internal/shared"
	"github.com/worklane/worklane/internal/users"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionTTL, cfg.IsProduction())

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Warn("asynq close", slog.Any("error", err))
		}
	}()
	recorder := audit.NewEnqueuer(asynqClient)

	resolver := authz.NewResolver(authz.NewStore(pool))
	authzMiddleware := authz.Middleware{Resolver: resolver, Logger: logger}
	authzHandler := authz.NewHandler(logger, resolver)

	permissionRepo := permissions.NewRepository(pool)
	permissionService := permissions.NewService(permissionRepo)
	if err := permissionService.EnsureCatalog(ctx); err != nil {
		logger.Error("seed permission catalog", slog.Any("error", err))
		os.Exit(1)
	}
	permissionHandler := permissions.NewHandler(logger, permissionService)

	roleRepo := roles.NewRepository(pool)
	roleService := roles.NewService(roleRepo, permissionService)
	roleHandler := roles.NewHandler(logger, roleService, authzMiddleware, recorder)

	memberRepo := members.NewRepository(pool)
	memberService := members.NewService(memberRepo, roleService, permissionService)
	memberHandler := members.NewHandler(logger, memberService, authzMiddleware, recorder)

	orgRepo := orgs.NewRepository(pool)
	orgService := orgs.NewService(orgRepo, roleService, memberService)
	orgHandler := orgs.NewHandler(logger, orgService, authzMiddleware)

	projectRepo := projects.NewRepository(pool)
	projectService := projects.NewService(projectRepo)
	projectHandler := projects.NewHandler(logger, projectService, authzMiddleware)

	userRepo := users.NewRepository(pool)
	userService := users.NewService(userRepo)
	userHandler := users.NewHandler(logger, userService, authzMiddleware, recorder)

	auditService := audit.NewService(audit.NewPostgresTimeline(pool))
	auditHandler := audit.NewHandler(auditService, authzMiddleware, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		UsersHandler:       userHandler,
		OrgsHandler:        orgHandler,
		RolesHandler:       roleHandler,
		MembersHandler:     memberHandler,
		ProjectsHandler:    projectHandler,
		PermissionsHandler: permissionHandler,
		AuthzHandler:       authzHandler,
		AuditHandler:       auditHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server exit", slog.Any("error", err))
		os.Exit(1)
	}
}
