package main

import (
	"context"
	"log"
	"time"

	goRedis "github.com/redis/go-redis/v9"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/taskledger/api/handler"
	"github.com/fastygo/taskledger/internal/config"
	"github.com/fastygo/taskledger/internal/infrastructure/docstore"
	"github.com/fastygo/taskledger/internal/infrastructure/monitor"
	pgInfra "github.com/fastygo/taskledger/internal/infrastructure/postgres"
	redisInfra "github.com/fastygo/taskledger/internal/infrastructure/redis"
	"github.com/fastygo/taskledger/internal/middleware"
	"github.com/fastygo/taskledger/internal/notify"
	"github.com/fastygo/taskledger/internal/router"
	"github.com/fastygo/taskledger/internal/services"
	"github.com/fastygo/taskledger/internal/services/lifecycle"
	"github.com/fastygo/taskledger/internal/templates"
	"github.com/fastygo/taskledger/pkg/httpcontext"
	"github.com/fastygo/taskledger/pkg/logger"
	"github.com/fastygo/taskledger/repository/ledger"
	chatUC "github.com/fastygo/taskledger/usecase/chat"
	identityUC "github.com/fastygo/taskledger/usecase/identity"
	materializeUC "github.com/fastygo/taskledger/usecase/materialize"
	rolloverUC "github.com/fastygo/taskledger/usecase/rollover"
	statsUC "github.com/fastygo/taskledger/usecase/stats"
	taskUC "github.com/fastygo/taskledger/usecase/task"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	backend := openLedger(appCtx, cfg, manager, zapLogger)
	store := docstore.WithRetry(backend, docstore.RetryConfig{
		Attempts:  cfg.Ledger.WriteAttempts,
		BaseDelay: cfg.Ledger.RetryBaseDelay,
	}, zapLogger)
	repo := ledger.New(store, cfg.Policy.Rollover)

	tmpl, err := templates.Load(cfg.Templates.Path)
	if err != nil {
		zapLogger.Fatal("failed to load templates", zap.String("path", cfg.Templates.Path), zap.Error(err))
	}
	if cfg.Policy.TemplateMerge != "" {
		merge, err := templates.ParseMergePolicy(cfg.Policy.TemplateMerge)
		if err != nil {
			zapLogger.Fatal("invalid TEMPLATE_MERGE", zap.Error(err))
		}
		tmpl = tmpl.WithMerge(merge)
	}
	zapLogger.Info("templates loaded",
		zap.Int("assignees", len(tmpl.AssigneeIDs())),
		zap.String("merge", string(tmpl.Merge())),
		zap.String("rollover_policy", string(cfg.Policy.Rollover)))

	redisClient, err := redisInfra.NewClient(cfg.Redis, zapLogger)
	if err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}

	var (
		suppressor  notify.Suppressor = notify.NewMemorySuppressor()
		redisHealth goRedis.UniversalClient
	)
	if redisClient != nil {
		manager.RegisterCloser("redis", redisClient)
		suppressor = notify.NewRedisSuppressor(redisClient, cfg.Redis.Prefix)
		redisHealth = redisClient
	}

	var notifier notify.Notifier = notify.NewLogNotifier(zapLogger)
	if cfg.Notify.WebhookURL != "" {
		notifier = notify.NewWebhookNotifier(cfg.Notify.WebhookURL, cfg.Notify.Timeout)
	}
	gate := notify.NewGate(notifier, suppressor, cfg.Schedule.NotifyWindow, zapLogger)

	taskUseCase := taskUC.New(repo, cfg.Schedule.Location, zapLogger)
	materializeUseCase := materializeUC.New(repo, tmpl, zapLogger)
	rolloverUseCase := rolloverUC.New(repo, cfg.Policy.Rollover, zapLogger)
	statsUseCase := statsUC.New(repo, tmpl, zapLogger)
	identityUseCase := identityUC.New(repo.Users(), repo, zapLogger)
	chatUseCase := chatUC.New(taskUseCase, materializeUseCase, statsUseCase, identityUseCase, zapLogger)

	admins, err := identityUseCase.LoadAdmins(appCtx, cfg.Admins.Initial)
	if err != nil {
		zapLogger.Fatal("failed to load admins", zap.Error(err))
	}
	if len(admins) == 0 {
		zapLogger.Warn("no admins configured, set ADMIN_IDS")
	}

	scheduler, err := services.NewScheduler(
		materializeUseCase,
		rolloverUseCase,
		statsUseCase,
		gate,
		zapLogger,
		services.SchedulerConfig{
			Location:    cfg.Schedule.Location,
			Morning:     cfg.Schedule.Morning,
			Evening:     cfg.Schedule.Evening,
			CatchUp:     cfg.Schedule.CatchUp,
			GroupChatID: cfg.Notify.GroupChatID,
			RunTimeout:  cfg.Schedule.RunTimeout,
		},
	)
	if err != nil {
		zapLogger.Fatal("invalid schedule", zap.Error(err))
	}
	scheduler.Start(appCtx)
	manager.Register("scheduler", scheduler.Stop)

	mon := monitor.New(backend, cfg.Ledger.Driver, redisHealth, 10*time.Second, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Health: apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
		Chat:   apiHandler.NewChatHandler(chatUseCase, identityUseCase, ctxAdapter, zapLogger),
		Task:   apiHandler.NewTaskHandler(taskUseCase, identityUseCase, ctxAdapter, zapLogger),
		Report: apiHandler.NewReportHandler(statsUseCase, taskUseCase, ctxAdapter, zapLogger),
		Admin:  apiHandler.NewAdminHandler(materializeUseCase, rolloverUseCase, identityUseCase, taskUseCase, ctxAdapter, zapLogger),
	}

	if cfg.JWT.Secret == "" {
		zapLogger.Warn("JWT_SECRET is empty, API tokens cannot be verified")
	}
	authMiddleware := middleware.JWTAuth(cfg.JWT.Secret, cfg.JWT.Issuer, zapLogger)
	adminMiddleware := middleware.RequireAdmin(identityUseCase, zapLogger)
	r := router.New(handlers, authMiddleware, adminMiddleware)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Concurrency:  cfg.HTTP.MaxConn,
		Name:         cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}

// openLedger opens the configured document backend and registers its cleanup.
func openLedger(ctx context.Context, cfg *config.Config, manager *lifecycle.Manager, zapLogger *zap.Logger) docstore.Backend {
	switch cfg.Ledger.Driver {
	case config.DriverPostgres:
		if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
			zapLogger.Fatal("migrations failed", zap.Error(err))
		}
		pool, err := pgInfra.NewPool(ctx, cfg.Database, zapLogger)
		if err != nil {
			zapLogger.Fatal("postgres connection failed", zap.Error(err))
		}
		manager.Register("postgres", func(context.Context) error {
			pgInfra.Close(pool, zapLogger)
			return nil
		})
		return docstore.NewPostgres(pool, cfg.Ledger.DocumentName)
	default:
		store, err := docstore.OpenBolt(cfg.Ledger.BoltPath, cfg.Ledger.Bucket)
		if err != nil {
			zapLogger.Fatal("failed to open ledger file", zap.String("path", cfg.Ledger.BoltPath), zap.Error(err))
		}
		manager.RegisterCloser("ledger", store)
		zapLogger.Info("ledger opened", zap.String("driver", config.DriverBolt), zap.String("path", cfg.Ledger.BoltPath))
		return store
	}
}
