package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fastygo/taskdesk/api/bot"
	apiHandler "github.com/fastygo/taskdesk/api/handler"
	"github.com/fastygo/taskdesk/internal/config"
	"github.com/fastygo/taskdesk/internal/gateway/telegram"
	"github.com/fastygo/taskdesk/internal/infrastructure/kvstore"
	"github.com/fastygo/taskdesk/internal/infrastructure/monitor"
	redisInfra "github.com/fastygo/taskdesk/internal/infrastructure/redis"
	"github.com/fastygo/taskdesk/internal/middleware"
	"github.com/fastygo/taskdesk/internal/router"
	"github.com/fastygo/taskdesk/internal/services"
	"github.com/fastygo/taskdesk/internal/services/lifecycle"
	"github.com/fastygo/taskdesk/pkg/httpcontext"
	"github.com/fastygo/taskdesk/repository"
	"github.com/fastygo/taskdesk/repository/memory"
	redisRepo "github.com/fastygo/taskdesk/repository/redis"
	authUC "github.com/fastygo/taskdesk/usecase/auth"
	"github.com/fastygo/taskdesk/usecase/conversation"
	"github.com/fastygo/taskdesk/usecase/notify"
	reportUC "github.com/fastygo/taskdesk/usecase/report"
	taskUC "github.com/fastygo/taskdesk/usecase/task"
	userUC "github.com/fastygo/taskdesk/usecase/user"
)

const (
	markerBucket  = "markers"
	updateTimeout = time.Minute
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot, the report loop and the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	log := zapLogger

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, log)
	appCtx, stop := manager.Listen(parent)
	defer stop()

	mon := monitor.New(10*time.Second, log)

	store, err := openStore(appCtx, cfg, log)
	if err != nil {
		return err
	}
	manager.RegisterCloser("store", store.Close)
	mon.Require("store", store.Ping)

	dialogues, err := conversationStore(appCtx, manager, mon)
	if err != nil {
		_ = manager.Shutdown(context.Background())
		return err
	}

	markers, err := kvstore.Open(cfg.State.Path, markerBucket)
	if err != nil {
		_ = manager.Shutdown(context.Background())
		return fmt.Errorf("failed to open state store: %w", err)
	}
	manager.RegisterCloser("state", markers.Close)
	mon.Require("state", func(context.Context) error { return markers.Ping() })

	client, err := newBotClient(cfg, log)
	if err != nil {
		_ = manager.Shutdown(context.Background())
		return err
	}

	dispatcher := notify.NewDispatcher(client, cfg.Bot.AdminID, log)
	taskUseCase := taskUC.New(store, dispatcher, log)
	engine := conversation.New(dialogues, store.Users, taskUseCase, log)
	userUseCase := userUC.New(store, dispatcher, engine, cfg.Departments, log)
	reportUseCase := reportUC.New(store.Tasks, dispatcher, log)
	authUseCase := authUC.New(store.Users, authUC.Config{
		Secret:  cfg.JWT.Secret,
		Issuer:  cfg.JWT.Issuer,
		TTL:     cfg.JWT.TTL,
		AdminID: cfg.Bot.AdminID,
	}, log)

	botRouter := bot.New(taskUseCase, userUseCase, engine, client, log.Named("bot"))

	if cfg.Report.Enabled {
		loc, _ := cfg.Location()
		scheduler, err := services.NewReportScheduler(reportUseCase, markers, log, services.SchedulerConfig{
			At:       cfg.Report.At,
			Interval: cfg.Report.PollInterval,
			Location: loc,
		})
		if err != nil {
			_ = manager.Shutdown(context.Background())
			return err
		}
		scheduler.Start()
		manager.Register("report_scheduler", func(ctx context.Context) error {
			scheduler.Stop(ctx)
			return nil
		})
	}

	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)
	handlers := router.Handlers{
		Health: apiHandler.NewHealthHandler(mon, ctxAdapter, log),
		Task:   apiHandler.NewTaskHandler(taskUseCase, ctxAdapter, log),
		Report: apiHandler.NewReportHandler(reportUseCase, ctxAdapter, log),
	}
	if cfg.Bot.Mode == config.ModeWebhook {
		handlers.Webhook = apiHandler.NewWebhookHandler(botRouter, cfg.Bot.WebhookSecret, ctxAdapter, log)
	}
	r := router.New(handlers, middleware.JWTAuth(authUseCase, log))

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Concurrency:  cfg.HTTP.MaxConn,
		Name:         cfg.AppName,
	}
	manager.Register("http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	g, gctx := errgroup.WithContext(appCtx)
	g.Go(func() error {
		log.Info("server started", zap.String("address", cfg.Address()))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	pollerDone := make(chan struct{})
	if err := startUpdates(gctx, g, client, botRouter, pollerDone); err != nil {
		stop()
		_ = manager.Shutdown(context.Background())
		return err
	}

	g.Go(func() error {
		<-gctx.Done()
		<-pollerDone
		if err := manager.Shutdown(context.Background()); err != nil {
			log.Error("graceful shutdown error", zap.Error(err))
		}
		return nil
	})

	log.Info("taskdesk running",
		zap.String("mode", cfg.Bot.Mode),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("conversations", cfg.Conversation.Backend),
		zap.Strings("components", manager.Components()),
	)

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// conversationStore picks the dialogue backend. Redis lets several replicas share dialogues.
func conversationStore(ctx context.Context, manager *lifecycle.Manager, mon *monitor.Monitor) (repository.ConversationRepository, error) {
	if cfg.Conversation.Backend != config.BackendRedis {
		return memory.NewConversationRepository(), nil
	}
	client, err := redisInfra.NewClient(ctx, cfg.Redis, zapLogger)
	if err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	manager.RegisterCloser("redis", client.Close)
	mon.Require("redis", func(ctx context.Context) error { return client.Ping(ctx).Err() })
	return redisRepo.NewConversationRepository(client, cfg.Conversation.KeyPrefix, cfg.Conversation.TTL), nil
}

// startUpdates registers the webhook or starts long polling. pollerDone is
// closed once no update handler can run anymore.
func startUpdates(ctx context.Context, g *errgroup.Group, client *telegram.Client, handler telegram.Handler, pollerDone chan struct{}) error {
	if cfg.Bot.Mode == config.ModeWebhook {
		close(pollerDone)
		if err := client.SetWebhook(ctx, cfg.Bot.WebhookURL, cfg.Bot.WebhookSecret); err != nil {
			return fmt.Errorf("set webhook: %w", err)
		}
		zapLogger.Info("webhook registered", zap.String("url", cfg.Bot.WebhookURL))
		return nil
	}

	if err := client.DeleteWebhook(ctx); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	poller := telegram.NewPoller(client, handler, telegram.PollerConfig{
		Wait:           cfg.Bot.PollTimeout,
		HandlerTimeout: updateTimeout,
	}, zapLogger.Named("poller"))
	g.Go(func() error {
		defer close(pollerDone)
		return poller.Run(ctx)
	})
	return nil
}
