package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/dialog-console/internal/api/http"
	"github.com/spec-kit/dialog-console/internal/api/http/handlers"
	"github.com/spec-kit/dialog-console/internal/bulk"
	"github.com/spec-kit/dialog-console/internal/config"
	"github.com/spec-kit/dialog-console/internal/domain"
	"github.com/spec-kit/dialog-console/internal/events"
	"github.com/spec-kit/dialog-console/internal/ledger"
	"github.com/spec-kit/dialog-console/internal/observability"
	"github.com/spec-kit/dialog-console/internal/session"
	"github.com/spec-kit/dialog-console/internal/sla"
	dialogsync "github.com/spec-kit/dialog-console/internal/sync"
	"github.com/spec-kit/dialog-console/internal/telemetry"
	"github.com/spec-kit/dialog-console/internal/upstream"
	"github.com/spec-kit/dialog-console/internal/view"
	"github.com/spec-kit/dialog-console/internal/workspace"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := ledger.NewRedisStore(cfg.Redis, logger)
	localLedger := ledger.New(store, cfg.Redis.Namespace, logger)

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	classifier := sla.NewClassifier(cfg.Sla.TargetMinutes, cfg.Sla.WarningMinutes, cfg.Sla.CriticalMinutes)
	pipeline := view.NewPipeline(classifier)

	controller := session.NewController(session.Dependencies{
		Pipeline:   pipeline,
		Ledger:     localLedger,
		Dispatcher: dispatcher,
		Logger:     logger,
		PageSize:   localLedger.PageSize(ctx, cfg.Queue.PageSize),
	})

	client := upstream.New(cfg.Upstream)

	emitter := telemetry.NewEmitter(cfg.Telemetry, func() string {
		return localLedger.Cohort(context.Background())
	}, logger)
	defer emitter.Close()

	coordinator := bulk.NewCoordinator(bulk.Dependencies{
		Controller:    controller,
		Actions:       client,
		Ledger:        localLedger,
		Dispatcher:    dispatcher,
		Metrics:       metrics,
		Logger:        logger,
		SnoozeMinutes: cfg.Queue.DefaultSnoozeMinutes,
		OperatorLabel: cfg.Queue.OperatorLabel,
	})

	loader := workspace.NewLoader(workspace.Dependencies{
		Source:           client,
		Session:          controller,
		Telemetry:        emitter,
		Dispatcher:       dispatcher,
		Metrics:          metrics,
		Logger:           logger,
		LatencyObjective: cfg.Telemetry.LatencyObjective(),
	})

	synchronizer := dialogsync.NewSynchronizer(client, controller, cfg.Sync.ListPollInterval(), metrics, logger)
	go synchronizer.Run(ctx)

	detailPoller := dialogsync.NewDetailPoller(client, controller, func(ctx context.Context, detail *upstream.TicketDetail) {
		refreshed := detail.Dialog.Ticket()
		controller.Patch(ctx, refreshed.ID, func(t *domain.Ticket) {
			t.Status = refreshed.Status
			t.UnreadCount = refreshed.UnreadCount
			t.LastMessageAt = refreshed.LastMessageAt
			t.Responsible = refreshed.Responsible
		})
	}, cfg.Sync.DetailPollInterval(), logger)
	go detailPoller.Run(ctx)

	go controller.RunSlaTicker(ctx, cfg.Sync.SlaTickInterval())

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, store)
	queueHandler := handlers.NewQueueHandler(controller, coordinator)
	dialogsHandler := handlers.NewDialogsHandler(loader, coordinator, controller, client, localLedger)
	prefsHandler := handlers.NewPrefsHandler(localLedger, controller, cfg.Queue.PageSize)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:  healthHandler,
		Queue:   queueHandler,
		Dialogs: dialogsHandler,
		Prefs:   prefsHandler,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	cancel()

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
