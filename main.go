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

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"channelbox/internal/config"
	"channelbox/internal/handlers"
	"channelbox/internal/logging"
	"channelbox/internal/middleware"
	"channelbox/internal/observability"
	"channelbox/internal/rabbitmq"
	"channelbox/internal/telemetry"
	"channelbox/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.Environment)
	if err != nil {
		logger.Error("failed to set up tracing", "error", err)
		os.Exit(1)
	}

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	logger.Info("event publisher ready", "mode", rabbitmq.PublisherMode(publisher), "noop_reason", rabbitmq.PublisherNoopReason(publisher))
	observability.SetPublisher(publisher)
	audit := telemetry.NewAuditEmitter(publisher, cfg.AuditRouting, cfg.ServiceName, cfg.Environment)

	hub := ws.NewHub(
		ws.WithHistory(ws.NewHistory(cfg.HistorySize)),
		ws.WithLogger(logger),
	)
	sweeper, err := ws.NewSweeper(hub, cfg.SweepSchedule, logger)
	if err != nil {
		logger.Error("failed to schedule expiry sweep", "error", err)
		os.Exit(1)
	}
	sweeper.Start()

	groupHandler := handlers.NewGroupHandler(hub, audit)
	groupWS := ws.NewGroupWebSocketHandler(hub, cfg.Socket(), logger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// middlewares
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLog(logger))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/ws/groups/:group_name", groupWS.Handle)
	groupHandler.Register(router)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterDebugRoutes(router, audit, cfg.DebugRoutes)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", server.Addr, "history_size", cfg.HistorySize, "conn_ttl", cfg.ConnTTL)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", "error", err)
	}
	sweeper.Stop(shutdownCtx)
	if err := publisher.Close(); err != nil {
		logger.Warn("publisher close", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracing shutdown", "error", err)
	}
}
