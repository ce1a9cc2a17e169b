package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rabbitmq/amqp091-go"

	"github.com/nivelado/funnel-sync/internal/infra/config"
	"github.com/nivelado/funnel-sync/internal/infra/database"
	"github.com/nivelado/funnel-sync/internal/infra/http/handlers"
	"github.com/nivelado/funnel-sync/internal/infra/http/middleware"
	"github.com/nivelado/funnel-sync/internal/infra/integration/brevo"
	"github.com/nivelado/funnel-sync/internal/infra/queue"
	"github.com/nivelado/funnel-sync/internal/infra/worker"
	"github.com/nivelado/funnel-sync/internal/usecase"
)

// Modo servidor: mantém a outbox drenando num ticker e expõe os
// endpoints de operação (health, métricas, relatório, stats da fila).
// O cron continua chamando cmd/sync pras etapas de tracking.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Configuração inválida: %v", err)
	}

	db, err := database.NewDBConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Falha ao conectar no banco: %v", err)
	}
	defer db.Close()

	// 1. Fila opcional
	var producer usecase.QueueProducerInterface
	var rabbitConn *amqp091.Connection
	if cfg.RabbitMQURL != "" {
		rabbit, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
		if err != nil {
			log.Printf("⚠️ RabbitMQ indisponível: %v", err)
		} else {
			defer rabbit.Close()
			rabbitConn = rabbit.Conn
			producer = queue.NewProducer(rabbit.Conn, rabbit.Ch)
		}
	}

	// 2. Stores e cliente Brevo
	store := database.NewSyncStore(db)
	brevoClient := brevo.NewClient(cfg.BrevoAPIKey, cfg.BrevoBaseURL, cfg.BrevoDryRun)

	processor := usecase.NewOutboxProcessor(store.Outbox, brevoClient, producer)
	processor.BatchSize = cfg.OutboxBatchSize
	processor.MaxRetries = cfg.OutboxMaxRetries
	processor.BaseBackoff = cfg.OutboxBaseBackoff
	processor.BackoffCap = cfg.OutboxBackoffCap
	processor.StuckAfter = cfg.OutboxStuckAfter
	processor.DeliveryTimeout = cfg.DeliveryTimeout

	reporter := usecase.NewConversionReporter(store.Entries)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Worker de drenagem em background
	drainWorker := worker.NewOutboxDrainWorker(processor, cfg.DrainTick)
	go drainWorker.Start(ctx)

	// 4. Handlers
	healthHandler := handlers.NewHealthHandler(db, rabbitConn)
	reportHandler := handlers.NewReportHandler(reporter)
	outboxHandler := handlers.NewOutboxHandler(store.Outbox)

	// 5. Router
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
	}))
	r.Use(middleware.Metrics)

	r.Get("/health", healthHandler.Handle)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/report", reportHandler.HandleGet)
	r.Get("/outbox/stats", outboxHandler.HandleStats)

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("🔥 Funnel sync server rodando na porta :%s", cfg.ServerPort)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
