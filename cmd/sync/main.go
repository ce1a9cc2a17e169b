package main

import (
	"context"
	"log"

	"github.com/nivelado/funnel-sync/internal/infra/config"
	"github.com/nivelado/funnel-sync/internal/infra/database"
	"github.com/nivelado/funnel-sync/internal/infra/http/middleware"
	"github.com/nivelado/funnel-sync/internal/infra/integration/brevo"
	"github.com/nivelado/funnel-sync/internal/infra/mail"
	"github.com/nivelado/funnel-sync/internal/infra/queue"
	"github.com/nivelado/funnel-sync/internal/usecase"
)

// Job batch disparado pelo scheduler externo (cron). Cada run:
// tracker -> reconciler -> drain da outbox. Todas as etapas são
// idempotentes; runs sobrepostos se resolvem no banco.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Configuração inválida: %v", err)
	}

	log.Printf("🚀 Funnel sync iniciando (dry_run=%v)", cfg.BrevoDryRun)

	db, err := database.NewDBConnection(cfg.DatabaseURL)
	if err != nil {
		// Sem banco não existe run: aborta com exit code != 0
		log.Fatalf("❌ Falha ao conectar no banco: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	// 1. Fila de eventos (opcional — sem ela o sync funciona igual)
	var producer usecase.QueueProducerInterface
	if cfg.RabbitMQURL != "" {
		rabbit, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
		if err != nil {
			log.Printf("⚠️ RabbitMQ indisponível, seguindo sem espelho de eventos: %v", err)
		} else {
			defer rabbit.Close()
			producer = queue.NewProducer(rabbit.Conn, rabbit.Ch)
		}
	}

	// 2. Stores e colaboradores
	store := database.NewSyncStore(db)
	candidates := database.NewCandidateRepository(db, cfg.CandidateLookbackDays)
	brevoClient := brevo.NewClient(cfg.BrevoAPIKey, cfg.BrevoBaseURL, cfg.BrevoDryRun)

	// 3. UseCases
	tracker := usecase.NewFunnelTracker(store, candidates, producer, cfg.ListIDs(), cfg.SyncBatchSize)
	reconciler := usecase.NewPurchaseReconciler(store, candidates, producer, cfg.SyncBatchSize)

	processor := usecase.NewOutboxProcessor(store.Outbox, brevoClient, producer)
	processor.BatchSize = cfg.OutboxBatchSize
	processor.MaxRetries = cfg.OutboxMaxRetries
	processor.BaseBackoff = cfg.OutboxBaseBackoff
	processor.BackoffCap = cfg.OutboxBackoffCap
	processor.StuckAfter = cfg.OutboxStuckAfter
	processor.DeliveryTimeout = cfg.DeliveryTimeout

	// 4. Etapa 1: novas entradas no funil
	trackSummary, err := tracker.Sync(ctx)
	if err != nil {
		log.Fatalf("❌ Tracker abortou o run: %v", err)
	}
	middleware.RecordEntries(trackSummary.Inserted, trackSummary.Skipped, trackSummary.Failed)

	// 5. Etapa 2: reconciliação de compras
	reconcileSummary, err := reconciler.Sync(ctx)
	if err != nil {
		log.Fatalf("❌ Reconciler abortou o run: %v", err)
	}
	middleware.RecordPurchases(reconcileSummary.Updated)

	// 6. Etapa 3: drena a outbox
	drainSummary, err := processor.Drain(ctx)
	if err != nil {
		log.Fatalf("❌ Drain abortou o run: %v", err)
	}
	middleware.RecordOutbox(drainSummary.Delivered, drainSummary.Retried, drainSummary.Quarantined, drainSummary.Reclaimed)

	// 7. Alerta de quarentena (opcional)
	if drainSummary.Quarantined > 0 && cfg.MailConfigured() {
		sender := mail.NewEmailSender(cfg.MailHost, cfg.MailPort, cfg.MailUser, cfg.MailPass, cfg.AlertFrom, cfg.AlertTo)
		if err := sender.SendQuarantineAlert(drainSummary.Quarantined, drainSummary.QuarantineErrors); err != nil {
			log.Printf("⚠️ Alerta de quarentena não enviado: %v", err)
		}
	}

	log.Printf("✅ Run concluído: inserted=%d skipped=%d failed=%d | updated=%d skipped=%d | delivered=%d retried=%d quarantined=%d reclaimed=%d",
		trackSummary.Inserted, trackSummary.Skipped, trackSummary.Failed,
		reconcileSummary.Updated, reconcileSummary.Skipped,
		drainSummary.Delivered, drainSummary.Retried, drainSummary.Quarantined, drainSummary.Reclaimed)
}
