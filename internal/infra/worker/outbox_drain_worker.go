package worker

import (
	"context"
	"log"
	"time"

	"github.com/nivelado/funnel-sync/internal/usecase"
)

// OutboxDrainWorker roda o Drain num ticker enquanto o modo servidor
// está de pé. No modo batch (cmd/sync) o Drain roda uma vez e pronto.
type OutboxDrainWorker struct {
	processor    *usecase.OutboxProcessor
	tickInterval time.Duration
}

func NewOutboxDrainWorker(processor *usecase.OutboxProcessor, tickInterval time.Duration) *OutboxDrainWorker {
	if tickInterval <= 0 {
		tickInterval = time.Minute
	}
	return &OutboxDrainWorker{
		processor:    processor,
		tickInterval: tickInterval,
	}
}

func (w *OutboxDrainWorker) Start(ctx context.Context) {
	log.Printf("🕒 Outbox Drain Worker iniciado (tick=%s)", w.tickInterval)

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	w.drain(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("⚠️ Outbox Drain Worker encerrado")
			return
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

func (w *OutboxDrainWorker) drain(ctx context.Context) {
	summary, err := w.processor.Drain(ctx)
	if err != nil {
		log.Printf("❌ Drain falhou: %v", err)
		return
	}

	if summary.Claimed > 0 || summary.Reclaimed > 0 {
		log.Printf("✅ Drain: claimed=%d delivered=%d retried=%d quarantined=%d reclaimed=%d",
			summary.Claimed, summary.Delivered, summary.Retried, summary.Quarantined, summary.Reclaimed)
	}
}
