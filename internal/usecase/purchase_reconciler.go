package usecase

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/nivelado/funnel-sync/internal/entity"
	"github.com/nivelado/funnel-sync/internal/infra/integration/brevo"
	"github.com/nivelado/funnel-sync/internal/infra/queue"
)

type PurchaseReconciler struct {
	Store     FunnelStoreInterface
	Source    CandidateSource
	Events    QueueProducerInterface // pode ser nil
	BatchSize int
}

func NewPurchaseReconciler(
	store FunnelStoreInterface,
	source CandidateSource,
	events QueueProducerInterface,
	batchSize int,
) *PurchaseReconciler {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &PurchaseReconciler{
		Store:     store,
		Source:    source,
		Events:    events,
		BatchSize: batchSize,
	}
}

func (r *PurchaseReconciler) Sync(ctx context.Context) (ReconcileSummary, error) {
	events, err := r.Source.FetchPurchaseEvents(ctx, r.BatchSize)
	if err != nil {
		return ReconcileSummary{}, &TechnicalError{
			Code:    "STORAGE_UNAVAILABLE",
			Message: "falha ao buscar eventos de compra: " + err.Error(),
		}
	}

	log.Printf("📥 [RECONCILER] %d evento(s) de compra detectados", len(events))

	return r.ReconcilePurchases(ctx, events), nil
}

// ReconcilePurchases marca a compra na entrada e enfileira o job de
// update na mesma transação. Entrada inexistente e compra já marcada
// são caminhos esperados (skipped), nunca erro.
func (r *PurchaseReconciler) ReconcilePurchases(ctx context.Context, events []entity.PurchaseEvent) ReconcileSummary {
	var summary ReconcileSummary

	for _, event := range events {
		entry, err := r.Store.FindEntryByKey(ctx, event.Email, event.FunnelType, event.TestID)
		if err != nil {
			log.Printf("❌ [RECONCILER] Falha ao buscar entrada (email=%s): %v", event.Email, err)
			summary.Failed++
			continue
		}

		if entry == nil {
			// Compra de alguém que nunca entrou nesse funil: normal
			log.Printf("ℹ️ [RECONCILER] Compra sem entrada no funil, pulando (email=%s, funnel_type=%s)", event.Email, event.FunnelType)
			summary.Skipped++
			continue
		}

		if entry.CertificatePurchased {
			summary.Skipped++
			continue
		}

		payload, err := json.Marshal(brevo.Contact{
			Email:         event.Email,
			UpdateEnabled: true,
			Attributes: map[string]any{
				brevo.AttrFunnelType:             event.FunnelType,
				brevo.AttrCertificatePurchased:   1,
				brevo.AttrCertificatePurchasedAt: event.PurchasedAt.Format(time.RFC3339),
			},
		})
		if err != nil {
			summary.Failed++
			continue
		}

		updated, err := r.Store.MarkPurchasedWithJob(ctx, entry.ID, event.PurchasedAt, payload)
		if err != nil {
			log.Printf("❌ [RECONCILER] Falha ao marcar compra (email=%s, order=%d): %v", event.Email, event.OrderID, err)
			summary.Failed++
			continue
		}

		if !updated {
			// Outro run marcou primeiro; o flag nunca volta atrás
			summary.Skipped++
			continue
		}

		log.Printf("✅ [RECONCILER] Compra registrada + job enfileirado (email=%s, order=%d)", event.Email, event.OrderID)
		summary.Updated++

		r.publishPurchaseRecorded(ctx, entry, event)
	}

	return summary
}

func (r *PurchaseReconciler) publishPurchaseRecorded(ctx context.Context, entry *entity.FunnelEntry, event entity.PurchaseEvent) {
	if r.Events == nil {
		return
	}

	err := r.Events.PublishSyncEvent(ctx, queue.SyncEventPayload{
		Event:         queue.EventPurchaseRecorded,
		Email:         event.Email,
		FunnelType:    event.FunnelType,
		FunnelEntryID: entry.ID,
		OccurredAt:    time.Now(),
	})
	if err != nil {
		log.Printf("⚠️ [RECONCILER] Evento não publicado: %v", err)
	}
}
