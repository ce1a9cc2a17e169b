package usecase

import (
	"context"
	"log"
	"math/rand"
	"time"

	"github.com/nivelado/funnel-sync/internal/entity"
	"github.com/nivelado/funnel-sync/internal/infra/integration/brevo"
	"github.com/nivelado/funnel-sync/internal/infra/queue"
)

// OutboxProcessor drena a fila durável: claim -> deliver -> done/retry/failed.
// Todo o estado de retry (retry_count, next_attempt_at) mora no banco;
// o processor não guarda nada entre runs.
type OutboxProcessor struct {
	Outbox    OutboxStoreInterface
	Deliverer ContactDeliverer
	Events    QueueProducerInterface // pode ser nil

	BatchSize       int
	MaxRetries      int
	BaseBackoff     time.Duration
	BackoffCap      time.Duration
	StuckAfter      time.Duration
	DeliveryTimeout time.Duration
}

func NewOutboxProcessor(outbox OutboxStoreInterface, deliverer ContactDeliverer, events QueueProducerInterface) *OutboxProcessor {
	return &OutboxProcessor{
		Outbox:    outbox,
		Deliverer: deliverer,
		Events:    events,

		BatchSize:       50,
		MaxRetries:      5,
		BaseBackoff:     time.Minute,
		BackoffCap:      time.Hour,
		StuckAfter:      15 * time.Minute,
		DeliveryTimeout: 10 * time.Second,
	}
}

// Drain processa lotes até a fila secar. Erro de um job nunca derruba o
// lote; só erro de infraestrutura (claim falhou) aborta.
func (p *OutboxProcessor) Drain(ctx context.Context) (DrainSummary, error) {
	var summary DrainSummary

	// Jobs presos em processing (crash entre claim e mark) voltam pra fila
	reclaimed, err := p.Outbox.ReclaimStuck(ctx, p.StuckAfter)
	if err != nil {
		return summary, &TechnicalError{
			Code:    "STORAGE_UNAVAILABLE",
			Message: "falha ao recuperar jobs presos: " + err.Error(),
		}
	}
	summary.Reclaimed = int(reclaimed)
	if reclaimed > 0 {
		log.Printf("♻️ [OUTBOX] %d job(s) presos em processing devolvidos pra fila", reclaimed)
	}

	for {
		jobs, err := p.Outbox.ClaimDue(ctx, p.BatchSize, time.Now())
		if err != nil {
			return summary, &TechnicalError{
				Code:    "STORAGE_UNAVAILABLE",
				Message: "falha no claim da outbox: " + err.Error(),
			}
		}

		if len(jobs) == 0 {
			return summary, nil
		}

		summary.Claimed += len(jobs)

		for _, job := range jobs {
			p.processJob(ctx, job, &summary)
		}
	}
}

func (p *OutboxProcessor) processJob(ctx context.Context, job entity.OutboxJob, summary *DrainSummary) {
	deliveryCtx, cancel := context.WithTimeout(ctx, p.DeliveryTimeout)
	defer cancel()

	externalID, err := p.Deliverer.Deliver(deliveryCtx, job.OperationType, job.Payload)

	if err == nil {
		if markErr := p.Outbox.MarkDone(ctx, job.ID); markErr != nil {
			// Entregou mas não marcou: o reclaim vai reentregar depois.
			// Por isso a entrega é at-least-once, nunca exactly-once.
			log.Printf("⚠️ [OUTBOX] Entregue mas não marcado como done (job=%s): %v", job.ID, markErr)
			return
		}

		log.Printf("✅ [OUTBOX] Job entregue (id=%s, op=%s, brevo_id=%s)", job.ID, job.OperationType, externalID)
		summary.Delivered++
		p.publishOutcome(ctx, job, queue.EventContactSynced)
		return
	}

	if brevo.IsPermanent(err) {
		// Payload podre não melhora com retry: quarentena direto
		log.Printf("❌ [OUTBOX] Erro permanente, job em quarentena (id=%s): %v", job.ID, err)
		if markErr := p.Outbox.MarkFailed(ctx, job.ID, err.Error()); markErr != nil {
			log.Printf("⚠️ [OUTBOX] Falha ao marcar failed (job=%s): %v", job.ID, markErr)
			return
		}
		summary.Quarantined++
		summary.recordQuarantineError(job.ID, err)
		p.publishOutcome(ctx, job, queue.EventJobQuarantined)
		return
	}

	// Transitório: rede, timeout, 5xx
	attempt := job.RetryCount + 1
	if attempt >= p.MaxRetries {
		log.Printf("❌ [OUTBOX] Retries esgotados (%d/%d), job em quarentena (id=%s): %v", attempt, p.MaxRetries, job.ID, err)
		if markErr := p.Outbox.MarkFailed(ctx, job.ID, err.Error()); markErr != nil {
			log.Printf("⚠️ [OUTBOX] Falha ao marcar failed (job=%s): %v", job.ID, markErr)
			return
		}
		summary.Quarantined++
		summary.recordQuarantineError(job.ID, err)
		p.publishOutcome(ctx, job, queue.EventJobQuarantined)
		return
	}

	delay := backoffDelay(job.RetryCount, p.BaseBackoff, p.BackoffCap)
	nextAttempt := time.Now().Add(delay)

	log.Printf("🔁 [OUTBOX] Erro transitório, retry %d/%d em %s (id=%s): %v", attempt, p.MaxRetries, delay.Round(time.Second), job.ID, err)

	if markErr := p.Outbox.MarkRetry(ctx, job.ID, err.Error(), nextAttempt); markErr != nil {
		log.Printf("⚠️ [OUTBOX] Falha ao agendar retry (job=%s): %v", job.ID, markErr)
		return
	}
	summary.Retried++
}

func (p *OutboxProcessor) publishOutcome(ctx context.Context, job entity.OutboxJob, event string) {
	if p.Events == nil {
		return
	}

	err := p.Events.PublishSyncEvent(ctx, queue.SyncEventPayload{
		Event:         event,
		FunnelEntryID: job.FunnelEntryID,
		JobID:         job.ID,
		OperationType: job.OperationType,
		OccurredAt:    time.Now(),
	})
	if err != nil {
		log.Printf("⚠️ [OUTBOX] Evento não publicado: %v", err)
	}
}

// rawBackoffDelay: min(base * 2^retryCount, max), sem jitter.
// retryCount é o valor ANTES do incremento: primeira falha espera base,
// segunda 2x, terceira 4x... até o teto.
func rawBackoffDelay(retryCount int, base, max time.Duration) time.Duration {
	if base <= 0 {
		base = time.Minute
	}
	if max < base {
		max = base
	}

	delay := base
	for i := 0; i < retryCount; i++ {
		delay *= 2
		if delay >= max || delay <= 0 { // <= 0 cobre overflow
			return max
		}
	}

	return delay
}

// backoffDelay aplica jitter no intervalo [delay/2, delay] pra espalhar
// os retries quando vários jobs falham juntos (Brevo fora do ar)
func backoffDelay(retryCount int, base, max time.Duration) time.Duration {
	delay := rawBackoffDelay(retryCount, base, max)
	half := delay / 2
	if half <= 0 {
		return delay
	}
	return half + time.Duration(rand.Int63n(int64(half)+1))
}
