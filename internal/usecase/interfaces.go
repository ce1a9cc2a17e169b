package usecase

import (
	"context"
	"time"

	"github.com/nivelado/funnel-sync/internal/entity"
	"github.com/nivelado/funnel-sync/internal/infra/queue"
)

// FunnelStoreInterface é a unidade de trabalho atômica sobre o Postgres:
// cada método ou commita entrada + job juntos, ou não commita nada.
type FunnelStoreInterface interface {
	CreateEntryWithJob(ctx context.Context, cand entity.FunnelCandidate, payload []byte) (*entity.FunnelEntry, bool, error)
	MarkPurchasedWithJob(ctx context.Context, entryID string, purchasedAt time.Time, payload []byte) (bool, error)
	FindEntryByKey(ctx context.Context, email, funnelType string, testID *int64) (*entity.FunnelEntry, error)
}

type OutboxStoreInterface interface {
	ClaimDue(ctx context.Context, limit int, now time.Time) ([]entity.OutboxJob, error)
	MarkDone(ctx context.Context, jobID string) error
	MarkRetry(ctx context.Context, jobID, lastError string, nextAttemptAt time.Time) error
	MarkFailed(ctx context.Context, jobID, lastError string) error
	ReclaimStuck(ctx context.Context, olderThan time.Duration) (int64, error)
}

// CandidateSource é a base de origem (fora do núcleo)
type CandidateSource interface {
	FetchFunnelCandidates(ctx context.Context, limitPerType int) ([]entity.FunnelCandidate, error)
	FetchPurchaseEvents(ctx context.Context, limit int) ([]entity.PurchaseEvent, error)
}

// ContactDeliverer é a capacidade de entrega externa (cliente Brevo)
type ContactDeliverer interface {
	Deliver(ctx context.Context, operationType string, payload []byte) (string, error)
}

type QueueProducerInterface interface {
	PublishSyncEvent(ctx context.Context, payload queue.SyncEventPayload) error
}

type ReportStoreInterface interface {
	ConversionSummary(ctx context.Context, from, to *time.Time) ([]entity.FunnelConversion, error)
}
