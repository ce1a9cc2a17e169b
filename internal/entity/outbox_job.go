package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status do job na outbox. Máquina de estados:
// pending -> processing -> done | pending (retry) | failed
// done e failed são terminais.
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusDone       = "done"
	JobStatusFailed     = "failed"
)

// Operações que o worker sabe entregar para a Brevo
const (
	OperationUpsertContact       = "upsert_contact"
	OperationUpdateAfterPurchase = "update_after_purchase"
)

// Entidade: OutboxJob
// O payload é um snapshot tirado na hora do enqueue. Nunca relemos a
// FunnelEntry na hora de entregar, senão entregaríamos um valor que
// mudou depois do commit.
type OutboxJob struct {
	ID            string          `json:"id"`
	FunnelEntryID string          `json:"funnel_entry_id"`
	OperationType string          `json:"operation_type"`
	Payload       json.RawMessage `json:"payload"`
	Status        string          `json:"status"`
	RetryCount    int             `json:"retry_count"`
	LastError     *string         `json:"last_error,omitempty"`
	NextAttemptAt *time.Time      `json:"next_attempt_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Factory
func NewOutboxJob(funnelEntryID, operationType string, payload []byte) *OutboxJob {
	now := time.Now()
	return &OutboxJob{
		ID:            uuid.New().String(),
		FunnelEntryID: funnelEntryID,
		OperationType: operationType,
		Payload:       payload,
		Status:        JobStatusPending,
		RetryCount:    0,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (j *OutboxJob) IsTerminal() bool {
	return j.Status == JobStatusDone || j.Status == JobStatusFailed
}
