package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nivelado/funnel-sync/internal/entity"
)

// SyncStore amarra entrada + job numa transação só. É o ponto onde o
// padrão outbox acontece de verdade: ou commitam juntos, ou nenhum existe.
type SyncStore struct {
	DB      *sql.DB
	Entries *FunnelEntryRepository
	Outbox  *OutboxRepository
}

func NewSyncStore(db *sql.DB) *SyncStore {
	return &SyncStore{
		DB:      db,
		Entries: NewFunnelEntryRepository(db),
		Outbox:  NewOutboxRepository(db),
	}
}

// CreateEntryWithJob insere a entrada (se ausente) e enfileira o job de
// criação de contato na mesma transação. Retorna (nil, false, nil)
// quando a chave natural já existia.
func (s *SyncStore) CreateEntryWithJob(ctx context.Context, cand entity.FunnelCandidate, payload []byte) (*entity.FunnelEntry, bool, error) {
	entry, err := entity.NewFunnelEntry(cand)
	if err != nil {
		return nil, false, err
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("falha ao abrir transação: %w", err)
	}
	defer tx.Rollback()

	inserted, err := s.Entries.InsertIfAbsent(ctx, tx, entry)
	if err != nil {
		return nil, false, err
	}

	if !inserted {
		// Duplicata é caminho normal em re-runs; não enfileira nada
		return nil, false, nil
	}

	job := entity.NewOutboxJob(entry.ID, entity.OperationUpsertContact, payload)
	if err := s.Outbox.Enqueue(ctx, tx, job); err != nil {
		return nil, false, err
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("falha no commit: %w", err)
	}

	return entry, true, nil
}

// MarkPurchasedWithJob marca a compra e enfileira o job de update na
// mesma transação. Retorna false quando a entrada já estava marcada
// (reconciliação idempotente).
func (s *SyncStore) MarkPurchasedWithJob(ctx context.Context, entryID string, purchasedAt time.Time, payload []byte) (bool, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("falha ao abrir transação: %w", err)
	}
	defer tx.Rollback()

	updated, err := s.Entries.MarkPurchased(ctx, tx, entryID, purchasedAt)
	if err != nil {
		return false, err
	}

	if !updated {
		return false, nil
	}

	job := entity.NewOutboxJob(entryID, entity.OperationUpdateAfterPurchase, payload)
	if err := s.Outbox.Enqueue(ctx, tx, job); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("falha no commit: %w", err)
	}

	return true, nil
}

// FindEntryByKey é leitura pura, fora de transação
func (s *SyncStore) FindEntryByKey(ctx context.Context, email, funnelType string, testID *int64) (*entity.FunnelEntry, error) {
	return s.Entries.FindByKey(ctx, email, funnelType, testID)
}
