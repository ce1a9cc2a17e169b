package database

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/nivelado/funnel-sync/internal/entity"
)

type OutboxRepository struct {
	DB *sql.DB
}

func NewOutboxRepository(db *sql.DB) *OutboxRepository {
	return &OutboxRepository{DB: db}
}

// Enqueue grava o job na mesma transação da escrita que ele reporta.
// Se a transação abortar, nem a entrada nem o job existem.
func (r *OutboxRepository) Enqueue(ctx context.Context, tx *sql.Tx, job *entity.OutboxJob) error {
	query := `
		INSERT INTO brevo_sync_outbox (
			id, funnel_entry_id, operation_type, payload,
			status, retry_count, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := tx.ExecContext(ctx, query,
		job.ID,
		job.FunnelEntryID,
		job.OperationType,
		[]byte(job.Payload),
		job.Status,
		job.RetryCount,
		job.CreatedAt,
		job.UpdatedAt,
	)

	return err
}

// ClaimDue seleciona jobs vencidos e já os marca como processing, num
// statement só. O FOR UPDATE SKIP LOCKED garante que dois processadores
// concorrentes nunca levam o mesmo job: quem chegou primeiro segura a
// linha, quem chegou depois pula.
func (r *OutboxRepository) ClaimDue(ctx context.Context, limit int, now time.Time) ([]entity.OutboxJob, error) {
	query := `
		UPDATE brevo_sync_outbox o
		SET status = 'processing',
		    updated_at = NOW()
		WHERE o.id IN (
			SELECT id
			FROM brevo_sync_outbox
			WHERE status = 'pending'
			  AND (next_attempt_at IS NULL OR next_attempt_at <= $2)
			ORDER BY next_attempt_at ASC NULLS FIRST, id ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING o.id, o.funnel_entry_id, o.operation_type, o.payload,
		          o.status, o.retry_count, o.last_error, o.next_attempt_at,
		          o.created_at, o.updated_at
	`

	rows, err := r.DB.QueryContext(ctx, query, limit, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []entity.OutboxJob
	for rows.Next() {
		var j entity.OutboxJob
		var payload []byte

		err := rows.Scan(
			&j.ID,
			&j.FunnelEntryID,
			&j.OperationType,
			&payload,
			&j.Status,
			&j.RetryCount,
			&j.LastError,
			&j.NextAttemptAt,
			&j.CreatedAt,
			&j.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		j.Payload = payload
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// O RETURNING do UPDATE não promete ordem; reordenamos aqui
	// (next_attempt_at asc, nulls primeiro, id como desempate FIFO)
	sort.Slice(jobs, func(a, b int) bool {
		ja, jb := jobs[a], jobs[b]
		switch {
		case ja.NextAttemptAt == nil && jb.NextAttemptAt != nil:
			return true
		case ja.NextAttemptAt != nil && jb.NextAttemptAt == nil:
			return false
		case ja.NextAttemptAt != nil && jb.NextAttemptAt != nil && !ja.NextAttemptAt.Equal(*jb.NextAttemptAt):
			return ja.NextAttemptAt.Before(*jb.NextAttemptAt)
		default:
			return ja.ID < jb.ID
		}
	})

	return jobs, nil
}

// MarkDone: entrega confirmada, estado terminal
func (r *OutboxRepository) MarkDone(ctx context.Context, jobID string) error {
	query := `
		UPDATE brevo_sync_outbox
		SET status = 'done',
		    last_error = NULL,
		    next_attempt_at = NULL,
		    updated_at = NOW()
		WHERE id = $1
		  AND status = 'processing'
	`

	_, err := r.DB.ExecContext(ctx, query, jobID)
	return err
}

// MarkRetry devolve o job pra fila com o próximo horário de tentativa.
// O agendamento vive no banco, não em memória: sobrevive a restart.
func (r *OutboxRepository) MarkRetry(ctx context.Context, jobID, lastError string, nextAttemptAt time.Time) error {
	query := `
		UPDATE brevo_sync_outbox
		SET status = 'pending',
		    retry_count = retry_count + 1,
		    last_error = $2,
		    next_attempt_at = $3,
		    updated_at = NOW()
		WHERE id = $1
		  AND status = 'processing'
	`

	_, err := r.DB.ExecContext(ctx, query, jobID, lastError, nextAttemptAt)
	return err
}

// MarkFailed: quarentena. Terminal, ninguém tenta de novo —
// daqui pra frente é intervenção manual.
func (r *OutboxRepository) MarkFailed(ctx context.Context, jobID, lastError string) error {
	query := `
		UPDATE brevo_sync_outbox
		SET status = 'failed',
		    retry_count = retry_count + 1,
		    last_error = $2,
		    next_attempt_at = NULL,
		    updated_at = NOW()
		WHERE id = $1
		  AND status = 'processing'
	`

	_, err := r.DB.ExecContext(ctx, query, jobID, lastError)
	return err
}

// ReclaimStuck devolve pra fila jobs presos em processing há tempo
// demais (processo morreu entre o claim e o mark). Sem isso, um crash
// deixaria o job claimed pra sempre.
func (r *OutboxRepository) ReclaimStuck(ctx context.Context, olderThan time.Duration) (int64, error) {
	query := `
		UPDATE brevo_sync_outbox
		SET status = 'pending',
		    updated_at = NOW()
		WHERE status = 'processing'
		  AND updated_at < $1
	`

	res, err := r.DB.ExecContext(ctx, query, time.Now().Add(-olderThan))
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

// Stats conta jobs por status (pro endpoint de operação)
func (r *OutboxRepository) Stats(ctx context.Context) (map[string]int64, error) {
	query := `
		SELECT status, COUNT(*)
		FROM brevo_sync_outbox
		GROUP BY status
	`

	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make(map[string]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}

	return stats, rows.Err()
}
