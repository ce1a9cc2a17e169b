package database

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/nivelado/funnel-sync/internal/entity"
)

type FunnelEntryRepository struct {
	DB *sql.DB
}

func NewFunnelEntryRepository(db *sql.DB) *FunnelEntryRepository {
	return &FunnelEntryRepository{DB: db}
}

// InsertIfAbsent insere a entrada respeitando a constraint única de
// (email, funnel_type, test_id). Nada de SELECT antes do INSERT: a
// constraint do banco é a única fonte de verdade sobre duplicidade.
// Retorna false quando a chave já existia (não é erro).
func (r *FunnelEntryRepository) InsertIfAbsent(ctx context.Context, tx *sql.Tx, e *entity.FunnelEntry) (bool, error) {
	query := `
		INSERT INTO funnel_entries (id, email, funnel_type, user_id, test_id, entered_at, certificate_purchased)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE)
		ON CONFLICT (email, funnel_type, test_id) DO NOTHING
	`

	res, err := tx.ExecContext(ctx, query,
		e.ID,
		e.Email,
		e.FunnelType,
		e.UserID,
		e.TestID,
		e.EnteredAt,
	)

	if err != nil {
		// Rede de segurança: se a violação escapar do ON CONFLICT
		// (outra constraint, outra versão do índice), tratamos como duplicata
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return false, nil
		}

		log.Printf("Erro crítico no banco: %v", err)
		return false, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows == 1, nil
}

// MarkPurchased seta a flag de compra só se ainda estiver desmarcada.
// Segunda chamada vira no-op (retorna false), nunca erro.
func (r *FunnelEntryRepository) MarkPurchased(ctx context.Context, tx *sql.Tx, entryID string, purchasedAt time.Time) (bool, error) {
	query := `
		UPDATE funnel_entries
		SET certificate_purchased = TRUE,
		    certificate_purchased_at = $2
		WHERE id = $1
		  AND certificate_purchased = FALSE
	`

	res, err := tx.ExecContext(ctx, query, entryID, purchasedAt)
	if err != nil {
		return false, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows == 1, nil
}

// FindByKey busca pela chave natural. Retorna nil (sem erro) quando não
// existe: pro reconciliador isso é caminho esperado, não exceção.
func (r *FunnelEntryRepository) FindByKey(ctx context.Context, email, funnelType string, testID *int64) (*entity.FunnelEntry, error) {
	query := `
		SELECT id, email, funnel_type, user_id, test_id, entered_at,
		       certificate_purchased, certificate_purchased_at
		FROM funnel_entries
		WHERE email = $1
		  AND funnel_type = $2
		  AND test_id IS NOT DISTINCT FROM $3
	`

	var e entity.FunnelEntry
	err := r.DB.QueryRowContext(ctx, query, email, funnelType, testID).Scan(
		&e.ID,
		&e.Email,
		&e.FunnelType,
		&e.UserID,
		&e.TestID,
		&e.EnteredAt,
		&e.CertificatePurchased,
		&e.CertificatePurchasedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &e, nil
}

// ConversionSummary agrega entradas x compras por tipo de funil.
// from (inclusivo) e to (exclusivo) podem ser nil = tabela inteira.
func (r *FunnelEntryRepository) ConversionSummary(ctx context.Context, from, to *time.Time) ([]entity.FunnelConversion, error) {
	query := `
		SELECT funnel_type,
		       COUNT(*) AS total_entries,
		       COUNT(*) FILTER (WHERE certificate_purchased) AS total_purchased
		FROM funnel_entries
		WHERE ($1::timestamptz IS NULL OR entered_at >= $1)
		  AND ($2::timestamptz IS NULL OR entered_at < $2)
		GROUP BY funnel_type
		ORDER BY funnel_type
	`

	rows, err := r.DB.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var report []entity.FunnelConversion
	for rows.Next() {
		var c entity.FunnelConversion
		if err := rows.Scan(&c.FunnelType, &c.TotalEntries, &c.TotalPurchased); err != nil {
			return nil, err
		}
		report = append(report, c)
	}

	return report, rows.Err()
}
