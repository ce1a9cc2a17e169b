package database

import (
	"context"
	"database/sql"

	"github.com/nivelado/funnel-sync/internal/entity"
)

// CandidateRepository consulta a base de origem (simpletest + pedidos).
// É o colaborador externo do núcleo: os usecases só conhecem a interface.
type CandidateRepository struct {
	DB           *sql.DB
	LookbackDays int
}

func NewCandidateRepository(db *sql.DB, lookbackDays int) *CandidateRepository {
	if lookbackDays <= 0 {
		lookbackDays = 30
	}
	return &CandidateRepository{DB: db, LookbackDays: lookbackDays}
}

// FetchFunnelCandidates junta candidatos de todos os funis configurados
func (r *CandidateRepository) FetchFunnelCandidates(ctx context.Context, limitPerType int) ([]entity.FunnelCandidate, error) {
	language, err := r.languageTestCandidates(ctx, limitPerType)
	if err != nil {
		return nil, err
	}

	nonLanguage, err := r.nonLanguageTestCandidates(ctx, limitPerType)
	if err != nil {
		return nil, err
	}

	return append(language, nonLanguage...), nil
}

// languageTestCandidates: usuários que completaram teste de idioma nos
// últimos N dias e ainda não têm entrada no funil. O anti-join com
// funnel_entries é só pra não varrer candidato à toa — a garantia de
// unicidade continua sendo a constraint na hora do insert.
func (r *CandidateRepository) languageTestCandidates(ctx context.Context, limit int) ([]entity.FunnelCandidate, error) {
	query := `
		SELECT
			u.id AS user_id,
			u.email AS email,
			u.test_id AS test_id,
			u.datep AS test_completed_at
		FROM simpletest_users AS u
		INNER JOIN simpletest_test AS t
			ON t.id = u.test_id
		INNER JOIN simpletest_lang AS l
			ON l.id = t.lang_id
		LEFT JOIN funnel_entries AS f
			ON f.email = u.email
		   AND f.funnel_type = $1
		WHERE
			u.email IS NOT NULL
			AND u.email <> ''
			AND u.datep >= NOW() - make_interval(days => $2)
			AND f.id IS NULL
		ORDER BY u.datep DESC
		LIMIT $3
	`

	rows, err := r.DB.QueryContext(ctx, query, entity.FunnelTypeLanguage, r.LookbackDays, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []entity.FunnelCandidate
	for rows.Next() {
		var c entity.FunnelCandidate
		c.FunnelType = entity.FunnelTypeLanguage

		if err := rows.Scan(&c.UserID, &c.Email, &c.TestID, &c.TestCompletedAt); err != nil {
			return nil, err
		}

		candidates = append(candidates, c)
	}

	return candidates, rows.Err()
}

// nonLanguageTestCandidates: a fonte dos testes não-linguísticos ainda
// não foi definida pelo time de produto. Fica vazio até lá.
func (r *CandidateRepository) nonLanguageTestCandidates(ctx context.Context, limit int) ([]entity.FunnelCandidate, error) {
	return nil, nil
}

// FetchPurchaseEvents cruza entradas ainda sem compra com a última
// ordem paga de certificado do mesmo email
func (r *CandidateRepository) FetchPurchaseEvents(ctx context.Context, limit int) ([]entity.PurchaseEvent, error) {
	query := `
		SELECT
			f.email,
			f.funnel_type,
			f.test_id,
			o.id AS order_id,
			o.created_at AS purchased_at
		FROM funnel_entries AS f
		JOIN LATERAL (
			SELECT id, created_at
			FROM orders
			WHERE email = f.email
			  AND is_certificate
			  AND status IN ('paid', 'completed')
			ORDER BY created_at DESC
			LIMIT 1
		) AS o ON TRUE
		WHERE f.certificate_purchased = FALSE
		ORDER BY f.entered_at ASC
		LIMIT $1
	`

	rows, err := r.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []entity.PurchaseEvent
	for rows.Next() {
		var e entity.PurchaseEvent
		if err := rows.Scan(&e.Email, &e.FunnelType, &e.TestID, &e.OrderID, &e.PurchasedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	return events, rows.Err()
}
