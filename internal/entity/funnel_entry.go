package entity

import (
	"errors"
	"time"

	"github.com/google/uuid"
	// IMPORTANTE: NÃO adicione imports de usecase ou infra aqui!
)

// Tipos de funil que acompanhamos hoje
const (
	FunnelTypeLanguage    = "language"
	FunnelTypeNonLanguage = "non_language"
)

// Entidade: FunnelEntry
// Chave natural (email, funnel_type, test_id) — única no banco, nunca só na aplicação.
type FunnelEntry struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	FunnelType string `json:"funnel_type"`

	// Referências opcionais para a base de origem (simpletest)
	UserID *int64 `json:"user_id,omitempty"`
	TestID *int64 `json:"test_id,omitempty"`

	EnteredAt time.Time `json:"entered_at"`

	// Compra do certificado: uma vez true, nunca volta a false
	CertificatePurchased   bool       `json:"certificate_purchased"`
	CertificatePurchasedAt *time.Time `json:"certificate_purchased_at,omitempty"`
}

// Candidato vindo da base de origem, ainda sem entrada no funil
type FunnelCandidate struct {
	Email           string     `json:"email"`
	FunnelType      string     `json:"funnel_type"`
	UserID          *int64     `json:"user_id,omitempty"`
	TestID          *int64     `json:"test_id,omitempty"`
	TestCompletedAt *time.Time `json:"test_completed_at,omitempty"`
}

// Evento de compra detectado nas tabelas de pedidos
type PurchaseEvent struct {
	Email       string    `json:"email"`
	FunnelType  string    `json:"funnel_type"`
	TestID      *int64    `json:"test_id,omitempty"`
	OrderID     int64     `json:"order_id"`
	PurchasedAt time.Time `json:"purchased_at"`
}

// Factory
func NewFunnelEntry(c FunnelCandidate) (*FunnelEntry, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	return &FunnelEntry{
		ID:         uuid.New().String(),
		Email:      c.Email,
		FunnelType: c.FunnelType,
		UserID:     c.UserID,
		TestID:     c.TestID,
		EnteredAt:  time.Now(),
	}, nil
}

func (c FunnelCandidate) Validate() error {
	if c.Email == "" {
		return errors.New("email is required")
	}
	if c.FunnelType != FunnelTypeLanguage && c.FunnelType != FunnelTypeNonLanguage {
		return errors.New("unknown funnel type: " + c.FunnelType)
	}
	return nil
}

func (e PurchaseEvent) Validate() error {
	if e.Email == "" {
		return errors.New("email is required")
	}
	if e.PurchasedAt.IsZero() {
		return errors.New("purchased_at is required")
	}
	return nil
}
