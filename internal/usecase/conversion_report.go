package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/nivelado/funnel-sync/internal/entity"
)

// ConversionReporter: leitura pura sobre funnel_entries, fora do
// caminho crítico do sync
type ConversionReporter struct {
	Store ReportStoreInterface
}

func NewConversionReporter(store ReportStoreInterface) *ConversionReporter {
	return &ConversionReporter{Store: store}
}

// Generate agrega conversão por funil. from inclusivo, to exclusivo,
// nil = sem filtro.
func (r *ConversionReporter) Generate(ctx context.Context, from, to *time.Time) ([]entity.FunnelConversion, error) {
	report, err := r.Store.ConversionSummary(ctx, from, to)
	if err != nil {
		return nil, &TechnicalError{
			Code:    "STORAGE_UNAVAILABLE",
			Message: "falha ao gerar relatório: " + err.Error(),
		}
	}
	return report, nil
}

// FormatConversion monta a linha do relatório no formato que o time já usa
func FormatConversion(c entity.FunnelConversion) string {
	return fmt.Sprintf(
		"%s: entries=%d, purchased=%d, conversion=%.2f%%",
		c.FunnelType,
		c.TotalEntries,
		c.TotalPurchased,
		c.ConversionRate()*100.0,
	)
}
