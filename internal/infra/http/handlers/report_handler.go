package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/nivelado/funnel-sync/internal/usecase"
)

type ReportHandler struct {
	Reporter *usecase.ConversionReporter
}

func NewReportHandler(reporter *usecase.ConversionReporter) *ReportHandler {
	return &ReportHandler{Reporter: reporter}
}

type conversionItem struct {
	FunnelType     string  `json:"funnel_type"`
	TotalEntries   int64   `json:"total_entries"`
	TotalPurchased int64   `json:"total_purchased"`
	ConversionPct  float64 `json:"conversion_pct"`
}

// HandleGet: GET /report?from_date=2026-01-01&to_date=2026-02-01
// from inclusivo, to exclusivo; sem filtro = tabela inteira
func (h *ReportHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	from, err := parseDateParam(r.URL.Query().Get("from_date"))
	if err != nil {
		http.Error(w, `{"error": "from_date inválida, use YYYY-MM-DD"}`, http.StatusBadRequest)
		return
	}

	to, err := parseDateParam(r.URL.Query().Get("to_date"))
	if err != nil {
		http.Error(w, `{"error": "to_date inválida, use YYYY-MM-DD"}`, http.StatusBadRequest)
		return
	}

	report, err := h.Reporter.Generate(r.Context(), from, to)
	if err != nil {
		http.Error(w, `{"error": "falha ao gerar relatório"}`, http.StatusInternalServerError)
		return
	}

	items := make([]conversionItem, 0, len(report))
	for _, c := range report {
		items = append(items, conversionItem{
			FunnelType:     c.FunnelType,
			TotalEntries:   c.TotalEntries,
			TotalPurchased: c.TotalPurchased,
			ConversionPct:  c.ConversionRate() * 100.0,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(items)
}

func parseDateParam(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}

	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
