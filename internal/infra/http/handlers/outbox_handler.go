package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/nivelado/funnel-sync/internal/infra/database"
)

// OutboxHandler expõe a saúde da fila pra operação: quantos jobs em
// cada status. Job em failed é intervenção manual — esse endpoint é
// onde a pessoa de plantão olha primeiro.
type OutboxHandler struct {
	Repo *database.OutboxRepository
}

func NewOutboxHandler(repo *database.OutboxRepository) *OutboxHandler {
	return &OutboxHandler{Repo: repo}
}

func (h *OutboxHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Repo.Stats(r.Context())
	if err != nil {
		http.Error(w, `{"error": "falha ao consultar outbox"}`, http.StatusInternalServerError)
		return
	}

	// Garante as quatro chaves mesmo com a tabela vazia
	for _, status := range []string{"pending", "processing", "done", "failed"} {
		if _, ok := stats[status]; !ok {
			stats[status] = 0
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}
