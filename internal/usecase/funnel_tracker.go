package usecase

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/nivelado/funnel-sync/internal/entity"
	"github.com/nivelado/funnel-sync/internal/infra/integration/brevo"
	"github.com/nivelado/funnel-sync/internal/infra/queue"
)

type FunnelTracker struct {
	Store     FunnelStoreInterface
	Source    CandidateSource
	Events    QueueProducerInterface // pode ser nil (fila é opcional)
	ListIDs   map[string]int64       // funnel_type -> lista da Brevo
	BatchSize int
}

func NewFunnelTracker(
	store FunnelStoreInterface,
	source CandidateSource,
	events QueueProducerInterface,
	listIDs map[string]int64,
	batchSize int,
) *FunnelTracker {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &FunnelTracker{
		Store:     store,
		Source:    source,
		Events:    events,
		ListIDs:   listIDs,
		BatchSize: batchSize,
	}
}

// Sync busca candidatos na base de origem e processa. Falha aqui é
// infraestrutura (banco fora do ar) e aborta o run inteiro.
func (t *FunnelTracker) Sync(ctx context.Context) (TrackSummary, error) {
	candidates, err := t.Source.FetchFunnelCandidates(ctx, t.BatchSize)
	if err != nil {
		return TrackSummary{}, &TechnicalError{
			Code:    "STORAGE_UNAVAILABLE",
			Message: "falha ao buscar candidatos: " + err.Error(),
		}
	}

	log.Printf("📥 [TRACKER] %d candidato(s) buscados na origem", len(candidates))

	return t.ProcessCandidates(ctx, candidates), nil
}

// ProcessCandidates grava cada candidato numa unidade atômica:
// insert-if-absent da entrada + enqueue do job de upsert na Brevo.
// Duplicata não é erro — é o estado normal de um re-run.
func (t *FunnelTracker) ProcessCandidates(ctx context.Context, candidates []entity.FunnelCandidate) TrackSummary {
	var summary TrackSummary

	for _, cand := range candidates {
		listID := t.ListIDs[cand.FunnelType]
		if listID <= 0 {
			log.Printf("⚠️ [TRACKER] Lista não configurada pro funil %s, pulando %s", cand.FunnelType, cand.Email)
			summary.Skipped++
			continue
		}

		payload, err := json.Marshal(brevo.Contact{
			Email:         cand.Email,
			UpdateEnabled: true,
			ListIDs:       []int64{listID},
			Attributes: map[string]any{
				brevo.AttrFunnelType: cand.FunnelType,
			},
		})
		if err != nil {
			log.Printf("❌ [TRACKER] Payload inválido pra %s: %v", cand.Email, err)
			summary.Failed++
			continue
		}

		entry, inserted, err := t.Store.CreateEntryWithJob(ctx, cand, payload)
		if err != nil {
			// Erro pontual não derruba o lote; o candidato volta no próximo run
			log.Printf("❌ [TRACKER] Falha ao gravar %s (%s): %v", cand.Email, cand.FunnelType, err)
			summary.Failed++
			continue
		}

		if !inserted {
			log.Printf("ℹ️ [TRACKER] Já está no funil, pulando (email=%s, funnel_type=%s)", cand.Email, cand.FunnelType)
			summary.Skipped++
			continue
		}

		log.Printf("✅ [TRACKER] Entrada criada + job enfileirado (email=%s, funnel_type=%s)", cand.Email, cand.FunnelType)
		summary.Inserted++

		t.publishEntryCreated(ctx, entry)
	}

	return summary
}

// Espelho best-effort pro analytics; acontece depois do commit,
// falha aqui só gera log
func (t *FunnelTracker) publishEntryCreated(ctx context.Context, entry *entity.FunnelEntry) {
	if t.Events == nil {
		return
	}

	err := t.Events.PublishSyncEvent(ctx, queue.SyncEventPayload{
		Event:         queue.EventEntryCreated,
		Email:         entry.Email,
		FunnelType:    entry.FunnelType,
		FunnelEntryID: entry.ID,
		OccurredAt:    time.Now(),
	})
	if err != nil {
		log.Printf("⚠️ [TRACKER] Evento não publicado (entrada já commitada): %v", err)
	}
}
