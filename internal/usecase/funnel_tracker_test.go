package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/nivelado/funnel-sync/internal/entity"
)

func languageListIDs() map[string]int64 {
	return map[string]int64{
		entity.FunnelTypeLanguage:    42,
		entity.FunnelTypeNonLanguage: 0,
	}
}

func testCandidate() entity.FunnelCandidate {
	testID := int64(7)
	return entity.FunnelCandidate{
		Email:      "a@x.com",
		FunnelType: entity.FunnelTypeLanguage,
		TestID:     &testID,
	}
}

func TestTrackerCreatesEntryAndEnqueuesJob(t *testing.T) {
	ctx := context.Background()

	mockStore := new(MockFunnelStore)
	entry := &entity.FunnelEntry{ID: "entry-1", Email: "a@x.com", FunnelType: entity.FunnelTypeLanguage}

	// O payload tem que ser o snapshot do contato Brevo com a lista certa
	payloadOK := mock.MatchedBy(func(payload []byte) bool {
		var contact map[string]any
		if err := json.Unmarshal(payload, &contact); err != nil {
			return false
		}
		attrs, _ := contact["attributes"].(map[string]any)
		lists, _ := contact["listIds"].([]any)
		return contact["email"] == "a@x.com" &&
			contact["updateEnabled"] == true &&
			len(lists) == 1 && lists[0] == float64(42) &&
			attrs["FUNNEL_TYPE"] == "language"
	})

	mockStore.On("CreateEntryWithJob", ctx, mock.Anything, payloadOK).Return(entry, true, nil)

	tracker := NewFunnelTracker(mockStore, nil, nil, languageListIDs(), 100)

	summary := tracker.ProcessCandidates(ctx, []entity.FunnelCandidate{testCandidate()})

	assert.Equal(t, 1, summary.Inserted)
	assert.Equal(t, 0, summary.Skipped)
	assert.Equal(t, 0, summary.Failed)
	mockStore.AssertExpectations(t)
}

func TestTrackerSkipsDuplicateOnSecondSubmission(t *testing.T) {
	ctx := context.Background()

	mockStore := new(MockFunnelStore)
	entry := &entity.FunnelEntry{ID: "entry-1", Email: "a@x.com", FunnelType: entity.FunnelTypeLanguage}

	// Primeira vez insere, segunda bate na constraint e vira no-op
	mockStore.On("CreateEntryWithJob", ctx, mock.Anything, mock.Anything).Return(entry, true, nil).Once()
	mockStore.On("CreateEntryWithJob", ctx, mock.Anything, mock.Anything).Return(nil, false, nil).Once()

	tracker := NewFunnelTracker(mockStore, nil, nil, languageListIDs(), 100)

	summary := tracker.ProcessCandidates(ctx, []entity.FunnelCandidate{testCandidate(), testCandidate()})

	assert.Equal(t, 1, summary.Inserted)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 0, summary.Failed)
	mockStore.AssertNumberOfCalls(t, "CreateEntryWithJob", 2)
}

func TestTrackerSkipsFunnelWithoutConfiguredList(t *testing.T) {
	ctx := context.Background()

	mockStore := new(MockFunnelStore)

	cand := testCandidate()
	cand.FunnelType = entity.FunnelTypeNonLanguage // lista 0 = funil desligado

	tracker := NewFunnelTracker(mockStore, nil, nil, languageListIDs(), 100)

	summary := tracker.ProcessCandidates(ctx, []entity.FunnelCandidate{cand})

	assert.Equal(t, 1, summary.Skipped)
	mockStore.AssertNotCalled(t, "CreateEntryWithJob", mock.Anything, mock.Anything, mock.Anything)
}

func TestTrackerContinuesAfterStoreError(t *testing.T) {
	ctx := context.Background()

	mockStore := new(MockFunnelStore)
	entry := &entity.FunnelEntry{ID: "entry-2", Email: "b@x.com", FunnelType: entity.FunnelTypeLanguage}

	mockStore.On("CreateEntryWithJob", ctx, mock.Anything, mock.Anything).Return(nil, false, errors.New("deadlock detected")).Once()
	mockStore.On("CreateEntryWithJob", ctx, mock.Anything, mock.Anything).Return(entry, true, nil).Once()

	second := testCandidate()
	second.Email = "b@x.com"

	tracker := NewFunnelTracker(mockStore, nil, nil, languageListIDs(), 100)

	summary := tracker.ProcessCandidates(ctx, []entity.FunnelCandidate{testCandidate(), second})

	// Um candidato podre não derruba o lote
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Inserted)
}

func TestTrackerSyncAbortsWhenSourceFails(t *testing.T) {
	ctx := context.Background()

	mockStore := new(MockFunnelStore)
	mockSource := new(MockCandidateSource)
	mockSource.On("FetchFunnelCandidates", ctx, 100).Return(nil, errors.New("connection refused"))

	tracker := NewFunnelTracker(mockStore, mockSource, nil, languageListIDs(), 100)

	_, err := tracker.Sync(ctx)

	assert.Error(t, err)
	assert.True(t, IsTechnicalError(err))
	mockStore.AssertNotCalled(t, "CreateEntryWithJob", mock.Anything, mock.Anything, mock.Anything)
}
