package usecase

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/nivelado/funnel-sync/internal/entity"
	"github.com/nivelado/funnel-sync/internal/infra/queue"
)

// MockFunnelStore
type MockFunnelStore struct {
	mock.Mock
}

func (m *MockFunnelStore) CreateEntryWithJob(ctx context.Context, cand entity.FunnelCandidate, payload []byte) (*entity.FunnelEntry, bool, error) {
	args := m.Called(ctx, cand, payload)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*entity.FunnelEntry), args.Bool(1), args.Error(2)
}

func (m *MockFunnelStore) MarkPurchasedWithJob(ctx context.Context, entryID string, purchasedAt time.Time, payload []byte) (bool, error) {
	args := m.Called(ctx, entryID, purchasedAt, payload)
	return args.Bool(0), args.Error(1)
}

func (m *MockFunnelStore) FindEntryByKey(ctx context.Context, email, funnelType string, testID *int64) (*entity.FunnelEntry, error) {
	args := m.Called(ctx, email, funnelType, testID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.FunnelEntry), args.Error(1)
}

// MockOutboxStore
type MockOutboxStore struct {
	mock.Mock
}

func (m *MockOutboxStore) ClaimDue(ctx context.Context, limit int, now time.Time) ([]entity.OutboxJob, error) {
	args := m.Called(ctx, limit, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.OutboxJob), args.Error(1)
}

func (m *MockOutboxStore) MarkDone(ctx context.Context, jobID string) error {
	args := m.Called(ctx, jobID)
	return args.Error(0)
}

func (m *MockOutboxStore) MarkRetry(ctx context.Context, jobID, lastError string, nextAttemptAt time.Time) error {
	args := m.Called(ctx, jobID, lastError, nextAttemptAt)
	return args.Error(0)
}

func (m *MockOutboxStore) MarkFailed(ctx context.Context, jobID, lastError string) error {
	args := m.Called(ctx, jobID, lastError)
	return args.Error(0)
}

func (m *MockOutboxStore) ReclaimStuck(ctx context.Context, olderThan time.Duration) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

// MockCandidateSource
type MockCandidateSource struct {
	mock.Mock
}

func (m *MockCandidateSource) FetchFunnelCandidates(ctx context.Context, limitPerType int) ([]entity.FunnelCandidate, error) {
	args := m.Called(ctx, limitPerType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.FunnelCandidate), args.Error(1)
}

func (m *MockCandidateSource) FetchPurchaseEvents(ctx context.Context, limit int) ([]entity.PurchaseEvent, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.PurchaseEvent), args.Error(1)
}

// MockDeliverer
type MockDeliverer struct {
	mock.Mock
}

func (m *MockDeliverer) Deliver(ctx context.Context, operationType string, payload []byte) (string, error) {
	args := m.Called(ctx, operationType, payload)
	return args.String(0), args.Error(1)
}

// MockQueueProducer
type MockQueueProducer struct {
	mock.Mock
}

func (m *MockQueueProducer) PublishSyncEvent(ctx context.Context, payload queue.SyncEventPayload) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

// MockReportStore
type MockReportStore struct {
	mock.Mock
}

func (m *MockReportStore) ConversionSummary(ctx context.Context, from, to *time.Time) ([]entity.FunnelConversion, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.FunnelConversion), args.Error(1)
}
