package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/nivelado/funnel-sync/internal/entity"
	"github.com/nivelado/funnel-sync/internal/infra/integration/brevo"
)

func newTestProcessor(outbox *MockOutboxStore, deliverer *MockDeliverer) *OutboxProcessor {
	p := NewOutboxProcessor(outbox, deliverer, nil)
	p.MaxRetries = 3
	p.BaseBackoff = time.Minute
	p.BackoffCap = time.Hour
	return p
}

func pendingJob(id string, retryCount int) entity.OutboxJob {
	return entity.OutboxJob{
		ID:            id,
		FunnelEntryID: "entry-1",
		OperationType: entity.OperationUpsertContact,
		Payload:       []byte(`{"email":"a@x.com"}`),
		Status:        entity.JobStatusProcessing,
		RetryCount:    retryCount,
	}
}

func expectNoStuck(outbox *MockOutboxStore) {
	outbox.On("ReclaimStuck", mock.Anything, mock.Anything).Return(int64(0), nil)
}

func expectQueueDrainedAfterFirstBatch(outbox *MockOutboxStore, jobs []entity.OutboxJob) {
	outbox.On("ClaimDue", mock.Anything, mock.Anything, mock.Anything).Return(jobs, nil).Once()
	outbox.On("ClaimDue", mock.Anything, mock.Anything, mock.Anything).Return([]entity.OutboxJob{}, nil).Once()
}

func TestProcessorDeliversAndMarksDone(t *testing.T) {
	outbox := new(MockOutboxStore)
	deliverer := new(MockDeliverer)

	job := pendingJob("job-1", 0)
	expectNoStuck(outbox)
	expectQueueDrainedAfterFirstBatch(outbox, []entity.OutboxJob{job})

	deliverer.On("Deliver", mock.Anything, entity.OperationUpsertContact, []byte(job.Payload)).Return("123", nil)
	outbox.On("MarkDone", mock.Anything, "job-1").Return(nil)

	summary, err := newTestProcessor(outbox, deliverer).Drain(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 1, summary.Claimed)
	assert.Equal(t, 1, summary.Delivered)
	outbox.AssertCalled(t, "MarkDone", mock.Anything, "job-1")
	outbox.AssertNotCalled(t, "MarkRetry", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessorSchedulesRetryOnTransientError(t *testing.T) {
	outbox := new(MockOutboxStore)
	deliverer := new(MockDeliverer)

	job := pendingJob("job-1", 0)
	expectNoStuck(outbox)
	expectQueueDrainedAfterFirstBatch(outbox, []entity.OutboxJob{job})

	deliverer.On("Deliver", mock.Anything, mock.Anything, mock.Anything).
		Return("", &brevo.DeliveryError{StatusCode: 503, Message: "service unavailable", Permanent: false})

	// retry_count=0 -> delay base de 1min, jitter entre 30s e 60s
	nextAttemptOK := mock.MatchedBy(func(next time.Time) bool {
		until := time.Until(next)
		return until > 25*time.Second && until <= 61*time.Second
	})
	outbox.On("MarkRetry", mock.Anything, "job-1", mock.Anything, nextAttemptOK).Return(nil)

	summary, err := newTestProcessor(outbox, deliverer).Drain(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 1, summary.Retried)
	assert.Equal(t, 0, summary.Quarantined)
	outbox.AssertExpectations(t)
	outbox.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessorQuarantinesAfterMaxRetries(t *testing.T) {
	outbox := new(MockOutboxStore)
	deliverer := new(MockDeliverer)

	// Terceira tentativa com max=3: não agenda a quarta, quarentena
	job := pendingJob("job-1", 2)
	expectNoStuck(outbox)
	expectQueueDrainedAfterFirstBatch(outbox, []entity.OutboxJob{job})

	deliverer.On("Deliver", mock.Anything, mock.Anything, mock.Anything).
		Return("", &brevo.DeliveryError{StatusCode: 500, Message: "boom", Permanent: false})
	outbox.On("MarkFailed", mock.Anything, "job-1", mock.Anything).Return(nil)

	summary, err := newTestProcessor(outbox, deliverer).Drain(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 1, summary.Quarantined)
	assert.Equal(t, 0, summary.Retried)
	outbox.AssertNotCalled(t, "MarkRetry", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessorQuarantinesPermanentErrorImmediately(t *testing.T) {
	outbox := new(MockOutboxStore)
	deliverer := new(MockDeliverer)

	// Primeira tentativa, mas 400 não melhora com retry
	job := pendingJob("job-1", 0)
	expectNoStuck(outbox)
	expectQueueDrainedAfterFirstBatch(outbox, []entity.OutboxJob{job})

	deliverer.On("Deliver", mock.Anything, mock.Anything, mock.Anything).
		Return("", &brevo.DeliveryError{StatusCode: 400, Message: "invalid email", Permanent: true})
	outbox.On("MarkFailed", mock.Anything, "job-1", mock.Anything).Return(nil)

	summary, err := newTestProcessor(outbox, deliverer).Drain(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 1, summary.Quarantined)
	assert.Len(t, summary.QuarantineErrors, 1)
	outbox.AssertNotCalled(t, "MarkRetry", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessorFailureDoesNotAbortBatch(t *testing.T) {
	outbox := new(MockOutboxStore)
	deliverer := new(MockDeliverer)

	jobA := pendingJob("job-a", 0)
	jobB := pendingJob("job-b", 0)
	expectNoStuck(outbox)
	expectQueueDrainedAfterFirstBatch(outbox, []entity.OutboxJob{jobA, jobB})

	deliverer.On("Deliver", mock.Anything, mock.Anything, mock.Anything).
		Return("", &brevo.DeliveryError{StatusCode: 502, Permanent: false}).Once()
	deliverer.On("Deliver", mock.Anything, mock.Anything, mock.Anything).Return("456", nil).Once()

	outbox.On("MarkRetry", mock.Anything, "job-a", mock.Anything, mock.Anything).Return(nil)
	outbox.On("MarkDone", mock.Anything, "job-b").Return(nil)

	summary, err := newTestProcessor(outbox, deliverer).Drain(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 1, summary.Retried)
	assert.Equal(t, 1, summary.Delivered)
}

func TestProcessorReportsReclaimedJobs(t *testing.T) {
	outbox := new(MockOutboxStore)
	deliverer := new(MockDeliverer)

	outbox.On("ReclaimStuck", mock.Anything, mock.Anything).Return(int64(2), nil)
	outbox.On("ClaimDue", mock.Anything, mock.Anything, mock.Anything).Return([]entity.OutboxJob{}, nil)

	summary, err := newTestProcessor(outbox, deliverer).Drain(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 2, summary.Reclaimed)
}

func TestProcessorAbortsWhenClaimFails(t *testing.T) {
	outbox := new(MockOutboxStore)
	deliverer := new(MockDeliverer)

	expectNoStuck(outbox)
	outbox.On("ClaimDue", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	_, err := newTestProcessor(outbox, deliverer).Drain(context.Background())

	assert.Error(t, err)
	assert.True(t, IsTechnicalError(err))
}

func TestRawBackoffDoublesUntilCap(t *testing.T) {
	base := time.Minute
	cap := time.Hour

	assert.Equal(t, 1*time.Minute, rawBackoffDelay(0, base, cap))
	assert.Equal(t, 2*time.Minute, rawBackoffDelay(1, base, cap))
	assert.Equal(t, 4*time.Minute, rawBackoffDelay(2, base, cap))
	assert.Equal(t, 8*time.Minute, rawBackoffDelay(3, base, cap))

	// Cresce estritamente até bater no teto
	for i := 1; i < 20; i++ {
		prev := rawBackoffDelay(i-1, base, cap)
		curr := rawBackoffDelay(i, base, cap)
		if prev < cap {
			assert.Greater(t, curr, prev, "retry %d deveria esperar mais que retry %d", i, i-1)
		} else {
			assert.Equal(t, cap, curr)
		}
	}

	assert.Equal(t, cap, rawBackoffDelay(60, base, cap))
}

func TestBackoffJitterStaysInWindow(t *testing.T) {
	base := time.Minute
	cap := time.Hour

	for i := 0; i < 100; i++ {
		raw := rawBackoffDelay(2, base, cap)
		jittered := backoffDelay(2, base, cap)
		assert.GreaterOrEqual(t, jittered, raw/2)
		assert.LessOrEqual(t, jittered, raw)
	}
}
