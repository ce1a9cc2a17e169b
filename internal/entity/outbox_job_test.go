package entity

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewOutboxJobStartsPending(t *testing.T) {
	job := NewOutboxJob("entry-1", OperationUpsertContact, []byte(`{"email":"a@x.com"}`))

	assert.Equal(t, JobStatusPending, job.Status)
	assert.Equal(t, 0, job.RetryCount)
	assert.Nil(t, job.NextAttemptAt)
	assert.Nil(t, job.LastError)

	_, err := uuid.Parse(job.ID)
	assert.NoError(t, err)
}

func TestJobTerminalStates(t *testing.T) {
	for status, terminal := range map[string]bool{
		JobStatusDone:       true,
		JobStatusFailed:     true,
		JobStatusPending:    false,
		JobStatusProcessing: false,
	} {
		job := OutboxJob{Status: status}
		assert.Equal(t, terminal, job.IsTerminal(), "status %s", status)
	}
}

func TestConversionRate(t *testing.T) {
	assert.Equal(t, 0.3, FunnelConversion{TotalEntries: 10, TotalPurchased: 3}.ConversionRate())
	assert.Equal(t, 0.0, FunnelConversion{}.ConversionRate())
}
