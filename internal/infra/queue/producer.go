package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Eventos que espelhamos pra fila de analytics
const (
	EventEntryCreated     = "funnel_entry_created"
	EventPurchaseRecorded = "purchase_recorded"
	EventContactSynced    = "brevo_contact_synced"
	EventJobQuarantined   = "brevo_sync_quarantined"
)

type SyncEventPayload struct {
	Event         string    `json:"event"`
	Email         string    `json:"email,omitempty"`
	FunnelType    string    `json:"funnel_type,omitempty"`
	FunnelEntryID string    `json:"funnel_entry_id,omitempty"`
	JobID         string    `json:"job_id,omitempty"`
	OperationType string    `json:"operation_type,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type RabbitMQProducer struct {
	Conn *amqp.Connection
	Ch   *amqp.Channel
}

func NewProducer(conn *amqp.Connection, ch *amqp.Channel) *RabbitMQProducer {
	return &RabbitMQProducer{
		Conn: conn,
		Ch:   ch,
	}
}

func (p *RabbitMQProducer) PublishSyncEvent(ctx context.Context, payload SyncEventPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("erro ao converter payload: %v", err)
	}

	err = p.Ch.PublishWithContext(ctx,
		ExchangeName,
		RoutingKey,
		false, // Mandatory
		false, // Immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)

	if err != nil {
		return fmt.Errorf("falha ao publicar no RabbitMQ: %v", err)
	}

	return nil
}
