package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/oklog/ulid/v2"
	amqp "github.com/rabbitmq/amqp091-go"

	"filingchat/internal/model"
)

// TelemetryPublisher sends per-turn usage records to the telemetry queue.
type TelemetryPublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewTelemetryPublisher(conn *amqp.Connection, queueName string) *TelemetryPublisher {
	return &TelemetryPublisher{
		conn:      conn,
		queueName: queueName,
	}
}

func (p *TelemetryPublisher) Publish(ctx context.Context, event model.StreamTelemetry) error {
	payload, err := EncodeTelemetry(event)
	if err != nil {
		return err
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    event.ID,
			Body:         payload,
			DeliveryMode: amqp.Persistent,
		},
	); err != nil {
		return fmt.Errorf("publish telemetry failed: %w", err)
	}
	return nil
}

// EncodeTelemetry assigns an id when missing and returns the wire payload.
func EncodeTelemetry(event model.StreamTelemetry) ([]byte, error) {
	if event.ID == "" {
		event.ID = ulid.Make().String()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal telemetry payload failed: %w", err)
	}
	return payload, nil
}
