package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"filingchat/internal/model"
)

type TelemetryStore interface {
	Create(ctx context.Context, t *model.StreamTelemetry) error
}

// TelemetryWorker drains the telemetry queue into the database. Deliveries
// that cannot be decoded or stored are rejected without requeue.
type TelemetryWorker struct {
	conn      *amqp.Connection
	store     TelemetryStore
	queueName string
	log       *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewTelemetryWorker(conn *amqp.Connection, store TelemetryStore, queueName string, log *zap.Logger) *TelemetryWorker {
	return &TelemetryWorker{
		conn:      conn,
		store:     store,
		queueName: queueName,
		log:       log.With(zap.String("component", "telemetry_worker")),
	}
}

func (w *TelemetryWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	if _, err := ch.QueueDeclare(w.queueName, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}
	if err := ch.Qos(16, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(w.queueName, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				if err := w.Handle(workerCtx, d.Body); err != nil {
					w.log.Warn("telemetry delivery rejected", zap.String("message_id", d.MessageId), zap.Error(err))
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	w.log.Info("telemetry worker started", zap.String("queue", w.queueName))
	return nil
}

// Handle stores one encoded telemetry event.
func (w *TelemetryWorker) Handle(ctx context.Context, body []byte) error {
	var event model.StreamTelemetry
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("decode telemetry failed: %w", err)
	}
	if event.ID == "" || event.ChatID == "" {
		return errors.New("telemetry event missing id or chat id")
	}
	return w.store.Create(ctx, &event)
}

func (w *TelemetryWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
