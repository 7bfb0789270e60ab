// Package kafka ingests server-originated notifications published by the
// application tier and hands them to the broker for fan-out. The consumer
// is optional; it runs only when brokers are configured.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"notify-broker/internal/config"
	"notify-broker/internal/websocket"
)

// Publisher is the broker-side fan-out capability the consumer drives.
type Publisher interface {
	Publish(ch websocket.Channel, data json.RawMessage) int
}

// event is the notification envelope the application tier produces.
type event struct {
	TargetType   string          `json:"target_type"`
	TargetID     uint            `json:"target_id"`
	Notification json.RawMessage `json:"notification"`
}

type Consumer struct {
	reader    *kafka.Reader
	publisher Publisher
}

func NewConsumer(cfg config.KafkaConfig, publisher Publisher) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.Brokers,
			Topic:    cfg.Topic,
			GroupID:  cfg.GroupID,
			MinBytes: 1,
			MaxBytes: 1 << 20,
		}),
		publisher: publisher,
	}
}

// Run consumes until the context is cancelled. A malformed event is
// logged and skipped; it never stops the consumer.
func (c *Consumer) Run(ctx context.Context) error {
	slog.Info("Kafka consumer started", "topic", c.reader.Config().Topic)
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("read message: %w", err)
		}

		ch, data, err := decodeEvent(msg.Value)
		if err != nil {
			slog.Warn("Skipping malformed notification event", "offset", msg.Offset, "error", err)
			continue
		}

		delivered := c.publisher.Publish(ch, data)
		slog.Debug("Ingested notification", "channel", ch, "delivered", delivered)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

// decodeEvent validates one produced event and resolves its target
// channel.
func decodeEvent(value []byte) (websocket.Channel, json.RawMessage, error) {
	var ev event
	if err := json.Unmarshal(value, &ev); err != nil {
		return "", nil, fmt.Errorf("decode event: %w", err)
	}
	if ev.TargetID == 0 || len(ev.Notification) == 0 {
		return "", nil, errors.New("event missing target or notification")
	}
	switch ev.TargetType {
	case websocket.TargetUser:
		return websocket.UserChannel(ev.TargetID), ev.Notification, nil
	case websocket.TargetProject:
		return websocket.ProjectChannel(ev.TargetID), ev.Notification, nil
	default:
		return "", nil, fmt.Errorf("unknown target type %q", ev.TargetType)
	}
}
