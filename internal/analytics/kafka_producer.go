// Package analytics emits match events to Kafka and aggregates them on the consumer side.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// Event names written to the analytics topic.
const (
	EventMatchPaired = "match.paired"
	EventMatchReady  = "match.ready"
	EventBattleStart = "battle.start"
	EventShot        = "shot"
	EventShotResult  = "shot.result"
	EventRematch     = "rematch"
	EventChat        = "chat"
	EventMatchEnd    = "match.end"
)

type Analytics struct{ writer *kafka.Writer }

// NewAnalytics returns nil when no brokers are configured; a nil *Analytics
// accepts and drops every event.
func NewAnalytics(brokers []string, topic string) *Analytics {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		Async:                  true,
		WriteTimeout:           2 * time.Second,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Printf("kafka emit err (%d msgs): %v", len(messages), err)
			}
		},
	}
	return &Analytics{writer: w}
}

// Emit stamps payload with the event name and time and queues it. The
// writer is async so gameplay never waits on the broker.
func (a *Analytics) Emit(event string, payload map[string]any) {
	if a == nil || a.writer == nil {
		return
	}
	msg, err := message(event, payload, time.Now())
	if err != nil {
		log.Println("kafka encode err:", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := a.writer.WriteMessages(ctx, msg); err != nil {
		log.Println("kafka emit err:", err)
	}
}

// message keys by room so the hash balancer keeps a room's events in order
// on one partition. Events without a room go unkeyed.
func message(event string, payload map[string]any, now time.Time) (kafka.Message, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	payload["event"] = event
	payload["ts"] = now.UTC()
	b, err := json.Marshal(payload)
	if err != nil {
		return kafka.Message{}, err
	}
	msg := kafka.Message{Value: b}
	if room, ok := payload["room"]; ok {
		msg.Key = []byte(fmt.Sprint(room))
	}
	return msg, nil
}

// Close flushes pending messages.
func (a *Analytics) Close() error {
	if a == nil || a.writer == nil {
		return nil
	}
	return a.writer.Close()
}
