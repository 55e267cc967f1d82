// Package kafkanotify adapts dcb.Notifier onto a Kafka topic, for the
// multi-service case where LISTEN/NOTIFY's single-database reach isn't
// enough: several services, each with their own connection pool, all
// wanting to react to the same append stream.
package kafkanotify

import (
	"context"
	"log"
	"strconv"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"godcb/pkg/dcb"
)

// Publisher wraps a dcb.Recorder, publishing the new head position to a
// Kafka topic after every successful Append. Like the postgres LISTEN/NOTIFY
// notifier it wraps, the message is purely a signal to re-read from that
// position, never a substitute for reading the log itself.
type Publisher struct {
	dcb.Recorder
	writer *kafka.Writer
}

// NewPublisher wraps recorder, publishing append notifications to topic on
// brokers.
func NewPublisher(recorder dcb.Recorder, brokers []string, topic string) *Publisher {
	return &Publisher{
		Recorder: recorder,
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// Append delegates to the wrapped Recorder, then best-effort publishes a
// notification. A publish failure never fails the Append that already
// committed.
func (p *Publisher) Append(ctx context.Context, events []dcb.Event, condition *dcb.AppendCondition) (int64, error) {
	position, err := p.Recorder.Append(ctx, events, condition)
	if err != nil {
		return 0, err
	}
	// Key is a fresh UUID per message, not derived from the events: it exists
	// so brokers/consumers can deduplicate or trace a specific notification,
	// not to identify a partition by entity (these pings carry no tag).
	msg := kafka.Message{Key: []byte(uuid.NewString()), Value: []byte(strconv.FormatInt(position, 10))}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		log.Printf("dcb/kafkanotify: publish after append failed: %v", err)
	}
	return position, nil
}

// Close releases the underlying Kafka writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// Subscriber implements dcb.Notifier by consuming from a Kafka topic.
type Subscriber struct {
	reader *kafka.Reader
}

// NewSubscriber builds a Subscriber that reads topic on brokers as member
// of groupID.
func NewSubscriber(brokers []string, topic, groupID string) *Subscriber {
	return &Subscriber{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			Topic:   topic,
			GroupID: groupID,
		}),
	}
}

// Subscribe implements dcb.Notifier.
func (s *Subscriber) Subscribe(ctx context.Context) (<-chan dcb.AppendNotification, error) {
	ch := make(chan dcb.AppendNotification)
	go func() {
		defer close(ch)
		for {
			msg, err := s.reader.ReadMessage(ctx)
			if err != nil {
				return
			}
			position, err := strconv.ParseInt(string(msg.Value), 10, 64)
			if err != nil {
				log.Printf("dcb/kafkanotify: message with unparsable value %q: %v", msg.Value, err)
			}
			select {
			case ch <- dcb.AppendNotification{Position: position}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// Close releases the underlying Kafka reader.
func (s *Subscriber) Close() error {
	return s.reader.Close()
}
