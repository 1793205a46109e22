package bus

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

const publishTimeout = 5 * time.Second

// Publisher writes invalidation events keyed by poll id, so events for the
// same poll land on the same partition and arrive in order. There is no
// ordering guarantee across polls.
type Publisher struct {
	w   *kafka.Writer
	log *slog.Logger
}

func NewPublisher(brokers []string, topic string, log *slog.Logger) *Publisher {
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			BatchTimeout:           10 * time.Millisecond,
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
		log: log,
	}
}

// Publish makes one bounded attempt to put the event on the bus. The TTL on
// cached entries absorbs a lost event, so the caller never retries
// synchronously.
func (p *Publisher) Publish(ctx context.Context, ev Event) error {
	value, err := ev.encode()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(ev.PollID, 10)),
		Value: value,
	})
}

func (p *Publisher) Close() error {
	return p.w.Close()
}
