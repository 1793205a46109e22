package bus

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/segmentio/kafka-go"
)

// Handler processes one invalidation event. Implementations must be
// idempotent: the bus delivers at-least-once.
type Handler interface {
	HandleVoteChange(ctx context.Context, ev Event)
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer pumps invalidation events into a Handler. Every instance runs its
// own consumer under a unique group id, so the bus fans out to all of them
// instead of load-balancing — each instance holds its own cache and must
// evict it independently.
type Consumer struct {
	r   messageReader
	h   Handler
	log *slog.Logger
}

func NewConsumer(brokers []string, topic, groupID string, h Handler, log *slog.Logger) *Consumer {
	if log == nil {
		log = slog.Default()
	}
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.LastOffset,
	})
	return &Consumer{r: r, h: h, log: log}
}

// Run blocks until ctx is canceled. Malformed messages are logged and
// skipped; a missed eviction only extends staleness until the TTL fires.
func (c *Consumer) Run(ctx context.Context) {
	defer c.r.Close()

	c.log.Info("invalidation consumer started")
	for {
		msg, err := c.r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				c.log.Info("invalidation consumer stopped")
				return
			}
			c.log.Warn("invalidation read failed", "err", err)
			continue
		}

		ev, err := decodeEvent(msg.Value)
		if err != nil {
			c.log.Warn("dropping malformed invalidation event", "err", err)
			continue
		}
		c.h.HandleVoteChange(ctx, ev)
	}
}
