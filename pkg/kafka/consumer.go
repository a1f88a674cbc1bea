package kafka

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"

	"github.com/Ramsey-B/clover/pkg/tracing"
)

// ErrDrop marks a message that can never be handled. It is committed so it does not block
// the partition.
var ErrDrop = errors.New("drop message")

// MessageHandler handles one record batch message. Returning an error leaves the message
// uncommitted unless the error wraps ErrDrop.
type MessageHandler func(ctx context.Context, msg *IncomingMessage) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads collector record batches from the input topic
type Consumer struct {
	reader  messageReader
	topic   string
	logger  ectologger.Logger
	handler MessageHandler

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

type ConsumerConfig struct {
	Brokers       []string
	Topic         string
	ConsumerGroup string
	// MaxWait bounds how long a fetch waits for new data. Defaults to 500ms.
	MaxWait time.Duration
	// FromLatest starts a new consumer group at the end of the topic instead of the beginning
	FromLatest bool
}

func NewConsumer(cfg ConsumerConfig, logger ectologger.Logger, handler MessageHandler) *Consumer {
	maxWait := cfg.MaxWait
	if maxWait <= 0 {
		maxWait = 500 * time.Millisecond
	}
	startOffset := kafka.FirstOffset
	if cfg.FromLatest {
		startOffset = kafka.LastOffset
	}

	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     cfg.Brokers,
			Topic:       cfg.Topic,
			GroupID:     cfg.ConsumerGroup,
			MinBytes:    1,
			MaxBytes:    10 << 20,
			MaxWait:     maxWait,
			StartOffset: startOffset,
		}),
		topic:   cfg.Topic,
		logger:  logger,
		handler: handler,
	}
}

// Start consumes in the background until Stop is called or ctx is cancelled
func (c *Consumer) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(ctx)
	}()

	c.logger.WithContext(ctx).WithField("topic", c.topic).Info("Record batch consumer started")
}

// Stop waits for the message in flight and closes the reader
func (c *Consumer) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	return c.reader.Close()
}

func (c *Consumer) run(ctx context.Context) {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		switch {
		case err == nil:
			c.handle(ctx, msg)
		case ctx.Err() != nil, errors.Is(err, io.EOF):
			return
		default:
			c.logger.WithContext(ctx).WithError(err).Error("Failed to fetch record batch")
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	incoming := newIncomingMessage(msg)

	ctx, span := tracing.StartSpan(tracing.ExtractTraceParent(ctx, incoming.TraceParent()), "kafka.Consumer.handle")
	defer span.End()

	log := c.logger.WithContext(ctx).WithFields(map[string]any{
		"partition": msg.Partition,
		"offset":    msg.Offset,
	})

	if err := c.handler(ctx, incoming); err != nil {
		tracing.RecordError(span, err)
		if !errors.Is(err, ErrDrop) {
			log.WithError(err).Error("Record batch failed, leaving it uncommitted")
			return
		}
		log.WithError(err).Warn("Dropping record batch")
	}

	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		log.WithError(err).Error("Failed to commit record batch")
	}
}

func newIncomingMessage(msg kafka.Message) *IncomingMessage {
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return &IncomingMessage{
		Key:       string(msg.Key),
		Value:     msg.Value,
		Headers:   headers,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
		Topic:     msg.Topic,
	}
}
