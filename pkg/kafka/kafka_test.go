package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/models"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *fakeWriter) Close() error { return nil }

func TestProducer_Publish(t *testing.T) {
	t.Run("should write keyed json messages with an event type header", func(t *testing.T) {
		w := &fakeWriter{}
		p := &Producer{writer: w, logger: testLogger(), topic: "commission-events"}

		err := p.Publish(context.Background(), Event{Key: "acme", EventType: "commission.split.computed", Payload: map[string]int{"alice": 100}})
		require.NoError(t, err)

		require.Len(t, w.msgs, 1)
		assert.Equal(t, "commission-events", w.msgs[0].Topic)
		assert.Equal(t, []byte("acme"), w.msgs[0].Key)
		assert.JSONEq(t, `{"alice":100}`, string(w.msgs[0].Value))
		assert.Equal(t, kafka.Header{Key: HeaderEventType, Value: []byte("commission.split.computed")}, w.msgs[0].Headers[0])
	})

	t.Run("should surface writer errors", func(t *testing.T) {
		p := &Producer{writer: &fakeWriter{err: errors.New("broker down")}, logger: testLogger(), topic: "t"}

		assert.Error(t, p.Publish(context.Background(), Event{Key: "k", Payload: 1}))
	})

	t.Run("should do nothing without events", func(t *testing.T) {
		w := &fakeWriter{}
		p := &Producer{writer: w, logger: testLogger(), topic: "t"}

		require.NoError(t, p.Publish(context.Background()))
		assert.Empty(t, w.msgs)
	})
}

func TestIncomingMessage_ParseRecordBatch(t *testing.T) {
	t.Run("should decode a meetings batch", func(t *testing.T) {
		msg := &IncomingMessage{Value: []byte(`{"kind":"meetings","meetings":[{"id":"M1","title":"Acme sync"}]}`)}

		batch, err := msg.ParseRecordBatch()
		require.NoError(t, err)
		assert.Equal(t, BatchMeetings, batch.Kind)
		assert.Equal(t, "Acme sync", batch.Meetings[0].Title)
	})

	t.Run("should reject unknown kinds and invalid json", func(t *testing.T) {
		_, err := (&IncomingMessage{Value: []byte(`{"kind":"invoices"}`)}).ParseRecordBatch()
		assert.Error(t, err)

		_, err = (&IncomingMessage{Value: []byte(`{`)}).ParseRecordBatch()
		assert.Error(t, err)
	})
}

type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []int64
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.msgs) > 0 {
		msg := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64{}, r.committed...)
}

func TestConsumer(t *testing.T) {
	t.Run("should commit handled and dropped messages and leave failed ones", func(t *testing.T) {
		reader := &fakeReader{msgs: []kafka.Message{
			{Offset: 1, Value: []byte("ok")},
			{Offset: 2, Value: []byte("fail")},
			{Offset: 3, Value: []byte("poison")},
			{Offset: 4, Value: []byte("ok")},
		}}
		handled := make(chan struct{}, 4)
		c := &Consumer{reader: reader, logger: testLogger(), handler: func(_ context.Context, msg *IncomingMessage) error {
			defer func() { handled <- struct{}{} }()
			switch string(msg.Value) {
			case "fail":
				return errors.New("database unavailable")
			case "poison":
				return fmt.Errorf("%w: undecodable batch", ErrDrop)
			}
			return nil
		}}

		c.Start(context.Background())
		for i := 0; i < 4; i++ {
			<-handled
		}
		require.Eventually(t, func() bool { return len(reader.commits()) == 3 }, time.Second, 10*time.Millisecond)
		require.NoError(t, c.Stop())

		assert.Equal(t, []int64{1, 3, 4}, reader.commits())
	})
}

func TestCollector(t *testing.T) {
	t.Run("should merge conversations and replace meetings by id", func(t *testing.T) {
		now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
		c := NewCollector()
		c.now = func() time.Time { return now }

		assert.Zero(t, c.IdleFor())

		c.Add(&RecordBatch{Kind: BatchConversations, Conversations: []models.ConversationRecord{
			{ID: "C2", RawName: "beta", Messages: []models.Message{{AuthorID: "U1", Text: "a"}}},
			{ID: "C1", RawName: "acme", Messages: []models.Message{{AuthorID: "U1", Text: "a"}}},
		}})
		c.Add(&RecordBatch{Kind: BatchConversations, Conversations: []models.ConversationRecord{
			{ID: "C1", RawName: "acme", Messages: []models.Message{{AuthorID: "U2", Text: "b"}}},
		}})
		c.Add(&RecordBatch{Kind: BatchMeetings, Meetings: []models.MeetingRecord{{ID: "M1", Title: "old"}}})
		c.Add(&RecordBatch{Kind: BatchMeetings, Meetings: []models.MeetingRecord{{ID: "M1", Title: "new"}}})

		now = now.Add(time.Minute)
		set := c.RecordSet()

		require.Len(t, set.Conversations, 2)
		assert.Equal(t, "C1", set.Conversations[0].ID)
		assert.Len(t, set.Conversations[0].Messages, 2)
		require.Len(t, set.Meetings, 1)
		assert.Equal(t, "new", set.Meetings[0].Title)
		assert.Equal(t, time.Minute, c.IdleFor())
	})
}
