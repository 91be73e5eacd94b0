package messaging_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/serroba/shortkit/internal/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type consumeTestEvent struct {
	ID string `json:"id"`
}

type mockSubscriber struct {
	msgs         chan *message.Message
	subscribeErr error
	closeErr     error
	mu           sync.Mutex
	closed       bool
}

func newMockSubscriber() *mockSubscriber {
	return &mockSubscriber{msgs: make(chan *message.Message, 10)}
}

func (m *mockSubscriber) Subscribe(_ context.Context, _ string) (<-chan *message.Message, error) {
	if m.subscribeErr != nil {
		return nil, m.subscribeErr
	}

	return m.msgs, nil
}

func (m *mockSubscriber) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed {
		m.closed = true
		close(m.msgs)
	}

	return m.closeErr
}

func newEventMessage(t *testing.T, event *consumeTestEvent) *message.Message {
	t.Helper()

	payload, err := json.Marshal(event)
	require.NoError(t, err)

	return message.NewMessage(uuid.NewString(), payload)
}

func TestConsumer_Start(t *testing.T) {
	t.Run("starts and shuts down cleanly", func(t *testing.T) {
		sub := newMockSubscriber()
		consumer := messaging.NewConsumer(sub, "test.topic",
			func(_ context.Context, _ *consumeTestEvent) error { return nil },
			zap.NewNop(),
		)

		require.NoError(t, consumer.Start(context.Background()))
		require.NoError(t, consumer.Shutdown())
	})

	t.Run("returns error when subscription fails", func(t *testing.T) {
		sub := &mockSubscriber{subscribeErr: errors.New("subscribe error")}
		consumer := messaging.NewConsumer(sub, "test.topic",
			func(_ context.Context, _ *consumeTestEvent) error { return nil },
			zap.NewNop(),
		)

		assert.Error(t, consumer.Start(context.Background()))
	})

	t.Run("exposes its topic", func(t *testing.T) {
		consumer := messaging.NewConsumer(newMockSubscriber(), "test.topic",
			func(_ context.Context, _ *consumeTestEvent) error { return nil },
			zap.NewNop(),
		)

		assert.Equal(t, "test.topic", consumer.Topic())
	})
}

func TestConsumer_HandleMessage(t *testing.T) {
	t.Run("acks after successful handling", func(t *testing.T) {
		sub := newMockSubscriber()

		var (
			mu     sync.Mutex
			events []*consumeTestEvent
		)

		consumer := messaging.NewConsumer(sub, "test.topic",
			func(_ context.Context, event *consumeTestEvent) error {
				mu.Lock()
				defer mu.Unlock()

				events = append(events, event)

				return nil
			},
			zap.NewNop(),
		)

		require.NoError(t, consumer.Start(context.Background()))

		msg := newEventMessage(t, &consumeTestEvent{ID: "abc123"})
		sub.msgs <- msg

		select {
		case <-msg.Acked():
		case <-msg.Nacked():
			t.Fatal("message was nacked")
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for ack")
		}

		mu.Lock()
		defer mu.Unlock()

		require.Len(t, events, 1)
		assert.Equal(t, "abc123", events[0].ID)

		_ = consumer.Shutdown()
	})

	t.Run("nacks on unmarshal error", func(t *testing.T) {
		sub := newMockSubscriber()
		consumer := messaging.NewConsumer(sub, "test.topic",
			func(_ context.Context, _ *consumeTestEvent) error { return nil },
			zap.NewNop(),
		)

		require.NoError(t, consumer.Start(context.Background()))

		msg := message.NewMessage(uuid.NewString(), []byte("not json"))
		sub.msgs <- msg

		select {
		case <-msg.Nacked():
		case <-msg.Acked():
			t.Fatal("message should have been nacked")
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for nack")
		}

		_ = consumer.Shutdown()
	})

	t.Run("nacks on handler error", func(t *testing.T) {
		sub := newMockSubscriber()
		consumer := messaging.NewConsumer(sub, "test.topic",
			func(_ context.Context, _ *consumeTestEvent) error { return errors.New("handler error") },
			zap.NewNop(),
		)

		require.NoError(t, consumer.Start(context.Background()))

		msg := newEventMessage(t, &consumeTestEvent{ID: "abc123"})
		sub.msgs <- msg

		select {
		case <-msg.Nacked():
		case <-msg.Acked():
			t.Fatal("message should have been nacked")
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for nack")
		}

		_ = consumer.Shutdown()
	})
}
