package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authsvc/pkg/events"
)

type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	return m.Called(ctx, msgs).Error(0)
}

func (m *mockWriter) Close() error {
	return m.Called().Error(0)
}

func TestKafkaPublisher(t *testing.T) {
	t.Parallel()

	t.Run("writes keyed json", func(t *testing.T) {
		t.Parallel()
		w := &mockWriter{}
		w.On("WriteMessages", mock.MatchedBy(func(ctx context.Context) bool {
			_, ok := ctx.Deadline()
			return ok
		}), mock.MatchedBy(func(msgs []kafka.Message) bool {
			if len(msgs) != 1 || string(msgs[0].Key) != "user-1" {
				return false
			}
			var v map[string]string
			return json.Unmarshal(msgs[0].Value, &v) == nil && v["type"] == "user.registered"
		})).Return(nil).Once()
		w.On("Close").Return(nil).Once()

		p := events.NewKafkaPublisherWithWriter(w, time.Second)
		require.NoError(t, p.Publish(context.Background(), "user-1", map[string]string{"type": "user.registered"}))
		require.NoError(t, p.Close())
		w.AssertExpectations(t)
	})

	t.Run("write failure", func(t *testing.T) {
		t.Parallel()
		w := &mockWriter{}
		w.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()

		err := events.NewKafkaPublisherWithWriter(w, 0).Publish(context.Background(), "k", 1)
		assert.ErrorIs(t, err, events.ErrPublish)
		assert.ErrorContains(t, err, "broker down")
	})

	t.Run("unmarshalable value", func(t *testing.T) {
		t.Parallel()
		w := &mockWriter{}
		err := events.NewKafkaPublisherWithWriter(w, 0).Publish(context.Background(), "k", make(chan int))
		assert.ErrorIs(t, err, events.ErrMarshal)
		w.AssertNotCalled(t, "WriteMessages", mock.Anything, mock.Anything)
	})
}

func TestNew(t *testing.T) {
	t.Parallel()

	p := events.New(events.Config{}, nil)
	assert.IsType(t, &events.LogPublisher{}, p)
	assert.NoError(t, p.Publish(context.Background(), "k", map[string]int{"a": 1}))

	p = events.New(events.Config{Brokers: []string{"localhost:9092"}, Topic: "t"}, nil)
	assert.IsType(t, &events.KafkaPublisher{}, p)
}
