package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProducerPublish(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("KeyedJSONMessage", func(t *testing.T) {
		sp := mocks.NewSyncProducer(t, NewConfig())
		sp.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
			assert.Equal(t, "attendance.marked", msg.Topic)

			key, err := msg.Key.Encode()
			require.NoError(t, err)
			assert.Equal(t, "2024-03-05", string(key))

			value, err := msg.Value.Encode()
			require.NoError(t, err)
			var payload map[string]interface{}
			require.NoError(t, json.Unmarshal(value, &payload))
			assert.Equal(t, float64(2), payload["inserted"])
			return nil
		})

		producer := NewProducerWithClient(sp, "attendance.marked", logger, nil)
		err := producer.Publish(context.Background(), "2024-03-05", map[string]int{"inserted": 2})
		require.NoError(t, err)
		require.NoError(t, producer.Close())
	})

	t.Run("BrokerFailure", func(t *testing.T) {
		sp := mocks.NewSyncProducer(t, NewConfig())
		sp.ExpectSendMessageAndFail(sarama.ErrNotLeaderForPartition)

		producer := NewProducerWithClient(sp, "attendance.marked", logger, nil)
		err := producer.Publish(context.Background(), "2024-03-05", map[string]int{"inserted": 1})
		assert.True(t, errors.Is(err, sarama.ErrNotLeaderForPartition))
		require.NoError(t, producer.Close())
	})

	t.Run("UnencodableEvent", func(t *testing.T) {
		sp := mocks.NewSyncProducer(t, NewConfig())

		producer := NewProducerWithClient(sp, "attendance.marked", logger, nil)
		err := producer.Publish(context.Background(), "k", make(chan int))
		assert.Error(t, err)
		require.NoError(t, producer.Close())
	})
}
