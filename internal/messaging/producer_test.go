package messaging_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"attendance-service/internal/attendance"
	"attendance-service/internal/messaging"
	"attendance-service/testing/testnats"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProducerWithNATSContainer(t *testing.T) {
	natsContainer := testnats.SetupSharedNATS(t)
	defer natsContainer.Cleanup(t)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("PublishMarkedEvent", func(t *testing.T) {
		subject := "test.attendance." + strings.ReplaceAll(t.Name(), "/", ".")
		producer, err := messaging.NewProducer(natsContainer.URL, subject, logger, nil)
		require.NoError(t, err)
		defer producer.Close()

		nc := natsContainer.Connect(t)
		received := make(chan *nats.Msg, 1)
		_, err = nc.Subscribe(subject, func(msg *nats.Msg) {
			received <- msg
		})
		require.NoError(t, err)
		require.NoError(t, nc.Flush())

		event := attendance.MarkedEvent{
			Date:       time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
			Inserted:   2,
			Attempted:  3,
			StudentIDs: []int64{1, 2, 3},
		}
		require.NoError(t, producer.Publish(context.Background(), "2024-03-05", event))

		select {
		case msg := <-received:
			assert.Equal(t, "2024-03-05", msg.Header.Get(messaging.KeyHeader))

			var got attendance.MarkedEvent
			require.NoError(t, json.Unmarshal(msg.Data, &got))
			assert.True(t, event.Date.Equal(got.Date))
			assert.Equal(t, event.StudentIDs, got.StudentIDs)
			assert.Equal(t, int64(2), got.Inserted)
		case <-time.After(2 * time.Second):
			t.Fatal("event not received on NATS within timeout")
		}
	})

	t.Run("PublishAfterCloseFails", func(t *testing.T) {
		producer, err := messaging.NewProducer(natsContainer.URL, "test.attendance.closed", logger, nil)
		require.NoError(t, err)
		require.NoError(t, producer.Close())

		require.Eventually(t, func() bool {
			return producer.Publish(context.Background(), "k", map[string]string{"a": "b"}) != nil
		}, 2*time.Second, 50*time.Millisecond)
	})

	t.Run("ConnectFailure", func(t *testing.T) {
		_, err := messaging.NewProducer("nats://127.0.0.1:1", "x", logger, nil)
		assert.Error(t, err)
	})
}
