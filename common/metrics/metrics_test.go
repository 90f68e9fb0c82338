package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collectSums(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	sums := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					sums[m.Name] += dp.Value
				}
			case metricdata.Gauge[int64]:
				for _, dp := range data.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}
	return sums
}

func TestCollectors(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test")

	db, err := NewDatabaseMetrics(meter)
	require.NoError(t, err)
	messaging, err := NewMessagingMetrics(meter)
	require.NoError(t, err)
	health, err := NewHealthMetrics(meter)
	require.NoError(t, err)
	_, err = NewRuntimeMetrics(meter)
	require.NoError(t, err)

	ctx := context.Background()
	db.RecordQuery(ctx, "insert", "attendances", time.Millisecond, nil)
	db.RecordQuery(ctx, "select", "attendances", time.Millisecond, errors.New("boom"))
	db.RecordRowsAffected(ctx, "insert", "attendances", 5)
	messaging.RecordPublish(ctx, "nats", "attendance.marked", time.Millisecond, nil)
	messaging.RecordPublish(ctx, "kafka", "attendance.marked", time.Millisecond, errors.New("no leader"))
	health.RecordDependencyCheck(ctx, "postgres", time.Millisecond, nil)

	sums := collectSums(t, reader)
	assert.EqualValues(t, 1, sums["db.query.errors"])
	assert.EqualValues(t, 5, sums["db.query.rows_affected"])
	assert.EqualValues(t, 2, sums["messaging.messages.published"])
	assert.EqualValues(t, 1, sums["messaging.messages.errors"])
	assert.EqualValues(t, 1, sums["dependency.up"])
	assert.Positive(t, sums["runtime.go.goroutines"])
}

func TestMockIgnoresRecords(t *testing.T) {
	m := NewMock()
	ctx := context.Background()

	assert.NotPanics(t, func() {
		m.Database.RecordQuery(ctx, "select", "holidays", time.Millisecond, nil)
		m.Database.RecordRowsAffected(ctx, "update", "attendances", 1)
		m.Messaging.RecordPublish(ctx, "nats", "x", time.Millisecond, nil)
		m.Health.RecordDependencyCheck(ctx, "postgres", time.Millisecond, errors.New("down"))
		require.NoError(t, m.Database.RegisterDB(nil, nil))
	})
}
