package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"attendance-service/common/telemetry"
	"attendance-service/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNewPublisher(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	pub, err := newPublisher(config.EventsConfig{Driver: "none"}, logger, nil)
	require.NoError(t, err)
	assert.Nil(t, pub)

	_, err = newPublisher(config.EventsConfig{
		Driver: "nats",
		NATS:   config.NATSConfig{URL: "nats://127.0.0.1:1", Subject: "attendance.marked"},
	}, logger, nil)
	assert.Error(t, err)
}

func TestSeconds(t *testing.T) {
	assert.Equal(t, 15*time.Second, seconds(0, 15))
	assert.Equal(t, 3*time.Second, seconds(3, 15))
}

func TestAbortInitShutsDownTelemetry(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	reader := sdkmetric.NewManualReader()
	tel := &telemetry.Telemetry{MeterProvider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))}
	require.NoError(t, reader.Collect(ctx, &metricdata.ResourceMetrics{}))

	cause := errors.New("database unreachable")
	err := abortInit(ctx, tel, logger, cause)
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, reader.Collect(ctx, &metricdata.ResourceMetrics{}), sdkmetric.ErrReaderShutdown)

	// Disabled telemetry has no provider to release.
	assert.ErrorIs(t, abortInit(ctx, &telemetry.Telemetry{}, logger, cause), cause)
}
