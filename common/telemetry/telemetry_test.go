package telemetry

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDisabled(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	tel, err := Init(ctx, Config{ServiceName: "attendance-service", ServiceVersion: "test", Env: "test"}, false, logger)
	require.NoError(t, err)

	assert.Nil(t, tel.MeterProvider)
	require.NotNil(t, tel.Metrics)
	assert.NotNil(t, tel.Metrics.Database)
	assert.NoError(t, tel.Shutdown(ctx, logger))
}

func TestShutdownNil(t *testing.T) {
	var tel *Telemetry
	assert.NoError(t, tel.Shutdown(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil))))
}
