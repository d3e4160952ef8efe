package telemetry

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerLevel(t *testing.T) {
	logger := NewLogger("debug", nil)
	assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())

	logger = NewLogger("invalid", nil)
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())

	logger = NewLogger("", nil)
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
}

func TestNewLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("info", &buf)
	logger.Warn().Str("chain", "solana").Msg("quote mismatch")

	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), `"chain":"solana"`)
	assert.Contains(t, buf.String(), `"time"`)
}

func TestMetricsRegistered(t *testing.T) {
	SwapsTotal.WithLabelValues("solana", OutcomeSuccess).Inc()
	ObserveStep("solana", "quote", time.Now())
	BalanceRequestsTotal.WithLabelValues("solana").Inc()

	mfs, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	assert.True(t, names["swaps_total"])
	assert.True(t, names["swap_step_seconds"])
	assert.True(t, names["balance_requests_total"])
}

func TestHandlerServesMetrics(t *testing.T) {
	SwapsTotal.WithLabelValues("base", OutcomeRejected).Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `swaps_total{chain="base",outcome="rejected"}`)
}

func TestInitTracerWithoutEndpoint(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), "multiswap", "")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
