package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Init()
		Init()
	})
}

func TestRecorders(t *testing.T) {
	before := testutil.ToFloat64(SinkPublishTotal.WithLabelValues("nats", "error"))
	RecordSinkPublish("nats", errors.New("down"))
	assert.Equal(t, before+1, testutil.ToFloat64(SinkPublishTotal.WithLabelValues("nats", "error")))

	RecordConnectionState(2)
	assert.Equal(t, 2.0, testutil.ToFloat64(ConnectionState))

	RecordBlock(5200001)
	assert.Equal(t, 5200001.0, testutil.ToFloat64(LastBlockHeight))

	drifts := testutil.ToFloat64(PriceDriftsTotal.WithLabelValues("uusd"))
	RecordDrift("uusd")
	assert.Equal(t, drifts+1, testutil.ToFloat64(PriceDriftsTotal.WithLabelValues("uusd")))
}

func TestServerExposesMetrics(t *testing.T) {
	Init()
	RecordReconnect()

	srv := NewServer(":0", "/custom")
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/custom", nil))

	require.Equal(t, 200, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "oracle_watch_reconnects_total")
}
