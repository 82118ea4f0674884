package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	m := New("terbot")

	m.ObserveTurn("reply", 20*time.Millisecond)
	m.ObserveTurn("reply", 30*time.Millisecond)
	m.ObserveTurn("reset", time.Millisecond)
	m.ObserveFallback("backend")
	m.ObserveFacts(2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Turns.WithLabelValues("reply")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Turns.WithLabelValues("reset")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Fallbacks.WithLabelValues("backend")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Facts))
	assert.Equal(t, 1, testutil.CollectAndCount(m.TurnTime))
}

func TestRouter(t *testing.T) {
	m := New("terbot")
	m.ObserveTurn("farewell", time.Millisecond)
	srv := httptest.NewServer(m.Router("abc"))
	defer srv.Close()

	res, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "application/json", res.Header.Get("Content-Type"))

	res, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	buf := new(strings.Builder)
	_, err = io.Copy(buf, res.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `terbot_turns_total{outcome="farewell"} 1`)
}
