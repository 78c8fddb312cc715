package metrics

import (
	"awesomelights-bridge/internal/ports"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.Recorder = (*AppMetrics)(nil)

func TestAppMetrics(t *testing.T) {
	reg := NewRegistry()
	m := NewAppMetrics(reg)

	m.LightCommand("turn_on", nil)
	m.LightCommand("turn_on", nil)
	m.LightCommand("set_brightness", errors.New("unreachable"))
	m.LightBrightness("Bedroom Lamp", 128)
	m.LightBrightness("Bedroom Lamp", 0)
	m.HubLogin(true)
	m.HubLogin(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Commands.WithLabelValues("turn_on", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Commands.WithLabelValues("set_brightness", "error")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Brightness.WithLabelValues("Bedroom Lamp")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Logins.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Logins.WithLabelValues("rejected")))
}

func TestHandler(t *testing.T) {
	reg := NewRegistry()
	m := NewAppMetrics(reg)
	m.HubLogin(true)

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `awesomelights_hub_logins_total{result="ok"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
