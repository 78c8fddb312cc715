package http

import (
	"context"
	"encoding/json"
	"errors"
	"awesomelights-bridge/internal/adapters/output/persistence"
	"awesomelights-bridge/internal/domain/model"
	"awesomelights-bridge/internal/domain/service"
	"awesomelights-bridge/internal/ports"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/amimof/huego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type offCoin struct{}

func (offCoin) Flip() bool { return false }

type MockBridge struct {
	mock.Mock
}

func (m *MockBridge) GetDevices(ctx context.Context) ([]*model.Device, error) {
	args := m.Called(ctx)
	devices, _ := args.Get(0).([]*model.Device)
	return devices, args.Error(1)
}

func (m *MockBridge) GetDevice(ctx context.Context, id string) (*model.Device, error) {
	args := m.Called(ctx, id)
	d, _ := args.Get(0).(*model.Device)
	return d, args.Error(1)
}

func (m *MockBridge) UpdateDeviceState(ctx context.Context, id string, update ports.StateUpdate) (*model.Device, error) {
	args := m.Called(ctx, id, update)
	d, _ := args.Get(0).(*model.Device)
	return d, args.Error(1)
}

func (m *MockBridge) Username() string {
	return m.Called().String(0)
}

func newTestServer(t *testing.T, host string) *httptest.Server {
	t.Helper()
	reg := persistence.NewJSONDeviceRegistry(filepath.Join(t.TempDir(), "devices.json"))
	hub := service.NewHub(host, "admin", service.WithCoin(offCoin{}))
	bridge := service.NewBridgeService(hub, reg, nil, nil)

	srv := httptest.NewServer(NewServer(bridge, "10.0.0.5", 80).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf strings.Builder
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, []byte(buf.String())
}

func TestServer_Description(t *testing.T) {
	srv := newTestServer(t, "anyhost")

	resp, body := do(t, http.MethodGet, srv.URL+"/description.xml", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/xml", resp.Header.Get("Content-Type"))
	assert.Contains(t, string(body), "<URLBase>http://10.0.0.5:80/</URLBase>")
	assert.Contains(t, string(body), "AwesomeLights")
}

func TestServer_Register(t *testing.T) {
	srv := newTestServer(t, "anyhost")

	resp, body := do(t, http.MethodPost, srv.URL+"/api", `{"devicetype":"echo"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[{"success":{"username":"admin"}}]`, string(body))
}

func TestServer_GetLights(t *testing.T) {
	srv := newTestServer(t, "anyhost")

	resp, body := do(t, http.MethodGet, srv.URL+"/api/admin/lights", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var lights map[string]huego.Light
	require.NoError(t, json.Unmarshal(body, &lights))
	require.Len(t, lights, 3)
	assert.Equal(t, "Living Room Light", lights["1"].Name)
	assert.Equal(t, "Kitchen Counter Light", lights["2"].Name)
	assert.Equal(t, "Bedroom Lamp", lights["3"].Name)
	assert.Equal(t, "Dimmable light", lights["1"].Type)
	assert.Equal(t, "LWB004", lights["1"].ModelID)
	assert.NotEmpty(t, lights["1"].UniqueID)
	require.NotNil(t, lights["1"].State)
	assert.False(t, lights["1"].State.On)
	assert.True(t, lights["1"].State.Reachable)
}

func TestServer_FullState(t *testing.T) {
	srv := newTestServer(t, "anyhost")

	resp, body := do(t, http.MethodGet, srv.URL+"/api/admin", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var state struct {
		Lights map[string]huego.Light  `json:"lights"`
		Config map[string]interface{} `json:"config"`
	}
	require.NoError(t, json.Unmarshal(body, &state))
	assert.Len(t, state.Lights, 3)
	assert.Equal(t, "10.0.0.5", state.Config["ipaddress"])
}

func TestServer_GetLight(t *testing.T) {
	srv := newTestServer(t, "anyhost")

	resp, body := do(t, http.MethodGet, srv.URL+"/api/admin/lights/3", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var light huego.Light
	require.NoError(t, json.Unmarshal(body, &light))
	assert.Equal(t, "Bedroom Lamp", light.Name)

	resp, body = do(t, http.MethodGet, srv.URL+"/api/admin/lights/42", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), `"type":3`)
}

func TestServer_SetLightState(t *testing.T) {
	srv := newTestServer(t, "anyhost")
	url := srv.URL + "/api/admin/lights/2/state"

	resp, body := do(t, http.MethodPut, url, `{"on":true,"bri":100}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[
		{"success":{"/lights/2/state/on":true}},
		{"success":{"/lights/2/state/bri":100}}
	]`, string(body))

	_, body = do(t, http.MethodGet, srv.URL+"/api/admin/lights/2", "")
	var light huego.Light
	require.NoError(t, json.Unmarshal(body, &light))
	assert.True(t, light.State.On)
	assert.Equal(t, uint8(100), light.State.Bri)

	// Out of range brightness is clamped to the Hue maximum.
	resp, body = do(t, http.MethodPut, url, `{"bri":400}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[{"success":{"/lights/2/state/bri":254}}]`, string(body))

	// The dimmest Hue level keeps the light on.
	resp, body = do(t, http.MethodPut, url, `{"on":true,"bri":0}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[
		{"success":{"/lights/2/state/on":true}},
		{"success":{"/lights/2/state/bri":1}}
	]`, string(body))

	resp, body = do(t, http.MethodPut, url, `{"on":false,"bri":90}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[{"success":{"/lights/2/state/on":false}}]`, string(body))
	_, body = do(t, http.MethodGet, srv.URL+"/api/admin/lights/2", "")
	require.NoError(t, json.Unmarshal(body, &light))
	assert.False(t, light.State.On)
}

func TestServer_SetLightState_InvalidJSON(t *testing.T) {
	srv := newTestServer(t, "anyhost")

	resp, body := do(t, http.MethodPut, srv.URL+"/api/admin/lights/1/state", `{"on":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), `"type":2`)
}

func TestServer_InvalidLogin(t *testing.T) {
	srv := newTestServer(t, service.BadHost)

	resp, body := do(t, http.MethodGet, srv.URL+"/api/admin/lights", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, string(body), "unauthorized user")
}

func TestServer_DriverFailure(t *testing.T) {
	bridge := new(MockBridge)
	bridge.On("UpdateDeviceState", mock.Anything, "1", mock.Anything).
		Return(nil, errors.New("light unreachable"))

	srv := httptest.NewServer(NewServer(bridge, "10.0.0.5", 80).Handler())
	defer srv.Close()

	resp, body := do(t, http.MethodPut, srv.URL+"/api/admin/lights/1/state", `{"on":true}`)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, string(body), "light unreachable")
	bridge.AssertExpectations(t)
}

func TestServer_Metrics(t *testing.T) {
	bridge := new(MockBridge)
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	srv := httptest.NewServer(NewServer(bridge, "10.0.0.5", 80, WithMetrics("/metrics", metrics)).Handler())
	defer srv.Close()

	resp, body := do(t, http.MethodGet, srv.URL+"/metrics", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
}
