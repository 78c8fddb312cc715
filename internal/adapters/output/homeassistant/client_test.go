package homeassistant

import (
	"context"
	"encoding/json"
	"awesomelights-bridge/internal/domain/model"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serviceCall struct {
	Path    string
	Payload map[string]interface{}
}

// fakeHA serves /api/states/{entity} from a map and records service calls.
type fakeHA struct {
	mu        sync.Mutex
	states    map[string]EntityState
	calls     []serviceCall
	stateHits int
	status    int
}

func (f *fakeHA) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/states/{entity}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		f.mu.Lock()
		defer f.mu.Unlock()
		f.stateHits++
		st, ok := f.states[r.PathValue("entity")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(st)
	})
	mux.HandleFunc("POST /api/services/{domain}/{service}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var payload map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		f.mu.Lock()
		defer f.mu.Unlock()
		f.calls = append(f.calls, serviceCall{Path: r.URL.Path, Payload: payload})
		if f.status != 0 {
			w.WriteHeader(f.status)
			return
		}
		w.Write([]byte("[]"))
	})
	return mux
}

func newTestClient(t *testing.T, f *fakeHA, opts Options) *Client {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	opts.URL = srv.URL + "/"
	opts.Token = "secret"
	return NewClient(opts, nil)
}

func TestLightDriver_Commands(t *testing.T) {
	f := &fakeHA{}
	c := newTestClient(t, f, Options{})
	d := c.Driver("light.kitchen")
	ctx := context.Background()

	require.NoError(t, d.TurnOn(ctx))
	require.NoError(t, d.TurnOff(ctx))
	require.NoError(t, d.SetBrightness(ctx, 120))
	require.NoError(t, d.SetBrightness(ctx, 0))

	require.Len(t, f.calls, 4)
	assert.Equal(t, "/api/services/light/turn_on", f.calls[0].Path)
	assert.Equal(t, "light.kitchen", f.calls[0].Payload["entity_id"])
	assert.Equal(t, "/api/services/light/turn_off", f.calls[1].Path)
	assert.Equal(t, "/api/services/light/turn_on", f.calls[2].Path)
	assert.Equal(t, 120.0, f.calls[2].Payload["brightness"])
	assert.Equal(t, "/api/services/light/turn_off", f.calls[3].Path)
}

func TestLightDriver_SwitchIgnoresBrightness(t *testing.T) {
	f := &fakeHA{}
	d := newTestClient(t, f, Options{}).Driver("switch.lamp")

	require.NoError(t, d.SetBrightness(context.Background(), 80))
	require.Len(t, f.calls, 1)
	assert.Equal(t, "/api/services/switch/turn_on", f.calls[0].Path)
	assert.NotContains(t, f.calls[0].Payload, "brightness")
}

func TestLightDriver_Formulas(t *testing.T) {
	f := &fakeHA{states: map[string]EntityState{
		"light.desk": {EntityID: "light.desk", State: "on", Attributes: map[string]interface{}{"brightness": 50.0}},
	}}
	c := newTestClient(t, f, Options{ToHAFormula: "x / 2.55", ToAwesomeFormula: "x * 2.55"})
	d := c.Driver("light.desk")
	ctx := context.Background()

	require.NoError(t, d.SetBrightness(ctx, 255))
	assert.Equal(t, 100.0, f.calls[0].Payload["brightness"])

	bri, err := d.Brightness(ctx)
	require.NoError(t, err)
	assert.Equal(t, 128, bri)
}

func TestLightDriver_LowLevelsStayOn(t *testing.T) {
	f := &fakeHA{states: map[string]EntityState{
		"light.dim": {State: "on", Attributes: map[string]interface{}{"brightness": 1.0}},
	}}
	c := newTestClient(t, f, Options{ToHAFormula: "x / 2.55", ToAwesomeFormula: "x / 10"})
	d := c.Driver("light.dim")
	ctx := context.Background()

	require.NoError(t, d.SetBrightness(ctx, 1))
	require.Len(t, f.calls, 1)
	assert.Equal(t, "/api/services/light/turn_on", f.calls[0].Path)
	assert.Equal(t, 1.0, f.calls[0].Payload["brightness"])

	on, err := d.State(ctx)
	require.NoError(t, err)
	assert.True(t, on)
	bri, err := d.Brightness(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, bri)
}

func TestLightDriver_State(t *testing.T) {
	f := &fakeHA{states: map[string]EntityState{
		"light.on":     {State: "on", Attributes: map[string]interface{}{"brightness": 90.0}},
		"light.off":    {State: "off", Attributes: map[string]interface{}{"brightness": 90.0}},
		"switch.plain": {State: "on", Attributes: map[string]interface{}{}},
	}}
	c := newTestClient(t, f, Options{})
	ctx := context.Background()

	on, err := c.Driver("light.on").State(ctx)
	require.NoError(t, err)
	assert.True(t, on)
	bri, _ := c.Driver("light.on").Brightness(ctx)
	assert.Equal(t, 90, bri)

	on, _ = c.Driver("light.off").State(ctx)
	assert.False(t, on)
	bri, _ = c.Driver("light.off").Brightness(ctx)
	assert.Equal(t, 0, bri)

	bri, _ = c.Driver("switch.plain").Brightness(ctx)
	assert.Equal(t, model.MaxBrightness, bri)

	_, err = c.Driver("light.missing").State(ctx)
	assert.ErrorIs(t, err, model.ErrDeviceNotFound)
}

func TestClient_StateCache(t *testing.T) {
	f := &fakeHA{states: map[string]EntityState{
		"light.desk": {State: "on", Attributes: map[string]interface{}{"brightness": 10.0}},
	}}
	c := newTestClient(t, f, Options{CacheTTL: time.Minute})
	d := c.Driver("light.desk")
	ctx := context.Background()

	_, err := d.State(ctx)
	require.NoError(t, err)
	_, err = d.Brightness(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, f.stateHits)

	// A command invalidates the cached state.
	require.NoError(t, d.TurnOff(ctx))
	_, err = d.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, f.stateHits)
}

func TestClient_ErrorStatus(t *testing.T) {
	f := &fakeHA{status: http.StatusInternalServerError}
	d := newTestClient(t, f, Options{}).Driver("light.desk")

	err := d.TurnOn(context.Background())
	assert.ErrorContains(t, err, "HA API error: 500")
}

func TestClient_NotConfigured(t *testing.T) {
	c := NewClient(Options{}, nil)
	assert.False(t, c.IsConfigured())

	err := c.Driver("light.desk").TurnOn(context.Background())
	assert.ErrorIs(t, err, model.ErrNotConfigured)
}

func TestFactory(t *testing.T) {
	c := NewClient(Options{}, nil)
	factory := Factory(c, map[string]string{"Bedroom Lamp": "light.bed_side"})

	d := factory("Bedroom Lamp", model.LightState{}).(*LightDriver)
	assert.Equal(t, "light.bed_side", d.EntityID())

	factory = Factory(c, map[string]string{"bedroom lamp": "light.bed_side"})
	d = factory("Bedroom Lamp", model.LightState{}).(*LightDriver)
	assert.Equal(t, "light.bed_side", d.EntityID())

	d = factory("Kitchen Counter Light", model.LightState{}).(*LightDriver)
	assert.Equal(t, "light.kitchen_counter_light", d.EntityID())
}

func TestEntityIDFor(t *testing.T) {
	assert.Equal(t, "light.living_room_light", EntityIDFor("Living Room Light"))
	assert.Equal(t, "light.bedroom_lamp", EntityIDFor("  Bedroom -- Lamp! "))
}
