package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"awesomelights-bridge/internal/domain/model"
	"awesomelights-bridge/internal/domain/translator"
	"awesomelights-bridge/internal/ports"
	"net/http"
	"time"

	"github.com/amimof/huego"
	"go.uber.org/zap"
)

// Hue API error types
const (
	hueErrUnauthorized    = 1
	hueErrInvalidJSON     = 2
	hueErrResourceMissing = 3
	hueErrInternal        = 901
)

type Server struct {
	bridge            ports.BridgePort
	translatorFactory *translator.Factory
	ip                string
	port              int
	logger            *zap.Logger

	metricsPath    string
	metricsHandler http.Handler
}

type Option func(*Server)

// WithMetrics mounts a metrics handler, e.g. the Prometheus exporter.
func WithMetrics(path string, handler http.Handler) Option {
	return func(s *Server) {
		s.metricsPath = path
		s.metricsHandler = handler
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewServer(bridge ports.BridgePort, ip string, port int, opts ...Option) *Server {
	s := &Server{
		bridge:            bridge,
		translatorFactory: translator.NewFactory(),
		ip:                ip,
		port:              port,
		logger:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /description.xml", s.handleDescription)
	mux.HandleFunc("POST /api", s.handleRegister)
	mux.HandleFunc("POST /api/{$}", s.handleRegister)
	mux.HandleFunc("GET /api/{user}", s.handleFullState)
	mux.HandleFunc("GET /api/{user}/lights", s.handleGetLights)
	mux.HandleFunc("GET /api/{user}/lights/{id}", s.handleGetLight)
	mux.HandleFunc("PUT /api/{user}/lights/{id}/state", s.handleSetLightState)
	if s.metricsHandler != nil && s.metricsPath != "" {
		mux.Handle("GET "+s.metricsPath, s.metricsHandler)
	}
	return mux
}

func (s *Server) HTTPServer(addr string, readTimeout, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}
}

func (s *Server) handleDescription(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/xml")
	// Echo devices only pair with bridges that describe themselves as Philips hue.
	fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8" ?>
<root xmlns="urn:schemas-upnp-org:device-1-0">
<specVersion>
<major>1</major>
<minor>0</minor>
</specVersion>
<URLBase>http://%s:%d/</URLBase>
<device>
<deviceType>urn:schemas-upnp-org:device:Basic:1</deviceType>
<friendlyName>Philips hue (%s)</friendlyName>
<manufacturer>Royal Philips Electronics</manufacturer>
<manufacturerURL>http://www.philips.com</manufacturerURL>
<modelDescription>AwesomeLights Hue Bridge</modelDescription>
<modelName>Philips hue bridge 2012</modelName>
<modelNumber>929000226503</modelNumber>
<modelURL>http://www.meethue.com</modelURL>
<serialNumber>001788102201</serialNumber>
<UDN>uuid:2f402f80-da50-11e1-9b23-001788102201</UDN>
</device>
</root>`, s.ip, s.port, s.ip)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, []map[string]interface{}{
		{"success": map[string]string{"username": s.bridge.Username()}},
	})
}

func (s *Server) handleFullState(w http.ResponseWriter, r *http.Request) {
	lights, ok := s.lights(w, r)
	if !ok {
		return
	}

	fullState := map[string]interface{}{
		"lights": lights,
		"groups": make(map[string]interface{}),
		"config": map[string]interface{}{
			"name":       "AwesomeLights",
			"swversion":  "01003542",
			"apiversion": "1.11.0",
			"mac":        "00:17:88:10:22:01",
			"bridgeid":   "001788FFFE102201",
			"modelid":    "BSB001",
			"ipaddress":  s.ip,
		},
	}
	writeJSON(w, http.StatusOK, fullState)
}

func (s *Server) handleGetLights(w http.ResponseWriter, r *http.Request) {
	lights, ok := s.lights(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, lights)
}

func (s *Server) handleGetLight(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	device, err := s.bridge.GetDevice(r.Context(), id)
	if err != nil {
		s.writeBridgeError(w, "/lights/"+id, err)
		return
	}
	writeJSON(w, http.StatusOK, s.toHueLight(device))
}

type stateRequest struct {
	On  *bool    `json:"on"`
	Bri *float64 `json:"bri"`
}

func (s *Server) handleSetLightState(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	address := fmt.Sprintf("/lights/%s/state", id)

	var req stateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeHueError(w, http.StatusBadRequest, hueErrInvalidJSON, address, "body contains invalid json")
		return
	}

	update := ports.StateUpdate{On: req.On}
	if req.Bri != nil {
		// Hue levels run 1-254.
		bri := *req.Bri
		if bri < 1 {
			bri = 1
		}
		if bri > 254 {
			bri = 254
		}
		b := uint8(bri)
		update.Bri = &b
	}

	device, err := s.bridge.UpdateDeviceState(r.Context(), id, update)
	if err != nil {
		s.writeBridgeError(w, address, err)
		return
	}

	// Report the resulting state; a brightness ignored by "on": false is left out.
	resp := []map[string]interface{}{}
	if update.On != nil {
		resp = append(resp, map[string]interface{}{
			"success": map[string]interface{}{address + "/on": device.State.On},
		})
	}
	if update.Bri != nil && device.State.On {
		resp = append(resp, map[string]interface{}{
			"success": map[string]interface{}{address + "/bri": device.State.Bri},
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) lights(w http.ResponseWriter, r *http.Request) (map[string]*huego.Light, bool) {
	devices, err := s.bridge.GetDevices(r.Context())
	if err != nil {
		s.writeBridgeError(w, "/lights", err)
		return nil, false
	}

	lights := make(map[string]*huego.Light, len(devices))
	for _, d := range devices {
		lights[d.ID] = s.toHueLight(d)
	}
	return lights, true
}

func (s *Server) toHueLight(d *model.Device) *huego.Light {
	meta := s.translatorFactory.GetTranslator(d.Type).GetMetadata()
	return &huego.Light{
		Name:             d.Name,
		Type:             meta.Type,
		State:            d.State,
		ModelID:          meta.ModelID,
		UniqueID:         d.UniqueID,
		ManufacturerName: meta.ManufacturerName,
		ProductName:      meta.ProductName,
	}
}

func (s *Server) writeBridgeError(w http.ResponseWriter, address string, err error) {
	switch {
	case errors.Is(err, model.ErrDeviceNotFound):
		writeHueError(w, http.StatusNotFound, hueErrResourceMissing, address, "resource, "+address+", not available")
	case errors.Is(err, model.ErrInvalidLogin):
		writeHueError(w, http.StatusUnauthorized, hueErrUnauthorized, address, "unauthorized user")
	default:
		s.logger.Error("bridge request failed", zap.String("address", address), zap.Error(err))
		writeHueError(w, http.StatusBadGateway, hueErrInternal, address, err.Error())
	}
}

func writeHueError(w http.ResponseWriter, status, hueType int, address, description string) {
	writeJSON(w, status, []map[string]interface{}{
		{"error": map[string]interface{}{
			"type":        hueType,
			"address":     address,
			"description": description,
		}},
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
