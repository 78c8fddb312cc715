package service

import (
	"awesomelights-bridge/internal/domain/model"
	"awesomelights-bridge/internal/ports"
	"math/rand/v2"

	"go.uber.org/zap"
)

// BadHost is the only host whose login is rejected.
const BadHost = "badhost"

type discoveredLight struct {
	name              string
	initialBrightness int
}

// Discovered lights, in the order the hub reports them.
var hubLights = []discoveredLight{
	{name: "Living Room Light", initialBrightness: model.DefaultInitialBrightness},
	{name: "Kitchen Counter Light", initialBrightness: 200},
	{name: "Bedroom Lamp", initialBrightness: model.DefaultInitialBrightness},
}

type randomCoin struct{}

func (randomCoin) Flip() bool { return rand.IntN(2) == 1 }

type Hub struct {
	host     string
	username string
	password *string

	coin    ports.Coin
	drivers ports.DriverFactory
	logger  *zap.Logger
}

type HubOption func(*Hub)

func WithPassword(password string) HubOption {
	return func(h *Hub) { h.password = &password }
}

func WithCoin(coin ports.Coin) HubOption {
	return func(h *Hub) { h.coin = coin }
}

func WithDriverFactory(factory ports.DriverFactory) HubOption {
	return func(h *Hub) { h.drivers = factory }
}

func WithLogger(logger *zap.Logger) HubOption {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHub stores the connection parameters. It performs no I/O.
// Without WithDriverFactory every light keeps its state in process memory.
func NewHub(host, username string, opts ...HubOption) *Hub {
	h := &Hub{
		host:     host,
		username: username,
		coin:     randomCoin{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.drivers == nil {
		h.drivers = MemoryDrivers
	}
	h.logger.Info("connecting to hub", zap.String("host", h.host), zap.String("username", h.username))
	return h
}

func (h *Hub) Host() string     { return h.host }
func (h *Hub) Username() string { return h.username }

// Password returns the optional password and whether it was set.
func (h *Hub) Password() (string, bool) {
	if h.password == nil {
		return "", false
	}
	return *h.password, true
}

func (h *Hub) IsValidLogin() bool {
	if h.host == BadHost {
		h.logger.Error("hub login failed", zap.String("host", h.host))
		return false
	}
	h.logger.Info("hub login successful", zap.String("host", h.host))
	return true
}

// Lights returns freshly discovered lights, each with its own driver and a
// random initial on/off state. An invalid login yields no lights.
func (h *Hub) Lights() []*AwesomeLight {
	if !h.IsValidLogin() {
		return []*AwesomeLight{}
	}

	lights := make([]*AwesomeLight, 0, len(hubLights))
	for _, d := range hubLights {
		initial := model.InitialState(h.coin.Flip(), d.initialBrightness)
		driver := h.drivers(d.name, initial)
		lights = append(lights, NewAwesomeLight(d.name, driver, initial, h.logger))
	}
	return lights
}
