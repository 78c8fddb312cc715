package ports

import (
	"context"
	"awesomelights-bridge/internal/domain/model"
)

// LightDriver is the capability a light delegates to. Implementations own the
// state of exactly one physical (or simulated) light.
type LightDriver interface {
	TurnOn(ctx context.Context) error
	TurnOff(ctx context.Context) error
	State(ctx context.Context) (bool, error)
	Brightness(ctx context.Context) (int, error)
	// SetBrightness with a value <= 0 turns the light off.
	SetBrightness(ctx context.Context, value int) error
}

// DriverFactory builds a dedicated driver for each light the hub discovers.
type DriverFactory func(name string, initial model.LightState) LightDriver

// Coin decides the random initial on/off state of discovered lights.
type Coin interface {
	Flip() bool
}

// Recorder receives light activity for metrics.
type Recorder interface {
	LightCommand(op string, err error)
	LightBrightness(name string, brightness int)
	HubLogin(valid bool)
}
