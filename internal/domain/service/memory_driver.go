package service

import (
	"context"
	"awesomelights-bridge/internal/domain/model"
	"awesomelights-bridge/internal/ports"
	"sync"
)

// MemoryDriver keeps a light's state in process memory. It never fails.
type MemoryDriver struct {
	mu    sync.Mutex
	state model.LightState
}

func NewMemoryDriver(initial model.LightState) *MemoryDriver {
	return &MemoryDriver{state: initial.Normalized()}
}

// MemoryDrivers gives every light its own MemoryDriver.
var MemoryDrivers ports.DriverFactory = func(_ string, initial model.LightState) ports.LightDriver {
	return NewMemoryDriver(initial)
}

func (d *MemoryDriver) TurnOn(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = d.state.TurnedOn()
	return nil
}

func (d *MemoryDriver) TurnOff(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = d.state.TurnedOff()
	return nil
}

func (d *MemoryDriver) State(ctx context.Context) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.On, nil
}

func (d *MemoryDriver) Brightness(ctx context.Context) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.Brightness, nil
}

func (d *MemoryDriver) SetBrightness(ctx context.Context, value int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = d.state.WithBrightness(value)
	return nil
}
