package service

import (
	"context"
	"fmt"
	"awesomelights-bridge/internal/domain/model"
	"awesomelights-bridge/internal/ports"
	"sync"

	"go.uber.org/zap"
)

// AwesomeLight is a single dimmable light. Commands go to its driver first;
// the cached state only moves once the driver accepted the command.
type AwesomeLight struct {
	name   string
	driver ports.LightDriver
	logger *zap.Logger

	mu    sync.RWMutex
	state model.LightState
}

func NewAwesomeLight(name string, driver ports.LightDriver, initial model.LightState, logger *zap.Logger) *AwesomeLight {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &AwesomeLight{
		name:   name,
		driver: driver,
		logger: logger.With(zap.String("light", name)),
		state:  initial.Normalized(),
	}
	l.logger.Info("light initialized",
		zap.Bool("on", l.state.On),
		zap.Int("brightness", l.state.Brightness))
	return l
}

func (l *AwesomeLight) Name() string { return l.name }

func (l *AwesomeLight) TurnOn(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.driver.TurnOn(ctx); err != nil {
		return fmt.Errorf("turn on %q: %w", l.name, err)
	}
	l.state = l.state.TurnedOn()
	l.logger.Info("light turned on", zap.Int("brightness", l.state.Brightness))
	return nil
}

func (l *AwesomeLight) TurnOff(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.driver.TurnOff(ctx); err != nil {
		return fmt.Errorf("turn off %q: %w", l.name, err)
	}
	l.state = l.state.TurnedOff()
	l.logger.Info("light turned off")
	return nil
}

// SetBrightness clamps value to [0,255]; a clamped value of 0 turns the light off.
func (l *AwesomeLight) SetBrightness(ctx context.Context, value int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.state.WithBrightness(value)
	if err := l.driver.SetBrightness(ctx, next.Brightness); err != nil {
		return fmt.Errorf("set brightness of %q: %w", l.name, err)
	}
	l.state = next
	l.logger.Info("light brightness set", zap.Int("brightness", l.state.Brightness))
	return nil
}

// Update syncs the cached state from the driver. For the in-memory driver
// this never changes anything.
func (l *AwesomeLight) Update(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	on, err := l.driver.State(ctx)
	if err != nil {
		return fmt.Errorf("update %q: %w", l.name, err)
	}
	brightness, err := l.driver.Brightness(ctx)
	if err != nil {
		return fmt.Errorf("update %q: %w", l.name, err)
	}
	l.state = model.LightState{On: on, Brightness: brightness}.Normalized()
	l.logger.Debug("light state updated",
		zap.Bool("on", l.state.On),
		zap.Int("brightness", l.state.Brightness))
	return nil
}

func (l *AwesomeLight) IsOn() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.On
}

func (l *AwesomeLight) Brightness() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Brightness
}

func (l *AwesomeLight) State() model.LightState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}
