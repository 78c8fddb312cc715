package service

import (
	"context"
	"fmt"
	"awesomelights-bridge/internal/domain/model"
	"awesomelights-bridge/internal/domain/translator"
	"awesomelights-bridge/internal/ports"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type nopRecorder struct{}

func (nopRecorder) LightCommand(string, error)  {}
func (nopRecorder) LightBrightness(string, int) {}
func (nopRecorder) HubLogin(bool)               {}

type bridgeLight struct {
	record *model.DeviceRecord
	light  *AwesomeLight
}

// BridgeService exposes the hub's lights under stable Hue identifiers.
type BridgeService struct {
	hub               *Hub
	registry          ports.DeviceRegistry
	recorder          ports.Recorder
	translatorFactory *translator.Factory
	logger            *zap.Logger

	mu     sync.RWMutex
	loaded bool
	order  []string
	lights map[string]*bridgeLight
}

func NewBridgeService(hub *Hub, registry ports.DeviceRegistry, recorder ports.Recorder, logger *zap.Logger) *BridgeService {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BridgeService{
		hub:               hub,
		registry:          registry,
		recorder:          recorder,
		translatorFactory: translator.NewFactory(),
		logger:            logger,
		lights:            make(map[string]*bridgeLight),
	}
}

func (s *BridgeService) Username() string {
	return s.hub.Username()
}

// RefreshDevices rediscovers the hub's lights and syncs each one from its driver.
func (s *BridgeService) RefreshDevices(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked(ctx)
}

func (s *BridgeService) refreshLocked(ctx context.Context) error {
	lights := s.hub.Lights()
	if len(lights) == 0 {
		s.recorder.HubLogin(false)
		return fmt.Errorf("hub %s: %w", s.hub.Host(), model.ErrInvalidLogin)
	}
	s.recorder.HubLogin(true)

	reg, err := s.registry.Get(ctx)
	if err != nil {
		return fmt.Errorf("load device registry: %w", err)
	}

	dirty := false
	order := make([]string, 0, len(lights))
	byID := make(map[string]*bridgeLight, len(lights))
	for _, l := range lights {
		rec := reg.Find(l.Name())
		if rec == nil {
			rec = &model.DeviceRecord{
				HueID:    nextHueID(reg),
				UniqueID: newUniqueID(),
				Name:     l.Name(),
			}
			reg.Devices = append(reg.Devices, rec)
			dirty = true
		}
		s.sync(ctx, l)
		order = append(order, rec.HueID)
		byID[rec.HueID] = &bridgeLight{record: rec, light: l}
	}

	if dirty {
		if err := s.registry.Save(ctx, reg); err != nil {
			return fmt.Errorf("save device registry: %w", err)
		}
	}

	s.order = order
	s.lights = byID
	s.loaded = true
	s.logger.Info("devices refreshed", zap.Int("count", len(order)))
	return nil
}

func (s *BridgeService) ensureLoaded(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return nil
	}
	return s.refreshLocked(ctx)
}

func (s *BridgeService) GetDevices(ctx context.Context) ([]*model.Device, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	known := make([]*bridgeLight, 0, len(s.order))
	for _, id := range s.order {
		known = append(known, s.lights[id])
	}
	s.mu.RUnlock()

	devices := make([]*model.Device, 0, len(known))
	for _, bl := range known {
		s.sync(ctx, bl.light)
		devices = append(devices, s.toDevice(bl))
	}
	return devices, nil
}

func (s *BridgeService) GetDevice(ctx context.Context, id string) (*model.Device, error) {
	bl, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	s.sync(ctx, bl.light)
	return s.toDevice(bl), nil
}

// UpdateDeviceState applies a Hue state change. Turning a light off wins over
// any brightness in the same request; otherwise "on" is applied before "bri".
func (s *BridgeService) UpdateDeviceState(ctx context.Context, id string, update ports.StateUpdate) (*model.Device, error) {
	bl, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	t := s.translatorFactory.GetTranslator(model.DeviceTypeDimmableLight)
	light := bl.light

	if update.On != nil && !*update.On {
		err = light.TurnOff(ctx)
		s.recorder.LightCommand("turn_off", err)
	} else {
		if update.On != nil {
			err = light.TurnOn(ctx)
			s.recorder.LightCommand("turn_on", err)
		}
		if err == nil && update.Bri != nil {
			err = light.SetBrightness(ctx, t.FromHue(*update.Bri))
			s.recorder.LightCommand("set_brightness", err)
		}
	}
	if err != nil {
		return nil, err
	}

	s.sync(ctx, light)
	return s.toDevice(bl), nil
}

// sync refreshes the light from its driver. On failure the cached state is kept.
func (s *BridgeService) sync(ctx context.Context, light *AwesomeLight) {
	if err := light.Update(ctx); err != nil {
		s.logger.Warn("light sync failed", zap.String("light", light.Name()), zap.Error(err))
	}
	s.recorder.LightBrightness(light.Name(), light.Brightness())
}

func (s *BridgeService) lookup(ctx context.Context, id string) (*bridgeLight, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	bl, ok := s.lights[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("device %s: %w", id, model.ErrDeviceNotFound)
	}
	return bl, nil
}

func (s *BridgeService) toDevice(bl *bridgeLight) *model.Device {
	t := s.translatorFactory.GetTranslator(model.DeviceTypeDimmableLight)
	return &model.Device{
		ID:       bl.record.HueID,
		UniqueID: bl.record.UniqueID,
		Name:     bl.light.Name(),
		Type:     model.DeviceTypeDimmableLight,
		State:    t.ToHue(bl.light.State()),
	}
}

func nextHueID(reg *model.Registry) string {
	highest := 0
	for _, d := range reg.Devices {
		if n, err := strconv.Atoi(d.HueID); err == nil && n > highest {
			highest = n
		}
	}
	return strconv.Itoa(highest + 1)
}

// newUniqueID formats random bytes the way Hue bridges format light unique ids,
// e.g. "00:17:88:01:02:3a:4b:5c-0b".
func newUniqueID() string {
	id := uuid.New()
	parts := make([]string, 8)
	for i := range parts {
		parts[i] = fmt.Sprintf("%02x", id[i])
	}
	return strings.Join(parts, ":") + "-0b"
}
