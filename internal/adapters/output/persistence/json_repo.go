package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"awesomelights-bridge/internal/domain/model"
	"os"
	"path/filepath"
	"sync"
)

// JSONDeviceRegistry stores the Hue identifiers of known lights in a JSON file.
type JSONDeviceRegistry struct {
	filepath string
	mu       sync.RWMutex
}

func NewJSONDeviceRegistry(filepath string) *JSONDeviceRegistry {
	return &JSONDeviceRegistry{filepath: filepath}
}

func (r *JSONDeviceRegistry) Get(ctx context.Context) (*model.Registry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data, err := os.ReadFile(r.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			return &model.Registry{Devices: []*model.DeviceRecord{}}, nil
		}
		return nil, fmt.Errorf("read registry %s: %w", r.filepath, err)
	}

	var reg model.Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("decode registry %s: %w", r.filepath, err)
	}
	if reg.Devices == nil {
		reg.Devices = []*model.DeviceRecord{}
	}
	return &reg, nil
}

func (r *JSONDeviceRegistry) Save(ctx context.Context, registry *model.Registry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.MarshalIndent(registry, "", "  ")
	if err != nil {
		return err
	}

	if dir := filepath.Dir(r.filepath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create registry dir: %w", err)
		}
	}
	return os.WriteFile(r.filepath, data, 0644)
}
