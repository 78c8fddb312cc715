package ports

import (
	"context"
	"awesomelights-bridge/internal/domain/model"
)

// StateUpdate is a partial Hue light state; nil fields are left untouched.
type StateUpdate struct {
	On  *bool
	Bri *uint8
}

type BridgePort interface {
	GetDevices(ctx context.Context) ([]*model.Device, error)
	GetDevice(ctx context.Context, id string) (*model.Device, error)
	UpdateDeviceState(ctx context.Context, id string, update StateUpdate) (*model.Device, error)
	Username() string
}
