package ports

import (
	"context"
	"awesomelights-bridge/internal/domain/model"
)

type DeviceRegistry interface {
	Get(ctx context.Context) (*model.Registry, error)
	Save(ctx context.Context, registry *model.Registry) error
}
