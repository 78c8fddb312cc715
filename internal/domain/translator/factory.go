package translator

import (
	"awesomelights-bridge/internal/domain/model"
)

type Factory struct {
	strategies map[model.DeviceType]Translator
}

func NewFactory() *Factory {
	return &Factory{
		strategies: map[model.DeviceType]Translator{
			model.DeviceTypeDimmableLight: &LightStrategy{},
		},
	}
}

func (f *Factory) GetTranslator(deviceType model.DeviceType) Translator {
	if t, ok := f.strategies[deviceType]; ok {
		return t
	}
	return f.strategies[model.DeviceTypeDimmableLight]
}
