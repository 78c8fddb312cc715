package translator

import (
	"github.com/amimof/huego"
	"awesomelights-bridge/internal/domain/model"
)

// Translator defines the interface for translating between Hue and AwesomeLights states
type Translator interface {
	ToHue(state model.LightState) *huego.State
	FromHue(bri uint8) int
	GetMetadata() model.HueMetadata
}
