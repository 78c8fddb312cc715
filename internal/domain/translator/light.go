package translator

import (
	"github.com/amimof/huego"
	"awesomelights-bridge/internal/domain/model"
)

// hueMaxBri is the highest brightness a Hue client accepts.
const hueMaxBri = 254

type LightStrategy struct{}

func (s *LightStrategy) ToHue(state model.LightState) *huego.State {
	hueState := &huego.State{
		On:        state.On,
		Reachable: true,
		Alert:     "none",
	}
	if state.On {
		bri := state.Brightness
		if bri > hueMaxBri {
			bri = hueMaxBri
		}
		hueState.Bri = uint8(bri)
	}
	return hueState
}

// hueMinBri is the dimmest Hue level; Hue brightness never switches a light off.
const hueMinBri = 1

// FromHue keeps Hue levels 1-254 as is and lifts 0 to the Hue minimum.
func (s *LightStrategy) FromHue(bri uint8) int {
	if bri < hueMinBri {
		return hueMinBri
	}
	return int(bri)
}

func (s *LightStrategy) GetMetadata() model.HueMetadata {
	return model.HueMetadata{
		Type:             "Dimmable light",
		ModelID:          "LWB004",
		ManufacturerName: "AwesomeLights",
		ProductName:      "AwesomeLight",
	}
}
