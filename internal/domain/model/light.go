package model

const (
	MinBrightness = 0
	MaxBrightness = 255

	// DefaultInitialBrightness is used when a light is created without an explicit level.
	DefaultInitialBrightness = 128
)

// LightState is the on/off flag and brightness of a single light.
// Brightness is 0 if and only if the light is off; every transition below keeps that true.
type LightState struct {
	On         bool `json:"on"`
	Brightness int  `json:"brightness"`
}

func ClampBrightness(value int) int {
	if value < MinBrightness {
		return MinBrightness
	}
	if value > MaxBrightness {
		return MaxBrightness
	}
	return value
}

// InitialState returns the state of a freshly discovered light.
// The initial brightness only applies when the light starts on.
func InitialState(on bool, initialBrightness int) LightState {
	if !on {
		return LightState{}
	}
	return LightState{On: true, Brightness: ClampBrightness(initialBrightness)}.Normalized()
}

// TurnedOn restores full brightness when the light has no remembered level.
func (s LightState) TurnedOn() LightState {
	s.On = true
	if s.Brightness == 0 {
		s.Brightness = MaxBrightness
	}
	return s
}

func (s LightState) TurnedOff() LightState {
	return LightState{}
}

func (s LightState) WithBrightness(value int) LightState {
	b := ClampBrightness(value)
	return LightState{On: b > 0, Brightness: b}
}

// Normalized repairs a state reported by an external driver, e.g. an "on"
// light without a brightness attribute, or an "off" light with a stale level.
func (s LightState) Normalized() LightState {
	if !s.On {
		return LightState{}
	}
	s.Brightness = ClampBrightness(s.Brightness)
	if s.Brightness == 0 {
		s.Brightness = MaxBrightness
	}
	return s
}
