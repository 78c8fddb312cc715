package homeassistant

import (
	"context"
	"awesomelights-bridge/internal/domain/model"
	"awesomelights-bridge/internal/ports"
	"math"
	"strings"
	"unicode"
)

// LightDriver forwards light commands for one Home Assistant entity.
type LightDriver struct {
	client   *Client
	entityID string
}

func (c *Client) Driver(entityID string) *LightDriver {
	return &LightDriver{client: c, entityID: entityID}
}

func (d *LightDriver) EntityID() string { return d.entityID }

func (d *LightDriver) TurnOn(ctx context.Context) error {
	return d.client.CallService(ctx, d.entityID, "turn_on", nil)
}

func (d *LightDriver) TurnOff(ctx context.Context) error {
	return d.client.CallService(ctx, d.entityID, "turn_off", nil)
}

func (d *LightDriver) SetBrightness(ctx context.Context, value int) error {
	if value <= 0 {
		return d.TurnOff(ctx)
	}
	// Only the light domain understands a brightness parameter.
	if !strings.HasPrefix(d.entityID, "light.") {
		return d.TurnOn(ctx)
	}
	// HA turns a light off at brightness 0, so a lit level never converts below 1.
	level := int(math.Round(d.client.toHA.Evaluate(float64(value))))
	if level < 1 {
		level = 1
	}
	params := map[string]interface{}{"brightness": level}
	return d.client.CallService(ctx, d.entityID, "turn_on", params)
}

func (d *LightDriver) State(ctx context.Context) (bool, error) {
	st, err := d.client.GetState(ctx, d.entityID)
	if err != nil {
		return false, err
	}
	return st.State == "on", nil
}

func (d *LightDriver) Brightness(ctx context.Context) (int, error) {
	st, err := d.client.GetState(ctx, d.entityID)
	if err != nil {
		return 0, err
	}
	if st.State != "on" {
		return 0, nil
	}
	bri, ok := st.Attributes["brightness"].(float64)
	if !ok {
		// on/off entities report no level
		return model.MaxBrightness, nil
	}
	level := model.ClampBrightness(int(math.Round(d.client.toAwesome.Evaluate(bri))))
	if level < 1 {
		level = 1
	}
	return level, nil
}

// Factory maps light names to entities; unmapped names use EntityIDFor.
// The initial state is ignored: the entity already has a real one.
// Light names are matched case-insensitively since viper lowercases map keys.
func Factory(c *Client, entities map[string]string) ports.DriverFactory {
	byName := make(map[string]string, len(entities))
	for name, id := range entities {
		byName[strings.ToLower(name)] = id
	}
	return func(name string, _ model.LightState) ports.LightDriver {
		if id, ok := byName[strings.ToLower(name)]; ok && id != "" {
			return c.Driver(id)
		}
		return c.Driver(EntityIDFor(name))
	}
}

// EntityIDFor derives a Home Assistant style entity id,
// e.g. "Kitchen Counter Light" -> "light.kitchen_counter_light".
func EntityIDFor(name string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}
	return "light." + strings.TrimSuffix(b.String(), "_")
}
