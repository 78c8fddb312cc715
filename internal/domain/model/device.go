package model

import (
	"errors"

	"github.com/amimof/huego"
)

type DeviceType string

const (
	DeviceTypeDimmableLight DeviceType = "dimmable_light"
)

var (
	ErrDeviceNotFound = errors.New("device not found")
	ErrInvalidLogin   = errors.New("hub login rejected")
	ErrNotConfigured  = errors.New("driver not configured")
)

// Device is the bridge-facing view of a light.
type Device struct {
	ID       string // Hue light id, e.g. "1"
	UniqueID string
	Name     string
	Type     DeviceType
	State    *huego.State
}

// DeviceRecord keeps the Hue identifiers of a light stable across restarts.
type DeviceRecord struct {
	HueID    string `json:"hue_id"`
	UniqueID string `json:"unique_id"`
	Name     string `json:"name"`
}

type Registry struct {
	Devices []*DeviceRecord `json:"devices"` // Ordered slice
}

func (r *Registry) Find(name string) *DeviceRecord {
	for _, d := range r.Devices {
		if d.Name == name {
			return d
		}
	}
	return nil
}

type HueMetadata struct {
	Type             string
	ModelID          string
	ManufacturerName string
	ProductName      string
}
