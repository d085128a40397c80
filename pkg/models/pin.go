package models

import (
	"strings"
	"time"
)

// MaterialType is the kind of device resource a pin entry points to.
type MaterialType string

const (
	MaterialTypePeripheral MaterialType = "PERIPHERAL"
	MaterialTypeSensor     MaterialType = "SENSOR"
)

var materialTypeLabels = map[MaterialType]string{
	MaterialTypePeripheral: "Peripheral",
	MaterialTypeSensor:     "Sensor",
}

// Valid reports whether m is a known material type.
func (m MaterialType) Valid() bool {
	_, ok := materialTypeLabels[m]

	return ok
}

// Label is the device-side name of the material type, used as pin_type in compiled commands.
func (m MaterialType) Label() string {
	return materialTypeLabels[m]
}

// Resource is the device API collection listing materials of this type.
func (m MaterialType) Resource() string {
	return strings.ToLower(m.Label()) + "s"
}

// PinEntry binds a logical action name to a physical pin or sensor number.
type PinEntry struct {
	ID           string       `json:"id"`
	MaterialType MaterialType `json:"material_type"`
	MaterialID   int          `json:"material_id"`
	Action       string       `json:"action"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// DevicePin is a live pin descriptor as reported by the device API.
type DevicePin struct {
	ID    int    `json:"id"`
	Pin   int    `json:"pin"`
	Mode  int    `json:"mode"`
	Label string `json:"label"`
}
