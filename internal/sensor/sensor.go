// Package sensor provides the read-only temperature entity derived from a
// zone's climate controller.
package sensor

import (
	"github.com/danielsmyers/evolution-bridge/internal/climate"
	"github.com/danielsmyers/evolution-bridge/internal/entity"
)

// Temperature exposes the controller's last-known current temperature as
// its own entity. It holds no state and does no polling; the controller's
// Update keeps the value fresh.
type Temperature struct {
	controller *climate.Controller
	info       entity.Info
}

// NewTemperature derives the sensor's identity from the controller's.
func NewTemperature(c *climate.Controller) *Temperature {
	ci := c.Info()
	return &Temperature{
		controller: c,
		info: entity.Info{
			UniqueID: ci.UniqueID + "_temperature",
			Name:     ci.Name + " Temperature",
			Device:   ci.Device,
		},
	}
}

func (t *Temperature) Info() entity.Info { return t.info }

// Value returns the current temperature, or nil when the controller has not
// managed a successful read yet.
func (t *Temperature) Value() *float64 {
	return t.controller.CurrentTemperature()
}
