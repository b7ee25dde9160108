package model

import "fmt"

// HVACMode is the host-facing operating mode of a zone. The device itself
// reports "auto" where the host shows heat_cool.
type HVACMode string

const (
	ModeHeat     HVACMode = "heat"
	ModeCool     HVACMode = "cool"
	ModeHeatCool HVACMode = "heat_cool"
	ModeOff      HVACMode = "off"
)

// HVACAction is what the equipment is actually doing right now, as opposed
// to what mode it is set to.
type HVACAction string

const (
	ActionHeating HVACAction = "heating"
	ActionCooling HVACAction = "cooling"
	ActionOff     HVACAction = "off"
)

// FanModes lists the fan settings the SAM accepts.
var FanModes = []string{"auto", "low", "med", "high"}

// DeviceAddress identifies one zone on one Evolution system.
type DeviceAddress struct {
	SystemID int `json:"system_id"`
	ZoneID   int `json:"zone_id"`
}

func (a DeviceAddress) String() string {
	return fmt.Sprintf("system %d, zone %d", a.SystemID, a.ZoneID)
}
