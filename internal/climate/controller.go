// Package climate exposes one Evolution zone as a host-facing climate
// entity: polled reads of the zone's state plus write-through mutators with
// optimistic local updates.
package climate

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/danielsmyers/evolution-bridge/internal/datadog"
	"github.com/danielsmyers/evolution-bridge/internal/entity"
	"github.com/danielsmyers/evolution-bridge/internal/evolution"
	"github.com/danielsmyers/evolution-bridge/internal/model"
)

// Controller owns the cached state of one zone. The host scheduler calls
// Update on a fixed interval; the mutators write through to the device and
// patch local state on success so the UI reacts before the next poll
// confirms. Every field is rebuilt wholesale on each Update.
type Controller struct {
	client evolution.Client
	addr   model.DeviceAddress
	info   entity.Info
	writer entity.StateWriter

	currentTemperature    *float64
	fanMode               *string
	hvacMode              model.HVACMode
	hvacAction            model.HVACAction
	targetTemperature     *float64
	targetTemperatureHigh *float64
	targetTemperatureLow  *float64
}

// TemperatureRequest carries the optional setpoint fields of a temperature
// command. Fields are applied independently, in declaration order.
type TemperatureRequest struct {
	Target     *float64 `json:"target,omitempty"`
	TargetHigh *float64 `json:"target_high,omitempty"`
	TargetLow  *float64 `json:"target_low,omitempty"`
}

// New builds the climate entity for one zone. entryID is the host-supplied
// config-entry identifier; the entity's unique id is derived from it.
func New(entryID string, addr model.DeviceAddress, client evolution.Client) *Controller {
	name := fmt.Sprintf("Bryant Evolution (System %d, Zone %d)", addr.SystemID, addr.ZoneID)
	uniqueID := entryID + "-climate"
	return &Controller{
		client: client,
		addr:   addr,
		writer: entity.NopWriter,
		info: entity.Info{
			UniqueID: uniqueID,
			Name:     name,
			Device: entity.DeviceInfo{
				Domain: entity.Domain,
				ID:     uniqueID,
				Name:   name,
			},
		},
	}
}

// BindStateWriter attaches the host's re-render signal. Hosts are wired
// after the entities exist, so this is separate from New.
func (c *Controller) BindStateWriter(w entity.StateWriter) {
	if w == nil {
		w = entity.NopWriter
	}
	c.writer = w
}

// Update rebuilds the zone state from the device. Setpoint population
// depends on the mode read, and action derivation depends on the setpoints,
// so the order here matters.
func (c *Controller) Update(ctx context.Context) error {
	temp, err := c.client.ReadCurrentTemperature(ctx)
	if err != nil {
		return fmt.Errorf("read current temperature: %w", err)
	}
	c.currentTemperature = temp

	fan, err := c.client.ReadFanMode(ctx)
	if err != nil {
		return fmt.Errorf("read fan mode: %w", err)
	}
	if fan != nil {
		lowered := strings.ToLower(*fan)
		fan = &lowered
	}
	c.fanMode = fan

	c.targetTemperature = nil
	c.targetTemperatureHigh = nil
	c.targetTemperatureLow = nil

	reading, err := c.client.ReadHVACMode(ctx)
	if err != nil {
		return fmt.Errorf("read hvac mode: %w", err)
	}
	if reading == nil {
		return &ReadError{Op: "read_hvac_mode"}
	}
	mode, err := parseMode(reading.Mode)
	if err != nil {
		return err
	}
	c.hvacMode = mode

	switch mode {
	case model.ModeHeat:
		if c.targetTemperature, err = c.client.ReadHeatingSetpoint(ctx); err != nil {
			return fmt.Errorf("read heating setpoint: %w", err)
		}
	case model.ModeCool:
		if c.targetTemperature, err = c.client.ReadCoolingSetpoint(ctx); err != nil {
			return fmt.Errorf("read cooling setpoint: %w", err)
		}
	case model.ModeHeatCool:
		if c.targetTemperatureHigh, err = c.client.ReadCoolingSetpoint(ctx); err != nil {
			return fmt.Errorf("read cooling setpoint: %w", err)
		}
		if c.targetTemperatureLow, err = c.client.ReadHeatingSetpoint(ctx); err != nil {
			return fmt.Errorf("read heating setpoint: %w", err)
		}
	case model.ModeOff:
	}

	action, err := deriveAction(mode, reading.Active, c.currentTemperature, c.targetTemperatureLow)
	if err != nil {
		return err
	}
	c.hvacAction = action

	if c.currentTemperature != nil {
		datadog.Gauge("zone.temperature", *c.currentTemperature, c.metricTags()...)
	}

	log.Debug().
		Int("system", c.addr.SystemID).
		Int("zone", c.addr.ZoneID).
		Str("mode", string(c.hvacMode)).
		Str("action", string(c.hvacAction)).
		Msg("Zone state refreshed")

	return nil
}

// SetHVACMode writes a new operating mode. The host-facing heat_cool maps
// onto the device's "auto", but local state keeps the host-facing name.
func (c *Controller) SetHVACMode(ctx context.Context, mode model.HVACMode) error {
	deviceMode := string(mode)
	if mode == model.ModeHeatCool {
		deviceMode = "auto"
	}

	ok, err := c.client.SetHVACMode(ctx, deviceMode)
	if err != nil {
		return fmt.Errorf("set hvac mode: %w", err)
	}
	if !ok {
		return &WriteError{Op: "set_hvac_mode", Value: deviceMode}
	}

	c.hvacMode = mode
	log.Info().Str("mode", string(mode)).Int("zone", c.addr.ZoneID).Msg("HVAC mode set")
	c.writer.WriteState()
	return nil
}

// SetTemperature applies each present field in order: target, then
// targetHigh, then targetLow. A failed field aborts the remainder; fields
// already written stay written.
func (c *Controller) SetTemperature(ctx context.Context, req TemperatureRequest) error {
	if req.Target != nil {
		temp := int(*req.Target)
		set := c.client.SetCoolingSetpoint
		op := "set_cooling_setpoint"
		if c.hvacMode == model.ModeHeat {
			set = c.client.SetHeatingSetpoint
			op = "set_heating_setpoint"
		}
		if err := c.writeSetpoint(ctx, set, op, temp, &c.targetTemperature); err != nil {
			return err
		}
	}

	if req.TargetHigh != nil {
		temp := int(*req.TargetHigh)
		if err := c.writeSetpoint(ctx, c.client.SetCoolingSetpoint, "set_cooling_setpoint", temp, &c.targetTemperatureHigh); err != nil {
			return err
		}
	}

	if req.TargetLow != nil {
		temp := int(*req.TargetLow)
		if err := c.writeSetpoint(ctx, c.client.SetHeatingSetpoint, "set_heating_setpoint", temp, &c.targetTemperatureLow); err != nil {
			return err
		}
	}

	return nil
}

func (c *Controller) writeSetpoint(ctx context.Context, set func(context.Context, int) (bool, error), op string, temp int, field **float64) error {
	ok, err := set(ctx, temp)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return &WriteError{Op: op, Value: fmt.Sprintf("%d", temp)}
	}

	v := float64(temp)
	*field = &v
	log.Info().Str("op", op).Int("setpoint", temp).Int("zone", c.addr.ZoneID).Msg("Setpoint written")
	datadog.Gauge("zone.setpoint", v, append(c.metricTags(), "op:"+op)...)
	c.writer.WriteState()
	return nil
}

// SetFanMode writes a new fan setting and stores it lower-cased on success.
func (c *Controller) SetFanMode(ctx context.Context, mode string) error {
	ok, err := c.client.SetFanMode(ctx, mode)
	if err != nil {
		return fmt.Errorf("set fan mode: %w", err)
	}
	if !ok {
		return &WriteError{Op: "set_fan_mode", Value: mode}
	}

	lowered := strings.ToLower(mode)
	c.fanMode = &lowered
	log.Info().Str("fan_mode", lowered).Int("zone", c.addr.ZoneID).Msg("Fan mode set")
	c.writer.WriteState()
	return nil
}

func (c *Controller) Info() entity.Info            { return c.info }
func (c *Controller) Address() model.DeviceAddress { return c.addr }

func (c *Controller) CurrentTemperature() *float64    { return c.currentTemperature }
func (c *Controller) FanMode() *string                { return c.fanMode }
func (c *Controller) HVACMode() model.HVACMode        { return c.hvacMode }
func (c *Controller) HVACAction() model.HVACAction    { return c.hvacAction }
func (c *Controller) TargetTemperature() *float64     { return c.targetTemperature }
func (c *Controller) TargetTemperatureHigh() *float64 { return c.targetTemperatureHigh }
func (c *Controller) TargetTemperatureLow() *float64  { return c.targetTemperatureLow }

func (c *Controller) metricTags() []string {
	return []string{
		fmt.Sprintf("system:%d", c.addr.SystemID),
		fmt.Sprintf("zone:%d", c.addr.ZoneID),
	}
}

func normalizeMode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
