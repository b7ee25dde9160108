package climate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielsmyers/evolution-bridge/internal/entity"
	"github.com/danielsmyers/evolution-bridge/internal/evolution"
	"github.com/danielsmyers/evolution-bridge/internal/model"
)

func newTestController(sim *evolution.Sim) (*Controller, *int) {
	c := New("test-entry", model.DeviceAddress{SystemID: 1, ZoneID: 2}, sim)
	signals := 0
	c.BindStateWriter(entity.StateWriterFunc(func() { signals++ }))
	return c, &signals
}

func simInMode(mode string, active bool) *evolution.Sim {
	sim := evolution.NewSim()
	sim.Mode = &evolution.ModeReading{Mode: mode, Active: active}
	return sim
}

func TestNewDerivesIdentity(t *testing.T) {
	c, _ := newTestController(evolution.NewSim())

	info := c.Info()
	assert.Equal(t, "test-entry-climate", info.UniqueID)
	assert.Equal(t, "Bryant Evolution (System 1, Zone 2)", info.Name)
	assert.Equal(t, entity.Domain, info.Device.Domain)
	assert.Equal(t, info.UniqueID, info.Device.ID)
}

func TestUpdateHeatMode(t *testing.T) {
	sim := simInMode("HEAT", true)
	c, _ := newTestController(sim)

	require.NoError(t, c.Update(context.Background()))

	assert.Equal(t, model.ModeHeat, c.HVACMode())
	assert.Equal(t, model.ActionHeating, c.HVACAction())
	require.NotNil(t, c.TargetTemperature())
	assert.Equal(t, *sim.HeatingSetpoint, *c.TargetTemperature())
	assert.Nil(t, c.TargetTemperatureHigh())
	assert.Nil(t, c.TargetTemperatureLow())
	require.NotNil(t, c.FanMode())
	assert.Equal(t, "auto", *c.FanMode())
}

func TestUpdateCoolMode(t *testing.T) {
	sim := simInMode("COOL", true)
	c, _ := newTestController(sim)

	require.NoError(t, c.Update(context.Background()))

	assert.Equal(t, model.ModeCool, c.HVACMode())
	assert.Equal(t, model.ActionCooling, c.HVACAction())
	require.NotNil(t, c.TargetTemperature())
	assert.Equal(t, *sim.CoolingSetpoint, *c.TargetTemperature())
}

func TestUpdateHeatCoolMode(t *testing.T) {
	sim := simInMode("AUTO", true)
	temp := 72.0
	sim.CurrentTemperature = &temp
	c, _ := newTestController(sim)

	require.NoError(t, c.Update(context.Background()))

	assert.Equal(t, model.ModeHeatCool, c.HVACMode())
	assert.Nil(t, c.TargetTemperature())
	require.NotNil(t, c.TargetTemperatureHigh())
	assert.Equal(t, *sim.CoolingSetpoint, *c.TargetTemperatureHigh())
	require.NotNil(t, c.TargetTemperatureLow())
	assert.Equal(t, *sim.HeatingSetpoint, *c.TargetTemperatureLow())
	// 72 is above the 68 heating setpoint, so an active system is cooling.
	assert.Equal(t, model.ActionCooling, c.HVACAction())
}

func TestUpdateHeatCoolModeBelowLow(t *testing.T) {
	sim := simInMode("AUTO", true)
	temp := 65.0
	sim.CurrentTemperature = &temp
	c, _ := newTestController(sim)

	require.NoError(t, c.Update(context.Background()))
	assert.Equal(t, model.ActionHeating, c.HVACAction())
}

func TestUpdateOffMode(t *testing.T) {
	sim := simInMode("OFF", false)
	c, _ := newTestController(sim)

	require.NoError(t, c.Update(context.Background()))

	assert.Equal(t, model.ModeOff, c.HVACMode())
	assert.Equal(t, model.ActionOff, c.HVACAction())
	assert.Nil(t, c.TargetTemperature())
	assert.Nil(t, c.TargetTemperatureHigh())
	assert.Nil(t, c.TargetTemperatureLow())
}

func TestUpdateInactiveIsOffRegardlessOfMode(t *testing.T) {
	sim := simInMode("HEAT", false)
	c, _ := newTestController(sim)

	require.NoError(t, c.Update(context.Background()))
	assert.Equal(t, model.ModeHeat, c.HVACMode())
	assert.Equal(t, model.ActionOff, c.HVACAction())
}

func TestUpdateMissingModeTuple(t *testing.T) {
	sim := evolution.NewSim()
	sim.FailReadMode = true
	c, _ := newTestController(sim)

	err := c.Update(context.Background())
	require.Error(t, err)

	var readErr *ReadError
	require.True(t, errors.As(err, &readErr))
	assert.Equal(t, "read_hvac_mode", readErr.Op)
}

func TestUpdateUnknownModeString(t *testing.T) {
	sim := simInMode("FROST", true)
	c, _ := newTestController(sim)

	err := c.Update(context.Background())
	require.Error(t, err)

	var readErr *ReadError
	require.True(t, errors.As(err, &readErr))
	assert.Contains(t, err.Error(), "FROST")
}

func TestUpdateAutoWithoutTemperatureFails(t *testing.T) {
	sim := simInMode("AUTO", true)
	sim.FailReadTemperature = true
	c, _ := newTestController(sim)

	err := c.Update(context.Background())
	require.Error(t, err)

	var readErr *ReadError
	require.True(t, errors.As(err, &readErr))
	assert.Equal(t, "resolve_auto_action", readErr.Op)
	assert.Nil(t, readErr.CurrentTemperature)
	assert.NotNil(t, readErr.TargetTemperatureLow)
}

func TestUpdateMissingFanModeLeavesNil(t *testing.T) {
	sim := simInMode("OFF", false)
	sim.FailReadFanMode = true
	c, _ := newTestController(sim)

	require.NoError(t, c.Update(context.Background()))
	assert.Nil(t, c.FanMode())
}

func TestSetHVACModeHeatCoolWritesAuto(t *testing.T) {
	sim := evolution.NewSim()
	c, signals := newTestController(sim)

	require.NoError(t, c.SetHVACMode(context.Background(), model.ModeHeatCool))

	assert.Contains(t, sim.Writes, "mode=auto")
	// Local state keeps the host-facing name, not the device's.
	assert.Equal(t, model.ModeHeatCool, c.HVACMode())
	assert.Equal(t, 1, *signals)
}

func TestSetHVACModePassthrough(t *testing.T) {
	sim := evolution.NewSim()
	c, _ := newTestController(sim)

	require.NoError(t, c.SetHVACMode(context.Background(), model.ModeCool))
	assert.Contains(t, sim.Writes, "mode=cool")
	assert.Equal(t, model.ModeCool, c.HVACMode())
}

func TestSetHVACModeFailureLeavesStateUnchanged(t *testing.T) {
	sim := simInMode("HEAT", true)
	c, signals := newTestController(sim)
	require.NoError(t, c.Update(context.Background()))
	*signals = 0

	sim.FailSetMode = true
	err := c.SetHVACMode(context.Background(), model.ModeCool)
	require.Error(t, err)

	var writeErr *WriteError
	require.True(t, errors.As(err, &writeErr))
	assert.Equal(t, "set_hvac_mode", writeErr.Op)
	assert.Equal(t, model.ModeHeat, c.HVACMode())
	assert.Equal(t, 0, *signals)
	assert.Empty(t, sim.Writes)
}

func TestSetTemperatureRoutesToHeatingSetpointInHeatMode(t *testing.T) {
	sim := simInMode("HEAT", true)
	c, _ := newTestController(sim)
	require.NoError(t, c.Update(context.Background()))

	require.NoError(t, c.SetTemperature(context.Background(), TemperatureRequest{Target: f(75)}))

	assert.Contains(t, sim.Writes, "htsp=75")
	assert.NotContains(t, sim.Writes, "clsp=75")
	require.NotNil(t, c.TargetTemperature())
	assert.Equal(t, 75.0, *c.TargetTemperature())
}

func TestSetTemperatureRoutesToCoolingSetpointOtherwise(t *testing.T) {
	for _, mode := range []string{"COOL", "AUTO", "OFF"} {
		sim := simInMode(mode, false)
		c, _ := newTestController(sim)
		require.NoError(t, c.Update(context.Background()))

		require.NoError(t, c.SetTemperature(context.Background(), TemperatureRequest{Target: f(75)}))
		assert.Contains(t, sim.Writes, "clsp=75", mode)
		assert.NotContains(t, sim.Writes, "htsp=75", mode)
	}
}

func TestSetTemperatureTruncatesToWholeDegrees(t *testing.T) {
	sim := simInMode("COOL", false)
	c, _ := newTestController(sim)
	require.NoError(t, c.Update(context.Background()))

	require.NoError(t, c.SetTemperature(context.Background(), TemperatureRequest{Target: f(75.8)}))
	assert.Contains(t, sim.Writes, "clsp=75")
	assert.Equal(t, 75.0, *c.TargetTemperature())
}

func TestSetTemperatureHighAndLow(t *testing.T) {
	sim := simInMode("AUTO", false)
	c, signals := newTestController(sim)
	require.NoError(t, c.Update(context.Background()))
	*signals = 0

	req := TemperatureRequest{TargetHigh: f(78), TargetLow: f(66)}
	require.NoError(t, c.SetTemperature(context.Background(), req))

	assert.Equal(t, []string{"clsp=78", "htsp=66"}, sim.Writes)
	assert.Equal(t, 78.0, *c.TargetTemperatureHigh())
	assert.Equal(t, 66.0, *c.TargetTemperatureLow())
	assert.Equal(t, 2, *signals)
}

func TestSetTemperaturePartialFailureAbandonsRest(t *testing.T) {
	sim := simInMode("AUTO", false)
	c, _ := newTestController(sim)
	require.NoError(t, c.Update(context.Background()))
	lowBefore := *c.TargetTemperatureLow()

	sim.FailSetCoolSP = true
	err := c.SetTemperature(context.Background(), TemperatureRequest{TargetHigh: f(78), TargetLow: f(66)})
	require.Error(t, err)

	var writeErr *WriteError
	require.True(t, errors.As(err, &writeErr))
	assert.Equal(t, "set_cooling_setpoint", writeErr.Op)

	// The failed field never reaches the later one.
	assert.Empty(t, sim.Writes)
	assert.Equal(t, lowBefore, *c.TargetTemperatureLow())
}

func TestSetTemperatureEarlierSuccessSticksAfterLaterFailure(t *testing.T) {
	sim := simInMode("HEAT", true)
	c, _ := newTestController(sim)
	require.NoError(t, c.Update(context.Background()))

	sim.FailSetCoolSP = true
	req := TemperatureRequest{Target: f(71), TargetHigh: f(78)}
	err := c.SetTemperature(context.Background(), req)
	require.Error(t, err)

	// Target routed to the heating setpoint and succeeded; it is not
	// rolled back by the later cooling-setpoint failure.
	assert.Equal(t, []string{"htsp=71"}, sim.Writes)
	assert.Equal(t, 71.0, *c.TargetTemperature())
	assert.Nil(t, c.TargetTemperatureHigh())
}

func TestSetFanModeStoresLowercase(t *testing.T) {
	sim := evolution.NewSim()
	c, signals := newTestController(sim)

	require.NoError(t, c.SetFanMode(context.Background(), "HIGH"))

	assert.Contains(t, sim.Writes, "fan=HIGH")
	require.NotNil(t, c.FanMode())
	assert.Equal(t, "high", *c.FanMode())
	assert.Equal(t, 1, *signals)
}

func TestSetFanModeFailure(t *testing.T) {
	sim := simInMode("HEAT", true)
	c, signals := newTestController(sim)
	require.NoError(t, c.Update(context.Background()))
	*signals = 0

	sim.FailSetFanMode = true
	err := c.SetFanMode(context.Background(), "low")
	require.Error(t, err)

	var writeErr *WriteError
	require.True(t, errors.As(err, &writeErr))
	assert.Equal(t, "auto", *c.FanMode())
	assert.Equal(t, 0, *signals)
}
