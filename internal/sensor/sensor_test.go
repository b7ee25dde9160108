package sensor_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielsmyers/evolution-bridge/internal/climate"
	"github.com/danielsmyers/evolution-bridge/internal/evolution"
	"github.com/danielsmyers/evolution-bridge/internal/model"
	"github.com/danielsmyers/evolution-bridge/internal/sensor"
)

func TestIdentityDerivedFromController(t *testing.T) {
	c := climate.New("entry-1", model.DeviceAddress{SystemID: 3, ZoneID: 4}, evolution.NewSim())
	temp := sensor.NewTemperature(c)

	info := temp.Info()
	assert.Equal(t, "entry-1-climate_temperature", info.UniqueID)
	assert.Equal(t, "Bryant Evolution (System 3, Zone 4) Temperature", info.Name)
	assert.Equal(t, c.Info().Device, info.Device)
}

func TestValueReadsThroughController(t *testing.T) {
	sim := evolution.NewSim()
	reading := 71.5
	sim.CurrentTemperature = &reading

	c := climate.New("entry-1", model.DeviceAddress{SystemID: 3, ZoneID: 4}, sim)
	temp := sensor.NewTemperature(c)

	// Nothing read yet.
	assert.Nil(t, temp.Value())

	require.NoError(t, c.Update(context.Background()))
	require.NotNil(t, temp.Value())
	assert.Equal(t, 71.5, *temp.Value())
}
