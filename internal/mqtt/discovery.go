package mqtt

import (
	"encoding/json"
	"strings"

	"github.com/danielsmyers/evolution-bridge/internal/entity"
	"github.com/danielsmyers/evolution-bridge/internal/model"
)

// discoveryMsg is a Home Assistant MQTT discovery payload.
type discoveryMsg struct {
	Topic   string
	Payload []byte
}

// haDevice is the "device" block in HA discovery; both entities share it so
// the host groups them under one device.
type haDevice struct {
	Identifiers  []string `json:"identifiers"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Model        string   `json:"model,omitempty"`
	Name         string   `json:"name"`
}

type climateDiscovery struct {
	Name              string   `json:"name"`
	UniqueID          string   `json:"unique_id"`
	AvailabilityTopic string   `json:"availability_topic"`
	Modes             []string `json:"modes"`
	FanModes          []string `json:"fan_modes"`
	TemperatureUnit   string   `json:"temperature_unit"`

	ModeStateTopic    string `json:"mode_state_topic"`
	ModeStateTemplate string `json:"mode_state_template"`
	ModeCommandTopic  string `json:"mode_command_topic"`

	ActionTopic    string `json:"action_topic"`
	ActionTemplate string `json:"action_template"`

	CurrentTemperatureTopic    string `json:"current_temperature_topic"`
	CurrentTemperatureTemplate string `json:"current_temperature_template"`

	TemperatureStateTopic    string `json:"temperature_state_topic"`
	TemperatureStateTemplate string `json:"temperature_state_template"`
	TemperatureCommandTopic  string `json:"temperature_command_topic"`

	TemperatureHighStateTopic    string `json:"temperature_high_state_topic"`
	TemperatureHighStateTemplate string `json:"temperature_high_state_template"`
	TemperatureHighCommandTopic  string `json:"temperature_high_command_topic"`

	TemperatureLowStateTopic    string `json:"temperature_low_state_topic"`
	TemperatureLowStateTemplate string `json:"temperature_low_state_template"`
	TemperatureLowCommandTopic  string `json:"temperature_low_command_topic"`

	FanModeStateTopic    string `json:"fan_mode_state_topic"`
	FanModeStateTemplate string `json:"fan_mode_state_template"`
	FanModeCommandTopic  string `json:"fan_mode_command_topic"`

	Device haDevice `json:"device"`
}

type sensorDiscovery struct {
	Name              string   `json:"name"`
	UniqueID          string   `json:"unique_id"`
	AvailabilityTopic string   `json:"availability_topic"`
	StateTopic        string   `json:"state_topic"`
	ValueTemplate     string   `json:"value_template"`
	UnitOfMeasurement string   `json:"unit_of_measurement"`
	DeviceClass       string   `json:"device_class"`
	StateClass        string   `json:"state_class"`
	Device            haDevice `json:"device"`
}

// topicName sanitizes a unique id into an MQTT topic segment.
func topicName(uniqueID string) string {
	name := strings.ToLower(uniqueID)
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			return r
		}
		return '_'
	}, name)
}

// buildDiscovery generates the HA discovery messages for one bridged zone:
// a climate config and a temperature sensor config sharing one device.
func buildDiscovery(climateInfo, sensorInfo entity.Info, prefix string) []discoveryMsg {
	node := topicName(climateInfo.Device.ID)
	avail := prefix + "/bridge/state"
	stateTopic := prefix + "/" + node

	haDev := haDevice{
		Identifiers:  []string{climateInfo.Device.Domain + "_" + climateInfo.Device.ID},
		Manufacturer: "Bryant",
		Model:        "Evolution",
		Name:         climateInfo.Device.Name,
	}

	climateCfg := climateDiscovery{
		Name:              climateInfo.Name,
		UniqueID:          climateInfo.UniqueID,
		AvailabilityTopic: avail,
		Modes: []string{
			string(model.ModeHeat),
			string(model.ModeCool),
			string(model.ModeHeatCool),
			string(model.ModeOff),
		},
		FanModes:        model.FanModes,
		TemperatureUnit: "F",

		ModeStateTopic:    stateTopic,
		ModeStateTemplate: "{{ value_json.mode }}",
		ModeCommandTopic:  stateTopic + "/mode/set",

		ActionTopic:    stateTopic,
		ActionTemplate: "{{ value_json.action }}",

		CurrentTemperatureTopic:    stateTopic,
		CurrentTemperatureTemplate: "{{ value_json.current_temperature }}",

		TemperatureStateTopic:    stateTopic,
		TemperatureStateTemplate: "{{ value_json.target_temperature }}",
		TemperatureCommandTopic:  stateTopic + "/temperature/set",

		TemperatureHighStateTopic:    stateTopic,
		TemperatureHighStateTemplate: "{{ value_json.target_temperature_high }}",
		TemperatureHighCommandTopic:  stateTopic + "/temperature_high/set",

		TemperatureLowStateTopic:    stateTopic,
		TemperatureLowStateTemplate: "{{ value_json.target_temperature_low }}",
		TemperatureLowCommandTopic:  stateTopic + "/temperature_low/set",

		FanModeStateTopic:    stateTopic,
		FanModeStateTemplate: "{{ value_json.fan_mode }}",
		FanModeCommandTopic:  stateTopic + "/fan_mode/set",

		Device: haDev,
	}

	sensorCfg := sensorDiscovery{
		Name:              sensorInfo.Name,
		UniqueID:          sensorInfo.UniqueID,
		AvailabilityTopic: avail,
		StateTopic:        stateTopic,
		ValueTemplate:     "{{ value_json.current_temperature }}",
		UnitOfMeasurement: "°F",
		DeviceClass:       "temperature",
		StateClass:        "measurement",
		Device:            haDev,
	}

	return []discoveryMsg{
		{Topic: "homeassistant/climate/" + node + "/config", Payload: mustJSON(climateCfg)},
		{Topic: "homeassistant/sensor/" + node + "/temperature/config", Payload: mustJSON(sensorCfg)},
	}
}

func mustJSON(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}
