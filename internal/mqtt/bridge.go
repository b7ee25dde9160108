// Package mqtt attaches the bridge's entities to a home-automation host
// over MQTT, using Home Assistant's discovery convention. It is this
// module's side of the host-platform contract: registration, state writes,
// and inbound commands all travel over the broker.
package mqtt

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/danielsmyers/evolution-bridge/internal/climate"
	"github.com/danielsmyers/evolution-bridge/internal/config"
	"github.com/danielsmyers/evolution-bridge/internal/entity"
	"github.com/danielsmyers/evolution-bridge/internal/model"
	"github.com/danielsmyers/evolution-bridge/internal/sensor"
)

// commandTimeout bounds one inbound command. A temperature command can
// touch two setpoints at ~1.5s per parameter, so this is generous.
const commandTimeout = 30 * time.Second

type statePayload struct {
	Mode                  string   `json:"mode"`
	Action                string   `json:"action"`
	CurrentTemperature    *float64 `json:"current_temperature"`
	FanMode               *string  `json:"fan_mode"`
	TargetTemperature     *float64 `json:"target_temperature"`
	TargetTemperatureHigh *float64 `json:"target_temperature_high"`
	TargetTemperatureLow  *float64 `json:"target_temperature_low"`
}

// Bridge publishes entity state and discovery to a broker and routes
// command topics to the controller's mutators through the host executor.
type Bridge struct {
	client     pahomqtt.Client
	controller *climate.Controller
	sensor     *sensor.Temperature
	exec       entity.Executor
	prefix     string
	stateTopic string
}

// NewBridge creates and connects the bridge. The returned Bridge is also an
// entity.StateWriter: bind it to the controller so optimistic updates reach
// the broker immediately.
func NewBridge(controller *climate.Controller, temp *sensor.Temperature, exec entity.Executor, cfg config.MQTT) (*Bridge, error) {
	b := &Bridge{
		controller: controller,
		sensor:     temp,
		exec:       exec,
		prefix:     cfg.TopicPrefix,
	}
	b.stateTopic = b.prefix + "/" + topicName(controller.Info().Device.ID)

	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID("evolution-bridge").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(cfg.TopicPrefix+"/bridge/state", "offline", 1, true).
		SetOnConnectHandler(func(_ pahomqtt.Client) {
			log.Info().Str("broker", cfg.Broker).Msg("MQTT connected")
			b.publishBridgeState("online")
			b.publishDiscovery()
			b.subscribeCommands()
		}).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			log.Warn().Err(err).Msg("MQTT connection lost")
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt connect timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}

	b.client = client
	return b, nil
}

// Stop publishes offline availability and disconnects.
func (b *Bridge) Stop() {
	b.publishBridgeState("offline")
	b.client.Disconnect(1000)
	log.Info().Msg("MQTT bridge stopped")
}

// WriteState implements entity.StateWriter. It runs on the host loop
// goroutine, so reading the controller here is safe.
func (b *Bridge) WriteState() {
	payload := statePayload{
		Mode:                  string(b.controller.HVACMode()),
		Action:                string(b.controller.HVACAction()),
		CurrentTemperature:    b.controller.CurrentTemperature(),
		FanMode:               b.controller.FanMode(),
		TargetTemperature:     b.controller.TargetTemperature(),
		TargetTemperatureHigh: b.controller.TargetTemperatureHigh(),
		TargetTemperatureLow:  b.controller.TargetTemperatureLow(),
	}
	b.publish(b.stateTopic, mustJSON(payload), true)
}

func (b *Bridge) publishBridgeState(state string) {
	b.publish(b.prefix+"/bridge/state", []byte(state), true)
}

func (b *Bridge) publishDiscovery() {
	for _, msg := range buildDiscovery(b.controller.Info(), b.sensor.Info(), b.prefix) {
		b.publish(msg.Topic, msg.Payload, true)
	}
	log.Info().Str("device", b.controller.Info().Device.ID).Msg("Published HA discovery")
}

func (b *Bridge) subscribeCommands() {
	b.subscribe(b.stateTopic+"/mode/set", b.handleModeCommand)
	b.subscribe(b.stateTopic+"/temperature/set", b.setpointHandler(func(v float64) climate.TemperatureRequest {
		return climate.TemperatureRequest{Target: &v}
	}))
	b.subscribe(b.stateTopic+"/temperature_high/set", b.setpointHandler(func(v float64) climate.TemperatureRequest {
		return climate.TemperatureRequest{TargetHigh: &v}
	}))
	b.subscribe(b.stateTopic+"/temperature_low/set", b.setpointHandler(func(v float64) climate.TemperatureRequest {
		return climate.TemperatureRequest{TargetLow: &v}
	}))
	b.subscribe(b.stateTopic+"/fan_mode/set", b.handleFanCommand)
}

func (b *Bridge) subscribe(topic string, handler func(payload []byte)) {
	b.client.Subscribe(topic, 1, func(_ pahomqtt.Client, msg pahomqtt.Message) {
		handler(msg.Payload())
	})
}

func (b *Bridge) handleModeCommand(payload []byte) {
	mode := model.HVACMode(strings.ToLower(strings.TrimSpace(string(payload))))
	b.runCommand("mode", func(ctx context.Context) error {
		return b.controller.SetHVACMode(ctx, mode)
	})
}

func (b *Bridge) setpointHandler(build func(float64) climate.TemperatureRequest) func([]byte) {
	return func(payload []byte) {
		v, err := strconv.ParseFloat(strings.TrimSpace(string(payload)), 64)
		if err != nil {
			log.Warn().Str("payload", string(payload)).Msg("Ignoring non-numeric temperature command")
			return
		}
		b.runCommand("temperature", func(ctx context.Context) error {
			return b.controller.SetTemperature(ctx, build(v))
		})
	}
}

func (b *Bridge) handleFanCommand(payload []byte) {
	mode := strings.TrimSpace(string(payload))
	b.runCommand("fan_mode", func(ctx context.Context) error {
		return b.controller.SetFanMode(ctx, mode)
	})
}

func (b *Bridge) runCommand(name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	if err := b.exec.Do(ctx, fn); err != nil {
		log.Error().Err(err).Str("command", name).Msg("MQTT command failed")
	}
}

func (b *Bridge) publish(topic string, payload []byte, retained bool) {
	token := b.client.Publish(topic, 1, retained, payload)
	go func() {
		if !token.WaitTimeout(5 * time.Second) {
			log.Warn().Str("topic", topic).Msg("MQTT publish timeout")
		} else if err := token.Error(); err != nil {
			log.Warn().Err(err).Str("topic", topic).Msg("MQTT publish error")
		}
	}()
}
