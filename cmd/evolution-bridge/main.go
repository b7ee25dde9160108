package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danielsmyers/evolution-bridge/internal/api"
	"github.com/danielsmyers/evolution-bridge/internal/climate"
	"github.com/danielsmyers/evolution-bridge/internal/config"
	"github.com/danielsmyers/evolution-bridge/internal/datadog"
	"github.com/danielsmyers/evolution-bridge/internal/entity"
	"github.com/danielsmyers/evolution-bridge/internal/env"
	"github.com/danielsmyers/evolution-bridge/internal/evolution"
	"github.com/danielsmyers/evolution-bridge/internal/host"
	"github.com/danielsmyers/evolution-bridge/internal/logging"
	"github.com/danielsmyers/evolution-bridge/internal/model"
	"github.com/danielsmyers/evolution-bridge/internal/mqtt"
	"github.com/danielsmyers/evolution-bridge/internal/notifications"
	"github.com/danielsmyers/evolution-bridge/internal/sensor"
)

func main() {
	cfg := config.Load()
	logging.Init(cfg.LogLevel, cfg.LogFile)
	env.Cfg = &cfg

	if cfg.EnableDatadog {
		datadog.InitMetrics()
	}
	notifications.Init()

	addr := model.DeviceAddress{SystemID: *cfg.SystemID, ZoneID: *cfg.ZoneID}
	log.Info().
		Str("entry_id", cfg.EntryID).
		Str("device", addr.String()).
		Msg("Starting Evolution bridge")

	// The SAM transport is pluggable behind evolution.Client; until one is
	// wired in, the bridge runs against the simulator.
	sim := evolution.NewSim()
	sim.Latency = time.Duration(cfg.SimLatencyMillis) * time.Millisecond
	var client evolution.Client = sim

	controller := climate.New(cfg.EntryID, addr, client)
	temp := sensor.NewTemperature(controller)

	h := host.New(time.Duration(cfg.PollIntervalSeconds) * time.Second)
	h.Register(controller.Info(), controller)
	h.Register(temp.Info(), nil)

	var writers []entity.StateWriter
	var bridge *mqtt.Bridge
	if cfg.MQTT.Enabled {
		var err error
		bridge, err = mqtt.NewBridge(controller, temp, h, cfg.MQTT)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect MQTT bridge")
		}
		defer bridge.Stop()
		writers = append(writers, bridge)
	}
	controller.BindStateWriter(entity.MultiWriter(writers...))
	h.BindStateWriter(entity.MultiWriter(writers...))

	server := api.NewServer(controller, temp, h)
	go func() {
		if err := server.Start(cfg.HTTPPort); err != nil {
			log.Fatal().Err(err).Msg("API server failed")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h.Run(ctx)
	log.Info().Msg("Evolution bridge stopped")
}
