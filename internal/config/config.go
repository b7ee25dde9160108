package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

type MQTT struct {
	Enabled     bool   `json:"enabled"`
	Broker      string `json:"broker"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	TopicPrefix string `json:"topic_prefix"`
}

type Config struct {
	ConfigFile string
	LogLevel   zerolog.Level
	LogFile    string

	// Identity of the bridged zone. EntryID seeds the entities' unique ids
	// and defaults to a value derived from system and zone.
	EntryID  string `json:"entry_id"`
	SystemID *int   `json:"system_id"`
	ZoneID   *int   `json:"zone_id"`

	PollIntervalSeconds int `json:"poll_interval_seconds"`
	HTTPPort            int `json:"http_port"`

	// Simulated SAM latency per parameter, to approximate the ~1500ms of
	// real hardware. Zero means instant.
	SimLatencyMillis int `json:"sim_latency_millis"`

	MQTT MQTT `json:"mqtt"`

	EnableDatadog bool     `json:"enable_datadog"`
	DDAgentAddr   string   `json:"dd_agent_addr"`
	DDNamespace   string   `json:"dd_namespace"`
	DDTags        []string `json:"dd_tags"`

	NtfyTopic string `json:"ntfy_topic"`
}

func Load() Config {
	var cfg Config
	var logLevel string

	flag.StringVar(&cfg.ConfigFile, "config-file", "config.json", "Path to bridge config file")
	flag.StringVar(&cfg.LogFile, "log-file", "", "Path to log file (default stderr)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	cfg.LogLevel = parseLogLevel(logLevel)

	file, err := os.Open(cfg.ConfigFile)
	if err != nil {
		panic("Failed to load config file: " + err.Error())
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		panic("Failed to parse config file: " + err.Error())
	}

	cfg.applyDefaults()
	cfg.validate()
	return cfg
}

func parseLogLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (cfg *Config) applyDefaults() {
	if cfg.PollIntervalSeconds == 0 {
		cfg.PollIntervalSeconds = 60
	}
	if cfg.HTTPPort == 0 {
		cfg.HTTPPort = 8090
	}
	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = "evolution"
	}
	if cfg.EntryID == "" && cfg.SystemID != nil && cfg.ZoneID != nil {
		cfg.EntryID = fmt.Sprintf("bryant-evolution-%d-%d", *cfg.SystemID, *cfg.ZoneID)
	}
}

func (cfg *Config) validate() {
	if cfg.SystemID == nil {
		panic("Missing required config field: system_id")
	}
	if cfg.ZoneID == nil {
		panic("Missing required config field: zone_id")
	}
	if *cfg.SystemID < 0 || *cfg.ZoneID < 0 {
		panic(fmt.Sprintf("Invalid device address: system %d, zone %d", *cfg.SystemID, *cfg.ZoneID))
	}
	if cfg.PollIntervalSeconds < 0 {
		panic("poll_interval_seconds must be positive")
	}
	if cfg.MQTT.Enabled && cfg.MQTT.Broker == "" {
		panic("mqtt.broker is required when mqtt.enabled is true")
	}
}
