package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/danielsmyers/evolution-bridge/internal/climate"
	"github.com/danielsmyers/evolution-bridge/internal/entity"
	"github.com/danielsmyers/evolution-bridge/internal/model"
	"github.com/danielsmyers/evolution-bridge/internal/sensor"
)

type Server struct {
	controller *climate.Controller
	sensor     *sensor.Temperature
	exec       entity.Executor
}

type SensorResponse struct {
	UniqueID string   `json:"unique_id"`
	Name     string   `json:"name"`
	Value    *float64 `json:"value"`
}

type StateResponse struct {
	UniqueID              string         `json:"unique_id"`
	Name                  string         `json:"name"`
	SystemID              int            `json:"system_id"`
	ZoneID                int            `json:"zone_id"`
	CurrentTemperature    *float64       `json:"current_temperature"`
	FanMode               *string        `json:"fan_mode"`
	HVACMode              string         `json:"hvac_mode"`
	HVACAction            string         `json:"hvac_action"`
	TargetTemperature     *float64       `json:"target_temperature"`
	TargetTemperatureHigh *float64       `json:"target_temperature_high"`
	TargetTemperatureLow  *float64       `json:"target_temperature_low"`
	TemperatureSensor     SensorResponse `json:"temperature_sensor"`
}

type ModeRequest struct {
	Mode string `json:"mode"`
}

type FanRequest struct {
	Mode string `json:"mode"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// NewServer builds the API. Mutations are submitted through exec so the
// host can serialize them with its poll loop.
func NewServer(controller *climate.Controller, temp *sensor.Temperature, exec entity.Executor) *Server {
	return &Server{
		controller: controller,
		sensor:     temp,
		exec:       exec,
	}
}

// Handler returns the routed handler, CORS included, for Start and for
// httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/mode", s.handleMode)
	mux.HandleFunc("/api/temperature", s.handleTemperature)
	mux.HandleFunc("/api/fan", s.handleFan)

	// Add CORS middleware
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		mux.ServeHTTP(w, r)
	})
}

func (s *Server) Start(port int) error {
	addr := fmt.Sprintf("0.0.0.0:%d", port)
	log.Info().Str("address", addr).Msg("Starting REST API server")

	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	info := s.controller.Info()
	addr := s.controller.Address()
	sensorInfo := s.sensor.Info()

	response := StateResponse{
		UniqueID:              info.UniqueID,
		Name:                  info.Name,
		SystemID:              addr.SystemID,
		ZoneID:                addr.ZoneID,
		CurrentTemperature:    s.controller.CurrentTemperature(),
		FanMode:               s.controller.FanMode(),
		HVACMode:              string(s.controller.HVACMode()),
		HVACAction:            string(s.controller.HVACAction()),
		TargetTemperature:     s.controller.TargetTemperature(),
		TargetTemperatureHigh: s.controller.TargetTemperatureHigh(),
		TargetTemperatureLow:  s.controller.TargetTemperatureLow(),
		TemperatureSensor: SensorResponse{
			UniqueID: sensorInfo.UniqueID,
			Name:     sensorInfo.Name,
			Value:    s.sensor.Value(),
		},
	}
	s.writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req ModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	mode := model.HVACMode(req.Mode)
	if !isValidMode(mode) {
		s.writeError(w, http.StatusBadRequest, "Invalid mode. Valid modes: heat, cool, heat_cool, off")
		return
	}

	err := s.exec.Do(r.Context(), func(ctx context.Context) error {
		return s.controller.SetHVACMode(ctx, mode)
	})
	if err != nil {
		s.writeDeviceError(w, err, "Failed to set HVAC mode")
		return
	}

	log.Info().Str("mode", req.Mode).Msg("HVAC mode updated via API")
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleTemperature(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req climate.TemperatureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if req.Target == nil && req.TargetHigh == nil && req.TargetLow == nil {
		s.writeError(w, http.StatusBadRequest, "At least one of target, target_high, target_low is required")
		return
	}

	err := s.exec.Do(r.Context(), func(ctx context.Context) error {
		return s.controller.SetTemperature(ctx, req)
	})
	if err != nil {
		s.writeDeviceError(w, err, "Failed to set temperature")
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleFan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req FanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if !isValidFanMode(req.Mode) {
		s.writeError(w, http.StatusBadRequest, "Invalid fan mode. Valid modes: auto, low, med, high")
		return
	}

	err := s.exec.Do(r.Context(), func(ctx context.Context) error {
		return s.controller.SetFanMode(ctx, req.Mode)
	})
	if err != nil {
		s.writeDeviceError(w, err, "Failed to set fan mode")
		return
	}

	w.WriteHeader(http.StatusOK)
}

// writeDeviceError maps controller errors onto status codes: a rejected
// write is the device's fault (502), a stale read path is unavailability
// (503), anything else is a transport failure (500).
func (s *Server) writeDeviceError(w http.ResponseWriter, err error, msg string) {
	log.Error().Err(err).Msg(msg)

	var writeErr *climate.WriteError
	if errors.As(err, &writeErr) {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	var readErr *climate.ReadError
	if errors.As(err, &readErr) {
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.writeError(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, ErrorResponse{Error: msg})
}

func isValidMode(mode model.HVACMode) bool {
	switch mode {
	case model.ModeHeat, model.ModeCool, model.ModeHeatCool, model.ModeOff:
		return true
	}
	return false
}

func isValidFanMode(mode string) bool {
	for _, m := range model.FanModes {
		if mode == m {
			return true
		}
	}
	return false
}
