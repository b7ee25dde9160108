package evolution

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// Sim is an in-memory SAM standing in for a real transport client. It backs
// unit tests, the debug CLI, and the bridge's simulated mode.
//
// Exported fields script its behavior: set a Fail* flag to make the matching
// operation report failure (nil reading or rejected write), or set Latency
// to mimic the real module's per-parameter delay.
type Sim struct {
	mu sync.Mutex

	CurrentTemperature *float64
	FanMode            *string
	Mode               *ModeReading
	HeatingSetpoint    *float64
	CoolingSetpoint    *float64

	FailReadTemperature bool
	FailReadFanMode     bool
	FailReadMode        bool
	FailReadHeatSP      bool
	FailReadCoolSP      bool
	FailSetMode         bool
	FailSetHeatSP       bool
	FailSetCoolSP       bool
	FailSetFanMode      bool

	Latency time.Duration

	// Writes records every accepted write as "op=value", in order.
	Writes []string
}

// NewSim returns a Sim with a plausible idle zone: 72F, fan auto, mode OFF.
func NewSim() *Sim {
	temp := 72.0
	fan := "AUTO"
	heat := 68.0
	cool := 75.0
	return &Sim{
		CurrentTemperature: &temp,
		FanMode:            &fan,
		Mode:               &ModeReading{Mode: "OFF", Active: false},
		HeatingSetpoint:    &heat,
		CoolingSetpoint:    &cool,
	}
}

func (s *Sim) wait(ctx context.Context) error {
	if s.Latency <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(s.Latency):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sim) ReadCurrentTemperature(ctx context.Context) (*float64, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailReadTemperature {
		return nil, nil
	}
	return s.CurrentTemperature, nil
}

func (s *Sim) ReadFanMode(ctx context.Context) (*string, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailReadFanMode {
		return nil, nil
	}
	return s.FanMode, nil
}

func (s *Sim) ReadHVACMode(ctx context.Context) (*ModeReading, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailReadMode || s.Mode == nil {
		return nil, nil
	}
	reading := *s.Mode
	return &reading, nil
}

func (s *Sim) ReadHeatingSetpoint(ctx context.Context) (*float64, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailReadHeatSP {
		return nil, nil
	}
	return s.HeatingSetpoint, nil
}

func (s *Sim) ReadCoolingSetpoint(ctx context.Context) (*float64, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailReadCoolSP {
		return nil, nil
	}
	return s.CoolingSetpoint, nil
}

func (s *Sim) SetHVACMode(ctx context.Context, mode string) (bool, error) {
	if err := s.wait(ctx); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSetMode {
		return false, nil
	}
	active := false
	if s.Mode != nil {
		active = s.Mode.Active
	}
	s.Mode = &ModeReading{Mode: mode, Active: active}
	s.Writes = append(s.Writes, "mode="+mode)
	return true, nil
}

func (s *Sim) SetHeatingSetpoint(ctx context.Context, temp int) (bool, error) {
	if err := s.wait(ctx); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSetHeatSP {
		return false, nil
	}
	v := float64(temp)
	s.HeatingSetpoint = &v
	s.Writes = append(s.Writes, "htsp="+strconv.Itoa(temp))
	return true, nil
}

func (s *Sim) SetCoolingSetpoint(ctx context.Context, temp int) (bool, error) {
	if err := s.wait(ctx); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSetCoolSP {
		return false, nil
	}
	v := float64(temp)
	s.CoolingSetpoint = &v
	s.Writes = append(s.Writes, "clsp="+strconv.Itoa(temp))
	return true, nil
}

func (s *Sim) SetFanMode(ctx context.Context, mode string) (bool, error) {
	if err := s.wait(ctx); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSetFanMode {
		return false, nil
	}
	s.FanMode = &mode
	s.Writes = append(s.Writes, "fan="+mode)
	return true, nil
}
