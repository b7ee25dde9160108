// Package evolution defines the contract for talking to a Bryant Evolution
// system through its SAM (System Access Module). The real transport lives
// behind Client; this package only fixes the shape of the conversation.
package evolution

import "context"

// ModeReading is the (mode, active) tuple the SAM reports for a zone. Mode
// is the raw device string (HEAT, COOL, AUTO, OFF in any casing); Active is
// whether the equipment is currently running.
type ModeReading struct {
	Mode   string
	Active bool
}

// Client is an async accessor for one zone of one Evolution system. The SAM
// is slow (roughly 1.5s per parameter), so every call takes a context.
//
// Read methods report "no usable result" with a nil pointer and a nil
// error; write methods report device rejection with ok=false. A non-nil
// error means the transport itself failed.
type Client interface {
	ReadCurrentTemperature(ctx context.Context) (*float64, error)
	ReadFanMode(ctx context.Context) (*string, error)
	ReadHVACMode(ctx context.Context) (*ModeReading, error)
	ReadHeatingSetpoint(ctx context.Context) (*float64, error)
	ReadCoolingSetpoint(ctx context.Context) (*float64, error)

	SetHVACMode(ctx context.Context, mode string) (bool, error)
	SetHeatingSetpoint(ctx context.Context, temp int) (bool, error)
	SetCoolingSetpoint(ctx context.Context, temp int) (bool, error)
	SetFanMode(ctx context.Context, mode string) (bool, error)
}
