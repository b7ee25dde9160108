package climate

import (
	"fmt"
	"strings"
)

// ReadError reports that a refresh got no usable data out of the device:
// a missing mode/activity tuple, a mode string the bridge cannot parse, or
// an auto-mode activity that cannot be resolved from the available readings.
type ReadError struct {
	Op   string
	Mode string // raw device mode string, when one was reported

	// Raw readings carried for diagnostics on unresolvable auto mode.
	CurrentTemperature   *float64
	TargetTemperatureLow *float64
}

func (e *ReadError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "device read failed: %s", e.Op)
	if e.Mode != "" {
		fmt.Fprintf(&b, " (mode=%q)", e.Mode)
	}
	if e.Op == "resolve_auto_action" {
		fmt.Fprintf(&b, " (current_temperature=%s, target_temperature_low=%s)",
			fmtReading(e.CurrentTemperature), fmtReading(e.TargetTemperatureLow))
	}
	return b.String()
}

// WriteError reports that the device rejected a mutation. Local state is
// left as it was before the attempt.
type WriteError struct {
	Op    string
	Value string
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("device write failed: %s value=%q", e.Op, e.Value)
}

func fmtReading(v *float64) string {
	if v == nil {
		return "none"
	}
	return fmt.Sprintf("%g", *v)
}
