package climate

import "github.com/danielsmyers/evolution-bridge/internal/model"

// deriveAction infers what the equipment is doing from the parsed mode, the
// device's active flag, and the readings gathered earlier in the refresh.
//
// The device only says "running"; in auto mode the direction has to be
// inferred. If the system is active and the current temperature is above the
// point at which heating would engage, it must be cooling.
func deriveAction(mode model.HVACMode, active bool, current, targetLow *float64) (model.HVACAction, error) {
	if !active {
		return model.ActionOff, nil
	}

	switch mode {
	case model.ModeHeat:
		return model.ActionHeating, nil
	case model.ModeCool:
		return model.ActionCooling, nil
	case model.ModeOff:
		return model.ActionOff, nil
	case model.ModeHeatCool:
		if current == nil || targetLow == nil {
			return "", &ReadError{
				Op:                   "resolve_auto_action",
				CurrentTemperature:   current,
				TargetTemperatureLow: targetLow,
			}
		}
		if *current > *targetLow {
			return model.ActionCooling, nil
		}
		return model.ActionHeating, nil
	}

	return "", &ReadError{Op: "derive_hvac_action", Mode: string(mode)}
}

// parseMode maps a raw SAM mode string onto the host-facing mode. The
// device's AUTO surfaces as heat_cool.
func parseMode(raw string) (model.HVACMode, error) {
	switch normalizeMode(raw) {
	case "HEAT":
		return model.ModeHeat, nil
	case "COOL":
		return model.ModeCool, nil
	case "AUTO":
		return model.ModeHeatCool, nil
	case "OFF":
		return model.ModeOff, nil
	}
	return "", &ReadError{Op: "parse_hvac_mode", Mode: raw}
}
