package domain

import "fmt"

// LimitType selects the absolute/relative and temporary/persistent
// semantics of a limit command. The values mirror the OpenDTU API.
type LimitType int

const (
	LimitTypeAbsoluteNonPersistent LimitType = 0   // watts, volatile
	LimitTypeRelativeNonPersistent LimitType = 1   // percent, volatile
	LimitTypeAbsolutePersistent    LimitType = 256 // watts, written to EEPROM
	LimitTypeRelativePersistent    LimitType = 257 // percent, written to EEPROM
)

// DefaultLimitType is used when a set-limit call omits the limit type.
// Relative non-persistent is the safest choice for frequent changes.
const DefaultLimitType = LimitTypeRelativeNonPersistent

// Valid reports whether t is one of the four OpenDTU limit types.
func (t LimitType) Valid() bool {
	switch t {
	case LimitTypeAbsoluteNonPersistent, LimitTypeRelativeNonPersistent,
		LimitTypeAbsolutePersistent, LimitTypeRelativePersistent:
		return true
	}
	return false
}

// Relative reports whether the limit value is a percentage of rated power.
func (t LimitType) Relative() bool {
	return t == LimitTypeRelativeNonPersistent || t == LimitTypeRelativePersistent
}

// Persistent reports whether the limit is written to the inverter EEPROM.
func (t LimitType) Persistent() bool {
	return t == LimitTypeAbsolutePersistent || t == LimitTypeRelativePersistent
}

// Unit returns the display unit for values of this limit type.
func (t LimitType) Unit() string {
	if t.Relative() {
		return "%"
	}
	return "W"
}

// Label returns a human-readable description of the limit type.
func (t LimitType) Label() string {
	switch t {
	case LimitTypeAbsoluteNonPersistent:
		return "absolute, temporary (W)"
	case LimitTypeRelativeNonPersistent:
		return "relative, temporary (%)"
	case LimitTypeAbsolutePersistent:
		return "absolute, persistent (W) - writes EEPROM"
	case LimitTypeRelativePersistent:
		return "relative, persistent (%) - writes EEPROM"
	default:
		return fmt.Sprintf("unknown (%d)", int(t))
	}
}

// EEPROMWarning is attached to results of persistent limit commands. It is
// advisory only; persistent writes are never blocked mechanically.
const EEPROMWarning = "A persistent limit was written to the inverter EEPROM, " +
	"which has a bounded write-cycle lifetime. Prefer temporary limits " +
	"(limit_type 0 or 1) for frequent changes."

// Serial and value bounds accepted by the appliance.
const (
	minSerialLen = 6
	maxSerialLen = 20

	// Upper cap for absolute limits in watts. Applied when the inverter's
	// rated power is not known locally; the appliance enforces the real
	// per-inverter bound.
	maxAbsoluteLimitW = 100000
)

// LimitCommand is a validated limit write. It is constructed per tool
// call, sent once, and discarded.
type LimitCommand struct {
	Serial string
	Value  float64
	Type   LimitType
}

// ValidateLimit checks a raw set-limit request and returns a LimitCommand
// ready to send. Validation is local and pure: it never touches the
// network, so a bad command fails before any HTTP round trip.
func ValidateLimit(serial string, value float64, limitType int) (LimitCommand, error) {
	if n := len(serial); n < minSerialLen || n > maxSerialLen {
		return LimitCommand{}, &ValidationError{
			Field:   "serial",
			Message: fmt.Sprintf("serial must be %d-%d characters, got %d", minSerialLen, maxSerialLen, n),
		}
	}

	t := LimitType(limitType)
	if !t.Valid() {
		return LimitCommand{}, &ValidationError{
			Field:   "limit_type",
			Message: fmt.Sprintf("invalid limit_type %d, allowed: 0, 1, 256, 257", limitType),
		}
	}

	if t.Relative() {
		if value < 0 || value > 100 {
			return LimitCommand{}, &ValidationError{
				Field:   "limit_value",
				Message: fmt.Sprintf("relative limit must be between 0 and 100 percent, got %g", value),
			}
		}
	} else {
		if value < 0 {
			return LimitCommand{}, &ValidationError{
				Field:   "limit_value",
				Message: fmt.Sprintf("absolute limit must not be negative, got %g", value),
			}
		}
		if value > maxAbsoluteLimitW {
			return LimitCommand{}, &ValidationError{
				Field:   "limit_value",
				Message: fmt.Sprintf("absolute limit must not exceed %d W, got %g", maxAbsoluteLimitW, value),
			}
		}
	}

	return LimitCommand{Serial: serial, Value: value, Type: t}, nil
}
