package domain

import "fmt"

// PortMode is the direction of a port.
type PortMode int

const (
	PortModeOutput PortMode = iota
	PortModeInput
	PortModeNull
)

func (m PortMode) String() string {
	switch m {
	case PortModeOutput:
		return "output"
	case PortModeInput:
		return "input"
	default:
		return "null"
	}
}

// Opposite returns the mode a connection partner must have.
func (m PortMode) Opposite() PortMode {
	switch m {
	case PortModeOutput:
		return PortModeInput
	case PortModeInput:
		return PortModeOutput
	default:
		return PortModeNull
	}
}

// MarshalText encodes the mode by name.
func (m PortMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText decodes a mode written by MarshalText.
func (m *PortMode) UnmarshalText(b []byte) error {
	if string(b) == "null" {
		*m = PortModeNull
		return nil
	}
	v, err := ParsePortMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// ParsePortMode accepts "output"/"out" and "input"/"in".
func ParsePortMode(s string) (PortMode, error) {
	switch s {
	case "output", "out":
		return PortModeOutput, nil
	case "input", "in":
		return PortModeInput, nil
	}
	return PortModeNull, fmt.Errorf("unknown port mode %q", s)
}

// PortType is the signal carried by a port.
type PortType int

const (
	PortTypeAudio PortType = iota
	PortTypeMIDI
	PortTypeNull
)

func (t PortType) String() string {
	switch t {
	case PortTypeAudio:
		return "audio"
	case PortTypeMIDI:
		return "midi"
	default:
		return "null"
	}
}

// MarshalText encodes the type by name.
func (t PortType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a type written by MarshalText.
func (t *PortType) UnmarshalText(b []byte) error {
	switch string(b) {
	case "audio":
		*t = PortTypeAudio
	case "midi":
		*t = PortTypeMIDI
	case "null":
		*t = PortTypeNull
	default:
		return fmt.Errorf("unknown port type %q", b)
	}
	return nil
}

// Port is a live endpoint of the backend graph.
// Identity is (Name, Mode).
type Port struct {
	Name string   `json:"name"`
	Mode PortMode `json:"mode"`
	Type PortType `json:"type"`

	// Fresh is set when the port is created or renamed and cleared once a
	// reconciliation pass drains the backlog. Only pairs touching a fresh port
	// are eligible for reconnection.
	Fresh bool `json:"fresh"`
}
