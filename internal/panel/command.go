package panel

import (
	"math/big"
	"strings"
)

// Command is an ASCII instruction for the illuminator, including its
// line delimiter.
type Command string

const (
	CommandOn  Command = "CSN\n"
	CommandOff Command = "CSF\n"
)

// Bytes returns the wire form.
func (c Command) Bytes() []byte {
	return []byte(c)
}

// Name returns the command without its delimiter, e.g. "CSN".
func (c Command) Name() string {
	return strings.TrimRight(string(c), "\r\n")
}

// ParseCommand accepts "on", "off", or a bare command name.
func ParseCommand(s string) (Command, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ON", "CSN":
		return CommandOn, true
	case "OFF", "CSF":
		return CommandOff, true
	default:
		return "", false
	}
}

// Toggle is one named on/off control.
type Toggle struct {
	Name    string `json:"name"`
	Checked bool   `json:"checked"`
}

// ToggleState is an ordered snapshot of all toggles.
type ToggleState []Toggle

// Bits renders the toggles as a binary string in panel order.
func (s ToggleState) Bits() string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, t := range s {
		if t.Checked {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// Get returns the state of a named toggle.
func (s ToggleState) Get(name string) (checked, ok bool) {
	for _, t := range s {
		if t.Name == name {
			return t.Checked, true
		}
	}
	return false, false
}

// CommandFor reduces the toggle snapshot to a single command: the binary
// string of all toggles is read as an integer and any nonzero value turns
// the light on. Toggles do not map to individual commands.
func CommandFor(s ToggleState) Command {
	v, ok := new(big.Int).SetString(s.Bits(), 2)
	if ok && v.Sign() != 0 {
		return CommandOn
	}
	return CommandOff
}
