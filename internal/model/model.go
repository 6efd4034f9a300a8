// Package model holds the device records shared by every simulator reader
// and by the contingency engine.
package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnresolved marks a device whose bus could not be resolved. Extractors
// skip such devices with a warning.
var ErrUnresolved = errors.New("model: bus not resolved")

// Class is a device class that can be disconnected.
type Class int

const (
	Branch Class = iota
	Bus
	Generator
	Load
	Shunt
)

var classNames = [...]string{"branch", "bus", "gen", "load", "shunt"}

func (c Class) String() string {
	if c < 0 || int(c) >= len(classNames) {
		return fmt.Sprintf("class(%d)", int(c))
	}
	return classNames[c]
}

// Classes returns every device class in declaration order.
func Classes() []Class {
	return []Class{Branch, Bus, Generator, Load, Shunt}
}

// ParseClass accepts the class names used on the command line. The branch
// aliases branchF, branchT and branchB also carry a disconnection mode.
func ParseClass(s string) (Class, Mode, error) {
	switch strings.ToLower(s) {
	case "branch", "branches":
		return Branch, Both, nil
	case "branchb":
		return Branch, Both, nil
	case "branchf":
		return Branch, From, nil
	case "brancht":
		return Branch, To, nil
	case "bus", "buses":
		return Bus, Both, nil
	case "gen", "generator", "generators":
		return Generator, Both, nil
	case "load", "loads":
		return Load, Both, nil
	case "shunt", "shunts":
		return Shunt, Both, nil
	}
	return 0, Both, fmt.Errorf("model: unknown device class %q", s)
}

// Subtype refines a Class.
type Subtype string

const (
	Line         Subtype = "Line"
	Transformer  Subtype = "Transformer"
	PhaseShifter Subtype = "PhaseShifter"
	BusBar       Subtype = "Bus"
	Gen          Subtype = "Generator"
	SingleLoad   Subtype = "Load"
	LoadGroup    Subtype = "LoadGroup"
	ShuntComp    Subtype = "Shunt"
)

// Side identifies one end of a two-port device.
type Side int

const (
	SideFrom Side = 1
	SideTo   Side = 2
)

// Mode says which end(s) of a branch are opened. Devices other than
// branches are always disconnected with Both.
type Mode int

const (
	Both Mode = iota
	From
	To
)

func (m Mode) String() string {
	switch m {
	case From:
		return "FROM"
	case To:
		return "TO"
	default:
		return "BOTH"
	}
}

// ParseMode parses from/to/both, case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "both", "b":
		return Both, nil
	case "from", "f":
		return From, nil
	case "to", "t":
		return To, nil
	}
	return Both, fmt.Errorf("model: unknown disconnection mode %q", s)
}

// Opens reports whether the mode opens the given side.
func (m Mode) Opens(s Side) bool {
	switch m {
	case From:
		return s == SideFrom
	case To:
		return s == SideTo
	default:
		return true
	}
}

// TopologyKind records how a device's bus name was obtained.
type TopologyKind int

const (
	// Direct: the device names its bus (bus-breaker topology).
	Direct TopologyKind = iota
	// Indirect: the device sits on a node-breaker node; the bus is the
	// first energized busbar section of its voltage level.
	Indirect
	// Numbered: the device references a node number resolved through the
	// model's node table (reference simulator).
	Numbered
)

func (k TopologyKind) String() string {
	switch k {
	case Indirect:
		return "indirect"
	case Numbered:
		return "numbered"
	default:
		return "direct"
	}
}
