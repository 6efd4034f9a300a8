// Package display provides human-readable names for machine codes.
//
// Rule: code is for machines, words are for humans.
// Use these functions in CLI output, markdown reports, and logs.
// Keep raw codes for CSV columns, ledger fields, map keys, and equality
// comparisons.
package display

import "strings"

// --- Device Classes ---

var classes = map[string]string{
	"branch":  "Branch",
	"branchB": "Branch (both ends)",
	"branchF": "Branch (origin end)",
	"branchT": "Branch (extremity end)",
	"bus":     "Bus",
	"gen":     "Generator",
	"load":    "Load",
	"shunt":   "Shunt",
}

// Class returns the human-readable name for a device class or case
// prefix. Unknown codes are returned as-is.
func Class(code string) string {
	if name, ok := classes[code]; ok {
		return name
	}
	return code
}

// ClassWithCode returns "Generator (gen)" format.
func ClassWithCode(code string) string {
	if name, ok := classes[code]; ok {
		return name + " (" + code + ")"
	}
	return code
}

// --- Device Subtypes ---

var subtypes = map[string]string{
	"Line":         "Line",
	"Transformer":  "Transformer",
	"PhaseShifter": "Phase shifter",
	"Bus":          "Bus",
	"Generator":    "Generator",
	"Load":         "Load",
	"LoadGroup":    "Load group",
	"Shunt":        "Shunt",
}

// Subtype returns the human-readable name for a device subtype.
func Subtype(code string) string {
	if name, ok := subtypes[code]; ok {
		return name
	}
	return code
}

// --- Disconnection Modes ---

var modes = map[string]string{
	"FROM": "Origin end",
	"TO":   "Extremity end",
	"BOTH": "Both ends",
}

// Mode returns the human-readable name for a disconnection mode.
// "FROM" -> "Origin end".
func Mode(code string) string {
	if name, ok := modes[strings.ToUpper(code)]; ok {
		return name
	}
	return code
}

// --- Pairings ---

var pairings = map[string]string{
	"astre":  "Dynamic vs time-domain reference",
	"hades":  "Dynamic vs static reference",
	"dynawo": "Dynamic vs dynamic",
}

// Pairing returns the human-readable name for a simulator pairing.
func Pairing(code string) string {
	if name, ok := pairings[code]; ok {
		return name
	}
	return code
}

// PairingWithCode returns "Dynamic vs static reference (hades)" format.
func PairingWithCode(code string) string {
	if name, ok := pairings[code]; ok {
		return name + " (" + code + ")"
	}
	return code
}

// --- Run Statuses ---

var statuses = map[string]string{
	"running": "Running",
	"done":    "Done",
	"aborted": "Aborted",
}

// Status returns the human-readable name for a run status.
func Status(code string) string {
	if name, ok := statuses[code]; ok {
		return name
	}
	return code
}

// --- Case Directories ---

// CaseDir humanizes a case directory name.
// "branchF#L12" -> "Branch (origin end) / L12"
func CaseDir(name string) string {
	prefix, element, ok := strings.Cut(name, "#")
	if !ok {
		return name
	}
	return Class(prefix) + " / " + element
}
