package grbl

import (
	"fmt"
	"strings"

	"jog-pendant/pkg/e4"
)

// Status is a decoded "<...>" status report.
type Status struct {
	State    string
	SubState string
	MPos     []e4.E4
	WPos     []e4.E4
	WCO      []e4.E4
	Feed     e4.E4
	Spindle  e4.E4
	// Pins lists the active input pins, e.g. "XZ" for two limit switches.
	Pins    string
	HasPins bool
}

// ParseStatus decodes a status report such as
// "<Idle|MPos:1.000,2.000,3.000|FS:0,0|WCO:0.000,0.000,0.000>".
// The surrounding angle brackets are optional.
func ParseStatus(report string) (Status, error) {
	report = strings.TrimSpace(report)
	report = strings.TrimPrefix(report, "<")
	report = strings.TrimSuffix(report, ">")
	if report == "" {
		return Status{}, fmt.Errorf("empty status report")
	}

	fields := strings.Split(report, "|")
	var st Status
	st.State, st.SubState, _ = strings.Cut(fields[0], ":")
	if st.State == "" {
		return Status{}, fmt.Errorf("status report %q has no state", report)
	}

	for _, field := range fields[1:] {
		key, value, _ := strings.Cut(field, ":")
		var err error
		switch key {
		case "MPos":
			st.MPos, err = parseVector(value)
		case "WPos":
			st.WPos, err = parseVector(value)
		case "WCO":
			st.WCO, err = parseVector(value)
		case "FS", "F":
			var v []e4.E4
			v, err = parseVector(value)
			if err == nil && len(v) > 0 {
				st.Feed = v[0]
				if len(v) > 1 {
					st.Spindle = v[1]
				}
			}
		case "Pn":
			st.Pins = value
			st.HasPins = true
		}
		if err != nil {
			return Status{}, fmt.Errorf("status field %s: %w", key, err)
		}
	}

	if st.WPos == nil && st.MPos != nil && st.WCO != nil {
		st.WPos = subtract(st.MPos, st.WCO)
	}
	return st, nil
}

func parseVector(s string) ([]e4.E4, error) {
	parts := strings.Split(s, ",")
	v := make([]e4.E4, len(parts))
	for i, p := range parts {
		x, err := e4.Parse(p)
		if err != nil {
			return nil, err
		}
		v[i] = x
	}
	return v, nil
}

func subtract(a, b []e4.E4) []e4.E4 {
	out := make([]e4.E4, len(a))
	for i := range a {
		out[i] = a[i]
		if i < len(b) {
			out[i] -= b[i]
		}
	}
	return out
}
