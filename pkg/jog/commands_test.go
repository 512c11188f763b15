package jog

import "testing"

func TestComposer_TickJog(t *testing.T) {
	tests := []struct {
		name   string
		axes   []int
		steps  map[int]int
		inches bool
		delta  int
		want   string
		wantOK bool
	}{
		{"inch tenth", []int{0}, nil, true, 5, "$J=G91F400X0.500", true},
		{"metric tenth", []int{0}, nil, false, 5, "$J=G91F10000X0.50", true},
		{"negative", []int{1}, map[int]int{1: 1}, false, -3, "$J=G91F10000Y-30.00", true},
		{"two axes", []int{0, 2}, map[int]int{2: -1}, false, 1, "$J=G91F10000X0.10Z0.10", true},
		{"zero delta", []int{0}, nil, true, 0, "", false},
		{"empty selection", nil, nil, false, 2, "$J=G91F10000", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, steps := fixture(tt.axes, tt.steps, tt.inches)
			c := NewComposer("XYZ", DefaultTuning())
			got, ok := c.TickJog(sel, steps, tt.inches, tt.delta)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("TickJog() = %q, %v, want %q, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestComposer_HoldJog(t *testing.T) {
	tests := []struct {
		name     string
		axes     []int
		steps    map[int]int
		inches   bool
		negative bool
		want     string
	}{
		{"metric pair negative", []int{0, 1}, map[int]int{0: 0, 1: 0}, false, true, "$J=G91G21F424.260X-20Y-20"},
		{"metric single", []int{0}, nil, false, false, "$J=G91G21F30.000X5000"},
		{"metric single coarse", []int{2}, map[int]int{2: 3}, false, false, "$J=G91G21F300000.000Z5000"},
		{"inch single negative", []int{1}, map[int]int{1: -2}, true, true, "$J=G91G20F3.000Y-200"},
		{"inch pair", []int{0, 2}, map[int]int{0: 1, 2: 1}, true, false, "$J=G91G20F4242.630X200Z200"},
		{"empty selection", nil, nil, false, false, "$J=G91G21F0.000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, steps := fixture(tt.axes, tt.steps, tt.inches)
			c := NewComposer("XYZ", DefaultTuning())
			if got := c.HoldJog(sel, steps, tt.inches, tt.negative); got != tt.want {
				t.Errorf("HoldJog() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestComposer_HoldJogSingleAxisIgnoresDigit(t *testing.T) {
	c := NewComposer("XYZ", DefaultTuning())
	sel := NewSelection(3)
	steps := NewSteps(sel, MetricDigits)
	for d := steps.Min(); d <= steps.Max(); d++ {
		for steps.Index(0) > d {
			steps.Decrement(0)
		}
		for steps.Index(0) < d {
			steps.Increment(0)
		}
		got := c.HoldJog(sel, steps, false, false)
		if want := "X5000"; got[len(got)-len(want):] != want {
			t.Errorf("digit %d: HoldJog() = %q, want operand %s", d, got, want)
		}
	}
}

func TestComposer_Zero(t *testing.T) {
	tests := []struct {
		name string
		axes []int
		want string
	}{
		{"single", []int{2}, "G10L20P0Z0"},
		{"all", []int{0, 1, 2}, "G10L20P0X0Y0Z0"},
		{"none", nil, "G10L20P0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, _ := fixture(tt.axes, nil, false)
			c := NewComposer("", DefaultTuning())
			if got := c.Zero(sel); got != tt.want {
				t.Errorf("Zero() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestComposer_Labels(t *testing.T) {
	c := NewComposer("XYZA", DefaultTuning())
	sel := NewSelection(4)
	sel.Select(3)
	if got := c.AxisNames(sel); got != "XA" {
		t.Errorf("AxisNames() = %q, want XA", got)
	}
	if got := c.Label(7); got != "?" {
		t.Errorf("Label(7) = %q, want ?", got)
	}
}

// fixture builds a selection of axes with the given digit indices.
func fixture(axes []int, index map[int]int, inches bool) (*Selection, *Steps) {
	sel := NewSelection(3)
	for a := 0; a < 3; a++ {
		sel.Select(a)
	}
	steps := NewSteps(sel, DigitsFor(inches))
	for axis, d := range index {
		for steps.Index(axis) < d {
			steps.Increment(axis)
		}
		for steps.Index(axis) > d {
			steps.Decrement(axis)
		}
	}
	sel.UnselectAll()
	for _, a := range axes {
		sel.Select(a)
	}
	return sel, steps
}
