package jog

import "jog-pendant/pkg/e4"

// Fractional digits shown for each unit system.
const (
	InchDigits   = 4
	MetricDigits = 3
)

// initialStep is the digit index every axis starts at, a tenth of a unit.
const initialStep = -1

// DigitsFor returns the number of fractional display digits for a unit system.
func DigitsFor(inches bool) int {
	if inches {
		return InchDigits
	}
	return MetricDigits
}

// Steps holds the jog step size of every axis as a power of ten.
// Only axes in the associated Selection are mutated.
type Steps struct {
	sel    *Selection
	digits int
	index  [MaxAxes]int
}

// NewSteps creates step state for the axes of sel with digits fractional
// display digits.
func NewSteps(sel *Selection, digits int) *Steps {
	s := &Steps{sel: sel, digits: digits}
	for i := range s.index {
		s.index[i] = initialStep
	}
	s.clampAll()
	return s
}

// Digits returns the number of fractional display digits in effect.
func (s *Steps) Digits() int { return s.digits }

// Min is the smallest digit index, the last displayed fractional digit.
func (s *Steps) Min() int { return -s.digits }

// Max is the largest digit index.
func (s *Steps) Max() int { return 6 - s.digits }

// Index returns the digit index of axis.
func (s *Steps) Index(axis int) int {
	if axis < 0 || axis >= MaxAxes {
		return 0
	}
	return s.index[axis]
}

// Distance returns the step distance of axis, 10^Index(axis).
func (s *Steps) Distance(axis int) e4.E4 {
	return e4.Power10(s.Index(axis))
}

// SetDigits switches to another unit system and clamps every index into the
// new range.
func (s *Steps) SetDigits(digits int) {
	s.digits = digits
	s.clampAll()
}

// Increment makes the step of a selected axis ten times larger, up to Max.
func (s *Steps) Increment(axis int) {
	if s.sel.IsSelected(axis) && s.index[axis] < s.Max() {
		s.index[axis]++
	}
}

// Decrement makes the step of a selected axis ten times smaller, down to Min.
func (s *Steps) Decrement(axis int) {
	if s.sel.IsSelected(axis) && s.index[axis] > s.Min() {
		s.index[axis]--
	}
}

// Rotate advances the step of a selected axis and wraps to the unit digit
// once it passes Max, so starting from 0 it cycles through Max+1 values.
func (s *Steps) Rotate(axis int) {
	if !s.sel.IsSelected(axis) {
		return
	}
	s.index[axis]++
	if s.index[axis] > s.Max() {
		s.index[axis] = 0
	}
}

// IncrementSelected applies Increment to every selected axis.
func (s *Steps) IncrementSelected() {
	for _, axis := range s.sel.Axes() {
		s.Increment(axis)
	}
}

// DecrementSelected applies Decrement to every selected axis.
func (s *Steps) DecrementSelected() {
	for _, axis := range s.sel.Axes() {
		s.Decrement(axis)
	}
}

// RotateSelected applies Rotate to every selected axis.
func (s *Steps) RotateSelected() {
	for _, axis := range s.sel.Axes() {
		s.Rotate(axis)
	}
}

func (s *Steps) clampAll() {
	for i := range s.index {
		switch {
		case s.index[i] < s.Min():
			s.index[i] = s.Min()
		case s.index[i] > s.Max():
			s.index[i] = s.Max()
		}
	}
}
