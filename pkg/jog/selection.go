// Package jog implements the jog scene of the pendant: which axes are
// selected, the step size of each axis, the motion commands built from them
// and the mapping of pendant input onto those operations.
package jog

import "jog-pendant/pkg/grbl"

// MaxAxes is the largest number of axes a pendant can drive.
const MaxAxes = grbl.MaxAxes

// Sentinels returned by Selection.TheSelectedAxis.
const (
	AxisNone      = -1
	AxisAmbiguous = -2
)

// Selection is the set of axes currently addressed by jog and zero commands.
type Selection struct {
	n   int
	set [MaxAxes]bool
}

// NewSelection returns a selection over n axes with axis 0 selected.
// n is clamped to [1, MaxAxes].
func NewSelection(n int) *Selection {
	if n < 1 {
		n = 1
	}
	if n > MaxAxes {
		n = MaxAxes
	}
	s := &Selection{n: n}
	s.set[0] = true
	return s
}

// NumAxes returns the number of axes the selection covers.
func (s *Selection) NumAxes() int {
	return s.n
}

func (s *Selection) valid(axis int) bool {
	return axis >= 0 && axis < s.n
}

// Select adds axis to the selection.
func (s *Selection) Select(axis int) {
	if s.valid(axis) {
		s.set[axis] = true
	}
}

// Unselect removes axis from the selection.
func (s *Selection) Unselect(axis int) {
	if s.valid(axis) {
		s.set[axis] = false
	}
}

// UnselectAll empties the selection.
func (s *Selection) UnselectAll() {
	s.set = [MaxAxes]bool{}
}

// IsSelected reports whether axis is in the selection.
func (s *Selection) IsSelected(axis int) bool {
	return s.valid(axis) && s.set[axis]
}

// IsOnly reports whether axis is the one and only selected axis.
func (s *Selection) IsOnly(axis int) bool {
	return s.IsSelected(axis) && s.Count() == 1
}

// Count returns the number of selected axes.
func (s *Selection) Count() int {
	n := 0
	for i := 0; i < s.n; i++ {
		if s.set[i] {
			n++
		}
	}
	return n
}

// Axes returns the selected axes in ascending order.
func (s *Selection) Axes() []int {
	axes := make([]int, 0, s.n)
	for i := 0; i < s.n; i++ {
		if s.set[i] {
			axes = append(axes, i)
		}
	}
	return axes
}

// TheSelectedAxis returns the single selected axis, AxisNone when nothing is
// selected or AxisAmbiguous when several axes are.
func (s *Selection) TheSelectedAxis() int {
	found := AxisNone
	for i := 0; i < s.n; i++ {
		if !s.set[i] {
			continue
		}
		if found != AxisNone {
			return AxisAmbiguous
		}
		found = i
	}
	return found
}

// SelectNext moves a single selection to the following axis, wrapping around.
// An empty or multiple selection collapses to the last axis.
func (s *Selection) SelectNext() {
	axis := s.TheSelectedAxis()
	if axis < 0 {
		s.only(s.n - 1)
		return
	}
	s.only((axis + 1) % s.n)
}

// SelectPrevious moves a single selection to the preceding axis, wrapping
// around. An empty or multiple selection collapses to the first axis.
func (s *Selection) SelectPrevious() {
	axis := s.TheSelectedAxis()
	if axis < 0 {
		s.only(0)
		return
	}
	s.only((axis + s.n - 1) % s.n)
}

func (s *Selection) only(axis int) {
	s.UnselectAll()
	s.set[axis] = true
}
