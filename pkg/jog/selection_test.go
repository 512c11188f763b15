package jog

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewSelection(t *testing.T) {
	tests := []struct {
		name  string
		n     int
		wantN int
	}{
		{"three axes", 3, 3},
		{"too few", 0, 1},
		{"too many", 9, MaxAxes},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSelection(tt.n)
			if s.NumAxes() != tt.wantN {
				t.Errorf("NumAxes() = %v, want %v", s.NumAxes(), tt.wantN)
			}
			if s.TheSelectedAxis() != 0 {
				t.Errorf("TheSelectedAxis() = %v, want 0", s.TheSelectedAxis())
			}
		})
	}
}

func TestSelection_TheSelectedAxis(t *testing.T) {
	tests := []struct {
		name     string
		selected []int
		want     int
	}{
		{"none", nil, AxisNone},
		{"first", []int{0}, 0},
		{"last", []int{2}, 2},
		{"two", []int{0, 2}, AxisAmbiguous},
		{"all", []int{0, 1, 2}, AxisAmbiguous},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSelection(3)
			s.UnselectAll()
			for _, a := range tt.selected {
				s.Select(a)
			}
			if got := s.TheSelectedAxis(); got != tt.want {
				t.Errorf("TheSelectedAxis() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSelection_SelectUnselectIdempotent(t *testing.T) {
	s := NewSelection(3)
	s.Select(1)
	s.Select(1)
	if diff := cmp.Diff([]int{0, 1}, s.Axes()); diff != "" {
		t.Errorf("Axes() mismatch (-want +got):\n%s", diff)
	}
	s.Unselect(0)
	s.Unselect(0)
	if !s.IsOnly(1) {
		t.Errorf("IsOnly(1) = false, want true")
	}
	if s.IsOnly(0) {
		t.Errorf("IsOnly(0) = true, want false")
	}

	// out of range axes are ignored
	s.Select(5)
	s.Select(-1)
	if s.Count() != 1 {
		t.Errorf("Count() = %v, want 1", s.Count())
	}
}

func TestSelection_Navigation(t *testing.T) {
	tests := []struct {
		name     string
		selected []int
		next     int
		prev     int
	}{
		{"none", nil, 2, 0},
		{"ambiguous", []int{0, 1}, 2, 0},
		{"first", []int{0}, 1, 2},
		{"middle", []int{1}, 2, 0},
		{"last", []int{2}, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSelection(3)
			s.UnselectAll()
			for _, a := range tt.selected {
				s.Select(a)
			}
			s.SelectNext()
			if got := s.TheSelectedAxis(); got != tt.next {
				t.Errorf("SelectNext() selected %v, want %v", got, tt.next)
			}

			s.UnselectAll()
			for _, a := range tt.selected {
				s.Select(a)
			}
			s.SelectPrevious()
			if got := s.TheSelectedAxis(); got != tt.prev {
				t.Errorf("SelectPrevious() selected %v, want %v", got, tt.prev)
			}
		})
	}
}

func TestSelection_RandomSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		s := NewSelection(3)
		for j := 0; j < rng.Intn(10); j++ {
			if rng.Intn(2) == 0 {
				s.Select(rng.Intn(3))
			} else {
				s.Unselect(rng.Intn(3))
			}
		}

		want := AxisNone
		switch n := s.Count(); {
		case n >= 2:
			want = AxisAmbiguous
		case n == 1:
			want = s.Axes()[0]
		}
		if got := s.TheSelectedAxis(); got != want {
			t.Fatalf("TheSelectedAxis() = %v, want %v for %v", got, want, s.Axes())
		}

		s.SelectNext()
		s.SelectPrevious()
		if s.Count() != 1 {
			t.Fatalf("navigation left %d axes selected", s.Count())
		}
	}
}
