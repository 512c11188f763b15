package jog

// Panel geometry in display pixels, origin top left.
const (
	PanelWidth  = 240
	PanelHeight = 240
	// HoldBandX is the right edge of the band where a hold toggles an axis.
	HoldBandX = 80
	// dro row centres
	droFirstRowY = 85
)

// TapZone is the region of the panel a tap landed in.
type TapZone int

const (
	TapCenter TapZone = iota
	TapTop
	TapBottom
	TapLeft
	TapRight
)

// String returns the string representation of TapZone
func (z TapZone) String() string {
	switch z {
	case TapCenter:
		return "center"
	case TapTop:
		return "top"
	case TapBottom:
		return "bottom"
	case TapLeft:
		return "left"
	case TapRight:
		return "right"
	default:
		return "unknown"
	}
}

// Layout places the axis rows on the panel and maps touches onto them.
type Layout struct {
	NumAxes int
	// RowPitch is the vertical distance between axis rows.
	RowPitch int
	// HoldEdges are the y coordinates separating the hold zones of
	// consecutive axes.
	HoldEdges []int
}

// NewLayout returns the layout for numAxes axis rows.
func NewLayout(numAxes int) Layout {
	if numAxes < 1 {
		numAxes = 1
	}
	if numAxes > MaxAxes {
		numAxes = MaxAxes
	}
	l := Layout{NumAxes: numAxes, RowPitch: 30}
	if numAxes > 3 {
		l.RowPitch = 20
	}
	if numAxes == 3 {
		l.HoldEdges = []int{90, 130}
		return l
	}
	for i := 1; i < numAxes; i++ {
		l.HoldEdges = append(l.HoldEdges, l.RowCenterY(i)-l.RowPitch/2)
	}
	return l
}

// RowCenterY returns the y coordinate of the centre of an axis row.
func (l Layout) RowCenterY(axis int) int {
	return droFirstRowY + axis*l.RowPitch
}

// CenterRadius is the radius of the central help region.
func (l Layout) CenterRadius() int {
	return PanelWidth / 6
}

// ClassifyTap maps a centre-relative tap, y pointing up, onto a zone.
func (l Layout) ClassifyTap(x, y int) TapZone {
	r := l.CenterRadius()
	if x*x+y*y < r*r {
		return TapCenter
	}
	if abs(y) > abs(x) {
		if y > 0 {
			return TapTop
		}
		return TapBottom
	}
	if x > 0 {
		return TapRight
	}
	return TapLeft
}

// HoldAxis returns the axis whose hold zone contains the display point, or
// AxisNone when the point is outside the hold band.
func (l Layout) HoldAxis(x, y int) int {
	if x >= HoldBandX {
		return AxisNone
	}
	axis := 0
	for _, edge := range l.HoldEdges {
		if y > edge {
			axis++
		}
	}
	return axis
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
