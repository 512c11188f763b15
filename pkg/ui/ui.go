// Package ui renders pendant scenes on a terminal through tcell.
//
// The 240x240 pixel panel is mapped onto a grid of Cols x Rows cells, each
// covering CellWidth x CellHeight pixels, anchored at the top left corner of
// the terminal.
package ui

import (
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"jog-pendant/pkg/e4"
	"jog-pendant/pkg/jog"
	"jog-pendant/pkg/scene"
)

// Panel grid.
const (
	CellWidth  = 5
	CellHeight = 10
	Cols       = jog.PanelWidth / CellWidth
	Rows       = jog.PanelHeight / CellHeight
)

// Fixed rows of the panel.
const (
	titleRow  = 1
	statusRow = 2
	linesRow  = 4
	// legend strip, matches the button strip of the input translator
	legendTop    = 20
	legendRow    = 21
	legendBottom = 22
)

// DRO columns.
const (
	markerCol  = 2
	labelCol   = 4
	valueCol   = 7
	valueWidth = 14
	limitCol   = valueCol + valueWidth + 1
)

// MaxLines is the number of list lines that fit between the status line
// and the legends.
const MaxLines = legendTop - linesRow

// LegendStripY is the display y coordinate where the button legends begin.
const LegendStripY = legendTop * CellHeight

// ToDisplay returns the display pixel at the centre of cell (cx, cy). ok is
// false when the cell lies outside the panel.
func ToDisplay(cx, cy int) (x, y int, ok bool) {
	if cx < 0 || cy < 0 || cx >= Cols || cy >= Rows {
		return 0, 0, false
	}
	return cx*CellWidth + CellWidth/2, cy*CellHeight + CellHeight/2, true
}

// ToCell returns the cell containing display pixel (x, y).
func ToCell(x, y int) (cx, cy int) {
	return x / CellWidth, y / CellHeight
}

// Theme holds the styles the canvas draws with.
type Theme struct {
	Panel    tcell.Style
	Border   tcell.Style
	Title    tcell.Style
	Status   tcell.Style
	Selected tcell.Style
	Digit    tcell.Style
	Line     tcell.Style
	Cursor   tcell.Style
	Limit    tcell.Style
	Red      tcell.Style
	Dial     tcell.Style
	Green    tcell.Style
}

// DefaultTheme returns the default pendant colours.
func DefaultTheme() Theme {
	panel := tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite)
	return Theme{
		Panel:    panel,
		Border:   panel.Foreground(tcell.ColorDarkCyan),
		Title:    panel.Foreground(tcell.ColorYellow).Bold(true),
		Status:   panel.Foreground(tcell.ColorSilver),
		Selected: panel.Foreground(tcell.ColorLime).Bold(true),
		Digit:    panel.Reverse(true),
		Line:     panel,
		Cursor:   tcell.StyleDefault.Background(tcell.ColorDarkBlue).Foreground(tcell.ColorWhite),
		Limit:    panel.Foreground(tcell.ColorRed).Bold(true),
		Red:      tcell.StyleDefault.Background(tcell.ColorMaroon).Foreground(tcell.ColorWhite),
		Dial:     tcell.StyleDefault.Background(tcell.ColorNavy).Foreground(tcell.ColorWhite),
		Green:    tcell.StyleDefault.Background(tcell.ColorGreen).Foreground(tcell.ColorBlack),
	}
}

// Canvas implements scene.Canvas on a tcell screen.
type Canvas struct {
	screen tcell.Screen
	theme  Theme
	layout jog.Layout
}

// NewCanvas creates a canvas whose DRO rows follow the layout for numAxes.
func NewCanvas(screen tcell.Screen, numAxes int) *Canvas {
	return &Canvas{
		screen: screen,
		theme:  DefaultTheme(),
		layout: jog.NewLayout(numAxes),
	}
}

// SetTheme replaces the canvas styles.
func (c *Canvas) SetTheme(t Theme) {
	c.theme = t
}

// Theme returns the canvas styles.
func (c *Canvas) Theme() Theme {
	return c.theme
}

// DRORowCell returns the grid row an axis read-out is drawn on.
func (c *Canvas) DRORowCell(axis int) int {
	_, cy := ToCell(0, c.layout.RowCenterY(axis))
	return cy
}

// Begin clears the panel and draws its frame and title.
func (c *Canvas) Begin(title string) {
	c.fill(0, 0, Cols, Rows, c.theme.Panel)
	c.drawBorder()
	c.drawCentered(0, Cols, titleRow, title, c.theme.Title)
}

// DRO draws one axis read-out with the digit of the step size highlighted.
// An axis on a limit switch is flagged in the limit style.
func (c *Canvas) DRO(row int, r scene.DRORow) {
	y := c.DRORowCell(row)
	if y <= statusRow || y >= legendTop {
		return
	}

	labelStyle := c.theme.Line
	if r.Selected {
		labelStyle = c.theme.Selected
		c.screen.SetContent(markerCol, y, '>', nil, c.theme.Selected)
	}
	if r.Limit {
		labelStyle = c.theme.Limit
		c.drawText(limitCol, y, "LIM", c.theme.Limit)
	}
	c.drawText(labelCol, y, r.Label, labelStyle)

	text, digit := DROText(r.Value, r.Decimals, r.Power)
	if over := len(text) - valueWidth; over > 0 {
		text = text[over:]
		digit -= over
	}
	x := valueCol + valueWidth - len(text)
	c.drawText(x, y, text, c.theme.Line)
	if r.Selected && digit >= 0 && digit < len(text) {
		c.screen.SetContent(x+digit, y, rune(text[digit]), nil, c.theme.Digit)
	}
}

// Lines draws a list below the title. The line at index highlight is drawn
// with the cursor style; pass -1 for none.
func (c *Canvas) Lines(lines []string, highlight int) {
	width := Cols - 4
	for i, line := range lines {
		y := linesRow + i
		if y >= legendTop {
			break
		}
		style := c.theme.Line
		if i == highlight {
			style = c.theme.Cursor
			c.fill(1, y, Cols-2, 1, style)
		}
		c.drawText(2, y, runewidth.Truncate(line, width, "…"), style)
	}
}

// Legends draws the labels of the red, dial and green buttons.
func (c *Canvas) Legends(red, dial, green string) {
	third := Cols / 3
	zones := []struct {
		x     int
		label string
		style tcell.Style
	}{
		{0, red, c.theme.Red},
		{third, dial, c.theme.Dial},
		{2 * third, green, c.theme.Green},
	}
	for _, z := range zones {
		c.fill(z.x, legendTop, third, legendBottom-legendTop+1, z.style)
		c.drawCentered(z.x, z.x+third, legendRow, z.label, z.style)
	}
}

// Status draws the one line machine summary under the title.
func (c *Canvas) Status(text string) {
	c.drawCentered(1, Cols-1, statusRow, runewidth.Truncate(text, Cols-4, "…"), c.theme.Status)
}

// Flush makes everything drawn since Begin visible.
func (c *Canvas) Flush() {
	c.screen.Show()
}

// DROText formats a read-out value and returns the index of the character
// holding the digit for 10^power, or -1 when that digit is not shown. The
// integer part is zero padded so the digit always exists for power >= 0.
func DROText(v e4.E4, decimals, power int) (string, int) {
	text := v.Abs().Format(decimals)
	negative := strings.HasPrefix(v.Format(decimals), "-")

	dot := strings.IndexByte(text, '.')
	if dot < 0 {
		dot = len(text)
	}
	if power >= dot {
		text = strings.Repeat("0", power+1-dot) + text
		dot = power + 1
	}

	digit := dot - 1 - power
	if power < 0 {
		digit = dot - power
	}
	if digit >= len(text) {
		digit = -1
	}

	if negative {
		text = "-" + text
		if digit >= 0 {
			digit++
		}
	}
	return text, digit
}

// drawText draws text at the specified position
func (c *Canvas) drawText(x, y int, text string, style tcell.Style) {
	for _, ch := range text {
		if x >= Cols {
			return
		}
		c.screen.SetContent(x, y, ch, nil, style)
		x += runewidth.RuneWidth(ch)
	}
}

// drawCentered draws text centred between columns from and to.
func (c *Canvas) drawCentered(from, to, y int, text string, style tcell.Style) {
	w := runewidth.StringWidth(text)
	x := from + (to-from-w)/2
	if x < from {
		x = from
	}
	c.drawText(x, y, text, style)
}

func (c *Canvas) fill(x, y, w, h int, style tcell.Style) {
	for row := y; row < y+h; row++ {
		for col := x; col < x+w; col++ {
			c.screen.SetContent(col, row, ' ', nil, style)
		}
	}
}

// drawBorder frames the panel above the legend strip
func (c *Canvas) drawBorder() {
	style := c.theme.Border
	bottom := legendTop - 1
	right := Cols - 1

	c.screen.SetContent(0, 0, '┌', nil, style)
	c.screen.SetContent(right, 0, '┐', nil, style)
	c.screen.SetContent(0, bottom, '└', nil, style)
	c.screen.SetContent(right, bottom, '┘', nil, style)
	for x := 1; x < right; x++ {
		c.screen.SetContent(x, 0, '─', nil, style)
		c.screen.SetContent(x, bottom, '─', nil, style)
	}
	for y := 1; y < bottom; y++ {
		c.screen.SetContent(0, y, '│', nil, style)
		c.screen.SetContent(right, y, '│', nil, style)
	}
}
