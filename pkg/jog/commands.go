package jog

import (
	"strconv"
	"strings"

	"jog-pendant/pkg/e4"
)

// DefaultLabels are the axis letters of a three axis machine.
const DefaultLabels = "XYZ"

// Tuning holds the constants used to build jog commands.
type Tuning struct {
	// Feed rates of encoder driven jogs, in units per minute.
	TickFeedInch   int `koanf:"tick_feed_inch" json:"tick_feed_inch"`
	TickFeedMetric int `koanf:"tick_feed_metric" json:"tick_feed_metric"`
	// Travel of a single axis button jog. The jog is cancelled on release so
	// this only needs to be longer than any machine axis.
	HoldDistanceInch   int `koanf:"hold_distance_inch" json:"hold_distance_inch"`
	HoldDistanceMetric int `koanf:"hold_distance_metric" json:"hold_distance_metric"`
	// FeedFactor scales the combined step distance into a button jog feed.
	FeedFactor int `koanf:"feed_factor" json:"feed_factor"`
	// MultiAxisFactor scales each axis step when several axes jog together.
	MultiAxisFactor int `koanf:"multi_axis_factor" json:"multi_axis_factor"`
}

// DefaultTuning returns the stock jog constants.
func DefaultTuning() Tuning {
	return Tuning{
		TickFeedInch:       400,
		TickFeedMetric:     10000,
		HoldDistanceInch:   200,
		HoldDistanceMetric: 5000,
		FeedFactor:         300,
		MultiAxisFactor:    20,
	}
}

// Command prefixes understood by the controller.
const (
	jogPrefix  = "$J=G91"
	zeroPrefix = "G10L20P0"
)

// Composer builds controller command lines from the selection and step state.
type Composer struct {
	Labels string
	Tuning Tuning
}

// NewComposer creates a composer for the given axis labels.
func NewComposer(labels string, tuning Tuning) Composer {
	if labels == "" {
		labels = DefaultLabels
	}
	return Composer{Labels: labels, Tuning: tuning}
}

// Label returns the command letter of axis.
func (c Composer) Label(axis int) string {
	if axis < 0 || axis >= len(c.Labels) {
		return "?"
	}
	return c.Labels[axis : axis+1]
}

// TickJog builds the jog for delta encoder detents, moving every selected
// axis by delta times its step. It returns false when delta is zero.
func (c Composer) TickJog(sel *Selection, steps *Steps, inches bool, delta int) (string, bool) {
	if delta == 0 {
		return "", false
	}
	feed, decimals := c.Tuning.TickFeedMetric, 2
	if inches {
		feed, decimals = c.Tuning.TickFeedInch, 3
	}

	var b strings.Builder
	b.WriteString(jogPrefix)
	b.WriteString("F")
	b.WriteString(strconv.Itoa(feed))
	for _, axis := range sel.Axes() {
		b.WriteString(c.Label(axis))
		b.WriteString((steps.Distance(axis) * e4.E4(delta)).Format(decimals))
	}
	return b.String(), true
}

// HoldJog builds the jog started by a held button. A single axis travels a
// fixed long distance. Several axes travel in proportion to their steps so
// the direction of the combined move follows the step ratios.
func (c Composer) HoldJog(sel *Selection, steps *Steps, inches bool, negative bool) string {
	axes := sel.Axes()

	var total e4.E4
	for _, axis := range axes {
		total = e4.Magnitude(total, steps.Distance(axis))
	}
	feed := total * e4.E4(c.Tuning.FeedFactor)

	var b strings.Builder
	b.WriteString(jogPrefix)
	if inches {
		b.WriteString("G20")
	} else {
		b.WriteString("G21")
	}
	b.WriteString("F")
	b.WriteString(feed.Format(3))
	for _, axis := range axes {
		var dist e4.E4
		if len(axes) == 1 {
			dist = e4.FromInt(c.Tuning.HoldDistanceMetric)
			if inches {
				dist = e4.FromInt(c.Tuning.HoldDistanceInch)
			}
		} else {
			dist = steps.Distance(axis) * e4.E4(c.Tuning.MultiAxisFactor)
		}
		if negative {
			dist = -dist
		}
		b.WriteString(c.Label(axis))
		b.WriteString(dist.Format(0))
	}
	return b.String()
}

// Zero builds the command that sets the work origin of every selected axis
// to the current position.
func (c Composer) Zero(sel *Selection) string {
	var b strings.Builder
	b.WriteString(zeroPrefix)
	for _, axis := range sel.Axes() {
		b.WriteString(c.Label(axis))
		b.WriteString("0")
	}
	return b.String()
}

// AxisNames joins the labels of the selected axes, as used in prompts.
func (c Composer) AxisNames(sel *Selection) string {
	var b strings.Builder
	for _, axis := range sel.Axes() {
		b.WriteString(c.Label(axis))
	}
	return b.String()
}
