// Package grbl speaks the line protocol of GRBL and FluidNC motion
// controllers: realtime control bytes, response classification, status
// reports, and a model of the machine built from them.
package grbl

import (
	"strconv"
	"strings"
)

// Realtime commands are single bytes acted on immediately by the controller,
// outside the line buffer.
const (
	StatusQuery byte = '?'
	FeedHold    byte = '!'
	CycleStart  byte = '~'
	SoftReset   byte = 0x18
	JogCancel   byte = 0x85
)

// Common line commands.
const (
	HomeCommand   = "$H"
	UnlockCommand = "$X"
	ParserState   = "$G"
	ListFiles     = "$SD/List"
	RunFilePrefix = "$SD/Run="
)

// Kind classifies a line received from the controller.
type Kind int

const (
	KindOther Kind = iota
	KindOK
	KindError
	KindAlarm
	KindStatus
	KindParserState
	KindMessage
	KindFile
	KindWelcome
)

// String returns the string representation of Kind
func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindError:
		return "error"
	case KindAlarm:
		return "alarm"
	case KindStatus:
		return "status"
	case KindParserState:
		return "parser_state"
	case KindMessage:
		return "message"
	case KindFile:
		return "file"
	case KindWelcome:
		return "welcome"
	default:
		return "other"
	}
}

// Line is a classified controller response.
type Line struct {
	Kind Kind
	Raw  string
	// Code is the number of an error or alarm.
	Code int
	// Body is the text inside the brackets of a push message, or the
	// status report without its angle brackets.
	Body string
}

// Classify identifies what kind of response raw is.
func Classify(raw string) Line {
	raw = strings.TrimRight(raw, "\r\n")
	l := Line{Kind: KindOther, Raw: raw}

	switch {
	case raw == "ok":
		l.Kind = KindOK
	case strings.HasPrefix(raw, "error:"):
		l.Kind = KindError
		l.Code, _ = strconv.Atoi(strings.TrimPrefix(raw, "error:"))
	case strings.HasPrefix(raw, "ALARM:"):
		l.Kind = KindAlarm
		l.Code, _ = strconv.Atoi(strings.TrimPrefix(raw, "ALARM:"))
	case strings.HasPrefix(raw, "<") && strings.HasSuffix(raw, ">"):
		l.Kind = KindStatus
		l.Body = raw[1 : len(raw)-1]
	case strings.HasPrefix(raw, "[GC:") && strings.HasSuffix(raw, "]"):
		l.Kind = KindParserState
		l.Body = raw[4 : len(raw)-1]
	case strings.HasPrefix(raw, "[MSG:") && strings.HasSuffix(raw, "]"):
		l.Kind = KindMessage
		l.Body = raw[5 : len(raw)-1]
	case strings.HasPrefix(raw, "[FILE:") && strings.HasSuffix(raw, "]"):
		l.Kind = KindFile
		l.Body = raw[6 : len(raw)-1]
	case strings.HasPrefix(raw, "Grbl ") || strings.HasPrefix(raw, "FluidNC "):
		l.Kind = KindWelcome
	}
	return l
}

// File is one entry of a controller file listing.
type File struct {
	Name string
	Size int64
}

// ParseFile reads the body of a "[FILE:/sd/part.nc|SIZE:1234]" line.
func ParseFile(body string) (File, bool) {
	fields := strings.Split(body, "|")
	f := File{Name: strings.TrimSpace(fields[0])}
	if f.Name == "" {
		return File{}, false
	}
	for _, field := range fields[1:] {
		if v, ok := strings.CutPrefix(field, "SIZE:"); ok {
			f.Size, _ = strconv.ParseInt(v, 10, 64)
		}
	}
	return f, true
}

// Units reports the unit mode in a "[GC:...]" parser state body. ok is
// false when neither G20 nor G21 is present.
func Units(body string) (inches bool, ok bool) {
	for _, word := range strings.Fields(body) {
		switch word {
		case "G20":
			return true, true
		case "G21":
			return false, true
		}
	}
	return false, false
}
