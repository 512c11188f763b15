package grbl

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"
)

const mmPerInch = 25.4

// SimFile is a file the simulator lists on its SD card.
type SimFile struct {
	Name string
	Size int64
}

// DefaultSimFiles is the SD card content of a fresh simulator.
var DefaultSimFiles = []SimFile{
	{Name: "/sd/facing.nc", Size: 18422},
	{Name: "/sd/pocket.nc", Size: 53311},
	{Name: "/sd/engrave.nc", Size: 9120},
}

// Simulator is an in-process stand-in for a controller. It implements
// io.ReadWriteCloser: commands are written to it and responses read back.
// Jogs move at their feed rate in real time so a held button moves the
// simulated machine until it is cancelled.
type Simulator struct {
	mu     sync.Mutex
	cond   *sync.Cond
	out    bytes.Buffer
	in     bytes.Buffer
	closed bool
	now    func() time.Time

	axes   int
	state  string
	inches bool
	mpos   [MaxAxes]float64
	wco    [MaxAxes]float64
	files  []SimFile

	// motion in progress
	from     [MaxAxes]float64
	delta    [MaxAxes]float64
	feed     float64
	started  time.Time
	duration time.Duration
}

// NewSimulator creates a simulated controller with axes axes. The welcome
// banner is queued for reading.
func NewSimulator(axes int) *Simulator {
	if axes < 1 || axes > MaxAxes {
		axes = 3
	}
	s := &Simulator{
		now:   time.Now,
		axes:  axes,
		state: StateIdle,
		files: append([]SimFile(nil), DefaultSimFiles...),
	}
	s.cond = sync.NewCond(&s.mu)
	s.reply("Grbl 1.1h ['$' for help]")
	return s
}

// SetClock replaces the time source, for tests.
func (s *Simulator) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// SetFiles replaces the simulated SD card content.
func (s *Simulator) SetFiles(files []SimFile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = append([]SimFile(nil), files...)
}

// Position returns the simulated machine position of axis in millimetres.
func (s *Simulator) Position(axis int) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance()
	return s.mpos[axis]
}

// Alarm puts the simulator into the alarm state, as a tripped limit would.
func (s *Simulator) Alarm(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stop()
	s.state = StateAlarm
	s.reply(fmt.Sprintf("ALARM:%d", code))
}

// Read returns queued responses, blocking until some are available.
func (s *Simulator) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.out.Len() == 0 && !s.closed {
		s.cond.Wait()
	}
	if s.out.Len() == 0 {
		return 0, io.EOF
	}
	return s.out.Read(p)
}

// Write accepts realtime bytes and newline terminated commands.
func (s *Simulator) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, io.ErrClosedPipe
	}
	for _, b := range p {
		switch b {
		case StatusQuery:
			s.reply(s.statusReport())
		case JogCancel:
			if s.state == StateJog {
				s.stop()
			}
		case FeedHold:
			if s.state == StateJog || s.state == StateRun {
				s.stop()
				s.state = StateHold
			}
		case CycleStart:
			if s.state == StateHold {
				s.state = StateIdle
			}
		case SoftReset:
			s.stop()
			s.in.Reset()
			s.state = StateIdle
			s.reply("Grbl 1.1h ['$' for help]")
		case '\n':
			line := strings.TrimSpace(s.in.String())
			s.in.Reset()
			if line != "" {
				s.execute(line)
			}
		default:
			s.in.WriteByte(b)
		}
	}
	return len(p), nil
}

// Close ends the stream. Pending reads return io.EOF.
func (s *Simulator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.cond.Broadcast()
	return nil
}

func (s *Simulator) reply(line string) {
	s.out.WriteString(line)
	s.out.WriteString("\r\n")
	s.cond.Broadcast()
}

func (s *Simulator) execute(line string) {
	upper := strings.ToUpper(line)
	switch {
	case strings.HasPrefix(upper, "$J="):
		if s.state != StateIdle && s.state != StateJog {
			s.reply("error:8")
			return
		}
		if err := s.jog(upper[3:]); err != nil {
			s.reply("error:3")
			return
		}
	case strings.HasPrefix(upper, "G10L20P0"):
		if s.state == StateAlarm {
			s.reply("error:9")
			return
		}
		s.advance()
		for _, w := range words(upper[len("G10L20P0"):]) {
			if axis := axisIndex(w.letter); axis >= 0 && axis < s.axes {
				s.wco[axis] = s.mpos[axis] - s.toMM(w.value)
			}
		}
	case upper == HomeCommand:
		s.stop()
		s.mpos = [MaxAxes]float64{}
		s.state = StateIdle
	case upper == UnlockCommand:
		if s.state == StateAlarm {
			s.state = StateIdle
		}
		s.reply("[MSG:Caution: Unlocked]")
	case upper == ParserState:
		units := "G21"
		if s.inches {
			units = "G20"
		}
		s.reply("[GC:G0 G54 G17 " + units + " G90 G94 M5 M9 T0 F0 S0]")
	case upper == strings.ToUpper(ListFiles):
		for _, f := range s.files {
			s.reply(fmt.Sprintf("[FILE:%s|SIZE:%d]", f.Name, f.Size))
		}
	case strings.HasPrefix(upper, strings.ToUpper(RunFilePrefix)):
		name := line[len(RunFilePrefix):]
		if !s.hasFile(name) {
			s.reply("error:60")
			return
		}
		s.reply("[MSG:Running " + name + "]")
	case upper == "G20":
		s.inches = true
	case upper == "G21":
		s.inches = false
	case strings.HasPrefix(upper, "$"):
		s.reply("error:3")
		return
	}
	s.reply("ok")
}

// jog starts a relative move from the body of a $J= command.
func (s *Simulator) jog(body string) error {
	s.advance()
	inches := s.inches
	var feed float64
	var delta [MaxAxes]float64
	relative := false
	for _, w := range words(body) {
		switch w.letter {
		case 'G':
			switch w.value {
			case 20:
				inches = true
			case 21:
				inches = false
			case 91:
				relative = true
			}
		case 'F':
			feed = w.value
		default:
			axis := axisIndex(w.letter)
			if axis < 0 || axis >= s.axes {
				return fmt.Errorf("unknown axis %c", w.letter)
			}
			delta[axis] = w.value
		}
	}
	if !relative || feed <= 0 {
		return fmt.Errorf("jog needs G91 and a feed")
	}

	scale := 1.0
	if inches {
		scale = mmPerInch
	}
	var length float64
	for i := range delta {
		delta[i] *= scale
		length += delta[i] * delta[i]
	}
	length = math.Sqrt(length)
	if length == 0 {
		return nil
	}

	s.from = s.mpos
	s.delta = delta
	s.feed = feed * scale
	s.started = s.now()
	s.duration = time.Duration(length / s.feed * float64(time.Minute))
	s.state = StateJog
	return nil
}

// advance moves the simulated machine to where the current jog has got to.
func (s *Simulator) advance() {
	if s.state != StateJog {
		return
	}
	frac := 1.0
	if s.duration > 0 {
		frac = float64(s.now().Sub(s.started)) / float64(s.duration)
	}
	if frac >= 1 {
		frac = 1
	}
	for i := range s.mpos {
		s.mpos[i] = s.from[i] + s.delta[i]*frac
	}
	if frac == 1 {
		s.state = StateIdle
	}
}

func (s *Simulator) stop() {
	s.advance()
	if s.state == StateJog {
		s.state = StateIdle
	}
}

func (s *Simulator) statusReport() string {
	s.advance()
	var b strings.Builder
	b.WriteString("<")
	b.WriteString(s.state)
	b.WriteString("|MPos:")
	b.WriteString(s.vector(s.mpos[:]))
	if s.state == StateJog {
		fmt.Fprintf(&b, "|FS:%s,0", strconv.FormatFloat(s.feed, 'f', 0, 64))
	} else {
		b.WriteString("|FS:0,0")
	}
	b.WriteString("|WCO:")
	b.WriteString(s.vector(s.wco[:]))
	b.WriteString(">")
	return b.String()
}

func (s *Simulator) vector(v []float64) string {
	parts := make([]string, s.axes)
	for i := 0; i < s.axes; i++ {
		x := v[i]
		if s.inches {
			x /= mmPerInch
		}
		parts[i] = strconv.FormatFloat(x, 'f', 3, 64)
	}
	return strings.Join(parts, ",")
}

func (s *Simulator) toMM(v float64) float64 {
	if s.inches {
		return v * mmPerInch
	}
	return v
}

func (s *Simulator) hasFile(name string) bool {
	for _, f := range s.files {
		if f.Name == name {
			return true
		}
	}
	return false
}

type word struct {
	letter byte
	value  float64
}

// words splits G-code such as "G91F400X0.500" into letter/value pairs.
// Malformed numbers read as zero.
func words(code string) []word {
	var out []word
	i := 0
	for i < len(code) {
		letter := code[i]
		i++
		j := i
		for j < len(code) && (code[j] == '-' || code[j] == '+' || code[j] == '.' || (code[j] >= '0' && code[j] <= '9')) {
			j++
		}
		v, _ := strconv.ParseFloat(code[i:j], 64)
		out = append(out, word{letter: letter, value: v})
		i = j
	}
	return out
}

func axisIndex(letter byte) int {
	return strings.IndexByte("XYZABC", letter)
}
