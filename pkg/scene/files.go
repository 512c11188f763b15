package scene

import (
	"path"

	"go.uber.org/zap"
)

// FileSource provides the controller's file list.
type FileSource interface {
	Files() []string
}

// LineSender sends a text line to the controller.
type LineSender interface {
	SendLine(line string) error
}

const (
	listFilesCommand = "$SD/List"
	runFilePrefix    = "$SD/Run="
)

// FileScene lists the files stored on the controller and runs the chosen one
// after confirmation.
type FileScene struct {
	nav      Navigator
	src      FileSource
	tx       LineSender
	logger   *zap.Logger
	selected int
	pending  string
}

// NewFileScene creates the file selection scene.
func NewFileScene(nav Navigator, src FileSource, tx LineSender, logger *zap.Logger) *FileScene {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileScene{nav: nav, src: src, tx: tx, logger: logger}
}

// ID returns IDFiles.
func (s *FileScene) ID() string { return IDFiles }

// Title returns the title drawn above the list.
func (s *FileScene) Title() string { return "Files" }

// OnExit does nothing.
func (s *FileScene) OnExit() {}

// Selected returns the highlighted file, or "" when the list is empty.
func (s *FileScene) Selected() string {
	files := s.src.Files()
	if len(files) == 0 {
		return ""
	}
	return files[s.clamp(len(files))]
}

// OnEntry runs the file awaiting confirmation, or asks the controller for a
// fresh listing when entered without a pending question.
func (s *FileScene) OnEntry(res Result) {
	switch res {
	case ResultConfirmed:
		if s.pending != "" {
			s.send(runFilePrefix + s.pending)
		}
		s.pending = ""
	case ResultCancelled:
		s.pending = ""
	default:
		s.refresh()
	}
}

// Draw lists the file names with the selection highlighted.
func (s *FileScene) Draw(c Canvas) {
	c.Begin(s.Title())
	files := s.src.Files()
	if len(files) == 0 {
		c.Lines([]string{"No files"}, -1)
	} else {
		names := make([]string, len(files))
		for i, f := range files {
			names[i] = path.Base(f)
		}
		c.Lines(names, s.clamp(len(files)))
	}
	c.Legends("Refresh", "Run", "")
}

// Handle scrolls with the encoder, runs the selection with the dial button
// and refreshes with the red button.
func (s *FileScene) Handle(ev Event) {
	switch e := ev.(type) {
	case Encoder:
		n := len(s.src.Files())
		if n == 0 || e.Delta == 0 {
			return
		}
		s.selected = s.clamp(n) + e.Delta
		s.selected = s.clamp(n)
		s.nav.RequestRedraw()
	case ButtonPress:
		switch e.Button {
		case ButtonDial:
			file := s.Selected()
			if file == "" {
				return
			}
			s.pending = file
			s.nav.RequestConfirmation("Run " + path.Base(file) + " ?")
		case ButtonRed:
			s.refresh()
			s.nav.RequestRedraw()
		}
	case MachineChanged:
		if e.Change == ChangeFiles || e.Change == ChangeAlarm {
			s.nav.RequestRedraw()
		}
	}
}

func (s *FileScene) refresh() {
	s.selected = 0
	s.send(listFilesCommand)
}

func (s *FileScene) send(line string) {
	if err := s.tx.SendLine(line); err != nil {
		s.logger.Warn("send failed", zap.String("line", line), zap.Error(err))
	}
}

func (s *FileScene) clamp(n int) int {
	switch {
	case s.selected < 0:
		return 0
	case s.selected >= n:
		return n - 1
	default:
		return s.selected
	}
}
