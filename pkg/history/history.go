// Package history keeps the log of lines exchanged with the controller
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// Direction represents the direction of data flow
type Direction int

const (
	// DirectionInput is traffic received from the controller.
	DirectionInput Direction = iota
	// DirectionOutput is traffic sent to the controller.
	DirectionOutput
)

// String returns the string representation of Direction
func (d Direction) String() string {
	switch d {
	case DirectionInput:
		return "input"
	case DirectionOutput:
		return "output"
	default:
		return "unknown"
	}
}

// FileFormat represents different file export formats
type FileFormat int

const (
	FormatPlainText FileFormat = iota
	FormatTimestamped
	FormatJSON
)

// String returns the string representation of FileFormat
func (f FileFormat) String() string {
	switch f {
	case FormatPlainText:
		return "plain_text"
	case FormatTimestamped:
		return "timestamped"
	case FormatJSON:
		return "json"
	default:
		return "unknown"
	}
}

// ParseFileFormat converts a format name as accepted on the command line.
func ParseFileFormat(name string) (FileFormat, error) {
	switch strings.ToLower(name) {
	case "plain", "plain_text", "text":
		return FormatPlainText, nil
	case "timestamped", "ts":
		return FormatTimestamped, nil
	case "json":
		return FormatJSON, nil
	default:
		return 0, fmt.Errorf("unknown history format: %s", name)
	}
}

// HistoryEntry is one line sent to or received from the controller
type HistoryEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Direction Direction `json:"direction"`
	Line      string    `json:"line"`
}

// Validate checks if the history entry is valid
func (h HistoryEntry) Validate() error {
	if h.Timestamp.IsZero() {
		return fmt.Errorf("timestamp cannot be zero")
	}

	if h.Direction != DirectionInput && h.Direction != DirectionOutput {
		return fmt.Errorf("invalid direction: %d", h.Direction)
	}

	if h.Line == "" {
		return fmt.Errorf("line cannot be empty")
	}

	return nil
}

// NewHistoryEntry creates a new history entry with current timestamp
func NewHistoryEntry(data []byte, direction Direction) HistoryEntry {
	return HistoryEntry{
		Timestamp: time.Now(),
		Direction: direction,
		Line:      strings.TrimRight(string(data), "\r\n"),
	}
}

// HistoryStats provides statistics about the traffic log
type HistoryStats struct {
	TotalEntries  int        `json:"total_entries"`
	InputEntries  int        `json:"input_entries"`
	OutputEntries int        `json:"output_entries"`
	InputBytes    int        `json:"input_bytes"`
	OutputBytes   int        `json:"output_bytes"`
	MaxEntries    int        `json:"max_entries"`
	OldestEntry   *time.Time `json:"oldest_entry,omitempty"`
	NewestEntry   *time.Time `json:"newest_entry,omitempty"`
}

// DefaultMaxEntries is the capacity of a traffic log created with size 0.
const DefaultMaxEntries = 10000

// TrafficLog is a fixed capacity ring of history entries. The oldest entries
// are dropped when it is full. It is safe for concurrent use.
type TrafficLog struct {
	mu         sync.Mutex
	entries    []HistoryEntry
	maxEntries int
	entryCount int
	entryStart int
}

// NewTrafficLog creates a log holding at most maxEntries lines
func NewTrafficLog(maxEntries int) *TrafficLog {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &TrafficLog{
		maxEntries: maxEntries,
		entries:    make([]HistoryEntry, maxEntries),
	}
}

// Write appends a line to the log
func (tl *TrafficLog) Write(data []byte, direction Direction) error {
	if data == nil {
		return fmt.Errorf("data cannot be nil")
	}

	if direction != DirectionInput && direction != DirectionOutput {
		return fmt.Errorf("invalid direction: %d", direction)
	}

	entry := NewHistoryEntry(data, direction)

	tl.mu.Lock()
	defer tl.mu.Unlock()

	tl.entries[tl.entryStart] = entry
	tl.entryStart = (tl.entryStart + 1) % tl.maxEntries
	if tl.entryCount < tl.maxEntries {
		tl.entryCount++
	}
	return nil
}

// GetEntryCount returns the number of entries in the log
func (tl *TrafficLog) GetEntryCount() int {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return tl.entryCount
}

// GetMaxEntries returns the capacity of the log
func (tl *TrafficLog) GetMaxEntries() int {
	return tl.maxEntries
}

// GetEntries returns count entries starting at start, oldest first
func (tl *TrafficLog) GetEntries(start, count int) ([]HistoryEntry, error) {
	if start < 0 {
		return nil, fmt.Errorf("start cannot be negative")
	}

	if count < 0 {
		return nil, fmt.Errorf("count cannot be negative")
	}

	tl.mu.Lock()
	defer tl.mu.Unlock()
	return tl.slice(start, count), nil
}

// Tail returns the newest n entries, oldest first
func (tl *TrafficLog) Tail(n int) []HistoryEntry {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	if n > tl.entryCount {
		n = tl.entryCount
	}
	if n < 0 {
		n = 0
	}
	return tl.slice(tl.entryCount-n, n)
}

func (tl *TrafficLog) slice(start, count int) []HistoryEntry {
	if start >= tl.entryCount {
		return []HistoryEntry{}
	}

	// Adjust count if it would read beyond available entries
	if start+count > tl.entryCount {
		count = tl.entryCount - start
	}

	result := make([]HistoryEntry, count)
	for i := 0; i < count; i++ {
		entryPos := (tl.entryStart - tl.entryCount + start + i + tl.maxEntries) % tl.maxEntries
		result[i] = tl.entries[entryPos]
	}
	return result
}

// GetStats returns statistics about the log
func (tl *TrafficLog) GetStats() HistoryStats {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	stats := HistoryStats{
		TotalEntries: tl.entryCount,
		MaxEntries:   tl.maxEntries,
	}

	for i, entry := range tl.slice(0, tl.entryCount) {
		if entry.Direction == DirectionInput {
			stats.InputEntries++
			stats.InputBytes += len(entry.Line)
		} else if entry.Direction == DirectionOutput {
			stats.OutputEntries++
			stats.OutputBytes += len(entry.Line)
		}

		ts := entry.Timestamp
		if i == 0 || ts.Before(*stats.OldestEntry) {
			stats.OldestEntry = &ts
		}
		if i == 0 || ts.After(*stats.NewestEntry) {
			stats.NewestEntry = &ts
		}
	}

	return stats
}

// SaveToFile saves the log to a file in the specified format
func (tl *TrafficLog) SaveToFile(filename string, format FileFormat) error {
	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}

	entries, err := tl.GetEntries(0, tl.GetEntryCount())
	if err != nil {
		return fmt.Errorf("failed to get entries: %w", err)
	}

	return saveEntriesToFile(entries, filename, format)
}

// saveEntriesToFile saves history entries to a file in the specified format
func saveEntriesToFile(entries []HistoryEntry, filename string, format FileFormat) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	switch format {
	case FormatPlainText:
		return saveAsPlainText(file, entries)
	case FormatTimestamped:
		return saveAsTimestamped(file, entries)
	case FormatJSON:
		return saveAsJSON(file, entries)
	default:
		return fmt.Errorf("unsupported format: %v", format)
	}
}

// saveAsPlainText writes one line per entry
func saveAsPlainText(file *os.File, entries []HistoryEntry) error {
	for _, entry := range entries {
		if _, err := file.WriteString(entry.Line + "\n"); err != nil {
			return fmt.Errorf("failed to write data: %w", err)
		}
	}
	return nil
}

// saveAsTimestamped saves entries with timestamps and direction markers
func saveAsTimestamped(file *os.File, entries []HistoryEntry) error {
	for _, entry := range entries {
		direction := "<<"
		if entry.Direction == DirectionOutput {
			direction = ">>"
		}

		line := fmt.Sprintf("[%s] %s %s\n",
			entry.Timestamp.Format("2006-01-02 15:04:05.000"),
			direction,
			entry.Line)

		if _, err := file.WriteString(line); err != nil {
			return fmt.Errorf("failed to write timestamped data: %w", err)
		}
	}
	return nil
}

// saveAsJSON saves entries as JSON
func saveAsJSON(file *os.File, entries []HistoryEntry) error {
	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	data := struct {
		Entries []HistoryEntry `json:"entries"`
		Count   int            `json:"count"`
	}{
		Entries: entries,
		Count:   len(entries),
	}

	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
