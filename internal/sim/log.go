package sim

import (
	"fmt"
	"strings"
)

// Log categories.
const (
	CatScript = "script"
	CatMove   = "move"
	CatAgent  = "agent"
	CatStatus = "status"
)

// LogEntry is one recorded event during a run.
type LogEntry struct {
	Step     int
	Category string  // script, move, agent, status
	Key      string  // event name within the category
	Value    string  // human-readable detail
	NumVal   float64 // optional numeric value for threshold checks
}

// String formats the entry as a fixed-width log line.
//
//	[S=042] move     illegal          (3,4) -> (5,4)
func (e LogEntry) String() string {
	return fmt.Sprintf("[S=%03d] %-8s %-16s %s", e.Step, e.Category, e.Key, e.Value)
}

// Log collects structured events during a run. It is unbounded and meant for
// tests and reports; the slog logger carries the operational view.
type Log struct {
	entries []LogEntry
	verbose bool
}

// NewLog creates a Log. If verbose is true, per-step move entries are also
// recorded.
func NewLog(verbose bool) *Log {
	return &Log{verbose: verbose}
}

// Add records a new entry.
func (l *Log) Add(step int, category, key, value string, numVal float64) {
	l.entries = append(l.entries, LogEntry{
		Step:     step,
		Category: category,
		Key:      key,
		Value:    value,
		NumVal:   numVal,
	})
}

// AddVerbose records an entry only when verbose mode is on.
func (l *Log) AddVerbose(step int, category, key, value string, numVal float64) {
	if !l.verbose {
		return
	}
	l.Add(step, category, key, value, numVal)
}

// Entries returns all recorded entries.
func (l *Log) Entries() []LogEntry {
	return l.entries
}

// Filter returns entries matching the given category and/or key.
// Pass empty string to match any value for that field.
func (l *Log) Filter(category, key string) []LogEntry {
	var out []LogEntry
	for _, e := range l.entries {
		if category != "" && e.Category != category {
			continue
		}
		if key != "" && e.Key != key {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Count returns how many entries match the given category and key.
func (l *Log) Count(category, key string) int {
	return len(l.Filter(category, key))
}

// LastOf returns the most recent entry matching category+key, or false if none.
func (l *Log) LastOf(category, key string) (LogEntry, bool) {
	entries := l.Filter(category, key)
	if len(entries) == 0 {
		return LogEntry{}, false
	}
	return entries[len(entries)-1], true
}

// Has returns true if at least one entry matches category, key, and value substring.
func (l *Log) Has(category, key, valueSubstr string) bool {
	for _, e := range l.entries {
		if category != "" && e.Category != category {
			continue
		}
		if key != "" && e.Key != key {
			continue
		}
		if valueSubstr != "" && !strings.Contains(e.Value, valueSubstr) {
			continue
		}
		return true
	}
	return false
}

// Format returns the full log as a single string for t.Log output.
func (l *Log) Format() string {
	var sb strings.Builder
	for _, e := range l.entries {
		sb.WriteString(e.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Tail returns the last n entries formatted, for status panels.
func (l *Log) Tail(n int) []string {
	start := max(0, len(l.entries)-n)
	out := make([]string, 0, len(l.entries)-start)
	for _, e := range l.entries[start:] {
		out = append(out, e.String())
	}
	return out
}
