package pcodes

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// matchEntry is one recorded lookup outcome.
type matchEntry struct {
	logName string
	country string
	input   string
	name    string // matched unit name, matches only
	how     string // matches only
}

func (a matchEntry) less(b matchEntry) bool {
	if a.logName != b.logName {
		return a.logName < b.logName
	}
	if a.country != b.country {
		return a.country < b.country
	}
	if a.input != b.input {
		return a.input < b.input
	}
	if a.name != b.name {
		return a.name < b.name
	}
	return a.how < b.how
}

// MatchLog collects non-exact matches, ignored lookups and failures so they
// can be reviewed after a batch. It is safe for concurrent use and may be
// shared by several engines.
type MatchLog struct {
	mu     sync.Mutex
	logger *zap.Logger
	sets   [3]map[matchEntry]struct{}
}

// Recorded outcome kinds, indexes into MatchLog.sets.
const (
	logMatches = iota
	logIgnored
	logErrors
)

// NewMatchLog returns an empty MatchLog that writes its output through logger.
// The zero MatchLog is also ready to use and logs nothing.
func NewMatchLog(logger *zap.Logger) *MatchLog {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &MatchLog{logger: logger}
	m.Reset()
	return m
}

// Reset discards everything recorded so far.
func (m *MatchLog) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.sets {
		m.sets[i] = map[matchEntry]struct{}{}
	}
}

func (m *MatchLog) add(kind int, entry matchEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sets[kind] == nil {
		m.sets[kind] = map[matchEntry]struct{}{}
	}
	m.sets[kind][entry] = struct{}{}
}

func (m *MatchLog) addMatch(logName, country, input, name, how string) {
	m.add(logMatches, matchEntry{logName: logName, country: country, input: input, name: name, how: how})
}

func (m *MatchLog) addIgnored(logName, country, input string) {
	m.add(logIgnored, matchEntry{logName: logName, country: country, input: input})
}

func (m *MatchLog) addError(logName, country, input string) {
	m.add(logErrors, matchEntry{logName: logName, country: country, input: input})
}

func (m *MatchLog) log() *zap.Logger {
	if m.logger == nil {
		return zap.NewNop()
	}
	return m.logger
}

func (m *MatchLog) sorted(kind int) []matchEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := make([]matchEntry, 0, len(m.sets[kind]))
	for entry := range m.sets[kind] {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].less(entries[j]) })
	return entries
}

// OutputMatches logs and returns the recorded non-exact matches, sorted.
func (m *MatchLog) OutputMatches() []string {
	entries := m.sorted(logMatches)
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		line := fmt.Sprintf("%s - %s: Matching (%s) %s to %s on map", e.logName, e.country, e.how, e.input, e.name)
		m.log().Info(line)
		out = append(out, line)
	}
	return out
}

// OutputIgnored logs and returns the lookups skipped by fuzzy matching rules.
func (m *MatchLog) OutputIgnored() []string {
	entries := m.sorted(logIgnored)
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		var line string
		if e.input == "" {
			line = fmt.Sprintf("%s - Ignored %s!", e.logName, e.country)
		} else {
			line = fmt.Sprintf("%s - %s: Ignored %s!", e.logName, e.country, e.input)
		}
		m.log().Info(line)
		out = append(out, line)
	}
	return out
}

// OutputErrors logs and returns the names that could not be matched.
func (m *MatchLog) OutputErrors() []string {
	entries := m.sorted(logErrors)
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		line := fmt.Sprintf("%s - %s: Could not find %s in map names!", e.logName, e.country, e.input)
		m.log().Error(line)
		out = append(out, line)
	}
	return out
}
