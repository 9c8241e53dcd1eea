package logger

import (
	"sync"
	"time"
)

// BannerEntry is one surfaced warn/error line, aggregated by message.
type BannerEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Caller    string                 `json:"caller"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

// BannerCollector keeps the most recent warn/error log entries so the status
// surface can render them as transient banners. Entries with the same level
// and message collapse into one with a bumped count.
type BannerCollector struct {
	mu      sync.RWMutex
	entries []*BannerEntry
	maxSize int
	maxAge  time.Duration
}

func NewBannerCollector(maxSize int, maxAge time.Duration) *BannerCollector {
	if maxSize <= 0 {
		maxSize = 20
	}
	if maxAge <= 0 {
		maxAge = time.Minute
	}
	return &BannerCollector{maxSize: maxSize, maxAge: maxAge}
}

// Add records one entry, collapsing repeats of the same level+message.
func (b *BannerCollector) Add(level, message string, fields map[string]interface{}, caller string) {
	now := time.Now()

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, e := range b.entries {
		if e.Level == level && e.Message == message {
			e.Count++
			e.LastSeen = now
			e.Fields = fields
			return
		}
	}

	b.entries = append(b.entries, &BannerEntry{
		Level:     level,
		Message:   message,
		Fields:    fields,
		Caller:    caller,
		Count:     1,
		FirstSeen: now,
		LastSeen:  now,
	})
	if len(b.entries) > b.maxSize {
		b.entries = b.entries[len(b.entries)-b.maxSize:]
	}
}

// Recent returns entries newer than maxAge, oldest first.
func (b *BannerCollector) Recent() []BannerEntry {
	cutoff := time.Now().Add(-b.maxAge)

	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]BannerEntry, 0, len(b.entries))
	for _, e := range b.entries {
		if e.LastSeen.After(cutoff) {
			out = append(out, *e)
		}
	}
	return out
}

// Last returns the newest entry and true, or false when nothing recent exists.
func (b *BannerCollector) Last() (BannerEntry, bool) {
	recent := b.Recent()
	if len(recent) == 0 {
		return BannerEntry{}, false
	}
	return recent[len(recent)-1], true
}

// Clear drops all collected entries.
func (b *BannerCollector) Clear() {
	b.mu.Lock()
	b.entries = nil
	b.mu.Unlock()
}
