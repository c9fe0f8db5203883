package deeplink

import (
	"encoding/json"
	"net/url"
	"strings"
	"time"
)

// Source identifies which delivery mechanism produced an event.
type Source string

const (
	SourceStartup      Source = "startup"
	SourceLive         Source = "live"
	SourceBridge       Source = "bridge"
	SourceForeignQuery Source = "foreign_query"
)

// Event is one activation: an ordered batch of URLs delivered together.
// Order is the order reported by the OS and is never sorted or deduplicated.
type Event struct {
	URLs       []string
	Source     Source
	ReceivedAt time.Time

	// raw keeps every reported entry in position; "" marks a malformed one.
	raw []string
}

// NewEvent builds an Event from raw URL strings. Entries that are not
// well-formed absolute URLs are left out of URLs but keep their slot in
// LegacyPayload.
func NewEvent(source Source, raw []string) Event {
	ev := Event{
		URLs:       make([]string, 0, len(raw)),
		Source:     source,
		ReceivedAt: time.Now(),
		raw:        make([]string, len(raw)),
	}
	for i, s := range raw {
		if !ValidURL(s) {
			continue
		}
		ev.URLs = append(ev.URLs, s)
		ev.raw[i] = s
	}
	return ev
}

// ValidURL reports whether s parses as an absolute URL. The string itself is
// never rewritten.
func ValidURL(s string) bool {
	if strings.TrimSpace(s) != s || s == "" {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.Scheme != ""
}

// Empty reports whether the event carries no valid URL.
func (e Event) Empty() bool {
	return len(e.URLs) == 0
}

// Clone returns a deep copy.
func (e Event) Clone() Event {
	out := e
	if e.URLs != nil {
		out.URLs = append([]string(nil), e.URLs...)
	}
	if e.raw != nil {
		out.raw = append([]string(nil), e.raw...)
	}
	return out
}

// LegacyPayload renders the event as the JSON list carried by the global
// trigger channel: one entry per reported URL, null where it was malformed.
func (e Event) LegacyPayload() string {
	entries := make([]*string, 0, len(e.raw))
	if e.raw == nil {
		for i := range e.URLs {
			entries = append(entries, &e.URLs[i])
		}
	}
	for i := range e.raw {
		if e.raw[i] == "" {
			entries = append(entries, nil)
			continue
		}
		entries = append(entries, &e.raw[i])
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return "[]"
	}
	return string(data)
}
