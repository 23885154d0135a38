package post

import (
	"time"
)

// Output schema, decoupled from the upstream raw record shape.

type Author struct {
	ID     string `json:"id,omitempty"`
	Name   string `json:"name,omitempty"`
	Handle string `json:"handle,omitempty"`
}

type NormalizedPost struct {
	ID        string   `json:"id"`
	Text      string   `json:"text"`
	CreatedAt string   `json:"created_at"` // original upstream string form, retained
	Author    Author   `json:"author"`
	URL       string   `json:"url,omitempty"` // present iff both id and author handle resolved
	MediaURLs []string `json:"media_urls"`    // never null, only empty
}

type NormalizedTrend struct {
	Name   string `json:"name"`
	URL    string `json:"url,omitempty"`
	Volume *int   `json:"volume,omitempty"` // absent when upstream omits it, never zero
}

// DateRange is an inclusive calendar-date filter. A nil *DateRange means
// no filtering.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// Contains reports whether the calendar date of t falls inside the range.
func (r *DateRange) Contains(t time.Time) bool {
	day := t.UTC().Truncate(24 * time.Hour)
	if r.Start != nil && day.Before(*r.Start) {
		return false
	}
	if r.End != nil && day.After(*r.End) {
		return false
	}
	return true
}
