package post

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"birdgate/app/provider"
)

const platformBaseURL = "https://x.com"

const dateOnly = "2006-01-02"

// Upstream timestamps arrive either already in RFC 3339 form or in the
// platform's classic fixed format ("Mon Apr 21 21:53:41 +0000 2025").
var timestampLayouts = []string{time.RubyDate, time.RFC3339}

type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Posts filters raw records against the optional date range and maps the
// survivors to the output schema. The second return value counts records
// dropped by the range or by an unparsable timestamp; a bad record never
// aborts the batch.
func (n *Normalizer) Posts(raw []provider.RawPost, dateRange *DateRange) ([]NormalizedPost, int) {
	posts := make([]NormalizedPost, 0, len(raw))
	filtered := 0

	for _, record := range raw {
		if dateRange != nil {
			createdAt, err := ParseTimestamp(record.CreatedAt)
			if err != nil {
				slog.Debug("Skipping record with unparsable timestamp", "id", record.ID, "created_at", record.CreatedAt)
				filtered++
				continue
			}
			if !dateRange.Contains(createdAt) {
				filtered++
				continue
			}
		}
		posts = append(posts, n.Post(record))
	}

	return posts, filtered
}

// Post maps a single raw record. Field absence upstream maps to zero values
// in the output; the canonical URL is built only when both the id and the
// author handle resolved.
func (n *Normalizer) Post(record provider.RawPost) NormalizedPost {
	normalized := NormalizedPost{
		ID:        record.ID,
		Text:      record.Text,
		CreatedAt: record.CreatedAt,
		MediaURLs: extractMediaURLs(record),
	}

	if record.User != nil {
		normalized.Author = Author{
			ID:     record.User.ID,
			Name:   record.User.Name,
			Handle: record.User.ScreenName,
		}
	}

	normalized.URL = CanonicalURL(normalized.Author.Handle, normalized.ID)

	return normalized
}

func (n *Normalizer) Trends(raw []provider.RawTrend) []NormalizedTrend {
	trends := make([]NormalizedTrend, 0, len(raw))
	for _, record := range raw {
		trends = append(trends, NormalizedTrend{
			Name:   record.Name,
			URL:    record.URL,
			Volume: record.TweetVolume,
		})
	}
	return trends
}

// CanonicalURL returns the permalink for a post, or "" when either part is
// unresolved.
func CanonicalURL(handle, id string) string {
	if handle == "" || id == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/status/%s", platformBaseURL, handle, id)
}

func ParseTimestamp(value string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable timestamp %q", value)
}

// ParseDateRange builds an inclusive calendar-date range from YYYY-MM-DD
// strings. Both bounds are optional; a reversed range is an error.
func ParseDateRange(start, end string) (*DateRange, error) {
	if start == "" && end == "" {
		return nil, nil
	}

	dateRange := &DateRange{}

	if start != "" {
		t, err := time.Parse(dateOnly, start)
		if err != nil {
			return nil, fmt.Errorf("invalid start_date %q: expected YYYY-MM-DD", start)
		}
		dateRange.Start = &t
	}
	if end != "" {
		t, err := time.Parse(dateOnly, end)
		if err != nil {
			return nil, fmt.Errorf("invalid end_date %q: expected YYYY-MM-DD", end)
		}
		dateRange.End = &t
	}

	if dateRange.Start != nil && dateRange.End != nil && dateRange.Start.After(*dateRange.End) {
		return nil, fmt.Errorf("start_date %s is after end_date %s", start, end)
	}

	return dateRange, nil
}

// extractMediaURLs selects one URL per media attachment. The extended
// entities list wins over the primary list when present and non-empty;
// iteration order is preserved and no de-duplication is performed.
func extractMediaURLs(record provider.RawPost) []string {
	media := mediaList(record)

	urls := make([]string, 0, len(media))
	for _, item := range media {
		switch item.Type {
		case "photo", "animated_gif":
			if item.MediaURLHTTPS != "" {
				urls = append(urls, item.MediaURLHTTPS)
			}
		case "video":
			if item.VideoInfo == nil {
				continue
			}
			if url, ok := bestVariantURL(item.VideoInfo.Variants); ok {
				urls = append(urls, url)
			}
		}
	}

	return urls
}

func mediaList(record provider.RawPost) []provider.RawMedia {
	if record.ExtendedEntities != nil && len(record.ExtendedEntities.Media) > 0 {
		return record.ExtendedEntities.Media
	}
	if record.Entities != nil {
		return record.Entities.Media
	}
	return nil
}

// bestVariantURL picks the MP4 variant with the highest bitrate. The
// comparison is >=, so a later variant with an equal bitrate replaces the
// current best (last-equal-wins). An unparsable bitrate counts as zero but
// does not exclude the variant.
func bestVariantURL(variants []provider.RawMediaVariant) (string, bool) {
	bestURL := ""
	bestBitrate := -1

	for _, variant := range variants {
		if variant.ContentType != "video/mp4" {
			continue
		}
		bitrate := parseBitrate(variant.Bitrate)
		if bitrate >= bestBitrate {
			bestBitrate = bitrate
			bestURL = variant.URL
		}
	}

	return bestURL, bestBitrate >= 0
}

func parseBitrate(raw []byte) int {
	value := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if value == "" || value == "null" {
		return 0
	}
	bitrate, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return bitrate
}
