package provider

import (
	"encoding/json"
)

// Raw upstream record types. The upstream API makes no guarantees about
// field presence, so every field may be zero-valued and consumers must
// treat extraction as total functions returning "absent" rather than
// assuming a field exists.

type RawUser struct {
	ID         string `json:"id_str"`
	Name       string `json:"name"`
	ScreenName string `json:"screen_name"`
}

// RawMediaVariant is one declared encoding of a video attachment. Bitrate is
// kept raw: upstream has shipped it both as a number and as a string, and an
// unparsable value must degrade to zero rather than fail the record.
type RawMediaVariant struct {
	ContentType string          `json:"content_type"`
	URL         string          `json:"url"`
	Bitrate     json.RawMessage `json:"bitrate"`
}

type RawVideoInfo struct {
	Variants []RawMediaVariant `json:"variants"`
}

type RawMedia struct {
	Type          string        `json:"type"` // photo | video | animated_gif
	MediaURLHTTPS string        `json:"media_url_https"`
	VideoInfo     *RawVideoInfo `json:"video_info"`
}

type RawEntities struct {
	Media []RawMedia `json:"media"`
}

type RawPost struct {
	ID               string       `json:"id_str"`
	Text             string       `json:"full_text"`
	CreatedAt        string       `json:"created_at"`
	User             *RawUser     `json:"user"`
	Entities         *RawEntities `json:"entities"`
	ExtendedEntities *RawEntities `json:"extended_entities"`
}

type RawTrend struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	TweetVolume *int   `json:"tweet_volume"`
}

// Identity is the resolved owner of a session or a looked-up account.
type Identity struct {
	ID         string
	Name       string
	ScreenName string
}

type SearchKind string

const (
	SearchLatest SearchKind = "Latest"
	SearchTop    SearchKind = "Top"
	SearchMedia  SearchKind = "Media"
)

func ValidSearchKind(k SearchKind) bool {
	switch k {
	case SearchLatest, SearchTop, SearchMedia:
		return true
	}
	return false
}

type TimelineKind string

const (
	TimelinePosts           TimelineKind = "Posts"
	TimelinePostsAndReplies TimelineKind = "PostsAndReplies"
	TimelineMedia           TimelineKind = "Media"
)

func ValidTimelineKind(k TimelineKind) bool {
	switch k {
	case TimelinePosts, TimelinePostsAndReplies, TimelineMedia:
		return true
	}
	return false
}
