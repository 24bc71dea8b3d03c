package pipeline

import (
	"fmt"
	"strconv"
	"strings"
)

// UnknownTitle is the sentinel title returned when every resolution
// strategy failed. Callers must check for it before treating metadata
// as real.
const UnknownTitle = "Unknown Title"

// Metadata is the normalized description of a media item. On total
// resolution failure every field carries its sentinel value; no field
// is ever absent.
type Metadata struct {
	Title           string `json:"title"`
	DurationSeconds int    `json:"duration_seconds"`
	DurationDisplay string `json:"duration_display"`
	VideoID         string `json:"video_id"`
	ThumbnailURL    string `json:"thumbnail_url,omitempty"`
	Author          string `json:"author,omitempty"`
}

// NewMetadata builds a Metadata with DurationDisplay derived from
// DurationSeconds, the single source of truth for the duration.
func NewMetadata(title string, durationSeconds int, videoID, thumbnailURL, author string) Metadata {
	if durationSeconds < 0 {
		durationSeconds = 0
	}
	return Metadata{
		Title:           title,
		DurationSeconds: durationSeconds,
		DurationDisplay: FormatClock(durationSeconds),
		VideoID:         videoID,
		ThumbnailURL:    thumbnailURL,
		Author:          author,
	}
}

// SentinelMetadata is the absorbing failure value of the resolver.
func SentinelMetadata() Metadata {
	return NewMetadata(UnknownTitle, 0, "", "", "")
}

// IsSentinel reports whether m is the total-failure placeholder.
func (m Metadata) IsSentinel() bool {
	return m.Title == UnknownTitle && m.DurationSeconds == 0 && m.VideoID == ""
}

// ParseClock converts "M:SS" or "H:MM:SS" strings to total seconds.
// A string without a colon is whole seconds. Unparseable input is zero.
func ParseClock(value string) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if !strings.Contains(value, ":") {
		seconds, err := strconv.Atoi(value)
		if err != nil || seconds < 0 {
			return 0
		}
		return seconds
	}
	total := 0
	for _, part := range strings.Split(value, ":") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 {
			return 0
		}
		total = total*60 + n
	}
	return total
}

// FormatClock renders seconds as "M:SS"; minutes may exceed 59.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
