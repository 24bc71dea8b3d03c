package pipeline

import (
	"context"
	"strings"
)

// SearchScheme marks a backend query as a search rather than a URL or
// video id.
const SearchScheme = "ytsearch:"

// ExtractedItem is the backend's normalized response. Search-style
// queries populate Entries; metadata-only calls may carry a resolved
// StreamURL; download calls set Filename.
type ExtractedItem struct {
	ID              string
	Title           string
	Author          string
	DurationSeconds int
	ThumbnailURL    string
	WebpageURL      string
	StreamURL       string
	Filename        string
	Entries         []ExtractedItem
}

// Extractor is the extraction backend boundary. Implementations accept
// a query string (URL, bare video id, or search-scheme-prefixed text)
// and either return metadata (download=false) or write the asset to the
// templated path (download=true).
type Extractor interface {
	Extract(ctx context.Context, query string, opts ExtractorOptions, download bool) (*ExtractedItem, error)
}

// PlaylistItem is one flat playlist entry; no item-level fetch behind it.
type PlaylistItem struct {
	ID              string
	Title           string
	DurationSeconds int
}

// PlaylistLister enumerates playlist members without fetching
// item-level metadata.
type PlaylistLister interface {
	ListPlaylist(ctx context.Context, url string) ([]PlaylistItem, error)
}

// FormatInfo describes one available encoding, as shown to the
// interactive picker.
type FormatInfo struct {
	Itag         int
	Ext          string
	QualityLabel string
	AudioOnly    bool
	Bitrate      int
	Size         int64
}

// FormatLister enumerates the encodings available for a single video.
type FormatLister interface {
	ListFormats(ctx context.Context, query string, opts ExtractorOptions) ([]FormatInfo, error)
}

// normalizeQuery turns a Reference into the backend query string.
// URLs and ids are trimmed of trailing tracking parameters after the
// first '&'; search text gets the search-scheme prefix.
func normalizeQuery(ref Reference) string {
	switch ref.Kind {
	case ReferenceDirectURL, ReferenceVideoID:
		value, _, _ := strings.Cut(ref.Value, "&")
		return value
	case ReferenceSearchQuery:
		return SearchScheme + ref.Value
	default:
		return ref.Value
	}
}

func watchURLForID(id string) string {
	if id == "" {
		return ""
	}
	return "https://www.youtube.com/watch?v=" + id
}
