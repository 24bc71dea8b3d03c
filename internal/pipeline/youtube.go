package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/kkdai/youtube/v2"
)

const searchEntryLimit = 10

// YouTubeBackend implements Extractor, PlaylistLister, and FormatLister
// on top of the youtube client library. A fresh client is built per
// call from that attempt's options so rotated identity headers actually
// rotate.
type YouTubeBackend struct {
	baseDir  string
	searcher SearchProvider
	printer  *Printer
}

func NewYouTubeBackend(baseDir string, searcher SearchProvider, printer *Printer) *YouTubeBackend {
	if baseDir == "" {
		baseDir = "downloads"
	}
	return &YouTubeBackend{baseDir: baseDir, searcher: searcher, printer: printer}
}

// newClient builds a client for one attempt. The library's package
// level player-client selection is shared across requests and is never
// written here; its default (Android) applies.
func (b *YouTubeBackend) newClient(opts ExtractorOptions) *youtube.Client {
	return &youtube.Client{HTTPClient: newBackendHTTPClient(opts)}
}

// Extract resolves metadata for a query, or downloads it when asked.
// Search-scheme queries return an entries list; downloading one takes
// the first entry.
func (b *YouTubeBackend) Extract(ctx context.Context, query string, opts ExtractorOptions, download bool) (*ExtractedItem, error) {
	if text, ok := strings.CutPrefix(query, SearchScheme); ok {
		item, err := b.extractSearch(ctx, text)
		if err != nil {
			return nil, err
		}
		if !download {
			return item, nil
		}
		if len(item.Entries) == 0 {
			return nil, wrapCategory(CategoryNoResults, fmt.Errorf("no results for %q", text))
		}
		query = watchURLForID(item.Entries[0].ID)
	}

	client := b.newClient(opts)
	video, err := client.GetVideoContext(ctx, watchTarget(query))
	if err != nil {
		return nil, wrapFetchError(err)
	}

	item := itemFromVideo(video)
	if !download {
		if format, ferr := pickFormatForSelector(video, opts.Format); ferr == nil {
			if streamURL, uerr := client.GetStreamURLContext(ctx, video, format); uerr == nil {
				item.StreamURL = streamURL
			}
		}
		return item, nil
	}

	filename, err := b.download(ctx, client, video, opts)
	if err != nil {
		return nil, err
	}
	item.Filename = filename
	return item, nil
}

func (b *YouTubeBackend) extractSearch(ctx context.Context, text string) (*ExtractedItem, error) {
	if b.searcher == nil {
		return nil, wrapCategory(CategoryNoResults, errors.New("search unavailable"))
	}
	results, err := b.searcher.Search(ctx, text, searchEntryLimit)
	if err != nil {
		return nil, err
	}
	item := &ExtractedItem{Entries: make([]ExtractedItem, 0, len(results))}
	for _, r := range results {
		item.Entries = append(item.Entries, ExtractedItem{
			ID:              r.ID,
			Title:           r.Title,
			Author:          r.Channel,
			DurationSeconds: ParseClock(r.Duration),
			ThumbnailURL:    firstThumbnail(r.Thumbnails),
			WebpageURL:      watchURLForID(r.ID),
		})
	}
	return item, nil
}

func (b *YouTubeBackend) download(ctx context.Context, client *youtube.Client, video *youtube.Video, opts ExtractorOptions) (string, error) {
	selector, err := parseFormatSelector(opts.Format)
	if err != nil {
		return "", err
	}

	if selector.mergeBestAudio {
		return b.downloadMerged(ctx, client, video, selector, opts)
	}

	format, err := pickFormat(video, selector)
	if err != nil {
		return "", err
	}

	outputPath, err := renderOutputTemplate(opts.OutputTemplate, video.ID, outputTitle(video.Title, opts), mimeToExt(format.MimeType), b.baseDir)
	if err != nil {
		return "", err
	}
	if err := b.downloadFormat(ctx, client, video, format, outputPath); err != nil {
		return "", err
	}

	if opts.AudioTranscodeExt != "" && !strings.EqualFold(strings.TrimPrefix(filepath.Ext(outputPath), "."), opts.AudioTranscodeExt) {
		if !ffmpegAvailable() {
			return "", wrapCategory(CategoryDownload, errors.New("ffmpeg not found in PATH, required for audio transcode"))
		}
		transcoded := strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + "." + opts.AudioTranscodeExt
		if err := transcodeAudio(outputPath, transcoded); err != nil {
			return "", wrapCategory(CategoryDownload, fmt.Errorf("audio transcode: %w", err))
		}
		os.Remove(outputPath)
		outputPath = transcoded
	}
	return outputPath, nil
}

// downloadMerged fetches an exact video format plus the best audio
// stream and muxes them into one container.
func (b *YouTubeBackend) downloadMerged(ctx context.Context, client *youtube.Client, video *youtube.Video, selector formatSelector, opts ExtractorOptions) (string, error) {
	if !ffmpegAvailable() {
		return "", wrapCategory(CategoryDownload, errors.New("ffmpeg not found in PATH, required for stream merge"))
	}
	videoFormat, err := pickFormat(video, formatSelector{itag: selector.itag})
	if err != nil {
		return "", err
	}
	audioFormat, err := pickFormat(video, formatSelector{audioOnly: true, fallbackBest: true})
	if err != nil {
		return "", err
	}

	outputPath, err := renderOutputTemplate(opts.OutputTemplate, video.ID, outputTitle(video.Title, opts), "mp4", b.baseDir)
	if err != nil {
		return "", err
	}

	videoTemp := outputPath + ".video.tmp"
	audioTemp := outputPath + ".audio.tmp"
	defer os.Remove(videoTemp)
	defer os.Remove(audioTemp)

	if err := b.downloadFormat(ctx, client, video, videoFormat, videoTemp); err != nil {
		return "", err
	}
	if err := b.downloadFormat(ctx, client, video, audioFormat, audioTemp); err != nil {
		return "", err
	}
	if err := mergeStreams(videoTemp, audioTemp, outputPath); err != nil {
		return "", wrapCategory(CategoryDownload, fmt.Errorf("merging streams: %w", err))
	}
	return outputPath, nil
}

func (b *YouTubeBackend) downloadFormat(ctx context.Context, client *youtube.Client, video *youtube.Video, format *youtube.Format, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return wrapCategory(CategoryFilesystem, fmt.Errorf("creating output directory: %w", err))
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return wrapCategory(CategoryFilesystem, fmt.Errorf("opening output file: %w", err))
	}
	defer file.Close()

	stream, _, err := client.GetStreamContext(ctx, video, format)
	if err != nil {
		return wrapCategory(CategoryDownload, fmt.Errorf("starting stream: %w", err))
	}
	defer stream.Close()

	if _, err := copyWithContext(ctx, file, stream); err != nil {
		os.Remove(outputPath)
		return wrapCategory(CategoryDownload, fmt.Errorf("download failed: %w", err))
	}
	return nil
}

// ListPlaylist enumerates playlist members from a single flat fetch.
func (b *YouTubeBackend) ListPlaylist(ctx context.Context, url string) ([]PlaylistItem, error) {
	opts := newOptionsBuilder(0).Build()
	client := b.newClient(opts)
	playlist, err := client.GetPlaylistContext(ctx, url)
	if err != nil {
		return nil, wrapFetchError(err)
	}

	items := make([]PlaylistItem, 0, len(playlist.Videos))
	for _, entry := range playlist.Videos {
		if entry == nil || entry.ID == "" {
			continue
		}
		items = append(items, PlaylistItem{
			ID:              entry.ID,
			Title:           entry.Title,
			DurationSeconds: int(entry.Duration.Seconds()),
		})
	}
	return items, nil
}

// ListFormats reports the encodings available for one video.
func (b *YouTubeBackend) ListFormats(ctx context.Context, query string, opts ExtractorOptions) ([]FormatInfo, error) {
	client := b.newClient(opts)
	video, err := client.GetVideoContext(ctx, watchTarget(query))
	if err != nil {
		return nil, wrapFetchError(err)
	}

	infos := make([]FormatInfo, 0, len(video.Formats))
	for i := range video.Formats {
		f := &video.Formats[i]
		infos = append(infos, FormatInfo{
			Itag:         f.ItagNo,
			Ext:          mimeToExt(f.MimeType),
			QualityLabel: f.QualityLabel,
			AudioOnly:    f.AudioChannels > 0 && f.Width == 0 && f.Height == 0,
			Bitrate:      bitrateForFormat(f),
			Size:         f.ContentLength,
		})
	}
	return infos, nil
}

func outputTitle(videoTitle string, opts ExtractorOptions) string {
	if opts.TitleOverride != "" {
		return opts.TitleOverride
	}
	return videoTitle
}

func itemFromVideo(video *youtube.Video) *ExtractedItem {
	return &ExtractedItem{
		ID:              video.ID,
		Title:           video.Title,
		Author:          video.Author,
		DurationSeconds: int(video.Duration.Seconds()),
		ThumbnailURL:    bestThumbnailURL(video.Thumbnails),
		WebpageURL:      watchURLForID(video.ID),
	}
}

func bestThumbnailURL(thumbnails youtube.Thumbnails) string {
	bestURL := ""
	var bestArea uint
	for _, thumb := range thumbnails {
		area := thumb.Width * thumb.Height
		if area >= bestArea {
			bestArea = area
			bestURL = thumb.URL
		}
	}
	return bestURL
}

func firstThumbnail(urls []string) string {
	if len(urls) == 0 {
		return ""
	}
	return urls[0]
}

// watchTarget maps bare video ids to watch URLs; URLs pass through.
func watchTarget(query string) string {
	if videoIDRegex.MatchString(query) {
		return watchURLForID(query)
	}
	return query
}

var (
	heightSelectorRegex = regexp.MustCompile(`^best\[height<=(\d+)\]$`)
	mergeSelectorRegex  = regexp.MustCompile(`^(\d+)\+bestaudio$`)
	itagSelectorRegex   = regexp.MustCompile(`^\d+$`)
)

// formatSelector is the parsed form of a format-selector string.
type formatSelector struct {
	audioOnly      bool
	fallbackBest   bool
	maxHeight      int
	itag           int
	mergeBestAudio bool
}

func parseFormatSelector(s string) (formatSelector, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "" || s == "best":
		return formatSelector{}, nil
	case s == "bestaudio/best":
		return formatSelector{audioOnly: true, fallbackBest: true}, nil
	case s == "bestaudio":
		return formatSelector{audioOnly: true}, nil
	}
	if m := heightSelectorRegex.FindStringSubmatch(s); m != nil {
		height, _ := strconv.Atoi(m[1])
		return formatSelector{maxHeight: height}, nil
	}
	if m := mergeSelectorRegex.FindStringSubmatch(s); m != nil {
		itag, _ := strconv.Atoi(m[1])
		return formatSelector{itag: itag, mergeBestAudio: true}, nil
	}
	if itagSelectorRegex.MatchString(s) {
		itag, _ := strconv.Atoi(s)
		return formatSelector{itag: itag}, nil
	}
	return formatSelector{}, wrapCategory(CategoryInvalidInput, fmt.Errorf("unrecognized format selector %q", s))
}

func pickFormatForSelector(video *youtube.Video, s string) (*youtube.Format, error) {
	selector, err := parseFormatSelector(s)
	if err != nil {
		return nil, err
	}
	if selector.mergeBestAudio {
		selector = formatSelector{itag: selector.itag}
	}
	return pickFormat(video, selector)
}

// pickFormat chooses a concrete format for the parsed selector,
// following the same height/bitrate preferences on every path.
func pickFormat(video *youtube.Video, selector formatSelector) (*youtube.Format, error) {
	if selector.itag > 0 {
		for i := range video.Formats {
			if video.Formats[i].ItagNo == selector.itag {
				return &video.Formats[i], nil
			}
		}
		return nil, wrapCategory(CategoryNoResults, fmt.Errorf("format %d not available", selector.itag))
	}

	if selector.audioOnly {
		if best := bestAudioFormat(video.Formats); best != nil {
			return best, nil
		}
		if selector.fallbackBest {
			if best := bestProgressiveFormat(video.Formats, 0); best != nil {
				return best, nil
			}
		}
		return nil, wrapCategory(CategoryNoResults, errors.New("no audio formats available"))
	}

	if best := bestProgressiveFormat(video.Formats, selector.maxHeight); best != nil {
		return best, nil
	}
	// Nothing under the cap: fall back to the lowest available above it.
	if selector.maxHeight > 0 {
		if best := lowestProgressiveFormat(video.Formats); best != nil {
			return best, nil
		}
	}
	return nil, wrapCategory(CategoryNoResults, errors.New("no progressive formats available"))
}

func bestAudioFormat(formats []youtube.Format) *youtube.Format {
	var best *youtube.Format
	for i := range formats {
		f := &formats[i]
		if f.AudioChannels == 0 || f.Width != 0 || f.Height != 0 {
			continue
		}
		if best == nil || bitrateForFormat(f) > bitrateForFormat(best) {
			best = f
		}
	}
	return best
}

func bestProgressiveFormat(formats []youtube.Format, maxHeight int) *youtube.Format {
	var best *youtube.Format
	for i := range formats {
		f := &formats[i]
		if f.AudioChannels == 0 || f.Width == 0 || f.Height == 0 {
			continue
		}
		if maxHeight > 0 && f.Height > maxHeight {
			continue
		}
		if best == nil || f.Height > best.Height ||
			(f.Height == best.Height && bitrateForFormat(f) > bitrateForFormat(best)) {
			best = f
		}
	}
	return best
}

func lowestProgressiveFormat(formats []youtube.Format) *youtube.Format {
	var best *youtube.Format
	for i := range formats {
		f := &formats[i]
		if f.AudioChannels == 0 || f.Width == 0 || f.Height == 0 {
			continue
		}
		if best == nil || f.Height < best.Height {
			best = f
		}
	}
	return best
}

func bitrateForFormat(f *youtube.Format) int {
	if f.AverageBitrate > 0 {
		return f.AverageBitrate
	}
	return f.Bitrate
}

// wrapFetchError classifies a metadata fetch failure: restricted or
// missing content will not improve on retry, everything else is
// treated as transient.
func wrapFetchError(err error) error {
	if err == nil {
		return nil
	}
	message := strings.ToLower(err.Error())
	for _, marker := range []string{
		"video unavailable",
		"content unavailable",
		"not available",
		"private",
		"age-restricted",
		"age restricted",
		"members only",
	} {
		if strings.Contains(message, marker) {
			return wrapCategory(CategoryNoResults, err)
		}
	}
	return wrapCategory(CategoryTransient, err)
}

// copyWithContext copies src to dst, checking for cancellation between
// chunks.
func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, 64*1024)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		n, err := src.Read(buf)
		if n > 0 {
			wn, werr := dst.Write(buf[:n])
			written += int64(wn)
			if werr != nil {
				return written, werr
			}
			if wn != n {
				return written, io.ErrShortWrite
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return written, nil
			}
			return written, err
		}
	}
}
