package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const canonicalAudioExt = ".mp3"

// AcquisitionResult is the terminal value of an acquisition. Location
// is a local path, or a remote URL when IsDirect is set.
type AcquisitionResult struct {
	Location  string
	IsDirect  bool
	Succeeded bool
}

// DirectResolver obtains a streamable URL without downloading.
type DirectResolver interface {
	ResolveURL(ctx context.Context, target string) (string, error)
}

// CommandDirectResolver shells out to an external resolver binary and
// takes the first line of its stdout. The subprocess is bounded by
// Timeout and killed on expiry.
type CommandDirectResolver struct {
	Binary  string
	Timeout time.Duration
}

func (r *CommandDirectResolver) ResolveURL(ctx context.Context, target string) (string, error) {
	binary := r.Binary
	if binary == "" {
		binary = "yt-dlp"
	}
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, binary, "-g", "-f", "best[height<=720]", target)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return "", wrapCategory(CategoryDirect, fmt.Errorf("direct resolver: %w", err))
	}

	scanner := bufio.NewScanner(&stdout)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			return line, nil
		}
	}
	return "", nil
}

// Orchestrator performs the actual acquisition: direct-URL passthrough
// when eligible, otherwise a pooled download with post-processing. It
// never returns an error; failures become Succeeded=false.
type Orchestrator struct {
	pacer         Pacer
	backend       Extractor
	pool          *WorkerPool
	direct        DirectResolver
	directEnabled func() bool
	printer       *Printer
	socketTimeout time.Duration
}

func NewOrchestrator(pacer Pacer, backend Extractor, pool *WorkerPool, direct DirectResolver, directEnabled func() bool, printer *Printer, socketTimeout time.Duration) *Orchestrator {
	if pool == nil {
		pool = NewWorkerPool(0)
	}
	if directEnabled == nil {
		directEnabled = func() bool { return false }
	}
	return &Orchestrator{
		pacer:         pacer,
		backend:       backend,
		pool:          pool,
		direct:        direct,
		directEnabled: directEnabled,
		printer:       printer,
		socketTimeout: socketTimeout,
	}
}

// Acquire downloads or direct-resolves the referenced media according
// to the mode.
func (o *Orchestrator) Acquire(ctx context.Context, ref Reference, mode AcquisitionMode) AcquisitionResult {
	if err := o.pacer.AcquireSlot(ctx); err != nil {
		return AcquisitionResult{}
	}

	if mode.IsVideoUpTo720() && o.directEnabled() && o.direct != nil {
		// The subprocess takes a pool slot like any download.
		var url string
		poolErr := o.pool.Do(ctx, func() error {
			url = o.resolveDirect(ctx, ref)
			return nil
		})
		if poolErr == nil && url != "" {
			return AcquisitionResult{Location: url, IsDirect: true, Succeeded: true}
		}
		// Direct resolution is best effort; fall through to a download.
	}

	query := normalizeQuery(ref)
	opts := o.buildOptions(mode)

	var item *ExtractedItem
	err := o.pool.Do(ctx, func() error {
		var extractErr error
		item, extractErr = o.backend.Extract(ctx, query, opts, true)
		return extractErr
	})
	if err != nil || item == nil || item.Filename == "" {
		if err != nil {
			o.printer.Log(LogError, fmt.Sprintf("acquisition failed for %q: %v", query, err))
		}
		return AcquisitionResult{}
	}

	location := item.Filename
	if mode.ProducesAudio() {
		renamed, renameErr := normalizeAudioExt(location)
		if renameErr != nil {
			o.printer.Log(LogWarn, fmt.Sprintf("audio rename failed: %v", renameErr))
		} else {
			location = renamed
		}
		embedAudioTags(metadataFromItem(pickPrimary(item)), location, o.printer)
	}

	return AcquisitionResult{Location: location, Succeeded: true}
}

// DirectStreamURL resolves a streamable URL through the extraction
// backend itself, without the subprocess shortcut or a local write.
func (o *Orchestrator) DirectStreamURL(ctx context.Context, ref Reference, audioOnly bool) (string, error) {
	if err := o.pacer.AcquireSlot(ctx); err != nil {
		return "", err
	}
	format := "best[height<=720]"
	if audioOnly {
		format = "bestaudio/best"
	}
	opts := newOptionsBuilder(o.socketTimeout).Format(format).Build()
	item, err := o.backend.Extract(ctx, normalizeQuery(ref), opts, false)
	if err != nil {
		return "", err
	}
	primary := pickPrimary(item)
	if primary.StreamURL == "" {
		return "", wrapCategory(CategoryDirect, fmt.Errorf("no stream URL for %q", primary.ID))
	}
	return primary.StreamURL, nil
}

func (o *Orchestrator) resolveDirect(ctx context.Context, ref Reference) string {
	url, err := o.direct.ResolveURL(ctx, directTarget(ref))
	if err != nil {
		o.printer.Log(LogDebug, fmt.Sprintf("direct resolution failed: %v", err))
		return ""
	}
	return url
}

func (o *Orchestrator) buildOptions(mode AcquisitionMode) ExtractorOptions {
	builder := newOptionsBuilder(o.socketTimeout).
		Format(mode.FormatSelector()).
		OutputTemplate(mode.OutputTemplate())
	if title := mode.TitleOverride(); title != "" {
		builder.TitleOverride(title)
	}
	if mode.RequestsExactFormat() && mode.ProducesAudio() {
		builder.AudioTranscode(strings.TrimPrefix(canonicalAudioExt, "."))
	}
	return builder.Build()
}

// normalizeAudioExt renames the file to the canonical audio extension.
// The container is assumed compatible; no re-encode happens here.
func normalizeAudioExt(path string) (string, error) {
	ext := filepath.Ext(path)
	if strings.EqualFold(ext, canonicalAudioExt) {
		return path, nil
	}
	renamed := strings.TrimSuffix(path, ext) + canonicalAudioExt
	if err := os.Rename(path, renamed); err != nil {
		return path, err
	}
	return renamed, nil
}

// directTarget gives the subprocess a resolvable URL for any reference
// kind.
func directTarget(ref Reference) string {
	switch ref.Kind {
	case ReferenceVideoID:
		return watchURLForID(ref.Value)
	case ReferenceSearchQuery:
		return SearchScheme + ref.Value
	default:
		value, _, _ := strings.Cut(ref.Value, "&")
		return value
	}
}
