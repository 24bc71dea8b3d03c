package pipeline

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// ResolverConfig carries the tuning policy of the metadata resolver.
// Constants live in configuration, not code.
type ResolverConfig struct {
	Attempts      int
	BackoffSeed   time.Duration
	SocketTimeout time.Duration
}

func (c *ResolverConfig) normalize() {
	if c.Attempts <= 0 {
		c.Attempts = 3
	}
	if c.BackoffSeed <= 0 {
		c.BackoffSeed = time.Second
	}
	if c.SocketTimeout <= 0 {
		c.SocketTimeout = 15 * time.Second
	}
}

// resolveStep drives the attempt state machine. Expected fallback paths
// are values, not error control flow.
type resolveStep int

const (
	stepSuccess resolveStep = iota
	stepRetry
	stepFallback
)

// Resolver turns a Reference into Metadata. It never returns an error:
// total failure is absorbed into the sentinel value.
type Resolver struct {
	pacer    Pacer
	backend  Extractor
	fallback SearchProvider
	printer  *Printer
	cfg      ResolverConfig

	sleep func(ctx context.Context, d time.Duration) error
}

func NewResolver(pacer Pacer, backend Extractor, fallback SearchProvider, printer *Printer, cfg ResolverConfig) *Resolver {
	cfg.normalize()
	return &Resolver{
		pacer:    pacer,
		backend:  backend,
		fallback: fallback,
		printer:  printer,
		cfg:      cfg,
		sleep:    sleepWithContext,
	}
}

// Resolve runs paced primary attempts with regenerated anti-detection
// options, then the secondary search fallback, then gives up with the
// sentinel.
func (r *Resolver) Resolve(ctx context.Context, ref Reference) Metadata {
	query := normalizeQuery(ref)

	if meta, ok := r.resolvePrimary(ctx, query); ok {
		return meta
	}
	if meta, ok := r.resolveFallback(ctx, query); ok {
		return meta
	}
	r.printer.Log(LogError, fmt.Sprintf("resolution exhausted for %q", query))
	return SentinelMetadata()
}

func (r *Resolver) resolvePrimary(ctx context.Context, query string) (Metadata, bool) {
	for attempt := 0; attempt < r.cfg.Attempts; attempt++ {
		if attempt > 0 {
			if err := r.sleep(ctx, r.backoff(attempt)); err != nil {
				return Metadata{}, false
			}
		}
		if err := r.pacer.AcquireSlot(ctx); err != nil {
			return Metadata{}, false
		}

		// Fresh options per attempt: new user agent, new sleep interval.
		opts := newOptionsBuilder(r.cfg.SocketTimeout).Format("bestaudio/best").Build()
		item, err := r.backend.Extract(ctx, query, opts, false)

		switch r.classify(item, err, attempt == r.cfg.Attempts-1) {
		case stepSuccess:
			return metadataFromItem(pickPrimary(item)), true
		case stepRetry:
			r.printer.Log(LogWarn, fmt.Sprintf("attempt %d failed: %v", attempt+1, err))
		case stepFallback:
			return Metadata{}, false
		}
	}
	return Metadata{}, false
}

func (r *Resolver) classify(item *ExtractedItem, err error, final bool) resolveStep {
	usable := err == nil && item != nil &&
		(item.ID != "" || len(item.Entries) > 0)
	if usable {
		return stepSuccess
	}
	if final {
		return stepFallback
	}
	return stepRetry
}

func (r *Resolver) resolveFallback(ctx context.Context, query string) (Metadata, bool) {
	if r.fallback == nil {
		return Metadata{}, false
	}
	text := strings.TrimPrefix(query, SearchScheme)
	results, err := r.fallback.Search(ctx, text, 1)
	if err != nil || len(results) == 0 {
		if err != nil {
			r.printer.Log(LogWarn, fmt.Sprintf("fallback search failed: %v", err))
		}
		return Metadata{}, false
	}
	return metadataFromSearchResult(results[0]), true
}

// backoff grows with the attempt count plus jitter, so repeated retries
// do not land on a fixed cadence.
func (r *Resolver) backoff(attempt int) time.Duration {
	base := r.cfg.BackoffSeed + time.Duration(attempt)*time.Second
	jitter := time.Duration(rand.Int63n(int64(500 * time.Millisecond))) //nolint:gosec
	return base + jitter
}

// pickPrimary takes the first entry of a search-style response, or the
// item itself for single results.
func pickPrimary(item *ExtractedItem) ExtractedItem {
	if len(item.Entries) > 0 {
		return item.Entries[0]
	}
	return *item
}

func metadataFromItem(item ExtractedItem) Metadata {
	return NewMetadata(item.Title, item.DurationSeconds, item.ID, item.ThumbnailURL, item.Author)
}
