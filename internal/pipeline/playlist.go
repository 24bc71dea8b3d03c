package pipeline

import (
	"context"
	"fmt"
	"iter"
	"sync/atomic"
)

// Expander enumerates playlist members as a bounded lazy sequence.
type Expander struct {
	pacer   Pacer
	lister  PlaylistLister
	printer *Printer
}

func NewExpander(pacer Pacer, lister PlaylistLister, printer *Printer) *Expander {
	return &Expander{pacer: pacer, lister: lister, printer: printer}
}

// Expand returns a single-use sequence of up to limit video ids. The
// backend fetch is deferred to the first pull. Failures yield an empty
// sequence, never an error.
func (e *Expander) Expand(ctx context.Context, url string, limit int) iter.Seq[string] {
	var consumed atomic.Bool
	return func(yield func(string) bool) {
		if consumed.Swap(true) {
			return
		}
		if limit <= 0 {
			return
		}
		if err := e.pacer.AcquireSlot(ctx); err != nil {
			return
		}
		items, err := e.lister.ListPlaylist(ctx, url)
		if err != nil {
			e.printer.Log(LogWarn, fmt.Sprintf("playlist expansion failed: %v", err))
			return
		}
		count := 0
		for _, item := range items {
			if item.ID == "" {
				continue
			}
			if !yield(item.ID) {
				return
			}
			count++
			if count >= limit {
				return
			}
		}
	}
}
