// Package app runs the resolution and acquisition pipeline over a
// batch of references.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/lvcoi/playfetch/internal/config"
	"github.com/lvcoi/playfetch/internal/pipeline"
)

// Result is the outcome of one reference.
type Result struct {
	ID       string            `json:"id"`
	Ref      string            `json:"ref"`
	Meta     pipeline.Metadata `json:"meta"`
	Location string            `json:"location,omitempty"`
	IsDirect bool              `json:"is_direct,omitempty"`
	Err      error             `json:"-"`
	Error    string            `json:"error,omitempty"`
}

// Options controls a Run.
type Options struct {
	Mode          pipeline.AcquisitionMode
	MetadataOnly  bool
	PlaylistLimit int
	Jobs          int
}

// Pipeline bundles the collaborators a Run needs. BuildPipeline wires
// the production set from configuration.
type Pipeline struct {
	Resolver     *pipeline.Resolver
	Orchestrator *pipeline.Orchestrator
	Expander     *pipeline.Expander
	Printer      *pipeline.Printer
}

// BuildPipeline constructs the production pipeline from configuration.
func BuildPipeline(cfg config.Config, printer *pipeline.Printer) Pipeline {
	pacer := pipeline.NewPacer(cfg.PacerMin(), cfg.PacerMax())
	search := pipeline.NewWebSearch(cfg.SocketTimeout())
	backend := pipeline.NewYouTubeBackend(cfg.DownloadDir, search, printer)
	resolver := pipeline.NewResolver(pacer, backend, search, printer, pipeline.ResolverConfig{
		Attempts:      cfg.Attempts,
		BackoffSeed:   cfg.BackoffSeed(),
		SocketTimeout: cfg.SocketTimeout(),
	})
	pool := pipeline.NewWorkerPool(cfg.Workers)
	direct := &pipeline.CommandDirectResolver{
		Binary:  cfg.DirectResolverBinary,
		Timeout: cfg.DirectResolverTimeout(),
	}
	orchestrator := pipeline.NewOrchestrator(
		pacer, backend, pool, direct,
		func() bool { return cfg.DirectLink },
		printer, cfg.SocketTimeout(),
	)
	expander := pipeline.NewExpander(pacer, backend, printer)
	return Pipeline{
		Resolver:     resolver,
		Orchestrator: orchestrator,
		Expander:     expander,
		Printer:      printer,
	}
}

// Run processes refs concurrently and returns per-reference results
// plus a process exit code.
func Run(ctx context.Context, refs []string, p Pipeline, opts Options) ([]Result, int) {
	if opts.Jobs < 1 {
		opts.Jobs = 1
	}
	if opts.PlaylistLimit <= 0 {
		opts.PlaylistLimit = 25
	}

	work := expandRefs(ctx, refs, p, opts.PlaylistLimit)

	tasks := make(chan pipeline.Reference)
	results := make(chan Result, len(work))

	var wg sync.WaitGroup
	for i := 0; i < opts.Jobs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case ref, ok := <-tasks:
					if !ok {
						return
					}
					res := processOne(ctx, ref, p, opts)
					select {
					case results <- res:
					case <-ctx.Done():
						return
					}
				}
			}
		}()
	}

	submitted := 0
	for _, ref := range work {
		select {
		case <-ctx.Done():
		case tasks <- ref:
			submitted++
			continue
		}
		break
	}
	close(tasks)

	go func() {
		wg.Wait()
		close(results)
	}()

	output := make([]Result, 0, submitted)
	exitCode := 0
	for res := range results {
		output = append(output, res)
		if res.Err != nil {
			if code := pipeline.ExitCode(res.Err); code > exitCode {
				exitCode = code
			}
		}
	}
	if ctx.Err() != nil && exitCode == 0 {
		exitCode = 130
	}
	return output, exitCode
}

// expandRefs classifies the raw inputs and unrolls playlist references
// into per-video ones.
func expandRefs(ctx context.Context, refs []string, p Pipeline, limit int) []pipeline.Reference {
	out := make([]pipeline.Reference, 0, len(refs))
	for _, raw := range refs {
		ref := pipeline.Classify(raw)
		if ref.Kind != pipeline.ReferencePlaylistURL {
			out = append(out, ref)
			continue
		}
		for id := range p.Expander.Expand(ctx, raw, limit) {
			out = append(out, pipeline.Reference{Kind: pipeline.ReferenceVideoID, Value: id})
		}
	}
	return out
}

func processOne(ctx context.Context, ref pipeline.Reference, p Pipeline, opts Options) Result {
	res := Result{ID: uuid.NewString(), Ref: ref.Value}

	res.Meta = p.Resolver.Resolve(ctx, ref)
	if opts.MetadataOnly {
		if res.Meta.IsSentinel() {
			res.Err = fmt.Errorf("no metadata for %q", ref.Value)
			res.Error = res.Err.Error()
		}
		return res
	}

	acquired := p.Orchestrator.Acquire(ctx, ref, opts.Mode)
	if !acquired.Succeeded {
		// The orchestrator already logged the failure.
		res.Err = pipeline.MarkReported(errors.New("acquisition failed"))
		res.Error = res.Err.Error()
		return res
	}
	res.Location = acquired.Location
	res.IsDirect = acquired.IsDirect
	return res
}
