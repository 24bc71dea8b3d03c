package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeDirectResolver struct {
	calls int32
	url   string
	err   error
}

func (f *fakeDirectResolver) ResolveURL(ctx context.Context, target string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.url, f.err
}

func newTestOrchestrator(backend Extractor, direct DirectResolver, directEnabled bool) *Orchestrator {
	return NewOrchestrator(
		NopPacer{}, backend, NewWorkerPool(2), direct,
		func() bool { return directEnabled },
		nil, 15*time.Second,
	)
}

func downloadedFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("media"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAcquireDirectShortCircuit(t *testing.T) {
	backend := &fakeExtractor{extract: func(call int, query string, opts ExtractorOptions, download bool) (*ExtractedItem, error) {
		t.Fatal("backend must not be called when direct resolution succeeds")
		return nil, nil
	}}
	direct := &fakeDirectResolver{url: "https://cdn.example.com/stream.mp4"}
	o := newTestOrchestrator(backend, direct, true)

	res := o.Acquire(context.Background(), Reference{Kind: ReferenceVideoID, Value: "dQw4w9WgXcQ"}, VideoUpTo720())
	if !res.Succeeded || !res.IsDirect {
		t.Fatalf("expected direct success, got %+v", res)
	}
	if res.Location != "https://cdn.example.com/stream.mp4" {
		t.Fatalf("unexpected location %q", res.Location)
	}
}

func TestAcquireDirectDisabledNeverInvokesSubprocess(t *testing.T) {
	file := downloadedFile(t, "dQw4w9WgXcQ.mp4")
	backend := &fakeExtractor{extract: func(call int, query string, opts ExtractorOptions, download bool) (*ExtractedItem, error) {
		return &ExtractedItem{ID: "dQw4w9WgXcQ", Filename: file}, nil
	}}
	direct := &fakeDirectResolver{url: "https://cdn.example.com/stream.mp4"}
	o := newTestOrchestrator(backend, direct, false)

	res := o.Acquire(context.Background(), Reference{Kind: ReferenceVideoID, Value: "dQw4w9WgXcQ"}, VideoUpTo720())
	if direct.calls != 0 {
		t.Fatalf("direct resolver must not run when disabled, got %d calls", direct.calls)
	}
	if !res.Succeeded || res.IsDirect {
		t.Fatalf("expected local download, got %+v", res)
	}
	if res.Location != file {
		t.Fatalf("unexpected location %q", res.Location)
	}
}

func TestAcquireDirectEmptyFallsBackToDownload(t *testing.T) {
	file := downloadedFile(t, "dQw4w9WgXcQ.mp4")
	backend := &fakeExtractor{extract: func(call int, query string, opts ExtractorOptions, download bool) (*ExtractedItem, error) {
		if !download {
			t.Fatal("fallback must be a download call")
		}
		return &ExtractedItem{ID: "dQw4w9WgXcQ", Filename: file}, nil
	}}
	direct := &fakeDirectResolver{url: ""}
	o := newTestOrchestrator(backend, direct, true)

	res := o.Acquire(context.Background(), Reference{Kind: ReferenceVideoID, Value: "dQw4w9WgXcQ"}, VideoUpTo720())
	if direct.calls != 1 {
		t.Fatalf("expected one direct attempt, got %d", direct.calls)
	}
	if !res.Succeeded || res.IsDirect {
		t.Fatalf("empty direct output must downgrade IsDirect, got %+v", res)
	}
}

func TestAcquireDirectErrorFallsBackToDownload(t *testing.T) {
	file := downloadedFile(t, "dQw4w9WgXcQ.mp4")
	backend := &fakeExtractor{extract: func(call int, query string, opts ExtractorOptions, download bool) (*ExtractedItem, error) {
		return &ExtractedItem{ID: "dQw4w9WgXcQ", Filename: file}, nil
	}}
	direct := &fakeDirectResolver{err: errors.New("exit status 1")}
	o := newTestOrchestrator(backend, direct, true)

	res := o.Acquire(context.Background(), Reference{Kind: ReferenceVideoID, Value: "dQw4w9WgXcQ"}, VideoUpTo720())
	if !res.Succeeded || res.IsDirect {
		t.Fatalf("direct failure must fall back to download, got %+v", res)
	}
}

func TestAcquireAudioModeSkipsDirect(t *testing.T) {
	file := downloadedFile(t, "dQw4w9WgXcQ.mp3")
	backend := &fakeExtractor{extract: func(call int, query string, opts ExtractorOptions, download bool) (*ExtractedItem, error) {
		return &ExtractedItem{ID: "dQw4w9WgXcQ", Filename: file}, nil
	}}
	direct := &fakeDirectResolver{url: "https://cdn.example.com/stream.mp4"}
	o := newTestOrchestrator(backend, direct, true)

	res := o.Acquire(context.Background(), Reference{Kind: ReferenceVideoID, Value: "dQw4w9WgXcQ"}, AudioOnly())
	if direct.calls != 0 {
		t.Fatalf("audio mode must never use direct resolution, got %d calls", direct.calls)
	}
	if !res.Succeeded || res.IsDirect {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestAcquireRenamesAudioToCanonicalExt(t *testing.T) {
	file := downloadedFile(t, "dQw4w9WgXcQ.webm")
	backend := &fakeExtractor{extract: func(call int, query string, opts ExtractorOptions, download bool) (*ExtractedItem, error) {
		return &ExtractedItem{ID: "dQw4w9WgXcQ", Title: "Song", Filename: file}, nil
	}}
	o := newTestOrchestrator(backend, nil, false)

	res := o.Acquire(context.Background(), Reference{Kind: ReferenceVideoID, Value: "dQw4w9WgXcQ"}, AudioOnly())
	if !res.Succeeded {
		t.Fatalf("expected success, got %+v", res)
	}
	want := filepath.Join(filepath.Dir(file), "dQw4w9WgXcQ.mp3")
	if res.Location != want {
		t.Fatalf("expected rename to %q, got %q", want, res.Location)
	}
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("renamed file missing: %v", err)
	}
	if _, err := os.Stat(file); !os.IsNotExist(err) {
		t.Fatal("original file should be gone after rename")
	}
}

func TestAcquireVideoModeDoesNotRename(t *testing.T) {
	file := downloadedFile(t, "dQw4w9WgXcQ.mp4")
	backend := &fakeExtractor{extract: func(call int, query string, opts ExtractorOptions, download bool) (*ExtractedItem, error) {
		return &ExtractedItem{ID: "dQw4w9WgXcQ", Filename: file}, nil
	}}
	o := newTestOrchestrator(backend, nil, false)

	res := o.Acquire(context.Background(), Reference{Kind: ReferenceVideoID, Value: "dQw4w9WgXcQ"}, VideoUpTo720())
	if res.Location != file {
		t.Fatalf("video output must keep its extension, got %q", res.Location)
	}
}

func TestAcquireBackendFailure(t *testing.T) {
	backend := &fakeExtractor{extract: func(call int, query string, opts ExtractorOptions, download bool) (*ExtractedItem, error) {
		return nil, wrapCategory(CategoryDownload, errors.New("stream broke"))
	}}
	o := newTestOrchestrator(backend, nil, false)

	res := o.Acquire(context.Background(), Reference{Kind: ReferenceVideoID, Value: "dQw4w9WgXcQ"}, AudioOnly())
	if res.Succeeded {
		t.Fatal("expected failure result")
	}
	if res.Location != "" || res.IsDirect {
		t.Fatalf("failure result must be zero-valued, got %+v", res)
	}
}

func TestAcquireNamedSongRequestsTranscode(t *testing.T) {
	file := downloadedFile(t, "MySong.mp3")
	var seenOpts ExtractorOptions
	backend := &fakeExtractor{extract: func(call int, query string, opts ExtractorOptions, download bool) (*ExtractedItem, error) {
		seenOpts = opts
		return &ExtractedItem{ID: "dQw4w9WgXcQ", Filename: file}, nil
	}}
	o := newTestOrchestrator(backend, nil, false)

	o.Acquire(context.Background(), Reference{Kind: ReferenceVideoID, Value: "dQw4w9WgXcQ"}, NamedSongAudio("140", "MySong"))
	if seenOpts.AudioTranscodeExt != "mp3" {
		t.Fatalf("expected mp3 transcode directive, got %q", seenOpts.AudioTranscodeExt)
	}
	if seenOpts.TitleOverride != "MySong" {
		t.Fatalf("expected title override, got %q", seenOpts.TitleOverride)
	}
	if seenOpts.Format != "140" {
		t.Fatalf("expected pinned format, got %q", seenOpts.Format)
	}
}

type gatedDirectResolver struct {
	active int32
	peak   int32
	gate   chan struct{}
}

func (r *gatedDirectResolver) ResolveURL(ctx context.Context, target string) (string, error) {
	n := atomic.AddInt32(&r.active, 1)
	for {
		p := atomic.LoadInt32(&r.peak)
		if n <= p || atomic.CompareAndSwapInt32(&r.peak, p, n) {
			break
		}
	}
	<-r.gate
	atomic.AddInt32(&r.active, -1)
	return "https://cdn.example.com/stream.mp4", nil
}

func TestAcquireDirectResolutionTakesPoolSlot(t *testing.T) {
	backend := &fakeExtractor{extract: func(call int, query string, opts ExtractorOptions, download bool) (*ExtractedItem, error) {
		t.Error("backend must not be called when direct resolution succeeds")
		return nil, nil
	}}
	direct := &gatedDirectResolver{gate: make(chan struct{})}
	o := NewOrchestrator(
		NopPacer{}, backend, NewWorkerPool(1), direct,
		func() bool { return true },
		nil, 15*time.Second,
	)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := o.Acquire(context.Background(), Reference{Kind: ReferenceVideoID, Value: "dQw4w9WgXcQ"}, VideoUpTo720())
			if !res.Succeeded || !res.IsDirect {
				t.Errorf("expected direct success, got %+v", res)
			}
		}()
	}
	time.Sleep(100 * time.Millisecond)
	close(direct.gate)
	wg.Wait()

	if p := atomic.LoadInt32(&direct.peak); p > 1 {
		t.Fatalf("expected at most 1 concurrent subprocess, saw %d", p)
	}
}

func TestDirectStreamURLSelectsFormatByMode(t *testing.T) {
	var seenFormat string
	var seenDownload bool
	backend := &fakeExtractor{extract: func(call int, query string, opts ExtractorOptions, download bool) (*ExtractedItem, error) {
		seenFormat = opts.Format
		seenDownload = download
		return &ExtractedItem{ID: "dQw4w9WgXcQ", StreamURL: "https://cdn.example.com/raw"}, nil
	}}
	o := newTestOrchestrator(backend, nil, false)
	ref := Reference{Kind: ReferenceVideoID, Value: "dQw4w9WgXcQ"}

	url, err := o.DirectStreamURL(context.Background(), ref, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "https://cdn.example.com/raw" {
		t.Fatalf("unexpected url %q", url)
	}
	if seenFormat != "bestaudio/best" {
		t.Fatalf("audio request must select bestaudio/best, got %q", seenFormat)
	}
	if seenDownload {
		t.Fatal("stream URL resolution must not download")
	}

	if _, err := o.DirectStreamURL(context.Background(), ref, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seenFormat != "best[height<=720]" {
		t.Fatalf("video request must cap height, got %q", seenFormat)
	}
}

func TestDirectStreamURLMissingURL(t *testing.T) {
	backend := &fakeExtractor{extract: func(call int, query string, opts ExtractorOptions, download bool) (*ExtractedItem, error) {
		return &ExtractedItem{ID: "dQw4w9WgXcQ"}, nil
	}}
	o := newTestOrchestrator(backend, nil, false)

	_, err := o.DirectStreamURL(context.Background(), Reference{Kind: ReferenceVideoID, Value: "dQw4w9WgXcQ"}, false)
	if err == nil {
		t.Fatal("expected error for missing stream URL")
	}
	if CategoryOf(err) != CategoryDirect {
		t.Fatalf("expected direct resolution category, got %q", CategoryOf(err))
	}
}

func TestDirectTarget(t *testing.T) {
	cases := []struct {
		ref  Reference
		want string
	}{
		{Reference{Kind: ReferenceVideoID, Value: "dQw4w9WgXcQ"}, "https://www.youtube.com/watch?v=dQw4w9WgXcQ"},
		{Reference{Kind: ReferenceDirectURL, Value: "https://youtu.be/x?a=1&b=2"}, "https://youtu.be/x?a=1"},
		{Reference{Kind: ReferenceSearchQuery, Value: "a song"}, "ytsearch:a song"},
	}
	for _, tc := range cases {
		if got := directTarget(tc.ref); got != tc.want {
			t.Errorf("directTarget(%+v): expected %q, got %q", tc.ref, tc.want, got)
		}
	}
}
