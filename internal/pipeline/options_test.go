package pipeline

import (
	"testing"
	"time"
)

func TestOptionsBuilderDefaults(t *testing.T) {
	opts := newOptionsBuilder(20 * time.Second).Format("bestaudio/best").Build()

	if opts.Format != "bestaudio/best" {
		t.Fatalf("unexpected format %q", opts.Format)
	}
	if !opts.Quiet || !opts.NoWarnings || !opts.IgnoreErrors {
		t.Fatal("quiet flags must default on")
	}
	if !opts.GeoBypass || !opts.ForceIPv4 {
		t.Fatal("geo bypass and IPv4 must default on")
	}
	if opts.SocketTimeout != 20*time.Second {
		t.Fatalf("unexpected socket timeout %v", opts.SocketTimeout)
	}
	if opts.Retries != 3 {
		t.Fatalf("unexpected retries %d", opts.Retries)
	}
	if len(opts.SkipVariants) != 2 || opts.SkipVariants[0] != "dash" || opts.SkipVariants[1] != "hls" {
		t.Fatalf("dash and hls must be skipped, got %v", opts.SkipVariants)
	}
	if opts.ThrottledRate != "1M" {
		t.Fatalf("unexpected throttled rate %q", opts.ThrottledRate)
	}
	if opts.Referer == "" {
		t.Fatal("referer must be set")
	}
}

func TestOptionsBuilderZeroTimeoutDefaults(t *testing.T) {
	opts := newOptionsBuilder(0).Build()
	if opts.SocketTimeout != 15*time.Second {
		t.Fatalf("expected 15s default, got %v", opts.SocketTimeout)
	}
}

func TestRandomUserAgentFromKnownSet(t *testing.T) {
	for i := 0; i < 20; i++ {
		agent := randomUserAgent()
		found := false
		for _, known := range userAgents {
			if agent == known {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("unknown user agent %q", agent)
		}
	}
}

func TestRandomSleepIntervalBounds(t *testing.T) {
	for i := 0; i < 50; i++ {
		d := randomSleepInterval()
		if d < time.Second || d > 3*time.Second {
			t.Fatalf("sleep interval %v outside [1s, 3s]", d)
		}
	}
}

func TestOptionsBuilderTranscodeDirective(t *testing.T) {
	opts := newOptionsBuilder(0).AudioTranscode("mp3").Build()
	if opts.AudioTranscodeExt != "mp3" {
		t.Fatalf("unexpected transcode ext %q", opts.AudioTranscodeExt)
	}
}
