package pipeline

import (
	"math/rand"
	"time"
)

// Browser user agents rotated across attempts so retries do not present
// an identical fingerprint to the upstream.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.0.3 Safari/605.1.15",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 14_6 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.0 Mobile/15E148 Safari/604.1",
}

const defaultReferer = "https://www.youtube.com/"

// ExtractorOptions enumerates every knob a backend call recognizes.
// One value is built per attempt; the anti-detection fields are redrawn
// each time.
type ExtractorOptions struct {
	Format         string
	OutputTemplate string
	TitleOverride  string

	Quiet        bool
	NoWarnings   bool
	IgnoreErrors bool
	GeoBypass    bool
	ForceIPv4    bool

	SocketTimeout time.Duration
	Retries       int

	SkipVariants  []string
	PlayerClients []string

	UserAgent     string
	Referer       string
	ThrottledRate string
	SleepInterval time.Duration

	// AudioTranscodeExt asks the backend to re-encode the acquired
	// audio to this extension at extraction time (post-processor
	// directive, not a rename).
	AudioTranscodeExt string
}

type optionsBuilder struct {
	opts ExtractorOptions
}

// newOptionsBuilder seeds the shared anti-detection configuration:
// rotated user agent, forced IPv4, geo bypass, dash/hls skipped,
// throttled output, fresh sleep interval.
func newOptionsBuilder(socketTimeout time.Duration) *optionsBuilder {
	if socketTimeout <= 0 {
		socketTimeout = 15 * time.Second
	}
	return &optionsBuilder{opts: ExtractorOptions{
		Quiet:         true,
		NoWarnings:    true,
		IgnoreErrors:  true,
		GeoBypass:     true,
		ForceIPv4:     true,
		SocketTimeout: socketTimeout,
		Retries:       3,
		SkipVariants:  []string{"dash", "hls"},
		PlayerClients: []string{"android", "web"},
		UserAgent:     randomUserAgent(),
		Referer:       defaultReferer,
		ThrottledRate: "1M",
		SleepInterval: randomSleepInterval(),
	}}
}

func (b *optionsBuilder) Format(selector string) *optionsBuilder {
	b.opts.Format = selector
	return b
}

func (b *optionsBuilder) OutputTemplate(template string) *optionsBuilder {
	b.opts.OutputTemplate = template
	return b
}

func (b *optionsBuilder) TitleOverride(title string) *optionsBuilder {
	b.opts.TitleOverride = title
	return b
}

func (b *optionsBuilder) AudioTranscode(ext string) *optionsBuilder {
	b.opts.AudioTranscodeExt = ext
	return b
}

func (b *optionsBuilder) Build() ExtractorOptions {
	return b.opts
}

// DefaultOptions is the metadata-only option set callers outside the
// package use for ad hoc backend queries.
func DefaultOptions(socketTimeout time.Duration) ExtractorOptions {
	return newOptionsBuilder(socketTimeout).Format("best").Build()
}

func randomUserAgent() string {
	return userAgents[rand.Intn(len(userAgents))] //nolint:gosec
}

func randomSleepInterval() time.Duration {
	return time.Duration(1+rand.Intn(3)) * time.Second //nolint:gosec
}
