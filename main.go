package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lvcoi/playfetch/internal/app"
	"github.com/lvcoi/playfetch/internal/config"
	"github.com/lvcoi/playfetch/internal/pipeline"
)

func main() {
	var (
		configPath    string
		audio         bool
		video         bool
		formatID      string
		title         string
		metadataOnly  bool
		urlOnly       bool
		listFormats   bool
		playlistLimit int
		jobs          int
		jsonOut       bool
		quiet         bool
		logLevel      string
		directLink    bool
	)

	flag.StringVar(&configPath, "config", "", "path to JSON config file")
	flag.BoolVar(&audio, "audio", false, "acquire best available audio")
	flag.BoolVar(&video, "video", false, "acquire best video up to 720p")
	flag.StringVar(&formatID, "format-id", "", "exact format id (implies -title naming)")
	flag.StringVar(&title, "title", "", "output title for -format-id acquisitions")
	flag.BoolVar(&metadataOnly, "info", false, "resolve metadata as JSON without acquiring")
	flag.BoolVar(&urlOnly, "url", false, "print the raw stream URL without downloading")
	flag.BoolVar(&listFormats, "list-formats", false, "pick a format interactively and print its id")
	flag.IntVar(&playlistLimit, "playlist-limit", 25, "maximum playlist entries to expand")
	flag.IntVar(&jobs, "jobs", 1, "number of concurrent references")
	flag.BoolVar(&jsonOut, "json", false, "emit JSON output")
	flag.BoolVar(&quiet, "quiet", false, "suppress informational output")
	flag.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	flag.BoolVar(&directLink, "direct-link", false, "prefer direct stream URLs for video acquisitions")
	flag.Parse()

	refs := flag.Args()
	if len(refs) == 0 {
		err := pipeline.CategorizedError{Category: pipeline.CategoryInvalidInput, Err: errors.New("no reference provided")}
		if jsonOut {
			writeJSONError("", err)
		} else {
			fmt.Fprintf(os.Stderr, "usage: %s [options] <url|id|query> [...]\n", os.Args[0])
			flag.PrintDefaults()
		}
		os.Exit(pipeline.ExitCode(err))
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
	if directLink {
		cfg.DirectLink = true
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if jsonOut {
		quiet = true
	}

	printer := pipeline.NewPrinter(os.Stderr, pipeline.ParseLogLevel(cfg.LogLevel), quiet)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := app.BuildPipeline(cfg, printer)

	if listFormats {
		os.Exit(runListFormats(ctx, p, refs[0], cfg, printer))
	}

	mode, err := selectMode(audio, video, formatID, title)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	if urlOnly {
		os.Exit(runStreamURL(ctx, p, refs[0], !video, jsonOut))
	}

	results, exitCode := app.Run(ctx, refs, p, app.Options{
		Mode:          mode,
		MetadataOnly:  metadataOnly,
		PlaylistLimit: playlistLimit,
		Jobs:          jobs,
	})

	var ok, failed int
	var totalBytes int64
	for i, res := range results {
		if jsonOut {
			writeJSON(res)
			continue
		}
		prefix := printer.Prefix(i+1, len(results), itemTitle(res))
		if res.Err != nil {
			failed++
			printer.ItemResult(prefix, "", 0, res.Err)
			continue
		}
		ok++
		switch {
		case metadataOnly:
			writeJSON(res.Meta)
		case res.IsDirect:
			fmt.Println(res.Location)
		default:
			bytes := fileSize(res.Location)
			totalBytes += bytes
			printer.ItemResult(prefix, res.Location, bytes, nil)
		}
	}
	if !jsonOut && !metadataOnly {
		printer.Summary(len(results), ok, failed, totalBytes)
	}

	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

func selectMode(audio, video bool, formatID, title string) (pipeline.AcquisitionMode, error) {
	switch {
	case formatID != "" && title == "":
		return pipeline.AcquisitionMode{}, errors.New("-format-id requires -title")
	case formatID != "" && video:
		return pipeline.NamedSongVideo(formatID, title), nil
	case formatID != "":
		return pipeline.NamedSongAudio(formatID, title), nil
	case video:
		return pipeline.VideoUpTo720(), nil
	case audio:
		return pipeline.AudioOnly(), nil
	default:
		return pipeline.AudioOnly(), nil
	}
}

func itemTitle(res app.Result) string {
	if res.Meta.Title != "" {
		return res.Meta.Title
	}
	return res.Ref
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

func runStreamURL(ctx context.Context, p app.Pipeline, ref string, audioOnly, jsonOut bool) int {
	url, err := p.Orchestrator.DirectStreamURL(ctx, pipeline.Classify(ref), audioOnly)
	if err != nil {
		if jsonOut {
			writeJSONError(ref, err)
		} else {
			fmt.Fprintf(os.Stderr, "error: %s: %v\n", ref, err)
		}
		return pipeline.ExitCode(err)
	}
	if jsonOut {
		writeJSON(struct {
			Ref string `json:"ref"`
			URL string `json:"url"`
		}{Ref: ref, URL: url})
	} else {
		fmt.Println(url)
	}
	return 0
}

func runListFormats(ctx context.Context, p app.Pipeline, ref string, cfg config.Config, printer *pipeline.Printer) int {
	meta := p.Resolver.Resolve(ctx, pipeline.Classify(ref))
	if meta.IsSentinel() {
		fmt.Fprintf(os.Stderr, "error: could not resolve %q\n", ref)
		return 3
	}
	backend := pipeline.NewYouTubeBackend(cfg.DownloadDir, nil, printer)
	formats, err := backend.ListFormats(ctx, meta.VideoID, pipeline.DefaultOptions(cfg.SocketTimeout()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return pipeline.ExitCode(err)
	}
	itag, err := pipeline.RunFormatPicker(meta.Title, formats)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	if itag == 0 {
		return 0
	}
	fmt.Println(itag)
	return 0
}

func writeJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeJSONError(ref string, err error) {
	payload := struct {
		Type     string `json:"type"`
		Ref      string `json:"ref,omitempty"`
		Category string `json:"category"`
		Error    string `json:"error"`
	}{
		Type:     "error",
		Ref:      ref,
		Category: string(pipeline.CategoryOf(err)),
		Error:    err.Error(),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}
