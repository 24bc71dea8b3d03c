package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	id3v2 "github.com/bogem/id3v2/v2"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// embedAudioTags writes resolved metadata into the acquired audio file.
// Tagging is best effort; failures are logged and never fail the
// acquisition.
func embedAudioTags(meta Metadata, outputPath string, printer *Printer) {
	if outputPath == "" || meta.IsSentinel() {
		return
	}
	ext := strings.ToLower(filepath.Ext(outputPath))
	switch ext {
	case ".mp3":
		if err := embedID3Tags(meta, outputPath); err != nil {
			printer.Log(LogWarn, fmt.Sprintf("metadata tag embedding failed: %v", err))
		}
	case ".m4a", ".mp4", ".webm", ".opus", ".ogg":
		if err := embedContainerTags(meta, outputPath); err != nil {
			printer.Log(LogWarn, fmt.Sprintf("metadata embedding failed for %s: %v", ext, err))
		}
	}
}

func embedID3Tags(meta Metadata, outputPath string) error {
	tag, err := id3v2.Open(outputPath, id3v2.Options{Parse: true})
	if err != nil {
		return err
	}
	defer tag.Close()

	if meta.Title != "" {
		tag.SetTitle(meta.Title)
	}
	if meta.Author != "" {
		tag.SetArtist(meta.Author)
	}
	return tag.Save()
}

// embedContainerTags remuxes the file with metadata for containers that
// do not carry ID3.
func embedContainerTags(meta Metadata, outputPath string) error {
	tmpPath := filepath.Join(filepath.Dir(outputPath), ".tagged_"+filepath.Base(outputPath))
	kwargs := ffmpeg.KwArgs{"c": "copy"}
	metadata := make([]string, 0, 2)
	if meta.Title != "" {
		metadata = append(metadata, "title="+meta.Title)
	}
	if meta.Author != "" {
		metadata = append(metadata, "artist="+meta.Author)
	}
	if len(metadata) == 0 {
		return nil
	}
	kwargs["metadata"] = metadata

	err := ffmpeg.Input(outputPath).
		Output(tmpPath, kwargs).
		OverWriteOutput().
		Silent(true).
		Run()
	if err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, outputPath); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
