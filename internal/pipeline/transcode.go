package pipeline

import (
	"os/exec"
	"path/filepath"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

func ffmpegAvailable() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}

// transcodeAudio re-encodes an audio file to the codec implied by the
// output extension.
func transcodeAudio(inputPath, outputPath string) error {
	ext := strings.ToLower(filepath.Ext(outputPath))
	kwargs := ffmpeg.KwArgs{"vn": ""}

	switch ext {
	case ".mp3":
		kwargs["acodec"] = "libmp3lame"
		kwargs["q:a"] = "2"
	case ".m4a", ".aac":
		kwargs["acodec"] = "aac"
		kwargs["b:a"] = "192k"
	case ".opus", ".webm":
		kwargs["acodec"] = "libopus"
		kwargs["b:a"] = "160k"
	default:
		kwargs["acodec"] = "copy"
	}

	return ffmpeg.Input(inputPath).
		Output(outputPath, kwargs).
		OverWriteOutput().
		Silent(true).
		Run()
}

// mergeStreams muxes a video-only stream and an audio-only stream into
// one container without re-encoding.
func mergeStreams(videoPath, audioPath, outputPath string) error {
	videoIn := ffmpeg.Input(videoPath)
	audioIn := ffmpeg.Input(audioPath)
	return ffmpeg.Output(
		[]*ffmpeg.Stream{videoIn, audioIn},
		outputPath,
		ffmpeg.KwArgs{"c:v": "copy", "c:a": "aac", "b:a": "192k"},
	).
		OverWriteOutput().
		Silent(true).
		Run()
}
