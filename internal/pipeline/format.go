package pipeline

import "fmt"

type modeKind int

const (
	modeAudioOnly modeKind = iota
	modeVideoUpTo720
	modeNamedSongAudio
	modeNamedSongVideo
)

// AcquisitionMode determines both the backend format selector string
// and the output filename template. Constructed once per request,
// immutable.
type AcquisitionMode struct {
	kind     modeKind
	formatID string
	title    string
}

// AudioOnly requests the best available audio-only stream.
func AudioOnly() AcquisitionMode {
	return AcquisitionMode{kind: modeAudioOnly}
}

// VideoUpTo720 requests the best audio+video combination capped at
// 720p.
func VideoUpTo720() AcquisitionMode {
	return AcquisitionMode{kind: modeVideoUpTo720}
}

// NamedSongAudio requests an exact audio format id, saved under the
// requested title.
func NamedSongAudio(formatID, title string) AcquisitionMode {
	return AcquisitionMode{kind: modeNamedSongAudio, formatID: formatID, title: title}
}

// NamedSongVideo requests an exact video format id merged with the best
// audio, saved as mp4 under the requested title.
func NamedSongVideo(formatID, title string) AcquisitionMode {
	return AcquisitionMode{kind: modeNamedSongVideo, formatID: formatID, title: title}
}

// FormatSelector maps the mode to the backend format-selector string.
func (m AcquisitionMode) FormatSelector() string {
	switch m.kind {
	case modeAudioOnly:
		return "bestaudio/best"
	case modeVideoUpTo720:
		return "best[height<=720]"
	case modeNamedSongAudio:
		return m.formatID
	case modeNamedSongVideo:
		return m.formatID + "+bestaudio"
	default:
		return "best"
	}
}

// OutputTemplate maps the mode to the output filename template.
func (m AcquisitionMode) OutputTemplate() string {
	switch m.kind {
	case modeNamedSongAudio:
		return "{title}.{ext}"
	case modeNamedSongVideo:
		return "{title}.mp4"
	default:
		return "{id}.{ext}"
	}
}

// TitleOverride is the requested title for the named-song modes; empty
// otherwise.
func (m AcquisitionMode) TitleOverride() string {
	if m.RequestsExactFormat() {
		return m.title
	}
	return ""
}

// ProducesAudio reports whether the acquired asset is an audio file.
func (m AcquisitionMode) ProducesAudio() bool {
	return m.kind == modeAudioOnly || m.kind == modeNamedSongAudio
}

// IsVideoUpTo720 reports whether the mode is eligible for direct-link
// passthrough.
func (m AcquisitionMode) IsVideoUpTo720() bool {
	return m.kind == modeVideoUpTo720
}

// RequestsExactFormat reports whether the mode pins a specific format
// id instead of a quality heuristic.
func (m AcquisitionMode) RequestsExactFormat() bool {
	return m.kind == modeNamedSongAudio || m.kind == modeNamedSongVideo
}

func (m AcquisitionMode) String() string {
	switch m.kind {
	case modeAudioOnly:
		return "audio"
	case modeVideoUpTo720:
		return "video<=720p"
	case modeNamedSongAudio:
		return fmt.Sprintf("song-audio(%s)", m.formatID)
	case modeNamedSongVideo:
		return fmt.Sprintf("song-video(%s)", m.formatID)
	default:
		return "unknown"
	}
}
