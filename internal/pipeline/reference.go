package pipeline

import (
	"regexp"
	"strings"
)

var (
	hostPattern      = regexp.MustCompile(`(?:youtube\.com|youtu\.be)`)
	videoIDRegex     = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	playlistURLRegex = regexp.MustCompile(`[?&]list=([A-Za-z0-9_-]{13,42})`)
)

// ReferenceKind tags the variant of a Reference.
type ReferenceKind int

const (
	ReferenceDirectURL ReferenceKind = iota
	ReferenceVideoID
	ReferenceSearchQuery
	ReferencePlaylistURL
)

func (k ReferenceKind) String() string {
	switch k {
	case ReferenceDirectURL:
		return "url"
	case ReferenceVideoID:
		return "video_id"
	case ReferenceSearchQuery:
		return "search"
	case ReferencePlaylistURL:
		return "playlist"
	default:
		return "unknown"
	}
}

// Reference is a user-supplied identifier of a media item. Exactly one
// variant is active; constructed once per request and never mutated.
type Reference struct {
	Kind  ReferenceKind
	Value string
}

// Classify turns a raw string into a Reference. Strings matching the
// platform host pattern are URLs (playlist URLs when they carry a list
// parameter), bare 11-character ids are video ids, everything else is a
// search query.
func Classify(raw string) Reference {
	trimmed := strings.TrimSpace(raw)
	if hostPattern.MatchString(trimmed) {
		if playlistURLRegex.MatchString(trimmed) {
			return Reference{Kind: ReferencePlaylistURL, Value: trimmed}
		}
		return Reference{Kind: ReferenceDirectURL, Value: trimmed}
	}
	if videoIDRegex.MatchString(trimmed) {
		return Reference{Kind: ReferenceVideoID, Value: trimmed}
	}
	return Reference{Kind: ReferenceSearchQuery, Value: trimmed}
}

// EntityKind distinguishes plain URL spans from rich links carrying an
// embedded URL.
type EntityKind int

const (
	EntityPlainURL EntityKind = iota
	EntityRichLink
)

// MessageEntity is one formatted span of a chat message.
type MessageEntity struct {
	Kind   EntityKind
	Offset int
	Length int
	URL    string // set for EntityRichLink
}

// Message is the shape the chat collaborator hands us: body text or
// caption, ordered entities, and at most one replied-to message.
type Message struct {
	Text     string
	Caption  string
	Entities []MessageEntity
	ReplyTo  *Message
}

func (m *Message) body() string {
	if m.Text != "" {
		return m.Text
	}
	return m.Caption
}

// FromMessage extracts a Reference from a message, inspecting entities
// in declaration order and recursing once into the replied-to message.
func FromMessage(msg *Message) (Reference, bool) {
	return fromMessage(msg, 0)
}

func fromMessage(msg *Message, depth int) (Reference, bool) {
	if msg == nil || depth > 1 {
		return Reference{}, false
	}

	body := msg.body()
	for _, entity := range msg.Entities {
		switch entity.Kind {
		case EntityPlainURL:
			if entity.Offset < 0 || entity.Length <= 0 || entity.Offset+entity.Length > len(body) {
				continue
			}
			candidate := body[entity.Offset : entity.Offset+entity.Length]
			if hostPattern.MatchString(candidate) {
				return Classify(candidate), true
			}
		case EntityRichLink:
			if hostPattern.MatchString(entity.URL) {
				return Classify(entity.URL), true
			}
		}
	}

	if msg.ReplyTo != nil {
		return fromMessage(msg.ReplyTo, depth+1)
	}
	return Reference{}, false
}
