package models

import (
	"strings"
	"time"
)

type Message struct {
	ID             int64      `json:"id"`
	ConversationID int64      `json:"conversation_id"`
	SenderID       int64      `json:"sender_id"`
	Content        string     `json:"content"`
	CreatedAt      time.Time  `json:"created_at"`
	EditedAt       *time.Time `json:"edited_at,omitempty"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty"`
	// optional back-reference to another message in the same conversation
	ReplyToID *int64 `json:"reply_to_id,omitempty"`
}

// Deleted reports whether the message has been soft-deleted. Deleted
// messages stay in the list so the UI can render a placeholder.
func (m Message) Deleted() bool {
	return m.DeletedAt != nil
}

// Edited reports whether the content was modified after creation.
func (m Message) Edited() bool {
	return m.EditedAt != nil
}

// Content tag prefixes for non-text payloads. The server stores these as
// plain strings; only the client interprets them.
const (
	imagePrefix = "__image__:"
	audioPrefix = "__audio__:"
	filePrefix  = "__file__:"
)

type ContentKind int

const (
	KindText ContentKind = iota
	KindImage
	KindAudio
	KindFile
)

// Attachment is the decoded form of a tagged content string.
type Attachment struct {
	Kind ContentKind
	URL  string
	Name string
	Text string
}

func ImageContent(url string) string {
	return imagePrefix + url
}

func AudioContent(url string) string {
	return audioPrefix + url
}

func FileContent(url, name string) string {
	return filePrefix + url + "|" + name
}

// ParseContent decodes a tagged content string. Anything without a known
// prefix is plain text, including malformed file tags missing the url part.
func ParseContent(content string) Attachment {
	switch {
	case strings.HasPrefix(content, imagePrefix):
		return Attachment{Kind: KindImage, URL: strings.TrimPrefix(content, imagePrefix)}
	case strings.HasPrefix(content, audioPrefix):
		return Attachment{Kind: KindAudio, URL: strings.TrimPrefix(content, audioPrefix)}
	case strings.HasPrefix(content, filePrefix):
		rest := strings.TrimPrefix(content, filePrefix)
		url, name, ok := strings.Cut(rest, "|")
		if !ok || url == "" {
			return Attachment{Kind: KindText, Text: content}
		}
		return Attachment{Kind: KindFile, URL: url, Name: name}
	default:
		return Attachment{Kind: KindText, Text: content}
	}
}
