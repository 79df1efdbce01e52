package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Attachment
	}{
		{
			name:    "plain text",
			content: "hello there",
			want:    Attachment{Kind: KindText, Text: "hello there"},
		},
		{
			name:    "image",
			content: ImageContent("https://cdn.example/a.png"),
			want:    Attachment{Kind: KindImage, URL: "https://cdn.example/a.png"},
		},
		{
			name:    "audio",
			content: AudioContent("https://cdn.example/a.ogg"),
			want:    Attachment{Kind: KindAudio, URL: "https://cdn.example/a.ogg"},
		},
		{
			name:    "file with name",
			content: FileContent("https://cdn.example/doc.pdf", "report.pdf"),
			want:    Attachment{Kind: KindFile, URL: "https://cdn.example/doc.pdf", Name: "report.pdf"},
		},
		{
			name:    "file tag without separator falls back to text",
			content: "__file__:https://cdn.example/doc.pdf",
			want:    Attachment{Kind: KindText, Text: "__file__:https://cdn.example/doc.pdf"},
		},
		{
			name:    "file tag with empty url falls back to text",
			content: "__file__:|name-only",
			want:    Attachment{Kind: KindText, Text: "__file__:|name-only"},
		},
		{
			name:    "file name containing separators",
			content: FileContent("https://cdn.example/x", "a|b.txt"),
			want:    Attachment{Kind: KindFile, URL: "https://cdn.example/x", Name: "a|b.txt"},
		},
		{
			name:    "prefix must be at the start",
			content: "see __image__:https://cdn.example/a.png",
			want:    Attachment{Kind: KindText, Text: "see __image__:https://cdn.example/a.png"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseContent(tt.content))
		})
	}
}

func TestMessageFlags(t *testing.T) {
	now := time.Now()
	assert.False(t, Message{}.Deleted())
	assert.False(t, Message{}.Edited())
	assert.True(t, Message{DeletedAt: &now}.Deleted())
	assert.True(t, Message{EditedAt: &now}.Edited())
}

func TestConversationOther(t *testing.T) {
	conv := Conversation{ID: 1, Participants: []User{{ID: 1, Username: "me"}, {ID: 2, Username: "them"}}}

	other, ok := conv.Other(1)
	assert.True(t, ok)
	assert.Equal(t, "them", other.Username)

	// self-conversation falls back to the first participant
	solo := Conversation{ID: 2, Participants: []User{{ID: 1, Username: "me"}}}
	other, ok = solo.Other(1)
	assert.True(t, ok)
	assert.Equal(t, "me", other.Username)

	_, ok = Conversation{ID: 3}.Other(1)
	assert.False(t, ok)
}
