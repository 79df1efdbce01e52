package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-client/models"
)

func envelope(t *testing.T, data any) []byte {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	out, err := json.Marshal(map[string]any{"success": true, "data": json.RawMessage(raw)})
	require.NoError(t, err)
	return out
}

func TestMessagesSendsTokenAndQuery(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/messages", r.URL.Path)
		assert.Equal(t, "42", r.URL.Query().Get("conversationId"))
		assert.Equal(t, "tok-123", r.Header.Get("Authorization"))
		w.Write(envelope(t, []models.Message{
			{ID: 1, ConversationID: 42, SenderID: 7, Content: "hi", CreatedAt: created},
		}))
	}))
	defer srv.Close()

	msgs, err := New(srv.URL, "tok-123").Messages(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi", msgs[0].Content)
	assert.True(t, msgs[0].CreatedAt.Equal(created))
}

func TestSendMessageValidation(t *testing.T) {
	c := New("http://unused.invalid", "tok")
	c.MaxMessageLength = 10

	_, err := c.SendMessage(context.Background(), 1, "", nil)
	assert.EqualError(t, err, "empty content")

	_, err = c.SendMessage(context.Background(), 1, strings.Repeat("x", 11), nil)
	assert.ErrorContains(t, err, "message too long")
}

func TestSendMessagePostsPayload(t *testing.T) {
	replyTo := int64(4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var req struct {
			ConversationID int64  `json:"conversation_id"`
			Content        string `json:"content"`
			ReplyToID      *int64 `json:"reply_to_id"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(42), req.ConversationID)
		assert.Equal(t, "hello", req.Content)
		require.NotNil(t, req.ReplyToID)
		assert.Equal(t, replyTo, *req.ReplyToID)

		w.Write(envelope(t, models.Message{ID: 9, ConversationID: 42, Content: "hello", CreatedAt: time.Now()}))
	}))
	defer srv.Close()

	msg, err := New(srv.URL, "tok").SendMessage(context.Background(), 42, "hello", &replyTo)
	require.NoError(t, err)
	assert.Equal(t, int64(9), msg.ID)
}

func TestErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"Unauthorized","message":"Invalid token"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "bad").Friends(context.Background())
	assert.EqualError(t, err, "Unauthorized: Invalid token")
}

func TestErrorWithoutEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "tok").Conversations(context.Background())
	assert.EqualError(t, err, "server error 502")
}

func TestLoginStoresToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/login":
			w.Write(envelope(t, AuthResult{Token: "fresh-token", User: models.User{ID: 7, Username: "alice"}}))
		case "/api/settings":
			assert.Equal(t, "fresh-token", r.Header.Get("Authorization"))
			w.Write(envelope(t, models.Settings{Language: "en"}))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	res, err := c.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, "alice", res.User.Username)

	// subsequent calls carry the fresh credential
	s, err := c.Settings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "en", s.Language)
}

func TestMatchRequiresMood(t *testing.T) {
	_, err := New("http://unused.invalid", "tok").Match(context.Background(), "")
	assert.EqualError(t, err, "mood is required")
}

func TestUploadMultipart(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/pic.png"
	require.NoError(t, os.WriteFile(path, []byte("png-bytes"), 0600))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/upload", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		f, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "pic.png", header.Filename)
		w.Write(envelope(t, map[string]string{"url": "https://cdn.example/pic.png"}))
	}))
	defer srv.Close()

	url, err := New(srv.URL, "tok").Upload(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/pic.png", url)
}
