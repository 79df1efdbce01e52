// Package rest wraps the chat server's HTTP API. Every call is a thin typed
// request/response pair; transport failures and server error envelopes come
// back as plain errors for the caller to surface.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"chat-client/models"
)

type Client struct {
	baseURL string
	token   string
	http    *http.Client

	// MaxMessageLength bounds outgoing text content, mirroring the server's
	// limit so oversized sends fail fast without a round trip.
	MaxMessageLength int
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL:          baseURL,
		token:            token,
		http:             &http.Client{Timeout: 30 * time.Second},
		MaxMessageLength: 1000,
	}
}

// SetToken swaps the bearer credential, used right after login.
func (c *Client) SetToken(token string) {
	c.token = token
}

// errorResponse is the server's error envelope.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// successResponse is the server's success envelope; Data is decoded per call.
type successResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		var errResp errorResponse
		json.Unmarshal(respBody, &errResp)
		if errResp.Error == "" {
			return fmt.Errorf("server error %d", resp.StatusCode)
		}
		if errResp.Message != "" {
			return fmt.Errorf("%s: %s", errResp.Error, errResp.Message)
		}
		return errors.New(errResp.Error)
	}

	if out == nil {
		return nil
	}
	var envelope successResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("bad response: %w", err)
	}
	return json.Unmarshal(envelope.Data, out)
}

// AuthResult is the outcome of Register and Login.
type AuthResult struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func (c *Client) Register(ctx context.Context, username, password string) (*AuthResult, error) {
	req := map[string]string{"username": username, "password": password}
	var res AuthResult
	if err := c.do(ctx, http.MethodPost, "/api/register", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	if username == "" || password == "" {
		return nil, errors.New("username and password are required")
	}
	req := map[string]string{"username": username, "password": password}
	var res AuthResult
	if err := c.do(ctx, http.MethodPost, "/api/login", req, &res); err != nil {
		return nil, err
	}
	c.token = res.Token
	return &res, nil
}

// Conversations lists the signed-in user's conversations with their cached
// last-message previews.
func (c *Client) Conversations(ctx context.Context) ([]models.Conversation, error) {
	var convs []models.Conversation
	if err := c.do(ctx, http.MethodGet, "/api/conversations", nil, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

// Messages fetches the full message list of a conversation. This backs both
// the initial load and the polling fallback.
func (c *Client) Messages(ctx context.Context, conversationID int64) ([]models.Message, error) {
	path := "/api/messages?conversationId=" + strconv.FormatInt(conversationID, 10)
	var msgs []models.Message
	if err := c.do(ctx, http.MethodGet, path, nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// SendMessage posts a new message and returns the server-assigned entry.
func (c *Client) SendMessage(ctx context.Context, conversationID int64, content string, replyToID *int64) (*models.Message, error) {
	if content == "" {
		return nil, errors.New("empty content")
	}
	if len(content) > c.MaxMessageLength {
		return nil, errors.New("message too long (max " + strconv.Itoa(c.MaxMessageLength) + " characters)")
	}

	req := map[string]any{
		"conversation_id": conversationID,
		"content":         content,
		"reply_to_id":     replyToID,
	}
	var msg models.Message
	if err := c.do(ctx, http.MethodPost, "/api/messages", req, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
