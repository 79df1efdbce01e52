package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"chat-client/models"
)

// Friends returns the accepted friend list with presence flags.
func (c *Client) Friends(ctx context.Context) ([]models.User, error) {
	var friends []models.User
	if err := c.do(ctx, http.MethodGet, "/api/friends", nil, &friends); err != nil {
		return nil, err
	}
	return friends, nil
}

// FriendRequests returns pending incoming requests.
func (c *Client) FriendRequests(ctx context.Context) ([]models.FriendRequest, error) {
	var reqs []models.FriendRequest
	if err := c.do(ctx, http.MethodGet, "/api/friends/requests", nil, &reqs); err != nil {
		return nil, err
	}
	return reqs, nil
}

func (c *Client) AddFriend(ctx context.Context, username string) error {
	if username == "" {
		return errors.New("username is required")
	}
	return c.do(ctx, http.MethodPost, "/api/friends", map[string]string{"username": username}, nil)
}

func (c *Client) AcceptFriend(ctx context.Context, requestID int64) error {
	path := "/api/friends/requests/" + strconv.FormatInt(requestID, 10) + "/accept"
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

func (c *Client) RemoveFriend(ctx context.Context, userID int64) error {
	path := "/api/friends/" + strconv.FormatInt(userID, 10)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// Match asks the server for a mood-based conversation partner. The returned
// conversation is already joined server-side.
func (c *Client) Match(ctx context.Context, mood string) (*models.Conversation, error) {
	if mood == "" {
		return nil, errors.New("mood is required")
	}
	var conv models.Conversation
	if err := c.do(ctx, http.MethodPost, "/api/match", map[string]string{"mood": mood}, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (c *Client) Settings(ctx context.Context) (*models.Settings, error) {
	var s models.Settings
	if err := c.do(ctx, http.MethodGet, "/api/settings", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) UpdateSettings(ctx context.Context, s models.Settings) error {
	return c.do(ctx, http.MethodPut, "/api/settings", s, nil)
}

// Upload pushes a local file to the server and returns its hosted URL, for
// wrapping into a tagged content string before sending.
func (c *Client) Upload(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	if c.token != "" {
		req.Header.Set("Authorization", c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 400 {
		var errResp errorResponse
		json.Unmarshal(respBody, &errResp)
		if errResp.Error != "" {
			return "", errors.New(errResp.Error)
		}
		return "", fmt.Errorf("upload failed with status %d", resp.StatusCode)
	}

	var envelope successResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return "", fmt.Errorf("bad response: %w", err)
	}
	var out struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(envelope.Data, &out); err != nil {
		return "", err
	}
	return out.URL, nil
}
