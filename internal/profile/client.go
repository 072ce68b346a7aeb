// Package profile is the narrow client for the downstream profile and
// avatar storage service. Every failure surfaces as a BackendError.
package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const requestTimeout = 15 * time.Second

// BackendError is the single error type reported for any downstream
// profile service failure.
type BackendError struct {
	Message string
}

func (e *BackendError) Error() string {
	return e.Message
}

func backendErrorf(format string, args ...any) *BackendError {
	return &BackendError{Message: fmt.Sprintf(format, args...)}
}

// Profile is the stored user profile as returned by the backend.
type Profile struct {
	UserID        string    `json:"user_id"`
	DisplayName   string    `json:"display_name"`
	PendingPrompt string    `json:"pending_prompt"`
	AvatarURL     string    `json:"avatar_url,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Seed carries the initial fields for a newly created profile.
type Seed struct {
	DisplayName string `json:"display_name"`
}

// Patch is a partial profile update. Nil fields are left untouched.
type Patch struct {
	DisplayName   *string `json:"display_name,omitempty"`
	PendingPrompt *string `json:"pending_prompt,omitempty"`
}

// Client talks to the profile service over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	healthPath string
	logger     *slog.Logger
	httpClient *http.Client
}

// NewClient builds a profile client for the given service base URL.
func NewClient(baseURL, apiKey, healthPath string, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		healthPath: healthPath,
		logger:     logger,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// GetProfile fetches one profile. A missing profile is (nil, nil).
func (c *Client) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	resp, err := c.do(ctx, http.MethodGet, c.profilePath(userID), "", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	return decodeProfile(resp)
}

// CreateProfile creates a profile for the given user from the seed.
func (c *Client) CreateProfile(ctx context.Context, userID string, seed Seed) (*Profile, error) {
	payload := struct {
		UserID string `json:"user_id"`
		Seed
	}{UserID: userID, Seed: seed}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, backendErrorf("encode profile seed: %v", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/v1/profiles", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return decodeProfile(resp)
}

// UpdateProfile applies a partial update and returns the stored result.
func (c *Client) UpdateProfile(ctx context.Context, userID string, patch Patch) (*Profile, error) {
	body, err := json.Marshal(patch)
	if err != nil {
		return nil, backendErrorf("encode profile patch: %v", err)
	}

	resp, err := c.do(ctx, http.MethodPatch, c.profilePath(userID), "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return decodeProfile(resp)
}

// UploadAvatar stores an avatar image and returns its public URL.
func (c *Client) UploadAvatar(ctx context.Context, userID, filename string, file io.Reader) (string, error) {
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)

	part, err := writer.CreateFormFile("avatar", filename)
	if err != nil {
		return "", backendErrorf("build avatar upload: %v", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", backendErrorf("read avatar data: %v", err)
	}
	if err := writer.Close(); err != nil {
		return "", backendErrorf("build avatar upload: %v", err)
	}

	resp, err := c.do(ctx, http.MethodPost, c.profilePath(userID)+"/avatar", writer.FormDataContentType(), buf)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result struct {
		URL string `json:"url"`
	}
	if err := decodeBody(resp, &result); err != nil {
		return "", err
	}
	if result.URL == "" {
		return "", backendErrorf("avatar upload returned no url")
	}
	return result.URL, nil
}

// Health probes the service's health endpoint for doctor checks.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, c.healthPath, "", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode == http.StatusNotFound {
		return backendErrorf("health endpoint %s not found", c.healthPath)
	}
	return nil
}

func (c *Client) profilePath(userID string) string {
	return "/v1/profiles/" + url.PathEscape(userID)
}

// do sends one request and normalizes transport and status failures
// into BackendError. Callers own the response body on success and on
// 404, which GetProfile treats as absence.
func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, backendErrorf("build %s %s: %v", method, path, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, backendErrorf("profile service unreachable: %v", err)
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return resp, nil
	}
	if method == http.MethodGet && resp.StatusCode == http.StatusNotFound {
		return resp, nil
	}

	detail := readErrorDetail(resp.Body)
	resp.Body.Close()
	if c.logger != nil {
		c.logger.Warn("profile service error",
			"method", method, "path", path,
			"status", resp.StatusCode, "detail", detail)
	}
	if detail != "" {
		return nil, backendErrorf("profile service: %s (status %d)", detail, resp.StatusCode)
	}
	return nil, backendErrorf("profile service returned status %d", resp.StatusCode)
}

func decodeProfile(resp *http.Response) (*Profile, error) {
	var p Profile
	if err := decodeBody(resp, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func decodeBody(resp *http.Response, out any) error {
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return backendErrorf("decode profile service response: %v", err)
	}
	return nil
}

// readErrorDetail extracts {"error": "..."} or falls back to raw text.
func readErrorDetail(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &payload) == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	text := strings.TrimSpace(string(raw))
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}
