package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultGistAPIURL = "https://api.github.com/gists"
	gistTimeout       = 15 * time.Second
)

// GistBlob stores the document as one file of a GitHub Gist
type GistBlob struct {
	gistID      string
	githubToken string
	filename    string
	apiURL      string
	httpClient  *http.Client
}

// GistOption customizes a GistBlob
type GistOption func(*GistBlob)

// WithGistAPIURL points the blob at a different Gist API endpoint
func WithGistAPIURL(url string) GistOption {
	return func(g *GistBlob) {
		g.apiURL = strings.TrimSuffix(url, "/")
	}
}

// WithGistHTTPClient replaces the default HTTP client
func WithGistHTTPClient(c *http.Client) GistOption {
	return func(g *GistBlob) {
		g.httpClient = c
	}
}

// WithGistFilename changes the file name used inside the gist
func WithGistFilename(name string) GistOption {
	return func(g *GistBlob) {
		g.filename = name
	}
}

// NewGistBlob creates a Gist-backed blob
func NewGistBlob(gistID, githubToken string, opts ...GistOption) (*GistBlob, error) {
	if gistID == "" {
		return nil, fmt.Errorf("gist ID is required")
	}
	if githubToken == "" {
		return nil, fmt.Errorf("GitHub token is required")
	}

	g := &GistBlob{
		gistID:      gistID,
		githubToken: githubToken,
		filename:    DefaultBlobName,
		apiURL:      DefaultGistAPIURL,
		httpClient: &http.Client{
			Timeout: gistTimeout,
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

func (g *GistBlob) newRequest(ctx context.Context, method, url string, body []byte) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("token %s", g.githubToken))
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// Load fetches the gist and returns the content of the configured file.
// A gist without that file yields ErrNotExist.
func (g *GistBlob) Load(ctx context.Context) ([]byte, error) {
	req, err := g.newRequest(ctx, http.MethodGet, g.apiURL+"/"+g.gistID, nil)
	if err != nil {
		return nil, err
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching gist: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Don't include response body in error to prevent information leakage
		return nil, fmt.Errorf("GitHub API error (status %d)", resp.StatusCode)
	}

	var gistResp struct {
		Files map[string]*struct {
			Content   string `json:"content"`
			Truncated bool   `json:"truncated"`
			RawURL    string `json:"raw_url"`
		} `json:"files"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&gistResp); err != nil {
		return nil, fmt.Errorf("decoding gist response: %w", err)
	}

	file, exists := gistResp.Files[g.filename]
	if !exists || file == nil {
		return nil, ErrNotExist
	}

	// The API truncates large files; the full content is at raw_url
	if file.Truncated && file.RawURL != "" {
		return g.fetchRaw(ctx, file.RawURL)
	}

	return []byte(file.Content), nil
}

func (g *GistBlob) fetchRaw(ctx context.Context, url string) ([]byte, error) {
	req, err := g.newRequest(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching raw gist file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GitHub raw content error (status %d)", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading raw gist file: %w", err)
	}
	return data, nil
}

// Save replaces the file content in the gist
func (g *GistBlob) Save(ctx context.Context, data []byte) error {
	payload := map[string]interface{}{
		"files": map[string]interface{}{
			g.filename: map[string]string{
				"content": string(data),
			},
		},
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}

	req, err := g.newRequest(ctx, http.MethodPatch, g.apiURL+"/"+g.gistID, payloadBytes)
	if err != nil {
		return err
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("updating gist: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GitHub API error (status %d)", resp.StatusCode)
	}

	return nil
}

// CreateGist creates a new private gist holding an empty event collection
// and returns its ID
func CreateGist(ctx context.Context, githubToken, description string, opts ...GistOption) (string, error) {
	if githubToken == "" {
		return "", fmt.Errorf("GitHub token is required")
	}

	// placeholder ID; only the options and token matter for creation
	g, err := NewGistBlob("new", githubToken, opts...)
	if err != nil {
		return "", err
	}

	payload := map[string]interface{}{
		"description": description,
		"public":      false,
		"files": map[string]interface{}{
			g.filename: map[string]string{
				"content": "[]",
			},
		},
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshaling payload: %w", err)
	}

	req, err := g.newRequest(ctx, http.MethodPost, g.apiURL, payloadBytes)
	if err != nil {
		return "", err
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("creating gist: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("GitHub API error (status %d)", resp.StatusCode)
	}

	var gistResp struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&gistResp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	return gistResp.ID, nil
}
