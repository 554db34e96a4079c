// Package firecrawl implements the workflow search and scrape providers on
// top of the Firecrawl v1 HTTP API.
package firecrawl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/mikeboe/toolscout/pkg/workflow"
)

const defaultBaseURL = "https://api.firecrawl.dev/v1"

// Client talks to the Firecrawl API. It implements both
// workflow.SearchProvider and workflow.ScrapeProvider.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewClient reads FIRECRAWL_API_KEY from the environment (loading .env first)
// and fails fast when it is missing.
func NewClient() (*Client, error) {
	_ = godotenv.Load()

	apiKey := os.Getenv("FIRECRAWL_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("FIRECRAWL_API_KEY is not set")
	}
	return NewClientWithKey(apiKey), nil
}

// NewClientWithKey builds a client with an explicit key.
func NewClientWithKey(apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{},
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
	}
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type searchResponse struct {
	Success bool `json:"success"`
	Data    []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
	} `json:"data"`
	Error string `json:"error,omitempty"`
}

// Search runs a web search. An empty result list is a valid response.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]workflow.SearchResult, error) {
	if limit <= 0 {
		limit = 5
	}

	var resp searchResponse
	if err := c.post(ctx, "/search", searchRequest{Query: query, Limit: limit}, &resp); err != nil {
		return nil, &workflow.SearchError{Query: query, Err: err}
	}
	if !resp.Success {
		return nil, &workflow.SearchError{Query: query, Err: fmt.Errorf("provider error: %s", resp.Error)}
	}

	results := make([]workflow.SearchResult, 0, len(resp.Data))
	for _, d := range resp.Data {
		results = append(results, workflow.SearchResult{
			Title:   d.Title,
			URL:     d.URL,
			Snippet: d.Description,
		})
	}
	return results, nil
}

type scrapeRequest struct {
	URL     string   `json:"url"`
	Formats []string `json:"formats"`
}

type scrapeResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Markdown string         `json:"markdown"`
		Metadata map[string]any `json:"metadata"`
	} `json:"data"`
	Error string `json:"error,omitempty"`
}

// Scrape fetches one URL as markdown.
func (c *Client) Scrape(ctx context.Context, url string) (*workflow.Page, error) {
	var resp scrapeResponse
	if err := c.post(ctx, "/scrape", scrapeRequest{URL: url, Formats: []string{"markdown"}}, &resp); err != nil {
		return nil, &workflow.ScrapeError{URL: url, Err: err}
	}
	if !resp.Success {
		return nil, &workflow.ScrapeError{URL: url, Err: fmt.Errorf("provider error: %s", resp.Error)}
	}
	if resp.Data.Markdown == "" {
		return nil, &workflow.ScrapeError{URL: url, Err: fmt.Errorf("no text content returned")}
	}

	return &workflow.Page{
		Markdown: resp.Data.Markdown,
		Metadata: resp.Data.Metadata,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make API request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API request failed with status %s: %s", resp.Status, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
