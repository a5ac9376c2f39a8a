package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type ClientOptions struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	APIVersion string
	UserAgent  string
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// Client talks to the Notion REST API. Retries are limited to transient
// failures (network errors, 429 and 5xx responses) and honor Retry-After.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	apiVersion string
	userAgent  string
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

func NewClient(opts ClientOptions) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.notion.com"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	apiVersion := strings.TrimSpace(opts.APIVersion)
	if apiVersion == "" {
		apiVersion = "2022-06-28"
	}
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	baseDelay := opts.BaseDelay
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}
	maxDelay := opts.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 2 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		token:      strings.TrimSpace(opts.Token),
		httpClient: httpClient,
		apiVersion: apiVersion,
		userAgent:  strings.TrimSpace(opts.UserAgent),
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		maxDelay:   maxDelay,
	}
}

type queryResponse struct {
	Results    []Page  `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor"`
}

// Query returns every non-archived page of a database, following pagination
// cursors until the store reports no more results.
func (c *Client) Query(ctx context.Context, databaseID string) ([]Page, error) {
	var pages []Page
	cursor := ""
	for {
		body := map[string]any{"page_size": 100}
		if cursor != "" {
			body["start_cursor"] = cursor
		}
		var out queryResponse
		if err := c.doJSON(ctx, http.MethodPost, "/v1/databases/"+databaseID+"/query", body, &out); err != nil {
			return nil, err
		}
		for _, page := range out.Results {
			if page.Archived {
				continue
			}
			pages = append(pages, page)
		}
		if !out.HasMore || out.NextCursor == nil || *out.NextCursor == "" {
			return pages, nil
		}
		cursor = *out.NextCursor
	}
}

// Create adds a page to a database with the given properties.
func (c *Client) Create(ctx context.Context, databaseID string, properties map[string]any) (Page, error) {
	body := map[string]any{
		"parent":     map[string]any{"database_id": databaseID},
		"properties": properties,
	}
	var out Page
	err := c.doJSON(ctx, http.MethodPost, "/v1/pages", body, &out)
	return out, err
}

// Update replaces the given properties on an existing page.
func (c *Client) Update(ctx context.Context, pageID string, properties map[string]any) (Page, error) {
	body := map[string]any{"properties": properties}
	var out Page
	err := c.doJSON(ctx, http.MethodPatch, "/v1/pages/"+pageID, body, &out)
	return out, err
}

// Archive soft-deletes a page. The page persists but is excluded from
// subsequent queries.
func (c *Client) Archive(ctx context.Context, pageID string) error {
	body := map[string]any{"archived": true}
	return c.doJSON(ctx, http.MethodPatch, "/v1/pages/"+pageID, body, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	if c.token == "" {
		return fmt.Errorf("notion token is empty")
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return err
	}
	url := c.baseURL + path

	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(bodyBytes))
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Notion-Version", c.apiVersion)
		if c.userAgent != "" {
			req.Header.Set("User-Agent", c.userAgent)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if attempt < c.maxRetries {
				if waitErr := sleepContext(ctx, c.retryDelay(attempt+1, "")); waitErr != nil {
					return waitErr
				}
				continue
			}
			return err
		}

		respBody, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return readErr
		}
		if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
			if out == nil || len(respBody) == 0 {
				return nil
			}
			return json.Unmarshal(respBody, out)
		}

		if (resp.StatusCode == http.StatusTooManyRequests || (resp.StatusCode >= 500 && resp.StatusCode <= 599)) && attempt < c.maxRetries {
			if waitErr := sleepContext(ctx, c.retryDelay(attempt+1, resp.Header.Get("Retry-After"))); waitErr != nil {
				return waitErr
			}
			continue
		}

		errCode := ""
		errMessage := strings.TrimSpace(string(respBody))
		var parsed map[string]any
		if json.Unmarshal(respBody, &parsed) == nil {
			if code, ok := parsed["code"].(string); ok {
				errCode = code
			}
			if message, ok := parsed["message"].(string); ok && strings.TrimSpace(message) != "" {
				errMessage = message
			}
		}
		if errCode != "" {
			return fmt.Errorf("notion %s %s failed: status=%d code=%s message=%s", method, path, resp.StatusCode, errCode, errMessage)
		}
		return fmt.Errorf("notion %s %s failed: status=%d message=%s", method, path, resp.StatusCode, errMessage)
	}
}

func (c *Client) retryDelay(attempt int, retryAfterHeader string) time.Duration {
	if retryAfter := parseRetryAfterSeconds(retryAfterHeader); retryAfter > 0 {
		if retryAfter > c.maxDelay {
			return c.maxDelay
		}
		return retryAfter
	}
	delay := c.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= c.maxDelay {
			return c.maxDelay
		}
	}
	if delay > c.maxDelay {
		return c.maxDelay
	}
	return delay
}

func parseRetryAfterSeconds(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
