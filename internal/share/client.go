package share

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout bounds a single call to the share store.
const DefaultTimeout = 10 * time.Second

// PutRequest is the body of POST shares/put.
type PutRequest struct {
	Hash  string `json:"hash"`
	Title string `json:"title"`
	Blob  string `json:"blob"`
}

// ViewRequest is the body of POST shares/view.
type ViewRequest struct {
	Hash   string `json:"hash"`
	Title  string `json:"title"`
	Viewer string `json:"viewer"`
}

// Client talks to a remote share store. Each call is a single attempt.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the store rooted at baseURL (for example
// "https://notes.example.com/api"). A non-positive timeout uses DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Put stores a blob and returns the id the store assigned to it.
func (c *Client) Put(ctx context.Context, req PutRequest) (string, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/shares/put", req)
	if err != nil {
		return "", err
	}
	var out struct {
		ID   string `json:"id"`
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := decodeResponse(resp, &out); err != nil {
		return "", err
	}
	id := out.ID
	if id == "" {
		id = out.Data.ID
	}
	if id == "" {
		return "", fmt.Errorf("share: put: response carries no id")
	}
	return id, nil
}

// Get fetches the raw store response for id. Its shape varies between store
// versions; see ShortLinkTier.
func (c *Client) Get(ctx context.Context, id string) (json.RawMessage, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/shares/get/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	var out json.RawMessage
	if err := decodeResponse(resp, &out); err != nil {
		return nil, err
	}
	return out, nil
}

var (
	_ Store       = (*Client)(nil)
	_ Lookup      = (*Client)(nil)
	_ ViewCounter = (*Client)(nil)
)

// View records a view and returns the counter reported by the store.
func (c *Client) View(ctx context.Context, req ViewRequest) (int, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/shares/view", req)
	if err != nil {
		return 0, err
	}
	var out struct {
		Views *int `json:"views"`
		Data  struct {
			Views int `json:"views"`
		} `json:"data"`
	}
	if err := decodeResponse(resp, &out); err != nil {
		return 0, err
	}
	if out.Views != nil {
		return *out.Views, nil
	}
	return out.Data.Views, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("share: marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("share: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.httpClient.Do(req)
}

// decodeResponse treats any non-2xx status as an error.
func decodeResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("share: store error: status=%d, body=%s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("share: decode response: %w", err)
	}
	return nil
}
