package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/mcdev12/neuroswipe/internal/models"
)

// Filter is a set of equality matchers applied server-side to a collection.
// Values are rendered into the query string as-is.
type Filter map[string]string

// APIError is returned for any non-2xx store response, with the status and
// body captured for diagnostics. The client never retries; device poll loops
// are the system's retry mechanism.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("store returned status %d: %s", e.Status, e.Body)
}

// IsNotFound reports whether err is the store telling us a record no longer
// exists. Scoring and clearing batches use this to skip vanished players.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Interface is the record store contract the devices are written against.
type Interface interface {
	CreateSession(ctx context.Context, s models.GameSession) (*models.GameSession, error)
	FilterSessions(ctx context.Context, f Filter) ([]models.GameSession, error)
	UpdateSession(ctx context.Context, id string, patch models.SessionPatch) (*models.GameSession, error)
	DeleteSession(ctx context.Context, id string) error

	CreatePlayer(ctx context.Context, p models.Player) (*models.Player, error)
	FilterPlayers(ctx context.Context, f Filter) ([]models.Player, error)
	UpdatePlayer(ctx context.Context, id string, patch models.PlayerPatch) (*models.Player, error)
	DeletePlayer(ctx context.Context, id string) error
}

// Client talks to a record store over its JSON REST contract.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient creates a store client for the given base URL and API key.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetTimeout overrides the default 30s request timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.client.Timeout = timeout
}

func (c *Client) makeRequest(ctx context.Context, method, endpoint string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("api_key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Status: resp.StatusCode, Body: string(responseBody)}
	}

	return responseBody, nil
}

func (c *Client) create(ctx context.Context, collection string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", collection, err)
	}
	body, err := c.makeRequest(ctx, http.MethodPost, "/entities/"+collection, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

func (c *Client) filter(ctx context.Context, collection string, f Filter, out any) error {
	endpoint := "/entities/" + collection + buildQuery(f)
	body, err := c.makeRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

func (c *Client) update(ctx context.Context, collection, id string, patch, out any) error {
	payload, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("failed to marshal %s patch: %w", collection, err)
	}
	body, err := c.makeRequest(ctx, http.MethodPut, "/entities/"+collection+"/"+id, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

func (c *Client) delete(ctx context.Context, collection, id string) error {
	_, err := c.makeRequest(ctx, http.MethodDelete, "/entities/"+collection+"/"+id, nil)
	return err
}

func buildQuery(f Filter) string {
	if len(f) == 0 {
		return ""
	}
	params := url.Values{}
	for key, value := range f {
		if value != "" {
			params.Set(key, value)
		}
	}
	if len(params) == 0 {
		return ""
	}
	return "?" + params.Encode()
}

func (c *Client) CreateSession(ctx context.Context, s models.GameSession) (*models.GameSession, error) {
	var out models.GameSession
	if err := c.create(ctx, "GameSession", s, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) FilterSessions(ctx context.Context, f Filter) ([]models.GameSession, error) {
	var out []models.GameSession
	if err := c.filter(ctx, "GameSession", f, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateSession(ctx context.Context, id string, patch models.SessionPatch) (*models.GameSession, error) {
	var out models.GameSession
	if err := c.update(ctx, "GameSession", id, patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.delete(ctx, "GameSession", id)
}

func (c *Client) CreatePlayer(ctx context.Context, p models.Player) (*models.Player, error) {
	var out models.Player
	if err := c.create(ctx, "Player", p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) FilterPlayers(ctx context.Context, f Filter) ([]models.Player, error) {
	var out []models.Player
	if err := c.filter(ctx, "Player", f, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdatePlayer(ctx context.Context, id string, patch models.PlayerPatch) (*models.Player, error) {
	var out models.Player
	if err := c.update(ctx, "Player", id, patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeletePlayer(ctx context.Context, id string) error {
	return c.delete(ctx, "Player", id)
}
