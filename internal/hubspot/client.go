package hubspot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the public CRM API endpoint.
const DefaultBaseURL = "https://api.hubapi.com"

// Client is a thin HTTP client for the CRM API. Authenticated calls read
// the bearer token from the attached Session.
type Client struct {
	baseURL string
	hc      *http.Client
	session *Session
}

// NewClient creates a client for the CRM API at baseURL and a Session
// bound to the given OAuth app credentials.
func NewClient(baseURL, clientID, clientSecret string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{Timeout: 30 * time.Second},
	}
	c.session = &Session{
		client:       c,
		clientID:     clientID,
		clientSecret: clientSecret,
	}
	return c
}

// Session returns the client's token session, shared across every account
// processed in a run.
func (c *Client) Session() *Session {
	return c.session
}

// SearchObjects runs one page of a time-windowed search for the given
// object type ("companies", "contacts", "meetings").
func (c *Client) SearchObjects(ctx context.Context, objectType string, req SearchRequest) (*SearchResponse, error) {
	var out SearchResponse
	path := fmt.Sprintf("/crm/v3/objects/%s/search", objectType)
	if err := c.doJSON(ctx, http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BatchReadAssociations resolves associations from a batch of source
// object IDs, e.g. from "CONTACTS" to "COMPANIES".
func (c *Client) BatchReadAssociations(ctx context.Context, fromType, toType string, ids []string) ([]Association, error) {
	inputs := make([]ObjectRef, 0, len(ids))
	for _, id := range ids {
		inputs = append(inputs, ObjectRef{ID: id})
	}

	body := struct {
		Inputs []ObjectRef `json:"inputs"`
	}{Inputs: inputs}

	var out struct {
		Results []Association `json:"results"`
	}
	path := fmt.Sprintf("/crm/v3/associations/%s/%s/batch/read", fromType, toType)
	if err := c.doJSON(ctx, http.MethodPost, path, body, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// ListAssociations lists objects of toType associated with a single object.
func (c *Client) ListAssociations(ctx context.Context, objectType, id, toType string) ([]ObjectRef, error) {
	var out struct {
		Results []ObjectRef `json:"results"`
	}
	path := fmt.Sprintf("/crm/v3/objects/%s/%s/associations/%s", objectType, id, toType)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// GetObject fetches a single object with the requested properties.
func (c *Client) GetObject(ctx context.Context, objectType, id string, properties []string) (*Record, error) {
	path := fmt.Sprintf("/crm/v3/objects/%s/%s", objectType, id)
	if len(properties) > 0 {
		path += "?properties=" + url.QueryEscape(strings.Join(properties, ","))
	}

	var out Record
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// refreshToken performs the refresh-token grant against the OAuth token
// endpoint. Not authenticated with a bearer token.
func (c *Client) refreshToken(ctx context.Context, clientID, clientSecret, refreshToken string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", clientID)
	form.Set("client_secret", clientSecret)
	form.Set("refresh_token", refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth/v1/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp)
	}

	var tok TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	return &tok, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.session.Token())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func newAPIError(resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			apiErr.RetryAfter = time.Duration(secs) * time.Second
		}
	}
	return apiErr
}
