package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	httpDialTimeoutSeconds    = 5
	httpRequestTimeoutSeconds = 20
)

// RequestError is a non-2xx answer of the control service.
type RequestError struct {
	StatusCode int
	Detail     string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("control service returned %d: %s", e.StatusCode, e.Detail)
}

// Client talks to the control service of another process.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a client for host, given as "host:port" or a full URL.
func NewClient(host string) *Client {
	base := strings.TrimRight(host, "/")
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{
		baseURL: base,
		httpClient: &http.Client{
			Timeout: time.Duration(httpRequestTimeoutSeconds) * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: time.Duration(httpDialTimeoutSeconds) * time.Second,
				}).DialContext,
			},
		},
	}
}

// BaseURL returns the service root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Version returns the engine and application versions.
func (c *Client) Version(ctx context.Context) (VersionInfo, error) {
	var v VersionInfo
	err := c.do(ctx, http.MethodGet, "/version", nil, &v)
	return v, err
}

// Stop asks the serving process to terminate.
func (c *Client) Stop(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/stop", nil, nil)
}

// DiceBots lists the available rule sets.
func (c *Client) DiceBots(ctx context.Context) ([]DiceBot, error) {
	var list DiceBotList
	if err := c.do(ctx, http.MethodGet, "/dicebots", nil, &list); err != nil {
		return nil, err
	}
	return list.DiceBots, nil
}

// State returns the connection state of the serving process.
func (c *Client) State(ctx context.Context) (StateInfo, error) {
	var s StateInfo
	err := c.do(ctx, http.MethodGet, "/state", nil, &s)
	return s, err
}

// Presets lists the stored presets.
func (c *Client) Presets(ctx context.Context) (PresetList, error) {
	var p PresetList
	err := c.do(ctx, http.MethodGet, "/presets", nil, &p)
	return p, err
}

// Connect starts a connection with the named preset.
func (c *Client) Connect(ctx context.Context, preset string) error {
	return c.do(ctx, http.MethodPost, "/connect", ConnectRequest{Preset: preset}, nil)
}

// Disconnect ends the current connection.
func (c *Client) Disconnect(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/disconnect", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create %s %s request: %w", method, path, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return fmt.Errorf("%s %s: network timeout: %w", method, path, err)
		}
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e ErrorResponse
		data, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(data, &e) != nil || e.Detail == "" {
			e.Detail = strings.TrimSpace(string(data))
		}
		return &RequestError{StatusCode: resp.StatusCode, Detail: e.Detail}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
