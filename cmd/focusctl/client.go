package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// apiError is the broker's error body
type apiError struct {
	Error string `json:"error"`
}

// apiClient calls the broker's HTTP API
type apiClient struct {
	http *resty.Client
}

func newAPIClient(baseURL string, timeout time.Duration) *apiClient {
	return &apiClient{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
	}
}

// do sends body (may be nil) and decodes a successful response into out
func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	req := c.http.R().SetContext(ctx).SetError(&apiError{})
	if body != nil {
		req.SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		if e, ok := resp.Error().(*apiError); ok && e.Error != "" {
			return fmt.Errorf("%s %s: %s (%d)", method, path, e.Error, resp.StatusCode())
		}
		return fmt.Errorf("%s %s: %s", method, path, resp.Status())
	}
	return nil
}

// text fetches a plain text endpoint
func (c *apiClient) text(ctx context.Context, path string) (string, error) {
	resp, err := c.http.R().SetContext(ctx).SetHeader("Accept", "text/plain").Get(path)
	if err != nil {
		return "", fmt.Errorf("GET %s: %w", path, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("GET %s: %s", path, resp.Status())
	}
	return resp.String(), nil
}
