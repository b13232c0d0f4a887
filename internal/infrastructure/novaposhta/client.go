// Package novaposhta reads the Nova Poshta warehouse directory over its JSON API.
package novaposhta

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ecommerce-mvp/shop/internal/domain/branch"
)

const (
	DefaultURL     = "https://api.novaposhta.ua/v2.0/json/"
	DefaultTimeout = 10 * time.Second

	maxErrorBody = 4 << 10
)

type Client struct {
	url    string
	apiKey string
	http   *http.Client
}

// New builds a client. Empty url and zero timeout fall back to the public API defaults.
func New(url, apiKey string, timeout time.Duration) *Client {
	if url == "" {
		url = DefaultURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		url:    url,
		apiKey: apiKey,
		http:   &http.Client{Timeout: timeout},
	}
}

type request struct {
	APIKey           string         `json:"apiKey"`
	ModelName        string         `json:"modelName"`
	CalledMethod     string         `json:"calledMethod"`
	MethodProperties map[string]any `json:"methodProperties"`
}

type warehouse struct {
	Ref             string `json:"Ref"`
	Number          string `json:"Number"`
	Description     string `json:"Description"`
	CityDescription string `json:"CityDescription"`
}

type response struct {
	Success bool        `json:"success"`
	Data    []warehouse `json:"data"`
	Errors  []string    `json:"errors"`
}

// List fetches every warehouse. Any failure is reported as branch.ErrUpstream.
func (c *Client) List(ctx context.Context) ([]branch.Branch, error) {
	body, err := json.Marshal(request{
		APIKey:           c.apiKey,
		ModelName:        "Address",
		CalledMethod:     "getWarehouses",
		MethodProperties: map[string]any{},
	})
	if err != nil {
		return nil, fmt.Errorf("novaposhta: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("novaposhta: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: novaposhta: %w", branch.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: novaposhta: status %d: %s",
			branch.ErrUpstream, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: novaposhta: decode response: %w", branch.ErrUpstream, err)
	}
	if !out.Success {
		return nil, fmt.Errorf("%w: novaposhta: %s", branch.ErrUpstream, strings.Join(out.Errors, "; "))
	}

	branches := make([]branch.Branch, 0, len(out.Data))
	for _, w := range out.Data {
		branches = append(branches, branch.Branch{
			Ref:         w.Ref,
			Number:      w.Number,
			Description: w.Description,
			City:        w.CityDescription,
		})
	}
	return branches, nil
}
