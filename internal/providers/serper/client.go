// Package serper runs academic and reverse image searches through the
// Serper API.
package serper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/samber/lo"

	"learnshell/internal/domain"
)

var ErrMissingAPIKey = errors.New("SERPER_API_KEY is not configured")

// Config controls the Serper client.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Client implements ports.ScholarSearcher and ports.ImageSearcher.
type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://google.serper.dev"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

type scholarResponse struct {
	Organic []domain.ScholarResult `json:"organic"`
}

type lensResponse struct {
	Organic []domain.ImageMatch `json:"organic"`
}

// SearchScholar returns academic results for query in ranking order. Hits
// without a title are dropped.
func (c *Client) SearchScholar(ctx context.Context, query string) ([]domain.ScholarResult, error) {
	var out scholarResponse
	if err := c.post(ctx, "/scholar", map[string]string{"q": query}, &out); err != nil {
		return nil, err
	}
	return lo.Filter(out.Organic, func(hit domain.ScholarResult, _ int) bool {
		return strings.TrimSpace(hit.Title) != ""
	}), nil
}

// SearchImage returns visually similar images for a hosted image.
func (c *Client) SearchImage(ctx context.Context, imageURL string) ([]domain.ImageMatch, error) {
	var out lensResponse
	if err := c.post(ctx, "/lens", map[string]string{"url": imageURL}, &out); err != nil {
		return nil, err
	}
	return lo.Filter(out.Organic, func(match domain.ImageMatch, _ int) bool {
		return match.Link != "" || match.ImageURL != ""
	}), nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return ErrMissingAPIKey
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("serper %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("serper %s: read body: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("serper %s: status %d", path, resp.StatusCode)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("serper %s: decode response: %w", path, err)
	}
	return nil
}
