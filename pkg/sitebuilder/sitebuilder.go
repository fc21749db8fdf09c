// Package sitebuilder is the REST client for the upstream platform API that
// owns templates, pricing plans, and website creation.
package sitebuilder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxResponseSizeBytes = 2 << 20

type Config struct {
	BaseURL string        `envconfig:"BASE_URL" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"3s"`
}

// Template is one website template offered by the platform.
type Template struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	PreviewImageURL string `json:"preview_image_url"`
}

// PricingPlan is one subscription plan.
type PricingPlan struct {
	PlanName string   `json:"plan_name"`
	Price    float64  `json:"price"`
	Currency string   `json:"currency"`
	Features []string `json:"features"`
}

// WebsiteCreationRequest is the payload for creating a website.
type WebsiteCreationRequest struct {
	Description string `json:"description"`
	TemplateID  string `json:"template_id,omitempty"`
}

// WebsiteCreation is the platform's answer to a creation request.
type WebsiteCreation struct {
	Status     string `json:"status"`
	WebsiteID  string `json:"website_id"`
	WebsiteURL string `json:"website_url"`
}

// ClientOption customizes Client.
type ClientOption func(*Client)

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// Client calls the platform API. Every call is bounded by the configured
// timeout; callers decide how to degrade on error.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(cfg Config, opts ...ClientOption) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("sitebuilder base url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid sitebuilder base url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	client := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

func MustNew(cfg Config, opts ...ClientOption) *Client {
	client, err := NewClient(cfg, opts...)
	if err != nil {
		panic(err)
	}
	return client
}

// Templates lists all website templates available on the platform.
func (c *Client) Templates(ctx context.Context) ([]Template, error) {
	var templates []Template
	if err := c.get(ctx, "/templates", &templates); err != nil {
		return nil, err
	}
	return templates, nil
}

// PricingPlans lists the current subscription plans.
func (c *Client) PricingPlans(ctx context.Context) ([]PricingPlan, error) {
	var plans []PricingPlan
	if err := c.get(ctx, "/pricing-plans", &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// CreateWebsite asks the platform to provision a new website.
func (c *Client) CreateWebsite(ctx context.Context, req WebsiteCreationRequest) (*WebsiteCreation, error) {
	var created WebsiteCreation
	if err := c.post(ctx, "/websites", req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build sitebuilder request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal sitebuilder payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build sitebuilder request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute sitebuilder request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return fmt.Errorf("read sitebuilder response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("sitebuilder http status=%d body=%s", resp.StatusCode, string(raw))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode sitebuilder response: %w", err)
	}
	return nil
}
