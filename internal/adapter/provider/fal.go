// Package provider contains the generation backend adapters. Each adapter
// speaks one upstream wire protocol and normalizes it to the orchestrator's
// request/response types.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vestra-ai/vestra/internal/domain"
	"github.com/vestra-ai/vestra/internal/usecase"
)

const (
	// DefaultFalBaseURL is the upstream synchronous inference endpoint.
	DefaultFalBaseURL = "https://fal.run"

	falModelPath = "/fal-ai/nano-banana-pro/edit"

	// maxProviderImages is the upstream-enforced cap on reference images.
	maxProviderImages = 14
)

// FalAdapter is the synchronous backend: one POST blocks until the final
// artifact is ready.
type FalAdapter struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// NewFalAdapter creates a FalAdapter. baseURL falls back to the production
// endpoint when empty.
func NewFalAdapter(client *http.Client, baseURL, apiKey string) *FalAdapter {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	if baseURL == "" {
		baseURL = DefaultFalBaseURL
	}
	return &FalAdapter{
		client:  client,
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// Name implements usecase.ProviderAdapter.
func (a *FalAdapter) Name() string { return "fal" }

type falRequest struct {
	Prompt          string   `json:"prompt"`
	NegativePrompt  string   `json:"negative_prompt,omitempty"`
	ImageURLs       []string `json:"image_urls"`
	AspectRatio     string   `json:"aspect_ratio"`
	Resolution      string   `json:"resolution"`
	Seed            int64    `json:"seed,omitempty"`
	EnableWebSearch bool     `json:"enable_web_search,omitempty"`
	OutputFormat    string   `json:"output_format"`
}

type falResponse struct {
	Images []struct {
		URL string `json:"url"`
	} `json:"images"`
}

// Generate implements usecase.SyncAdapter.
func (a *FalAdapter) Generate(ctx context.Context, req usecase.ProviderRequest) (*domain.ProviderOutput, error) {
	payload := falRequest{
		Prompt:          req.Prompt,
		NegativePrompt:  req.NegativePrompt,
		ImageURLs:       capImages(req.ImageURLs),
		AspectRatio:     req.AspectRatio,
		Resolution:      string(req.Resolution),
		Seed:            req.Seed,
		EnableWebSearch: req.EnableWebSearch,
		OutputFormat:    "png",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+falModelPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Key "+a.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, &domain.ProviderError{Provider: a.Name(), Message: err.Error(), Retryable: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, providerHTTPError(a.Name(), resp)
	}

	var parsed falResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &domain.ProviderError{Provider: a.Name(), Message: "malformed response: " + err.Error()}
	}

	if len(parsed.Images) == 0 || parsed.Images[0].URL == "" {
		return &domain.ProviderOutput{}, nil
	}

	return &domain.ProviderOutput{URL: parsed.Images[0].URL}, nil
}

func capImages(urls []string) []string {
	if len(urls) > maxProviderImages {
		return urls[:maxProviderImages]
	}
	return urls
}

// providerHTTPError turns a non-2xx upstream response into a ProviderError.
// 5xx and 429 are retryable; everything else is not.
func providerHTTPError(provider string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))

	return &domain.ProviderError{
		Provider:  provider,
		Message:   fmt.Sprintf("upstream status %d: %s", resp.StatusCode, bytes.TrimSpace(body)),
		Retryable: resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests,
	}
}
