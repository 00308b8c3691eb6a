package dto

import (
	"github.com/vestra-ai/vestra/internal/domain"
)

// CreateAccountRequest provisions a credit account, typically at user
// registration.
type CreateAccountRequest struct {
	ID string `json:"id"`
}

// ChargeRequest spends credits from an account.
type ChargeRequest struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

// CreditRequest adds credits to an account.
type CreditRequest struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
	Kind   string `json:"kind"`
}

// GenerateRequest starts one generation. Image values are either data URIs
// or http(s) URLs, keyed by their role in the prompt.
type GenerateRequest struct {
	Prompt          string            `json:"prompt"`
	Images          map[string]string `json:"images,omitempty"`
	AspectRatio     string            `json:"aspect_ratio"`
	Resolution      string            `json:"resolution"`
	Seed            *int64            `json:"seed,omitempty"`
	NegativePrompt  string            `json:"negative_prompt,omitempty"`
	EnableWebSearch bool              `json:"enable_web_search,omitempty"`
}

// ToDomainInput converts to the orchestrator input.
func (r *GenerateRequest) ToDomainInput() domain.GenerateInput {
	var images map[string]domain.ImageRef
	if len(r.Images) > 0 {
		images = make(map[string]domain.ImageRef, len(r.Images))
		for role, ref := range r.Images {
			images[role] = domain.ImageRef(ref)
		}
	}

	return domain.GenerateInput{
		Prompt:          r.Prompt,
		Images:          images,
		AspectRatio:     r.AspectRatio,
		Resolution:      domain.Resolution(r.Resolution),
		Seed:            r.Seed,
		NegativePrompt:  r.NegativePrompt,
		EnableWebSearch: r.EnableWebSearch,
	}
}

// SetProviderRequest switches the active generation provider.
type SetProviderRequest struct {
	Provider string `json:"provider"`
}
