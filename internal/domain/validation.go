package domain

import (
	"strings"
)

// Validation constants
const (
	MaxReasonLength = 255
	MaxPromptLength = 20000
	MaxInputImages  = 14
	MaxChargeAmount = 1_000_000
)

// ValidateReason validates a ledger entry reason string.
func ValidateReason(reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return &ValidationError{Field: "reason", Reason: "cannot be empty"}
	}
	if len(reason) > MaxReasonLength {
		return &ValidationError{Field: "reason", Reason: "too long"}
	}
	return nil
}

// Validate checks a generation input before any external call or spend.
func (in *GenerateInput) Validate() error {
	if strings.TrimSpace(in.Prompt) == "" {
		return &ValidationError{Field: "prompt", Reason: "cannot be empty"}
	}
	if len(in.Prompt) > MaxPromptLength {
		return &ValidationError{Field: "prompt", Reason: "too long"}
	}
	if in.AspectRatio != "" && !ValidAspectRatio(in.AspectRatio) {
		return &ValidationError{Field: "aspectRatio", Reason: "unknown aspect ratio " + in.AspectRatio}
	}
	if in.Resolution != "" && !in.Resolution.Valid() {
		return &ValidationError{Field: "resolution", Reason: "unknown resolution tier " + string(in.Resolution)}
	}
	if len(in.Images) > MaxInputImages {
		return &ValidationError{Field: "images", Reason: "too many reference images"}
	}
	for role, ref := range in.Images {
		if ref == "" {
			return &ValidationError{Field: "images." + role, Reason: "empty reference"}
		}
		s := string(ref)
		if !ref.Inline() && !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
			return &ValidationError{Field: "images." + role, Reason: "must be a data URI or http(s) URL"}
		}
	}
	return nil
}
