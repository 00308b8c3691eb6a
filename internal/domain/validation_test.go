package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateReason(t *testing.T) {
	require.NoError(t, ValidateReason("generation fal 2K"))
	require.Error(t, ValidateReason(""))
	require.Error(t, ValidateReason("   "))
	require.Error(t, ValidateReason(strings.Repeat("x", MaxReasonLength+1)))
}

func TestGenerateInputValidate(t *testing.T) {
	valid := func() GenerateInput {
		return GenerateInput{
			Prompt:      "a lighthouse at dusk",
			AspectRatio: "16:9",
			Resolution:  Resolution2K,
		}
	}

	t.Run("accepts valid input", func(t *testing.T) {
		in := valid()
		require.NoError(t, in.Validate())
	})

	t.Run("accepts empty optional fields", func(t *testing.T) {
		in := GenerateInput{Prompt: "a lighthouse at dusk"}
		require.NoError(t, in.Validate())
	})

	tests := []struct {
		name   string
		mutate func(*GenerateInput)
		field  string
	}{
		{"empty prompt", func(in *GenerateInput) { in.Prompt = "  " }, "prompt"},
		{"oversized prompt", func(in *GenerateInput) { in.Prompt = strings.Repeat("x", MaxPromptLength+1) }, "prompt"},
		{"bad aspect ratio", func(in *GenerateInput) { in.AspectRatio = "5:7" }, "aspectRatio"},
		{"bad resolution", func(in *GenerateInput) { in.Resolution = "8K" }, "resolution"},
		{"empty image ref", func(in *GenerateInput) {
			in.Images = map[string]ImageRef{"style": ""}
		}, "images.style"},
		{"non-url image ref", func(in *GenerateInput) {
			in.Images = map[string]ImageRef{"style": "ftp://example.com/x.png"}
		}, "images.style"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid()
			tt.mutate(&in)

			err := in.Validate()
			require.Error(t, err)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	t.Run("too many images", func(t *testing.T) {
		in := valid()
		in.Images = make(map[string]ImageRef, MaxInputImages+1)
		for i := 0; i <= MaxInputImages; i++ {
			in.Images["role"+strings.Repeat("x", i)] = "https://example.com/img.png"
		}
		require.Error(t, in.Validate())
	})
}

func TestResolutionCost(t *testing.T) {
	assert.Equal(t, int64(50), Resolution1K.Cost())
	assert.Equal(t, int64(50), Resolution2K.Cost())
	assert.Equal(t, int64(100), Resolution4K.Cost())
}

func TestImageRefInline(t *testing.T) {
	assert.True(t, ImageRef("data:image/png;base64,AAAA").Inline())
	assert.False(t, ImageRef("https://example.com/img.png").Inline())
}
