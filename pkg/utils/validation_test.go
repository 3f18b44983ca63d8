package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Content string  `json:"content" validate:"required"`
	URL     *string `json:"url,omitempty" validate:"omitempty,url"`
}

func TestValidateStruct_UsesJSONNames(t *testing.T) {
	bad := "not a url"

	err := ValidateStruct(sample{URL: &bad})

	assert.EqualError(t, err, "content is required; url must be a valid URL")
}

func TestValidateStruct_Valid(t *testing.T) {
	good := "https://example.com/a"
	assert.NoError(t, ValidateStruct(sample{Content: "x", URL: &good}))
	assert.NoError(t, ValidateStruct(sample{Content: "x"}))
}

func TestMillisRoundTrip(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 123_000_000, time.UTC)
	assert.True(t, now.Equal(FromMillis(ToMillis(now))))
}
