package common

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractPageParams(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  PageParams
	}{
		{"defaults", "", PageParams{Limit: 10, Offset: 0}},
		{"explicit", "?limit=3&offset=6", PageParams{Limit: 3, Offset: 6}},
		{"malformed falls back", "?limit=abc&offset=-1", PageParams{Limit: 10, Offset: 0}},
		{"capped", "?limit=1000", PageParams{Limit: MaxPageLimit, Offset: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/search"+tt.query, nil)
			assert.Equal(t, tt.want, ExtractPageParams(r, 10))
		})
	}
}

func TestPageParams_Window(t *testing.T) {
	start, end := PageParams{Limit: 2, Offset: 1}.Window(5)
	assert.Equal(t, 1, start)
	assert.Equal(t, 3, end)

	start, end = PageParams{Limit: 5, Offset: 4}.Window(5)
	assert.Equal(t, 4, start)
	assert.Equal(t, 5, end)

	start, end = PageParams{Limit: 5, Offset: 9}.Window(5)
	assert.Equal(t, 5, start)
	assert.Equal(t, 5, end)
}
