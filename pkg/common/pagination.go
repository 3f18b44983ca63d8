package common

import (
	"net/http"
	"strconv"
)

// MaxPageLimit caps any client-supplied limit.
const MaxPageLimit = 100

// PageParams is a limit/offset window.
type PageParams struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// PageMeta describes a returned window.
type PageMeta struct {
	Count  int `json:"count"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// ExtractPageParams reads limit and offset from the query string. Missing or
// malformed values fall back to defaultLimit and 0.
func ExtractPageParams(r *http.Request, defaultLimit int) PageParams {
	params := PageParams{Limit: defaultLimit}

	if limit := r.URL.Query().Get("limit"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil && l > 0 {
			if l > MaxPageLimit {
				l = MaxPageLimit
			}
			params.Limit = l
		}
	}

	if offset := r.URL.Query().Get("offset"); offset != "" {
		if o, err := strconv.Atoi(offset); err == nil && o >= 0 {
			params.Offset = o
		}
	}

	return params
}

// Window returns the [offset, offset+limit) slice bounds clamped to n.
func (p PageParams) Window(n int) (int, int) {
	start := p.Offset
	if start > n {
		start = n
	}
	end := start + p.Limit
	if p.Limit <= 0 || end > n {
		end = n
	}
	return start, end
}
