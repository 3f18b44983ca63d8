package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

// RerankResult points back into the candidate list.
type RerankResult struct {
	Index int
	Score float64
}

// Reranker reorders documents by relevance to query and keeps topN.
type Reranker interface {
	Rerank(ctx context.Context, model, query string, documents []string, topN int) ([]RerankResult, error)
}

// HTTPReranker calls a `/v1/rerank` endpoint (bge-reranker style).
type HTTPReranker struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPReranker(baseURL, apiKey string, timeout time.Duration) *HTTPReranker {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPReranker{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n"`
}

type rerankResponse struct {
	Results []struct {
		Index int     `json:"index"`
		Score float64 `json:"relevance_score"`
	} `json:"results"`
}

func (r *HTTPReranker) Rerank(ctx context.Context, model, query string, documents []string, topN int) ([]RerankResult, error) {
	if len(documents) == 0 {
		return []RerankResult{}, nil
	}

	body, err := json.Marshal(rerankRequest{Model: model, Query: query, Documents: documents, TopN: topN})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/v1/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("rerank API error (%d): %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var decoded rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode rerank response: %w", err)
	}

	results := make([]RerankResult, 0, len(decoded.Results))
	for _, res := range decoded.Results {
		if res.Index < 0 || res.Index >= len(documents) {
			continue
		}
		results = append(results, RerankResult{Index: res.Index, Score: res.Score})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topN > 0 && len(results) > topN {
		results = results[:topN]
	}
	return results, nil
}
