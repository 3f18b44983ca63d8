package vector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"neuronote/application/ports"
	"neuronote/domain/core/valueobjects"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func namespace(t *testing.T, userID string) valueobjects.SemanticNamespace {
	t.Helper()
	ns, err := valueobjects.NamespaceFor(userID)
	require.NoError(t, err)
	return ns
}

func newTestIndex(t *testing.T, reranker Reranker) *Index {
	t.Helper()
	store, err := NewChromemStore("")
	require.NoError(t, err)
	return NewIndex(NewHashEmbedder(128), store, reranker, zap.NewNop())
}

func TestHashEmbedder_DeterministicAndNormalized(t *testing.T) {
	e := NewHashEmbedder(64)

	vectors, err := e.Embed(context.Background(), []string{"Lisbon trip in May", "lisbon TRIP in may", ""})

	require.NoError(t, err)
	assert.Equal(t, vectors[0], vectors[1])
	var sum float32
	for _, x := range vectors[0] {
		sum += x * x
	}
	assert.InDelta(t, 1.0, sum, 1e-5)
	assert.Equal(t, float32(1), vectors[2][0])
}

func TestIndex_SearchIsScopedToNamespace(t *testing.T) {
	// Arrange
	ctx := context.Background()
	index := newTestIndex(t, nil)
	alice, bob := namespace(t, "alice"), namespace(t, "bob")
	require.NoError(t, index.Upsert(ctx, alice, []ports.IndexRecord{
		{ID: "a1", Text: "went to lisbon in may"},
		{ID: "a2", Text: "recipe for pasta carbonara"},
	}))
	require.NoError(t, index.Upsert(ctx, bob, []ports.IndexRecord{{ID: "b1", Text: "lisbon lisbon lisbon"}}))

	// Act
	hits, err := index.Search(ctx, alice, ports.SearchRequest{QueryText: "when did I go to lisbon", TopK: 20})

	// Assert
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a1", hits[0].MemoryID)
	assert.Greater(t, hits[0].Score, hits[1].Score)
	for _, h := range hits {
		assert.NotEqual(t, "b1", h.MemoryID)
	}
}

func TestIndex_UpsertReplacesAndDeleteRemoves(t *testing.T) {
	ctx := context.Background()
	index := newTestIndex(t, nil)
	ns := namespace(t, "alice")
	require.NoError(t, index.Upsert(ctx, ns, []ports.IndexRecord{{ID: "a1", Text: "old text"}}))
	require.NoError(t, index.Upsert(ctx, ns, []ports.IndexRecord{{ID: "a1", Text: "new words entirely", Title: "T"}}))

	hits, err := index.Search(ctx, ns, ports.SearchRequest{QueryText: "new words", TopK: 5})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "new words entirely", hits[0].Fields["text"])
	assert.Equal(t, "T", hits[0].Fields["title"])

	require.NoError(t, index.DeleteOne(ctx, ns, "a1"))
	hits, err = index.Search(ctx, ns, ports.SearchRequest{QueryText: "new words", TopK: 5})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestIndex_EmptyNamespaceSearch(t *testing.T) {
	index := newTestIndex(t, nil)

	hits, err := index.Search(context.Background(), namespace(t, "nobody"), ports.SearchRequest{
		QueryText: "anything", TopK: 20, Rerank: &ports.RerankOptions{TopN: 5},
	})

	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestIndex_WithoutRerankerTruncatesToTopN(t *testing.T) {
	ctx := context.Background()
	index := newTestIndex(t, nil)
	ns := namespace(t, "alice")
	require.NoError(t, index.Upsert(ctx, ns, []ports.IndexRecord{
		{ID: "1", Text: "one"}, {ID: "2", Text: "two"}, {ID: "3", Text: "three"},
	}))

	hits, err := index.Search(ctx, ns, ports.SearchRequest{QueryText: "one", TopK: 3, Rerank: &ports.RerankOptions{TopN: 2}})

	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestIndex_SearchUsesRerankerScores(t *testing.T) {
	// Arrange
	var got rerankRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/rerank", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		// Favour whichever document mentions pasta; include a bogus index.
		results := []map[string]interface{}{{"index": 99, "relevance_score": 0.99}}
		for i, d := range got.Documents {
			score := 0.1
			if d == "recipe for pasta" {
				score = 0.9
			}
			results = append(results, map[string]interface{}{"index": i, "relevance_score": score})
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"results": results})
	}))
	defer server.Close()

	ctx := context.Background()
	index := newTestIndex(t, NewHTTPReranker(server.URL, "key", 0))
	ns := namespace(t, "alice")
	require.NoError(t, index.Upsert(ctx, ns, []ports.IndexRecord{
		{ID: "trip", Text: "went to lisbon"},
		{ID: "food", Text: "recipe for pasta"},
	}))

	// Act
	hits, err := index.Search(ctx, ns, ports.SearchRequest{
		QueryText: "lisbon", TopK: 20,
		Rerank: &ports.RerankOptions{TopN: 1, Fields: []string{"text"}, Model: "bge-reranker-v2-m3"},
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "bge-reranker-v2-m3", got.Model)
	assert.Equal(t, 1, got.TopN)
	require.Len(t, hits, 1)
	assert.Equal(t, "food", hits[0].MemoryID)
	assert.InDelta(t, 0.9, hits[0].Score, 1e-9)
}

func TestHTTPReranker_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewHTTPReranker(server.URL, "", 0).Rerank(context.Background(), "m", "q", []string{"a"}, 1)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestNewEmbedder_UnknownProvider(t *testing.T) {
	_, err := NewEmbedder(EmbedderConfig{Provider: "word2vec"})

	assert.Error(t, err)
}
