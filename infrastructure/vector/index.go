package vector

import (
	"context"
	"fmt"

	"neuronote/application/ports"
	"neuronote/domain/core/valueobjects"

	"go.uber.org/zap"
)

// Index implements ports.SemanticIndex over an Embedder, a Store and an
// optional Reranker.
type Index struct {
	embedder Embedder
	store    Store
	reranker Reranker
	logger   *zap.Logger
}

// NewIndex wires the index. A nil reranker keeps the vector order.
func NewIndex(embedder Embedder, store Store, reranker Reranker, logger *zap.Logger) *Index {
	return &Index{embedder: embedder, store: store, reranker: reranker, logger: logger}
}

func (i *Index) Upsert(ctx context.Context, ns valueobjects.SemanticNamespace, records []ports.IndexRecord) error {
	if ns.IsZero() {
		return fmt.Errorf("upsert requires a namespace")
	}
	if len(records) == 0 {
		return nil
	}

	texts := make([]string, len(records))
	for j, r := range records {
		texts[j] = r.Text
	}
	vectors, err := i.embedder.Embed(ctx, texts)
	if err != nil {
		return err
	}

	docs := make([]Document, len(records))
	for j, r := range records {
		docs[j] = Document{ID: r.ID, Vector: vectors[j], Text: r.Text, Title: r.Title}
	}
	return i.store.Upsert(ctx, ns.Name(), docs)
}

func (i *Index) DeleteOne(ctx context.Context, ns valueobjects.SemanticNamespace, id string) error {
	if ns.IsZero() {
		return fmt.Errorf("delete requires a namespace")
	}
	return i.store.Delete(ctx, ns.Name(), id)
}

// Search embeds the query, takes TopK nearest records and, when asked,
// reranks them down to TopN. Hits are best first.
func (i *Index) Search(ctx context.Context, ns valueobjects.SemanticNamespace, req ports.SearchRequest) ([]ports.RetrievalHit, error) {
	if ns.IsZero() {
		return nil, fmt.Errorf("search requires a namespace")
	}

	vectors, err := i.embedder.Embed(ctx, []string{req.QueryText})
	if err != nil {
		return nil, err
	}
	candidates, err := i.store.Query(ctx, ns.Name(), vectors[0], req.TopK)
	if err != nil {
		return nil, err
	}

	if req.Rerank == nil || len(candidates) == 0 {
		return toHits(candidates), nil
	}

	if i.reranker == nil {
		if n := req.Rerank.TopN; n > 0 && len(candidates) > n {
			candidates = candidates[:n]
		}
		return toHits(candidates), nil
	}

	docs := make([]string, len(candidates))
	for j, c := range candidates {
		docs[j] = rerankField(c, req.Rerank.Fields)
	}
	ranked, err := i.reranker.Rerank(ctx, req.Rerank.Model, req.QueryText, docs, req.Rerank.TopN)
	if err != nil {
		return nil, fmt.Errorf("rerank: %w", err)
	}

	hits := make([]ports.RetrievalHit, 0, len(ranked))
	for pos, r := range ranked {
		c := candidates[r.Index]
		hits = append(hits, ports.RetrievalHit{
			MemoryID: c.ID,
			Score:    r.Score,
			Position: pos,
			Fields:   map[string]string{"text": c.Text, "title": c.Title},
		})
	}
	i.logger.Debug("Reranked candidates",
		zap.String("namespace", ns.Name()),
		zap.Int("candidates", len(candidates)),
		zap.Int("kept", len(hits)),
	)
	return hits, nil
}

// rerankField picks the candidate text to rerank on; only "text" and "title"
// exist.
func rerankField(c Candidate, fields []string) string {
	for _, f := range fields {
		if f == "title" && c.Title != "" {
			return c.Title
		}
		if f == "text" {
			return c.Text
		}
	}
	return c.Text
}

func toHits(candidates []Candidate) []ports.RetrievalHit {
	hits := make([]ports.RetrievalHit, len(candidates))
	for pos, c := range candidates {
		hits[pos] = ports.RetrievalHit{
			MemoryID: c.ID,
			Score:    c.Similarity,
			Position: pos,
			Fields:   map[string]string{"text": c.Text, "title": c.Title},
		}
	}
	return hits
}
