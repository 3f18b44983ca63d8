package vector

import (
	"context"
	"fmt"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"
)

// Candidate is a first-stage match from a store.
type Candidate struct {
	ID         string
	Similarity float64
	Text       string
	Title      string
}

// Document is one embedded record.
type Document struct {
	ID     string
	Vector []float32
	Text   string
	Title  string
}

// Store persists vectors per namespace.
type Store interface {
	Upsert(ctx context.Context, namespace string, docs []Document) error
	Delete(ctx context.Context, namespace, id string) error
	Query(ctx context.Context, namespace string, vector []float32, topK int) ([]Candidate, error)
}

// ChromemStore keeps one chromem collection per namespace. With a persist
// directory the collections survive restarts.
type ChromemStore struct {
	db          *chromem.DB
	collections map[string]*chromem.Collection
	mu          sync.RWMutex
}

// NewChromemStore opens an in-memory store, or a persistent one when dir is set.
func NewChromemStore(dir string) (*ChromemStore, error) {
	var db *chromem.DB
	if dir == "" {
		db = chromem.NewDB()
	} else {
		var err error
		db, err = chromem.NewPersistentDB(dir, true)
		if err != nil {
			return nil, fmt.Errorf("open chromem db: %w", err)
		}
	}
	return &ChromemStore{
		db:          db,
		collections: make(map[string]*chromem.Collection),
	}, nil
}

func (s *ChromemStore) collection(namespace string) (*chromem.Collection, error) {
	s.mu.RLock()
	col, ok := s.collections[namespace]
	s.mu.RUnlock()
	if ok {
		return col, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if col, ok := s.collections[namespace]; ok {
		return col, nil
	}

	// Vectors are always supplied, so no embedding func.
	col, err := s.db.GetOrCreateCollection(namespace, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	s.collections[namespace] = col
	return col, nil
}

func (s *ChromemStore) Upsert(ctx context.Context, namespace string, docs []Document) error {
	col, err := s.collection(namespace)
	if err != nil {
		return err
	}
	for _, d := range docs {
		// AddDocument replaces a document with the same id.
		err := col.AddDocument(ctx, chromem.Document{
			ID:        d.ID,
			Content:   d.Text,
			Embedding: d.Vector,
			Metadata:  map[string]string{"title": d.Title},
		})
		if err != nil {
			return fmt.Errorf("add document %s: %w", d.ID, err)
		}
	}
	return nil
}

func (s *ChromemStore) Delete(ctx context.Context, namespace, id string) error {
	col, err := s.collection(namespace)
	if err != nil {
		return err
	}
	if err := col.Delete(ctx, nil, nil, id); err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	return nil
}

func (s *ChromemStore) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]Candidate, error) {
	col, err := s.collection(namespace)
	if err != nil {
		return nil, err
	}

	// chromem-go rejects nResults larger than the collection.
	if n := col.Count(); topK > n {
		topK = n
	}
	if topK <= 0 {
		return []Candidate{}, nil
	}

	results, err := col.QueryEmbedding(ctx, vector, topK, nil, nil)
	if err != nil {
		if strings.Contains(err.Error(), "nResults must be") {
			return []Candidate{}, nil
		}
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	candidates := make([]Candidate, 0, len(results))
	for _, r := range results {
		candidates = append(candidates, Candidate{
			ID:         r.ID,
			Similarity: float64(r.Similarity),
			Text:       r.Content,
			Title:      r.Metadata["title"],
		})
	}
	return candidates, nil
}
