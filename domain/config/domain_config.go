package config

import "time"

// DomainConfig holds the business limits for memories and chat.
type DomainConfig struct {
	// Memory constraints
	MaxTitleLength   int
	MaxContentLength int
	MaxTags          int
	MaxTagLength     int

	// Chat constraints
	DefaultSessionTitle string
	MaxMessageLength    int

	// Listing defaults
	DefaultListLimit   int
	RecentMemoryLimit  int
	DefaultSearchLimit int
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		MaxTitleLength:   500,
		MaxContentLength: 100000,
		MaxTags:          50,
		MaxTagLength:     64,

		DefaultSessionTitle: "New Chat",
		MaxMessageLength:    20000,

		DefaultListLimit:   100,
		RecentMemoryLimit:  5,
		DefaultSearchLimit: 10,
	}
}

// RetrievalConfig holds the tunables of the retrieval-augmented chat loop.
type RetrievalConfig struct {
	TopK            int
	TopN            int
	RelevanceFloor  float64
	HistoryWindow   int
	Model           string
	RerankModel     string
	ChatFallback    string
	QueryFallback   string
	QueryPageLimit  int
	CompleteTimeout time.Duration
}

// DefaultRetrievalConfig returns the production retrieval tunables.
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		TopK:            20,
		TopN:            5,
		RelevanceFloor:  0.2,
		HistoryWindow:   10,
		Model:           "mistral-large-latest",
		RerankModel:     "bge-reranker-v2-m3",
		ChatFallback:    "I don't know how to respond.",
		QueryFallback:   "No response",
		QueryPageLimit:  5,
		CompleteTimeout: 60 * time.Second,
	}
}

// Normalize fills zero or out-of-range values with defaults.
func (c RetrievalConfig) Normalize() RetrievalConfig {
	d := DefaultRetrievalConfig()
	if c.TopK <= 0 {
		c.TopK = d.TopK
	}
	if c.TopN <= 0 {
		c.TopN = d.TopN
	}
	if c.TopN > c.TopK {
		c.TopN = c.TopK
	}
	if c.RelevanceFloor < 0 || c.RelevanceFloor > 1 {
		c.RelevanceFloor = d.RelevanceFloor
	}
	if c.HistoryWindow < 0 {
		c.HistoryWindow = d.HistoryWindow
	}
	if c.Model == "" {
		c.Model = d.Model
	}
	if c.RerankModel == "" {
		c.RerankModel = d.RerankModel
	}
	if c.ChatFallback == "" {
		c.ChatFallback = d.ChatFallback
	}
	if c.QueryFallback == "" {
		c.QueryFallback = d.QueryFallback
	}
	if c.QueryPageLimit <= 0 {
		c.QueryPageLimit = d.QueryPageLimit
	}
	if c.CompleteTimeout <= 0 {
		c.CompleteTimeout = d.CompleteTimeout
	}
	return c
}
