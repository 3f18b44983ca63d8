package config

import (
	"fmt"
	"sync/atomic"

	domainconfig "neuronote/domain/config"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Tunables holds the retrieval settings. When a config file is present the
// holder follows it: edits are validated and swapped in atomically, and an
// invalid edit keeps the current values.
type Tunables struct {
	current atomic.Pointer[domainconfig.RetrievalConfig]
	logger  *zap.Logger
}

// NewTunables loads the initial retrieval settings and, if CONFIG_FILE is
// set, starts watching it.
func NewTunables(logger *zap.Logger) (*Tunables, error) {
	v, err := newViper()
	if err != nil {
		return nil, err
	}

	t := &Tunables{logger: logger}
	cfg, err := retrievalFromViper(v)
	if err != nil {
		return nil, err
	}
	t.current.Store(&cfg)

	if v.ConfigFileUsed() != "" {
		v.OnConfigChange(func(e fsnotify.Event) {
			t.reload(v, e.Name)
		})
		v.WatchConfig()
		logger.Info("Watching retrieval tunables", zap.String("path", v.ConfigFileUsed()))
	}
	return t, nil
}

// StaticTunables returns a holder that never changes.
func StaticTunables(cfg domainconfig.RetrievalConfig) *Tunables {
	t := &Tunables{logger: zap.NewNop()}
	cfg = cfg.Normalize()
	t.current.Store(&cfg)
	return t
}

// Retrieval returns the current settings
func (t *Tunables) Retrieval() domainconfig.RetrievalConfig {
	return *t.current.Load()
}

func (t *Tunables) reload(v *viper.Viper, path string) {
	next, err := retrievalFromViper(v)
	if err != nil {
		t.logger.Error("Invalid retrieval tunables, keeping current",
			zap.String("path", path),
			zap.Error(err),
		)
		return
	}

	prev := t.current.Swap(&next)
	t.logger.Info("Retrieval tunables reloaded",
		zap.String("path", path),
		zap.Int("topK", next.TopK),
		zap.Int("topN", next.TopN),
		zap.Float64("relevanceFloor", next.RelevanceFloor),
		zap.Int("historyWindow", next.HistoryWindow),
		zap.String("model", next.Model),
		zap.Bool("changed", prev == nil || *prev != next),
	)
}

func retrievalFromViper(v *viper.Viper) (domainconfig.RetrievalConfig, error) {
	cfg := domainconfig.DefaultRetrievalConfig()
	cfg.TopK = v.GetInt("RAG_TOP_K")
	cfg.TopN = v.GetInt("RAG_TOP_N")
	cfg.RelevanceFloor = v.GetFloat64("RAG_RELEVANCE_FLOOR")
	cfg.HistoryWindow = v.GetInt("RAG_HISTORY_WINDOW")
	cfg.QueryPageLimit = v.GetInt("RAG_QUERY_LIMIT")
	cfg.CompleteTimeout = v.GetDuration("RAG_TIMEOUT")
	cfg.Model = v.GetString("LLM_MODEL")
	if m := v.GetString("RERANK_MODEL"); m != "" {
		cfg.RerankModel = m
	}

	if cfg.TopK <= 0 || cfg.TopN <= 0 || cfg.TopN > cfg.TopK {
		return cfg, fmt.Errorf("RAG_TOP_N must be in 1..RAG_TOP_K, got topK=%d topN=%d", cfg.TopK, cfg.TopN)
	}
	if cfg.RelevanceFloor < 0 || cfg.RelevanceFloor > 1 {
		return cfg, fmt.Errorf("RAG_RELEVANCE_FLOOR must be in [0,1], got %v", cfg.RelevanceFloor)
	}
	if cfg.HistoryWindow < 0 {
		return cfg, fmt.Errorf("RAG_HISTORY_WINDOW must not be negative")
	}
	return cfg.Normalize(), nil
}
