package pipeline

import (
	"encoding/json"
	"time"

	"github.com/ppiankov/restomaps/internal/annotate"
	"github.com/ppiankov/restomaps/internal/cache"
	"go.uber.org/zap"
)

// memoAnnotator memoizes processor results by review text. The rating is
// never part of the key; it is re-attached on every call.
type memoAnnotator struct {
	processor   *annotate.Processor
	cache       cache.Cache
	fingerprint string
	ttl         time.Duration
	logger      *zap.Logger
}

func newMemoAnnotator(p *annotate.Processor, c cache.Cache, fingerprint string, ttl time.Duration, logger *zap.Logger) *memoAnnotator {
	return &memoAnnotator{
		processor:   p,
		cache:       c,
		fingerprint: fingerprint,
		ttl:         ttl,
		logger:      logger,
	}
}

// Process returns the cached result for text when present, computing and
// storing it otherwise. Cache failures only cost a recomputation.
func (m *memoAnnotator) Process(text string, rating *int) annotate.Result {
	key := cache.Key(m.fingerprint, text)

	if raw, ok := m.cache.Get(key); ok {
		var res annotate.Result
		if err := json.Unmarshal(raw, &res); err == nil && res.Verdict.Valid() {
			res.UserRating = rating
			return res
		}
		m.logger.Debug("discarding unreadable cache entry", zap.String("key", key))
	}

	res := m.processor.Process(text, nil)
	if raw, err := json.Marshal(res); err == nil {
		if err := m.cache.Set(key, raw, m.ttl); err != nil {
			m.logger.Debug("cache write failed", zap.Error(err))
		}
	}

	res.UserRating = rating
	return res
}
