package valuation

import (
	"math"
	"sync"

	"github.com/shopspring/decimal"
)

// Engine wraps the trained pipeline and memoizes estimates per distinct
// feature record. The cache is keyed by the full (comparable) record and
// never evicted: the input domain is bounded by the catalogue and the cache
// lives for one process lifetime. Safe for concurrent callers.
type Engine struct {
	pipeline Pipeline

	mu   sync.RWMutex
	memo map[FeatureRecord]decimal.Decimal
}

// NewEngine creates an estimation engine over a trained pipeline.
func NewEngine(pipeline Pipeline) *Engine {
	return &Engine{
		pipeline: pipeline,
		memo:     make(map[FeatureRecord]decimal.Decimal),
	}
}

// Estimate returns the wholesale price for a feature record in currency
// units, rounded to cents.
//
// Contract: the pipeline predicts on a log1p-transformed target, so the
// inverse transform is expm1. Identical inputs return the cached value
// without a second pipeline invocation.
func (e *Engine) Estimate(features FeatureRecord) (decimal.Decimal, error) {
	e.mu.RLock()
	cached, ok := e.memo[features]
	e.mu.RUnlock()
	if ok {
		return cached, nil
	}

	logPrice, err := e.pipeline.Predict(features)
	if err != nil {
		return decimal.Zero, err
	}

	price := decimal.NewFromFloat(math.Expm1(logPrice)).Round(2)
	e.mu.Lock()
	e.memo[features] = price
	e.mu.Unlock()
	return price, nil
}

// CacheSize reports the number of memoized feature records.
func (e *Engine) CacheSize() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.memo)
}
