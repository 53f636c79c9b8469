package valuation

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	verrors "auction-valuation/pkg/errors"
)

// countingPipeline records how many times Predict runs.
type countingPipeline struct {
	calls int
	fn    func(FeatureRecord) (float64, error)
}

func (p *countingPipeline) Predict(features FeatureRecord) (float64, error) {
	p.calls++
	return p.fn(features)
}

func civicFeatures() FeatureRecord {
	return FeatureRecord{
		Year: 2021, Make: "HONDA", Model: "CIVIC", Series: "EX",
		EngineCode: "2.0L TURBO", Roof: "SUNROOF", Interior: "CLOTH",
		Grade: 3.5, Mileage: 42000, Drivable: "Yes",
		AuctionRegion: "SOUTHEAST", Color: "BLUE",
		SaleMonth: 8, Age: 5,
	}
}

func TestEstimateAppliesExpm1Inverse(t *testing.T) {
	stub := &countingPipeline{fn: func(FeatureRecord) (float64, error) {
		return math.Log1p(25000), nil
	}}
	engine := NewEngine(stub)

	price, err := engine.Estimate(civicFeatures())
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.NewFromInt(25000)), "got %s", price)
}

func TestEstimateMemoizesIdenticalRecords(t *testing.T) {
	stub := &countingPipeline{fn: func(FeatureRecord) (float64, error) {
		return 9.5, nil
	}}
	engine := NewEngine(stub)

	first, err := engine.Estimate(civicFeatures())
	require.NoError(t, err)
	second, err := engine.Estimate(civicFeatures())
	require.NoError(t, err)

	assert.Equal(t, 1, stub.calls, "second call must hit the cache")
	assert.True(t, first.Equal(second))
}

func TestEstimateDistinctRecordsDoNotCollide(t *testing.T) {
	stub := &countingPipeline{fn: func(f FeatureRecord) (float64, error) {
		return float64(f.Mileage) / 10000.0, nil
	}}
	engine := NewEngine(stub)

	a := civicFeatures()
	b := civicFeatures()
	b.Mileage = 90000

	priceA, err := engine.Estimate(a)
	require.NoError(t, err)
	priceB, err := engine.Estimate(b)
	require.NoError(t, err)

	assert.Equal(t, 2, stub.calls)
	assert.Equal(t, 2, engine.CacheSize())
	assert.False(t, priceA.Equal(priceB))

	// Re-querying either record still hits its own entry.
	again, err := engine.Estimate(a)
	require.NoError(t, err)
	assert.True(t, again.Equal(priceA))
	assert.Equal(t, 2, stub.calls)
}

type pipelineFunc func(FeatureRecord) (float64, error)

func (f pipelineFunc) Predict(features FeatureRecord) (float64, error) { return f(features) }

func TestEstimateIsSafeForConcurrentCallers(t *testing.T) {
	engine := NewEngine(pipelineFunc(func(f FeatureRecord) (float64, error) {
		return float64(f.Mileage) / 10000.0, nil
	}))

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			f := civicFeatures()
			f.Mileage = 10000 * (i%4 + 1) // overlapping records force cache hits and misses
			for j := 0; j < 50; j++ {
				if _, err := engine.Estimate(f); err != nil {
					errs[i] = err
					return
				}
			}
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, 4, engine.CacheSize())
}

func TestEstimatePropagatesSchemaMismatch(t *testing.T) {
	stub := &countingPipeline{fn: func(FeatureRecord) (float64, error) {
		return 0, verrors.NewSchemaMismatch("Make", `unexpected Make value "ZASTAVA"`)
	}}
	engine := NewEngine(stub)

	_, err := engine.Estimate(civicFeatures())
	require.Error(t, err)

	var verr *verrors.ValuationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, verrors.ErrCodeSchemaMismatch, verr.Code)

	// Failures are not cached; the next call reaches the pipeline again.
	_, _ = engine.Estimate(civicFeatures())
	assert.Equal(t, 2, stub.calls)
	assert.Equal(t, 0, engine.CacheSize())
}
