package valuation

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	verrors "auction-valuation/pkg/errors"
)

func testArtifact() *LinearPipeline {
	return &LinearPipeline{
		TargetTransform: TransformLog1p,
		Intercept:       9.0,
		Numeric: map[string]float64{
			"Grade":   0.1,
			"Mileage": -0.000001,
			"age":     -0.05,
		},
		Categorical: map[string]map[string]float64{
			"Make":     {"HONDA": 0.2, "TOYOTA": 0.25},
			"Drivable": {"Yes": 0.0, "No": -0.8},
		},
	}
}

func TestLinearPipelinePredict(t *testing.T) {
	p := testArtifact()
	features := civicFeatures()

	got, err := p.Predict(features)
	require.NoError(t, err)

	want := 9.0 + 0.1*3.5 + -0.000001*42000 + -0.05*5 + 0.2 + 0.0
	assert.InDelta(t, want, got, 1e-9)
}

func TestLinearPipelineRejectsUnknownLevel(t *testing.T) {
	p := testArtifact()
	features := civicFeatures()
	features.Make = "ZASTAVA"

	_, err := p.Predict(features)
	require.Error(t, err)

	var verr *verrors.ValuationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, verrors.ErrCodeSchemaMismatch, verr.Code)
	assert.Equal(t, "Make", verr.Field)
}

func TestLinearPipelineRejectsUnknownColumn(t *testing.T) {
	p := testArtifact()
	p.Numeric["Horsepower"] = 0.01

	_, err := p.Predict(civicFeatures())
	require.Error(t, err)

	var verr *verrors.ValuationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, verrors.ErrCodeSchemaMismatch, verr.Code)
}

func writeArtifact(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadPipeline(t *testing.T) {
	path := writeArtifact(t, `{
		"target_transform": "log1p",
		"intercept": 9.0,
		"numeric": {"Grade": 0.1},
		"categorical": {"Make": {"HONDA": 0.2}}
	}`)

	p, err := LoadPipeline(path)
	require.NoError(t, err)
	assert.Equal(t, 9.0, p.Intercept)
	assert.Equal(t, 0.1, p.Numeric["Grade"])
}

func TestLoadPipelineRejectsOtherTransforms(t *testing.T) {
	path := writeArtifact(t, `{"target_transform": "log", "intercept": 9.0}`)

	_, err := LoadPipeline(path)
	require.Error(t, err)

	var verr *verrors.ValuationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, verrors.ErrCodeArtifactLoad, verr.Code)
}

func TestLoadPipelineMissingFile(t *testing.T) {
	_, err := LoadPipeline(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}
