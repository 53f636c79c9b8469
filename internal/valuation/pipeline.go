// Package valuation wraps the trained regression pipeline: the canonical
// feature record, the pipeline artifact, and the memoizing estimation engine.
package valuation

import (
	"encoding/json"
	"fmt"
	"os"

	verrors "auction-valuation/pkg/errors"
)

// FeatureRecord is the canonical input to the trained pipeline. The field set
// mirrors the training frame exactly; every field is plain and comparable so
// the record itself serves as the memoization key.
type FeatureRecord struct {
	Year          int     `json:"year"`
	Make          string  `json:"make"`
	Model         string  `json:"model"`
	Series        string  `json:"series"`
	EngineCode    string  `json:"engine_code"`
	Roof          string  `json:"roof"`
	Interior      string  `json:"interior"`
	Grade         float64 `json:"grade"`
	Mileage       int     `json:"mileage"`
	Drivable      string  `json:"drivable"`
	AuctionRegion string  `json:"auction_region"`
	Color         string  `json:"color"`
	SaleMonth     int     `json:"sale_month"`
	Age           int     `json:"age"`
}

// Pipeline is the opaque pre-trained regression artifact: one operation,
// a log-scale price prediction for a feature record.
type Pipeline interface {
	Predict(features FeatureRecord) (float64, error)
}

// TransformLog1p is the only target transform the engine accepts; its inverse
// is expm1.
const TransformLog1p = "log1p"

// LinearPipeline is a deserialized regression artifact: an intercept, weights
// for the numeric columns, and per-level effects for the categorical columns.
// The artifact is immutable for the process lifetime.
type LinearPipeline struct {
	TargetTransform string                        `json:"target_transform"`
	Intercept       float64                       `json:"intercept"`
	Numeric         map[string]float64            `json:"numeric"`
	Categorical     map[string]map[string]float64 `json:"categorical"`
}

// LoadPipeline reads a pipeline artifact from disk.
func LoadPipeline(path string) (*LinearPipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, verrors.NewArtifactLoad(fmt.Sprintf("read %s", path), err)
	}
	var p LinearPipeline
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, verrors.NewArtifactLoad(fmt.Sprintf("parse %s", path), err)
	}
	if p.TargetTransform != TransformLog1p {
		return nil, verrors.NewArtifactLoad(
			fmt.Sprintf("unsupported target transform %q (engine inverts log1p only)", p.TargetTransform), nil)
	}
	return &p, nil
}

// Predict returns the log-scale price for a feature record. A categorical
// level the artifact has never seen, or a column the artifact declares but
// the record cannot supply, is a schema mismatch; the pipeline never
// substitutes defaults.
func (p *LinearPipeline) Predict(features FeatureRecord) (float64, error) {
	numeric := map[string]float64{
		"Year":       float64(features.Year),
		"Grade":      features.Grade,
		"Mileage":    float64(features.Mileage),
		"sale_month": float64(features.SaleMonth),
		"age":        float64(features.Age),
	}
	categorical := map[string]string{
		"Make":           features.Make,
		"Model":          features.Model,
		"Series":         features.Series,
		"Engine Code":    features.EngineCode,
		"Roof":           features.Roof,
		"Interior":       features.Interior,
		"Drivable":       features.Drivable,
		"Auction Region": features.AuctionRegion,
		"Color":          features.Color,
	}

	sum := p.Intercept

	for col, weight := range p.Numeric {
		value, ok := numeric[col]
		if !ok {
			return 0, verrors.NewSchemaMismatch(col, fmt.Sprintf("artifact declares unknown numeric column %q", col))
		}
		sum += weight * value
	}

	for col, levels := range p.Categorical {
		value, ok := categorical[col]
		if !ok {
			return 0, verrors.NewSchemaMismatch(col, fmt.Sprintf("artifact declares unknown categorical column %q", col))
		}
		effect, ok := levels[value]
		if !ok {
			return 0, verrors.NewSchemaMismatch(col, fmt.Sprintf("unexpected %s value %q", col, value))
		}
		sum += effect
	}

	return sum, nil
}
