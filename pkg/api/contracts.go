package api

import (
	"time"

	"github.com/shopspring/decimal"

	"auction-valuation/internal/comparables"
	"auction-valuation/internal/valuation"
	"auction-valuation/internal/vin"
)

// EstimateResponse is the estimate output. VinNotice carries the non-fatal
// decode-failure message when the request fell back to the manual path.
type EstimateResponse struct {
	RequestID      string                  `json:"request_id"`
	EstimatedValue decimal.Decimal         `json:"estimated_value"`
	Currency       string                  `json:"currency"`
	Features       valuation.FeatureRecord `json:"features"`
	VinNotice      string                  `json:"vin_notice,omitempty"`
	EstimatedAt    time.Time               `json:"estimated_at"`
}

// VinResponse is the decode output for the standalone VIN endpoint.
type VinResponse struct {
	Decoded *vin.DecodedVin `json:"decoded,omitempty"`
	Failure string          `json:"failure,omitempty"`
}

// OptionsResponse lists the valid option sets for a triple, with the widening
// flag so the presentation layer can annotate fallback vocabularies.
type OptionsResponse struct {
	Engines   []string `json:"engines"`
	Roofs     []string `json:"roofs"`
	Interiors []string `json:"interiors"`
	Widened   bool     `json:"widened"`
}

// ComparablesResponse wraps the query result. NoData distinguishes the
// defined empty state from an error.
type ComparablesResponse struct {
	Result comparables.Result `json:"result"`
	NoData bool               `json:"no_data"`
}

// ErrorResponse is the uniform failure envelope.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}
