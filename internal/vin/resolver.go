// Package vin resolves Vehicle Identification Numbers through the NHTSA vPIC
// decoding service. Any failure mode (transport, timeout, non-2xx, malformed
// body, missing model year) yields a recoverable decode failure; the caller
// falls back to the manual input path.
package vin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	verrors "auction-valuation/pkg/errors"
)

// DefaultBaseURL is the public vPIC endpoint root.
const DefaultBaseURL = "https://vpic.nhtsa.dot.gov/api"

// DefaultTimeout bounds the decode round trip.
const DefaultTimeout = 5 * time.Second

// DecodedVin is the normalized decode result. Created per lookup, never
// persisted, never mutated after construction.
type DecodedVin struct {
	Year         int    `json:"year"`
	Make         string `json:"make"`
	Model        string `json:"model"`
	Series       string `json:"series"`
	Displacement string `json:"displacement"`
	EngineModel  string `json:"engine_model"`
}

// Decoder is the vPIC client.
type Decoder struct {
	baseURL string
	client  *http.Client
}

// NewDecoder creates a decoder for the given endpoint root. Empty baseURL or
// non-positive timeout select the defaults.
func NewDecoder(baseURL string, timeout time.Duration) *Decoder {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Decoder{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// vpicResponse mirrors the DecodeVinValues payload shape.
type vpicResponse struct {
	Results []vpicResult `json:"Results"`
}

type vpicResult struct {
	ModelYear          string `json:"ModelYear"`
	Make               string `json:"Make"`
	Model              string `json:"Model"`
	Trim               string `json:"Trim"`
	EngineDisplacement string `json:"DisplacementL"`
	EngineModel        string `json:"EngineModel"`
}

// Decode queries the decoding service for a VIN. On success every identity
// field is upper-cased; Displacement and EngineModel stay free text for the
// assembler's fuzzy match. A decoded model year of zero is a failure, never
// a usable result.
func (d *Decoder) Decode(ctx context.Context, vin string) (*DecodedVin, error) {
	vin = strings.TrimSpace(vin)
	if vin == "" {
		return nil, verrors.NewDecodeFailure(vin, fmt.Errorf("empty VIN"))
	}

	addr := fmt.Sprintf("%s/vehicles/DecodeVinValues/%s?format=json", d.baseURL, url.PathEscape(vin))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return nil, verrors.NewDecodeFailure(vin, err)
	}

	res, err := d.client.Do(req)
	if err != nil {
		return nil, verrors.NewDecodeFailure(vin, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, verrors.NewDecodeFailure(vin, fmt.Errorf("decode service returned %s", res.Status))
	}

	var body vpicResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, verrors.NewDecodeFailure(vin, fmt.Errorf("decode json body: %w", err))
	}
	if len(body.Results) == 0 {
		return nil, verrors.NewDecodeFailure(vin, fmt.Errorf("empty Results array"))
	}

	first := body.Results[0]
	year, _ := strconv.Atoi(strings.TrimSpace(first.ModelYear))
	if year <= 0 {
		return nil, verrors.NewDecodeFailure(vin, fmt.Errorf("model year absent in decode result"))
	}

	return &DecodedVin{
		Year:         year,
		Make:         strings.ToUpper(strings.TrimSpace(first.Make)),
		Model:        strings.ToUpper(strings.TrimSpace(first.Model)),
		Series:       strings.ToUpper(strings.TrimSpace(first.Trim)),
		Displacement: strings.TrimSpace(first.EngineDisplacement),
		EngineModel:  strings.TrimSpace(first.EngineModel),
	}, nil
}
