// Package assemble merges manual selections with VIN-derived attributes into
// the canonical feature record the trained pipeline expects.
package assemble

import (
	"strings"
	"time"

	"github.com/xrash/smetrics"

	"auction-valuation/internal/catalogue"
	"auction-valuation/internal/valuation"
	"auction-valuation/internal/vin"
	verrors "auction-valuation/pkg/errors"
)

// DefaultMatchThreshold is the pinned acceptance threshold for fuzzy engine
// code resolution (Jaro-Winkler similarity).
const DefaultMatchThreshold = 0.70

// jaroWinkler boost parameters, the library's conventional values.
const (
	boostThreshold = 0.7
	prefixSize     = 4
)

// Manual holds the user's selections. Grade, Mileage, Drivable, Region and
// Color are always manual; the identity fields are overridden by a successful
// VIN decode.
type Manual struct {
	Year       int
	Make       string
	Model      string
	Series     string
	EngineCode string
	Roof       string
	Interior   string
	Grade      float64
	Mileage    int
	Drivable   string
	Region     string
	Color      string
	// SaleYear anchors the age computation; zero means the current year.
	SaleYear int
}

// Assembler builds feature records against a catalogue.
type Assembler struct {
	Catalogue *catalogue.Index
	// Threshold is the fuzzy-match acceptance threshold; zero selects
	// DefaultMatchThreshold.
	Threshold float64
	// Now supplies the estimate-time clock; nil selects time.Now.
	Now func() time.Time
}

// Assemble resolves every feature field per the precedence rules: a decoded
// VIN wins for Year/Make/Model/Series field by field where the decode
// produced a value, engine code resolves by
// fuzzy match against the catalogue vocabulary, Roof/Interior are manual
// selections constrained to the (widened) option list, and the remaining
// fields are always manual. Deterministic and idempotent for identical
// inputs. Returns an INCOMPLETE_SPEC error when a required field has no
// usable value.
func (a *Assembler) Assemble(manual Manual, decoded *vin.DecodedVin) (valuation.FeatureRecord, error) {
	var rec valuation.FeatureRecord

	rec.Year = manual.Year
	rec.Make = strings.ToUpper(manual.Make)
	rec.Model = strings.ToUpper(manual.Model)
	rec.Series = strings.ToUpper(manual.Series)
	if decoded != nil {
		// vPIC routinely returns partial results (Trim in particular is
		// often blank); decoded fields only override when populated so a
		// valid manual value survives the gaps.
		if decoded.Year > 0 {
			rec.Year = decoded.Year
		}
		if decoded.Make != "" {
			rec.Make = decoded.Make
		}
		if decoded.Model != "" {
			rec.Model = decoded.Model
		}
		if decoded.Series != "" {
			rec.Series = decoded.Series
		}
	}

	if err := requireAll(
		req{"Make", rec.Make}, req{"Model", rec.Model}, req{"Series", rec.Series},
	); err != nil {
		return valuation.FeatureRecord{}, err
	}
	if rec.Year <= 0 {
		return valuation.FeatureRecord{}, verrors.NewIncompleteSpec("Year")
	}

	engine, err := a.resolveEngine(rec, manual, decoded)
	if err != nil {
		return valuation.FeatureRecord{}, err
	}
	rec.EngineCode = engine

	opts, _ := a.Catalogue.OptionsWidened(rec.Make, rec.Model, rec.Series)
	if rec.Roof, err = pickConstrained("Roof", manual.Roof, opts.Roofs); err != nil {
		return valuation.FeatureRecord{}, err
	}
	if rec.Interior, err = pickConstrained("Interior", manual.Interior, opts.Interiors); err != nil {
		return valuation.FeatureRecord{}, err
	}

	if manual.Grade < 1.0 || manual.Grade > 5.0 {
		return valuation.FeatureRecord{}, verrors.NewIncompleteSpec("Grade")
	}
	rec.Grade = manual.Grade
	rec.Mileage = manual.Mileage
	rec.Drivable = manual.Drivable
	rec.AuctionRegion = strings.ToUpper(manual.Region)
	rec.Color = strings.ToUpper(manual.Color)
	if err := requireAll(
		req{"Drivable", rec.Drivable}, req{"Auction Region", rec.AuctionRegion}, req{"Color", rec.Color},
	); err != nil {
		return valuation.FeatureRecord{}, err
	}

	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	rec.SaleMonth = int(now().Month())
	saleYear := manual.SaleYear
	if saleYear == 0 {
		saleYear = now().Year()
	}
	rec.Age = saleYear - rec.Year

	return rec, nil
}

// resolveEngine picks the engine code. With a successful decode the free-text
// Displacement is matched first, then EngineModel; neither string belongs to
// the catalogue vocabulary, so the closest option above the acceptance
// threshold wins. Without a decode (or when no candidate clears the
// threshold) the manual selection is used, constrained to the option list.
func (a *Assembler) resolveEngine(rec valuation.FeatureRecord, manual Manual, decoded *vin.DecodedVin) (string, error) {
	options := a.Catalogue.Engines(rec.Make, rec.Model)

	if decoded != nil && len(options) > 0 {
		if match, ok := a.closestMatch(decoded.Displacement, options); ok {
			return match, nil
		}
		if match, ok := a.closestMatch(decoded.EngineModel, options); ok {
			return match, nil
		}
	}

	return pickConstrained("Engine Code", manual.EngineCode, options)
}

// closestMatch returns the top-1 option by Jaro-Winkler similarity, accepted
// only at or above the threshold.
func (a *Assembler) closestMatch(query string, options []string) (string, bool) {
	query = strings.ToUpper(strings.TrimSpace(query))
	if query == "" {
		return "", false
	}

	threshold := a.Threshold
	if threshold == 0 {
		threshold = DefaultMatchThreshold
	}

	best, bestScore := "", 0.0
	for _, opt := range options {
		score := smetrics.JaroWinkler(query, strings.ToUpper(opt), boostThreshold, prefixSize)
		if score > bestScore {
			best, bestScore = opt, score
		}
	}
	if bestScore < threshold {
		return "", false
	}
	return best, true
}

type req struct {
	field string
	value string
}

func requireAll(reqs ...req) error {
	for _, r := range reqs {
		if r.value == "" {
			return verrors.NewIncompleteSpec(r.field)
		}
	}
	return nil
}

// pickConstrained validates a manual selection against the option list. An
// empty option list is an incomplete specification: the assembler refuses
// rather than inventing a value.
func pickConstrained(field, value string, options []string) (string, error) {
	if len(options) == 0 {
		return "", verrors.NewIncompleteSpec(field)
	}
	value = strings.ToUpper(strings.TrimSpace(value))
	if value == "" {
		return "", verrors.NewIncompleteSpec(field)
	}
	for _, opt := range options {
		if strings.ToUpper(opt) == value {
			return opt, nil
		}
	}
	return "", verrors.NewIncompleteSpec(field)
}
