// Package catalogue builds hierarchical attribute lookups from the historical
// record set: Make -> Model -> Series -> {Engine, Roof, Interior}, plus global
// region and color vocabularies. The index is a faithful projection of the
// records, built once and read-only afterwards.
package catalogue

import (
	"sort"
	"strings"

	"auction-valuation/internal/dataset"
)

// keySep joins composite key parts. It cannot occur in a normalized attribute
// because records are trimmed single-line strings; a stray separator in the
// data would only split a key into an unreachable one, never collide two.
const keySep = "\x1f"

// Options is the valid option set for one (make, model, series) combination.
type Options struct {
	Engines   []string `json:"engines"`
	Roofs     []string `json:"roofs"`
	Interiors []string `json:"interiors"`
}

// Empty reports whether no attribute has any option.
func (o Options) Empty() bool {
	return len(o.Engines) == 0 && len(o.Roofs) == 0 && len(o.Interiors) == 0
}

// Index serves sorted option vocabularies derived from the record set.
type Index struct {
	makes   []string
	models  map[string][]string // make -> models
	series  map[string][]string // make|model -> series
	engines map[string][]string // make|model -> engine codes
	roofs   map[string][]string // make|model|series -> roofs
	inter   map[string][]string // make|model|series -> interiors
	regions []string
	colors  []string
}

// Build constructs the index from the record set. Pure and deterministic:
// every output collection is the sorted set of distinct values among the
// records that match the key.
func Build(records []dataset.VehicleRecord) *Index {
	makes := newSet()
	models := map[string]*set{}
	series := map[string]*set{}
	engines := map[string]*set{}
	roofs := map[string]*set{}
	inter := map[string]*set{}
	regions := newSet()
	colors := newSet()

	for _, rec := range records {
		if rec.Make == "" {
			continue
		}
		makes.add(rec.Make)
		regions.add(rec.AuctionRegion)
		colors.add(rec.Color)

		if rec.Model == "" {
			continue
		}
		mk := rec.Make
		mkmd := key(rec.Make, rec.Model)
		setIn(models, mk).add(rec.Model)
		setIn(series, mkmd).add(rec.Series)
		setIn(engines, mkmd).add(rec.EngineCode)

		if rec.Series == "" {
			continue
		}
		triple := key(rec.Make, rec.Model, rec.Series)
		setIn(roofs, triple).add(rec.Roof)
		setIn(inter, triple).add(rec.Interior)
	}

	return &Index{
		makes:   makes.sorted(),
		models:  freeze(models),
		series:  freeze(series),
		engines: freeze(engines),
		roofs:   freeze(roofs),
		inter:   freeze(inter),
		regions: regions.sorted(),
		colors:  colors.sorted(),
	}
}

// Makes returns the sorted distinct makes.
func (ix *Index) Makes() []string { return ix.makes }

// Models returns the sorted distinct models for a make.
func (ix *Index) Models(make string) []string {
	return ix.models[strings.ToUpper(make)]
}

// Series returns the sorted distinct series for a (make, model).
func (ix *Index) Series(make, model string) []string {
	return ix.series[key(strings.ToUpper(make), strings.ToUpper(model))]
}

// Regions returns the global sorted region vocabulary.
func (ix *Index) Regions() []string { return ix.regions }

// Colors returns the global sorted color vocabulary.
func (ix *Index) Colors() []string { return ix.colors }

// Engines returns the engine codes for a (make, model). Engine vocabulary is
// keyed one level above series: the sales data ties engines to the model.
func (ix *Index) Engines(make, model string) []string {
	return ix.engines[key(strings.ToUpper(make), strings.ToUpper(model))]
}

// Options returns the option sets for an exact (make, model, series) triple.
// An empty list means "no valid options", not an error.
func (ix *Index) Options(make, model, series string) Options {
	mk, md, sr := strings.ToUpper(make), strings.ToUpper(model), strings.ToUpper(series)
	triple := key(mk, md, sr)
	return Options{
		Engines:   ix.engines[key(mk, md)],
		Roofs:     ix.roofs[triple],
		Interiors: ix.inter[triple],
	}
}

// OptionsWidened looks up the triple and, for any attribute with no options,
// retries keyed by (make, model) only: the union across all series of the
// model. widened reports whether any attribute needed the fallback. If an
// attribute is still empty after widening, the option set is genuinely empty
// and the caller surfaces that explicitly.
func (ix *Index) OptionsWidened(make, model, series string) (opts Options, widened bool) {
	opts = ix.Options(make, model, series)
	mk, md := strings.ToUpper(make), strings.ToUpper(model)

	if len(opts.Roofs) == 0 {
		if wide := ix.unionAcrossSeries(ix.roofs, mk, md); len(wide) > 0 {
			opts.Roofs = wide
			widened = true
		}
	}
	if len(opts.Interiors) == 0 {
		if wide := ix.unionAcrossSeries(ix.inter, mk, md); len(wide) > 0 {
			opts.Interiors = wide
			widened = true
		}
	}
	return opts, widened
}

func (ix *Index) unionAcrossSeries(m map[string][]string, mk, md string) []string {
	union := newSet()
	for _, sr := range ix.series[key(mk, md)] {
		for _, v := range m[key(mk, md, sr)] {
			union.add(v)
		}
	}
	return union.sorted()
}

func key(parts ...string) string {
	return strings.Join(parts, keySep)
}

type set struct {
	values map[string]struct{}
}

func newSet() *set {
	return &set{values: make(map[string]struct{})}
}

func (s *set) add(v string) {
	if v == "" {
		return
	}
	s.values[v] = struct{}{}
}

func (s *set) sorted() []string {
	if len(s.values) == 0 {
		return nil
	}
	out := make([]string, 0, len(s.values))
	for v := range s.values {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func setIn(m map[string]*set, k string) *set {
	s, ok := m[k]
	if !ok {
		s = newSet()
		m[k] = s
	}
	return s
}

func freeze(m map[string]*set) map[string][]string {
	out := make(map[string][]string, len(m))
	for k, s := range m {
		if sorted := s.sorted(); sorted != nil {
			out[k] = sorted
		}
	}
	return out
}
