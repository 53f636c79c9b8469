package assemble

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auction-valuation/internal/catalogue"
	"auction-valuation/internal/dataset"
	"auction-valuation/internal/vin"
	verrors "auction-valuation/pkg/errors"
)

var assembleNow = time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

func rec(year int, mk, md, sr, engine, roof, interior string) dataset.VehicleRecord {
	return dataset.Normalize(dataset.VehicleRecord{
		Year: year, Make: mk, Model: md, Series: sr,
		EngineCode: engine, Roof: roof, Interior: interior,
		AuctionRegion: "SOUTHEAST", Color: "BLUE",
		Grade: 3.0, Mileage: 40000, Drivable: "Yes",
		SoldDate:  assembleNow.AddDate(0, 0, -10),
		SalePrice: decimal.NewFromInt(19000),
	}, assembleNow)
}

func testAssembler(t *testing.T) *Assembler {
	t.Helper()
	ix := catalogue.Build([]dataset.VehicleRecord{
		rec(2021, "HONDA", "CIVIC", "EX", "2.0L TURBO", "SUNROOF", "CLOTH"),
		rec(2020, "HONDA", "CIVIC", "EX", "1.8L", "NONE", "LEATHER"),
		rec(2019, "HONDA", "CIVIC", "SI", "2.0L TURBO", "", ""),
	})
	return &Assembler{Catalogue: ix, Now: func() time.Time { return assembleNow }}
}

func validManual() Manual {
	return Manual{
		Year: 2021, Make: "HONDA", Model: "CIVIC", Series: "EX",
		EngineCode: "1.8L", Roof: "SUNROOF", Interior: "CLOTH",
		Grade: 3.5, Mileage: 42000, Drivable: "Yes",
		Region: "SOUTHEAST", Color: "BLUE",
	}
}

func TestAssembleManualOnly(t *testing.T) {
	a := testAssembler(t)

	got, err := a.Assemble(validManual(), nil)
	require.NoError(t, err)

	assert.Equal(t, 2021, got.Year)
	assert.Equal(t, "HONDA", got.Make)
	assert.Equal(t, "1.8L", got.EngineCode)
	assert.Equal(t, "SUNROOF", got.Roof)
	assert.Equal(t, "CLOTH", got.Interior)
	assert.Equal(t, 8, got.SaleMonth)
	assert.Equal(t, 2026-2021, got.Age)
}

func TestAssembleIsIdempotent(t *testing.T) {
	a := testAssembler(t)

	first, err := a.Assemble(validManual(), nil)
	require.NoError(t, err)
	second, err := a.Assemble(validManual(), nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAssembleVinOverridesIdentityFields(t *testing.T) {
	a := testAssembler(t)

	manual := validManual()
	manual.Year, manual.Make, manual.Model, manual.Series = 1999, "TOYOTA", "CAMRY", "SE"

	got, err := a.Assemble(manual, &vin.DecodedVin{
		Year: 2021, Make: "HONDA", Model: "CIVIC", Series: "EX",
	})
	require.NoError(t, err)

	assert.Equal(t, 2021, got.Year)
	assert.Equal(t, "HONDA", got.Make)
	assert.Equal(t, "CIVIC", got.Model)
	assert.Equal(t, "EX", got.Series)
	assert.Equal(t, 2026-2021, got.Age)
}

func TestAssembleKeepsManualValueWhenDecodedFieldIsBlank(t *testing.T) {
	a := testAssembler(t)

	// vPIC frequently returns an empty Trim; the manual Series must survive
	// instead of being wiped by the decode.
	got, err := a.Assemble(validManual(), &vin.DecodedVin{
		Year: 2020, Make: "HONDA", Model: "CIVIC", Series: "",
	})
	require.NoError(t, err)

	assert.Equal(t, 2020, got.Year)
	assert.Equal(t, "EX", got.Series)
}

func TestFuzzyMatchPicksClosestEngine(t *testing.T) {
	a := testAssembler(t)

	got, err := a.Assemble(validManual(), &vin.DecodedVin{
		Year: 2021, Make: "HONDA", Model: "CIVIC", Series: "EX",
		Displacement: "2.0L",
	})
	require.NoError(t, err)

	// "2.0L" is closer to "2.0L TURBO" than to "1.8L".
	assert.Equal(t, "2.0L TURBO", got.EngineCode)
}

func TestFuzzyMatchFallsBackToEngineModel(t *testing.T) {
	a := testAssembler(t)

	got, err := a.Assemble(validManual(), &vin.DecodedVin{
		Year: 2021, Make: "HONDA", Model: "CIVIC", Series: "EX",
		Displacement: "", EngineModel: "1.8L",
	})
	require.NoError(t, err)

	assert.Equal(t, "1.8L", got.EngineCode)
}

func TestFuzzyMatchBelowThresholdUsesManualSelection(t *testing.T) {
	a := testAssembler(t)

	got, err := a.Assemble(validManual(), &vin.DecodedVin{
		Year: 2021, Make: "HONDA", Model: "CIVIC", Series: "EX",
		Displacement: "V8", EngineModel: "",
	})
	require.NoError(t, err)

	// Neither decoded string clears the acceptance threshold; the manual
	// selection from the option list wins.
	assert.Equal(t, "1.8L", got.EngineCode)
}

func TestRoofWidensWhenTripleHasNoOptions(t *testing.T) {
	a := testAssembler(t)

	manual := validManual()
	manual.Series = "SI" // SI records carry no roof/interior values
	manual.Roof, manual.Interior = "NONE", "LEATHER"

	got, err := a.Assemble(manual, nil)
	require.NoError(t, err)

	assert.Equal(t, "NONE", got.Roof)
	assert.Equal(t, "LEATHER", got.Interior)
}

func requireIncomplete(t *testing.T, err error, field string) {
	t.Helper()
	require.Error(t, err)
	var verr *verrors.ValuationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, verrors.ErrCodeIncompleteSpec, verr.Code)
	assert.Equal(t, field, verr.Field)
}

func TestAssembleRefusesWhenNoOptionsExist(t *testing.T) {
	// A catalogue whose only records lack roof data offers nothing to choose
	// from; the assembler must refuse, not invent a value.
	ix := catalogue.Build([]dataset.VehicleRecord{
		rec(2021, "FORD", "FESTIVA", "L", "1.3L", "", ""),
	})
	a := &Assembler{Catalogue: ix, Now: func() time.Time { return assembleNow }}

	manual := validManual()
	manual.Make, manual.Model, manual.Series = "FORD", "FESTIVA", "L"
	manual.EngineCode, manual.Roof = "1.3L", "NONE"

	_, err := a.Assemble(manual, nil)
	requireIncomplete(t, err, "Roof")
}

func TestAssembleRefusesSelectionOutsideOptionList(t *testing.T) {
	a := testAssembler(t)

	manual := validManual()
	manual.Roof = "T-TOP"

	_, err := a.Assemble(manual, nil)
	requireIncomplete(t, err, "Roof")
}

func TestAssembleRefusesMissingIdentity(t *testing.T) {
	a := testAssembler(t)

	manual := validManual()
	manual.Make = ""

	_, err := a.Assemble(manual, nil)
	requireIncomplete(t, err, "Make")
}

func TestAssembleRefusesOutOfRangeGrade(t *testing.T) {
	a := testAssembler(t)

	manual := validManual()
	manual.Grade = 0

	_, err := a.Assemble(manual, nil)
	requireIncomplete(t, err, "Grade")
}

func TestSaleYearAnchorsAge(t *testing.T) {
	a := testAssembler(t)

	manual := validManual()
	manual.SaleYear = 2024

	got, err := a.Assemble(manual, nil)
	require.NoError(t, err)
	assert.Equal(t, 2024-2021, got.Age)
}
