package vin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	verrors "auction-valuation/pkg/errors"
)

const testVin = "19XFC2F69KE000000"

func vpicStub(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func vpicBody(year, make, model, trim, displacement, engineModel string) string {
	return fmt.Sprintf(`{"Results":[{"ModelYear":%q,"Make":%q,"Model":%q,"Trim":%q,"DisplacementL":%q,"EngineModel":%q}]}`,
		year, make, model, trim, displacement, engineModel)
}

func TestDecodeSuccessNormalizes(t *testing.T) {
	srv := vpicStub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/vehicles/DecodeVinValues/"+testVin, r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		fmt.Fprint(w, vpicBody("2019", "honda", "Civic", "ex", "2.0", "K20C2"))
	})

	d := NewDecoder(srv.URL, time.Second)
	decoded, err := d.Decode(context.Background(), testVin)
	require.NoError(t, err)

	assert.Equal(t, 2019, decoded.Year)
	assert.Equal(t, "HONDA", decoded.Make)
	assert.Equal(t, "CIVIC", decoded.Model)
	assert.Equal(t, "EX", decoded.Series)
	assert.Equal(t, "2.0", decoded.Displacement)
	assert.Equal(t, "K20C2", decoded.EngineModel)
}

func requireDecodeFailure(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var verr *verrors.ValuationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, verrors.ErrCodeDecodeFailed, verr.Code)
	assert.True(t, verr.Recoverable)
}

func TestDecodeModelYearZeroIsFailure(t *testing.T) {
	srv := vpicStub(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, vpicBody("0", "HONDA", "CIVIC", "EX", "", ""))
	})

	d := NewDecoder(srv.URL, time.Second)
	decoded, err := d.Decode(context.Background(), testVin)
	assert.Nil(t, decoded)
	requireDecodeFailure(t, err)
}

func TestDecodeMissingModelYearIsFailure(t *testing.T) {
	srv := vpicStub(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, vpicBody("", "HONDA", "CIVIC", "EX", "", ""))
	})

	d := NewDecoder(srv.URL, time.Second)
	_, err := d.Decode(context.Background(), testVin)
	requireDecodeFailure(t, err)
}

func TestDecodeEmptyResultsIsFailure(t *testing.T) {
	srv := vpicStub(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"Results":[]}`)
	})

	d := NewDecoder(srv.URL, time.Second)
	_, err := d.Decode(context.Background(), testVin)
	requireDecodeFailure(t, err)
}

func TestDecodeMalformedJSONIsFailure(t *testing.T) {
	srv := vpicStub(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"Results": not-json`)
	})

	d := NewDecoder(srv.URL, time.Second)
	_, err := d.Decode(context.Background(), testVin)
	requireDecodeFailure(t, err)
}

func TestDecodeNon2xxIsFailure(t *testing.T) {
	srv := vpicStub(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broken", http.StatusBadGateway)
	})

	d := NewDecoder(srv.URL, time.Second)
	_, err := d.Decode(context.Background(), testVin)
	requireDecodeFailure(t, err)
}

func TestDecodeTimeoutReturnsPromptly(t *testing.T) {
	srv := vpicStub(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		fmt.Fprint(w, vpicBody("2019", "HONDA", "CIVIC", "EX", "", ""))
	})

	d := NewDecoder(srv.URL, 50*time.Millisecond)
	start := time.Now()
	_, err := d.Decode(context.Background(), testVin)
	requireDecodeFailure(t, err)
	assert.Less(t, time.Since(start), 400*time.Millisecond)
}

func TestDecodeEmptyVinIsFailure(t *testing.T) {
	d := NewDecoder("http://127.0.0.1:0", time.Second)
	_, err := d.Decode(context.Background(), "  ")
	requireDecodeFailure(t, err)
}
