// Package api defines the transport contracts between the presentation layer
// and the valuation core.
package api

// EstimateRequest carries one estimate interaction. VIN is optional; when
// present and decodable it overrides Year/Make/Model/Series and drives the
// engine-code fuzzy match.
type EstimateRequest struct {
	Year       int     `json:"year" validate:"required_without=VIN,omitempty,gte=1900,lte=2035"`
	Make       string  `json:"make" validate:"required_without=VIN"`
	Model      string  `json:"model" validate:"required_without=VIN"`
	Series     string  `json:"series" validate:"required_without=VIN"`
	EngineCode string  `json:"engine_code"`
	Roof       string  `json:"roof" validate:"required"`
	Interior   string  `json:"interior" validate:"required"`
	Grade      float64 `json:"grade" validate:"required,gte=1,lte=5"`
	Mileage    int     `json:"mileage" validate:"gte=0"`
	Drivable   string  `json:"drivable" validate:"required,oneof=Yes No"`
	Region     string  `json:"region" validate:"required"`
	Color      string  `json:"color" validate:"required"`
	SaleYear   int     `json:"sale_year" validate:"omitempty,gte=2000"`
	VIN        string  `json:"vin" validate:"omitempty,len=17"`
}

// ComparablesRequest selects a price-history window.
type ComparablesRequest struct {
	Make         string `json:"make" validate:"required"`
	Model        string `json:"model" validate:"required"`
	Series       string `json:"series" validate:"required"`
	YearLow      int    `json:"year_low" validate:"omitempty,gte=1900"`
	YearHigh     int    `json:"year_high" validate:"omitempty,gte=1900"`
	LookbackDays int    `json:"lookback_days" validate:"omitempty,gt=0"`
	Limit        int    `json:"limit" validate:"omitempty,gt=0"`
}
