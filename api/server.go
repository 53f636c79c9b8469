// Package api provides the HTTP surface of the valuation core: catalogue
// vocabularies, VIN decoding, estimation, and comparables.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"auction-valuation/internal/assemble"
	"auction-valuation/internal/catalogue"
	"auction-valuation/internal/comparables"
	"auction-valuation/internal/dataset"
	"auction-valuation/internal/valuation"
	"auction-valuation/internal/vin"
	pubapi "auction-valuation/pkg/api"
	verrors "auction-valuation/pkg/errors"
)

const version = "0.1.0"

// Config holds server configuration.
type Config struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	LookbackDays int
	RecentLimit  int
}

// DefaultConfig returns default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Port:         "8080",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		LookbackDays: comparables.DefaultLookbackDays,
		RecentLimit:  comparables.DefaultRecentLimit,
	}
}

// Server is the HTTP API server. The record set, catalogue and engine are
// constructed once at startup and read-only afterwards; every request is a
// synchronous pass through them.
type Server struct {
	httpServer *http.Server
	config     *Config

	records   []dataset.VehicleRecord
	catalogue *catalogue.Index
	engine    *valuation.Engine
	decoder   *vin.Decoder
	assembler *assemble.Assembler
	validate  *validator.Validate

	// now supplies the request clock; overridden in tests.
	now       func() time.Time
	startTime time.Time
}

// NewServer wires the core components into a server.
func NewServer(
	config *Config,
	records []dataset.VehicleRecord,
	index *catalogue.Index,
	engine *valuation.Engine,
	decoder *vin.Decoder,
	assembler *assemble.Assembler,
) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	return &Server{
		config:    config,
		records:   records,
		catalogue: index,
		engine:    engine,
		decoder:   decoder,
		assembler: assembler,
		validate:  validator.New(),
		now:       time.Now,
		startTime: time.Now(),
	}
}

// Router builds the chi route tree.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Get("/health/live", s.handleLiveness)
	r.Get("/health/ready", s.handleReadiness)
	r.Get("/version", s.handleVersion)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/catalogue", func(r chi.Router) {
			r.Get("/makes", s.handleMakes)
			r.Get("/models", s.handleModels)
			r.Get("/series", s.handleSeries)
			r.Get("/options", s.handleOptions)
			r.Get("/regions", s.handleRegions)
			r.Get("/colors", s.handleColors)
		})
		r.Get("/vin/{vin}", s.handleVin)
		r.Post("/estimate", s.handleEstimate)
		r.Post("/comparables", s.handleComparables)
	})

	return r
}

// Start runs the server until an error or a termination signal; shutdown is
// graceful with a 30s drain window.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         ":" + s.config.Port,
		Handler:      s.Router(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	log.Info().
		Str("port", s.config.Port).
		Str("version", version).
		Int("records", len(s.records)).
		Msg("Starting valuation API server")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case <-quit:
		log.Info().Msg("Shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(ctx)
	}
}

// Health handlers for load balancer probes.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": "auction-valuation",
		"version": version,
		"uptime":  time.Since(s.startTime).String(),
	})
}

func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if len(s.records) == 0 {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "record set not loaded",
		})
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("READY"))
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"version": version,
		"service": "auction-valuation",
	})
}

func (s *Server) handleMakes(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.catalogue.Makes())
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.catalogue.Models(r.URL.Query().Get("make")))
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	respondJSON(w, http.StatusOK, s.catalogue.Series(q.Get("make"), q.Get("model")))
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts, widened := s.catalogue.OptionsWidened(q.Get("make"), q.Get("model"), q.Get("series"))
	respondJSON(w, http.StatusOK, pubapi.OptionsResponse{
		Engines:   opts.Engines,
		Roofs:     opts.Roofs,
		Interiors: opts.Interiors,
		Widened:   widened,
	})
}

func (s *Server) handleRegions(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.catalogue.Regions())
}

func (s *Server) handleColors(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.catalogue.Colors())
}

func (s *Server) handleVin(w http.ResponseWriter, r *http.Request) {
	decoded, err := s.decoder.Decode(r.Context(), chi.URLParam(r, "vin"))
	if err != nil {
		// Decode failure is a non-fatal notice; the client falls back to
		// manual entry.
		respondJSON(w, http.StatusOK, pubapi.VinResponse{Failure: err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, pubapi.VinResponse{Decoded: decoded})
}

func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	var req pubapi.EstimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	var (
		decoded   *vin.DecodedVin
		vinNotice string
	)
	if req.VIN != "" {
		var err error
		decoded, err = s.decoder.Decode(r.Context(), req.VIN)
		if err != nil {
			vinNotice = err.Error()
			log.Warn().Str("vin", req.VIN).Err(err).Msg("VIN decode failed, using manual attributes")
		}
	}

	features, err := s.assembler.Assemble(assemble.Manual{
		Year:       req.Year,
		Make:       req.Make,
		Model:      req.Model,
		Series:     req.Series,
		EngineCode: req.EngineCode,
		Roof:       req.Roof,
		Interior:   req.Interior,
		Grade:      req.Grade,
		Mileage:    req.Mileage,
		Drivable:   req.Drivable,
		Region:     req.Region,
		Color:      req.Color,
		SaleYear:   req.SaleYear,
	}, decoded)
	if err != nil {
		respondValuationError(w, err)
		return
	}

	price, err := s.engine.Estimate(features)
	if err != nil {
		respondValuationError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, pubapi.EstimateResponse{
		RequestID:      uuid.NewString(),
		EstimatedValue: price,
		Currency:       "USD",
		Features:       features,
		VinNotice:      vinNotice,
		EstimatedAt:    s.now(),
	})
}

func (s *Server) handleComparables(w http.ResponseWriter, r *http.Request) {
	var req pubapi.ComparablesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	lookback := req.LookbackDays
	if lookback <= 0 {
		lookback = s.config.LookbackDays
	}
	limit := req.Limit
	if limit <= 0 {
		limit = s.config.RecentLimit
	}

	result := comparables.Query(s.records, comparables.Params{
		Make:     req.Make,
		Model:    req.Model,
		Series:   req.Series,
		YearLow:  req.YearLow,
		YearHigh: req.YearHigh,
		Since:    comparables.SinceLookback(s.now(), lookback),
		Limit:    limit,
	})

	respondJSON(w, http.StatusOK, pubapi.ComparablesResponse{
		Result: result,
		NoData: result.Empty(),
	})
}

// respondValuationError maps the error taxonomy onto HTTP statuses: incomplete
// specifications are unprocessable input, schema mismatches are request-scoped
// server errors, anything else is a bad request.
func respondValuationError(w http.ResponseWriter, err error) {
	var verr *verrors.ValuationError
	if errors.As(err, &verr) {
		switch verr.Code {
		case verrors.ErrCodeIncompleteSpec:
			respondError(w, http.StatusUnprocessableEntity, verr.Message, verr.Code)
		case verrors.ErrCodeSchemaMismatch:
			respondError(w, http.StatusInternalServerError, verr.Message, verr.Code)
		default:
			respondError(w, http.StatusBadRequest, verr.Message, verr.Code)
		}
		return
	}
	respondError(w, http.StatusInternalServerError, err.Error(), "")
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		fmt.Fprintln(os.Stderr, "encode response:", err)
	}
}

func respondError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(pubapi.ErrorResponse{
		Success: false,
		Error:   message,
		Code:    code,
	})
}
