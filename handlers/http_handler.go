// Package handlers provides the HTTP handlers of the deprescription API.
package handlers

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/giygas/desprescricao-api/calculator"
	"github.com/giygas/desprescricao-api/interfaces"
	"github.com/giygas/desprescricao-api/logging"
	"github.com/giygas/desprescricao-api/metrics"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// CalculationIDHeader carries the id of a calculation, successful or not
const CalculationIDHeader = "X-Calculation-ID"

// Query parameters, Portuguese name first
var (
	sourceParams      = []string{"benzo", "source_drug"}
	doseParams        = []string{"dose", "dose_mg"}
	destinationParams = []string{"destino", "destination_drug"}
	startDateParams   = []string{"inicio", "start_date"}
	protocolParams    = []string{"protocolo", "protocol"}
)

// HTTPHandlerImpl implements the interfaces.HTTPHandler interface
type HTTPHandlerImpl struct {
	calculator interfaces.Calculator
	validator  interfaces.InputValidator
	health     interfaces.HealthChecker
}

// NewHTTPHandler creates a new HTTP handler with injected dependencies
func NewHTTPHandler(calc interfaces.Calculator, validator interfaces.InputValidator, health interfaces.HealthChecker) interfaces.HTTPHandler {
	return &HTTPHandlerImpl{
		calculator: calc,
		validator:  validator,
		health:     health,
	}
}

// HealthResponse keeps a stable JSON field order
type HealthResponse struct {
	Status string         `json:"status"`
	Data   map[string]any `json:"data"`
	System map[string]any `json:"system"`
}

// ProtocolsResponse lists the available protocols
type ProtocolsResponse struct {
	Protocols []calculator.ProtocolInfo `json:"protocols"`
}

// RespondWithJSON writes payload as JSON with the given status code
func (h *HTTPHandlerImpl) RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	w.Write(data)
}

// RespondWithError writes an error body carrying the error kind
func (h *HTTPHandlerImpl) RespondWithError(w http.ResponseWriter, code int, kind calculator.Kind, message string) {
	h.RespondWithJSON(w, code, calculator.ErrorResponse{Error: message, Kind: kind})
}

// Home answers that the API is up
func (h *HTTPHandlerImpl) Home(w http.ResponseWriter, r *http.Request) {
	h.RespondWithJSON(w, http.StatusOK, map[string]string{
		"message": "API de desprescrição funcionando",
	})
}

// Deprescribe computes a tapering schedule from the query string
func (h *HTTPHandlerImpl) Deprescribe(w http.ResponseWriter, r *http.Request) {
	calculationID := uuid.NewString()
	w.Header().Set(CalculationIDHeader, calculationID)

	query := r.URL.Query()
	req := calculator.Request{
		SourceDrug:      firstParam(query, sourceParams),
		Dose:            firstParam(query, doseParams),
		DestinationDrug: firstParam(query, destinationParams),
		StartDate:       firstParam(query, startDateParams),
		Protocol:        firstParam(query, protocolParams),
	}

	if kind, err := h.validate(req); err != nil {
		metrics.ObserveCalculationError(string(kind))
		logging.Warn("Rejected deprescription request",
			"calculation_id", calculationID,
			"request_id", middleware.GetReqID(r.Context()),
			"kind", kind,
			"error", err,
		)
		h.RespondWithError(w, http.StatusBadRequest, kind, err.Error())
		return
	}

	result, err := h.calculator.Calculate(req)
	if err != nil {
		kind := calculator.KindOf(err)
		metrics.ObserveCalculationError(string(kind))

		status := http.StatusBadRequest
		if !kind.BadInput() {
			status = http.StatusInternalServerError
			logging.Error("Calculation failed",
				"calculation_id", calculationID,
				"request_id", middleware.GetReqID(r.Context()),
				"error", err,
			)
		} else {
			logging.Warn("Rejected deprescription request",
				"calculation_id", calculationID,
				"request_id", middleware.GetReqID(r.Context()),
				"kind", kind,
				"error", err,
			)
		}

		h.RespondWithJSON(w, status, calculator.NewErrorResponse(err))
		return
	}

	metrics.ObserveSchedule(result.Protocol, result.DestinationDrug, result.Schedule.Weeks())
	logging.Info("Schedule generated",
		"calculation_id", calculationID,
		"request_id", middleware.GetReqID(r.Context()),
		"protocol", result.Protocol,
		"table", result.Table,
		"source", result.SourceDrug,
		"destination", result.DestinationDrug,
		"initial_drops", result.InitialDrops,
		"weeks", result.Schedule.Weeks(),
		"horizon_reached", result.Schedule.HorizonReached,
	)

	response := calculator.NewResponse(result)
	response.CalculationID = calculationID
	h.RespondWithJSON(w, http.StatusOK, response)
}

// validate screens the raw inputs and returns the kind to report
func (h *HTTPHandlerImpl) validate(req calculator.Request) (calculator.Kind, error) {
	if h.validator == nil {
		return "", nil
	}
	if err := h.validator.ValidateProtocolName(req.Protocol); err != nil {
		return calculator.KindUnknownProtocol, err
	}
	if err := h.validator.ValidateDrugName(req.SourceDrug); err != nil {
		return calculator.KindUnknownDrug, err
	}
	if err := h.validator.ValidateDose(req.Dose); err != nil {
		return calculator.KindInvalidDose, err
	}
	if err := h.validator.ValidateDrugName(req.DestinationDrug); err != nil {
		return calculator.KindUnsupportedDestination, err
	}
	return "", nil
}

// ListProtocols describes each protocol with its equivalence table
func (h *HTTPHandlerImpl) ListProtocols(w http.ResponseWriter, r *http.Request) {
	h.RespondWithJSON(w, http.StatusOK, ProtocolsResponse{Protocols: h.calculator.Protocols()})
}

// HealthCheck returns service health with runtime statistics
func (h *HTTPHandlerImpl) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status, data, httpStatus := h.health.HealthCheck()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	h.RespondWithJSON(w, httpStatus, HealthResponse{
		Status: status,
		Data:   data,
		System: map[string]any{
			"goroutines": runtime.NumGoroutine(),
			"time":       time.Now().UTC().Format(time.RFC3339),
			"memory": map[string]any{
				"alloc_mb": int(m.Alloc / 1024 / 1024),
				"sys_mb":   int(m.Sys / 1024 / 1024),
				"num_gc":   m.NumGC,
			},
		},
	})
}

// firstParam returns the first non-empty value among names
func firstParam(query map[string][]string, names []string) string {
	for _, name := range names {
		if values := query[name]; len(values) > 0 && values[0] != "" {
			return values[0]
		}
	}
	return ""
}
