package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/giygas/desprescricao-api/calculator"
)

// ============================================================================
// MOCKS
// ============================================================================

// MockCalculator records the last request and returns canned values
type MockCalculator struct {
	result    *calculator.Result
	err       error
	protocols []calculator.ProtocolInfo
	lastReq   calculator.Request
	calls     int
}

func (m *MockCalculator) Calculate(req calculator.Request) (*calculator.Result, error) {
	m.calls++
	m.lastReq = req
	return m.result, m.err
}

func (m *MockCalculator) Protocols() []calculator.ProtocolInfo {
	return m.protocols
}

// MockCalculatorBuilder provides fluent interface for building mock calculators
type MockCalculatorBuilder struct {
	calc *MockCalculator
}

func NewMockCalculatorBuilder() *MockCalculatorBuilder {
	return &MockCalculatorBuilder{calc: &MockCalculator{
		protocols: []calculator.ProtocolInfo{
			{Name: calculator.ProtocolExponential, Table: "ten-mg-reference/v1"},
			{Name: calculator.ProtocolTiered, Table: "diazepam-per-mg/v1", Default: true},
		},
	}}
}

func (b *MockCalculatorBuilder) WithResult(result *calculator.Result) *MockCalculatorBuilder {
	b.calc.result = result
	return b
}

func (b *MockCalculatorBuilder) WithError(err error) *MockCalculatorBuilder {
	b.calc.err = err
	return b
}

func (b *MockCalculatorBuilder) Build() *MockCalculator {
	return b.calc
}

// MockInputValidator fails the configured checks
type MockInputValidator struct {
	drugErr     error
	doseErr     error
	protocolErr error
}

func (m *MockInputValidator) ValidateDrugName(name string) error {
	return m.drugErr
}

func (m *MockInputValidator) ValidateDose(raw string) error {
	return m.doseErr
}

func (m *MockInputValidator) ValidateProtocolName(name string) error {
	return m.protocolErr
}

// MockHealthChecker returns a fixed status
type MockHealthChecker struct {
	status     string
	httpStatus int
}

func (m *MockHealthChecker) HealthCheck() (string, map[string]any, int) {
	return m.status, map[string]any{"protocols": []string{"exponential", "tiered"}}, m.httpStatus
}

// ============================================================================
// HELPERS
// ============================================================================

func newTestHandler(calc *MockCalculator, validator *MockInputValidator) *HTTPHandlerImpl {
	if validator == nil {
		validator = &MockInputValidator{}
	}
	health := &MockHealthChecker{status: "healthy", httpStatus: http.StatusOK}
	return NewHTTPHandler(calc, validator, health).(*HTTPHandlerImpl)
}

func executeRequest(handler http.HandlerFunc, target string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	handler(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}

func decodeJSON[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rr.Body.String(), err)
	}
	return v
}

// newRealResult runs the real calculator so handler tests see real schedules
func newRealResult(t *testing.T, req calculator.Request) *calculator.Result {
	t.Helper()
	registry, err := calculator.NewRegistry(calculator.DefaultOptions())
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	result, err := calculator.New(registry).Calculate(req)
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	return result
}

var errBoom = errors.New("boom")
