// Package gate wires the safety classifier, the enforcement rules, and the
// receipt service into a request-scoped pipeline. Every truth-bearing
// operation runs through a Request: safety evaluation first where the
// operation calls for it, entity verification on everything fetched,
// citation enforcement on everything generated, and a signed receipt
// appended at the end.
package gate

import (
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/authentic-hadith/truthserum/pkg/enforcement"
	"github.com/authentic-hadith/truthserum/pkg/receipts"
	"github.com/authentic-hadith/truthserum/pkg/safety"
)

// ErrSafetyNotCleared is returned when a downstream stage runs before the
// safety classifier has allowed the request. The ordering is a hard
// invariant: no generation or persistence side effect before an allow.
var ErrSafetyNotCleared = errors.New("gate: safety evaluation has not cleared this request")

// Gate holds the shared pipeline dependencies. One Gate serves all
// requests; per-request state lives in Request.
type Gate struct {
	engine    *safety.Engine
	enforcer  *enforcement.Enforcer
	receipts  *receipts.Service
	auditLog  receipts.AuditLogStore
	safetyLog safety.DecisionStore
	logger    *slog.Logger

	tracer         trace.Tracer
	requestCounter metric.Int64Counter
	blockedCounter metric.Int64Counter
	errorCounter   metric.Int64Counter
	durationMillis metric.Float64Histogram
}

// Options carries the Gate's dependencies.
type Options struct {
	Engine    *safety.Engine
	Enforcer  *enforcement.Enforcer
	Receipts  *receipts.Service
	AuditLog  receipts.AuditLogStore
	SafetyLog safety.DecisionStore
	Logger    *slog.Logger
}

// New builds a Gate. Engine, Enforcer, Receipts, and AuditLog are
// required; SafetyLog is required only by operations that evaluate safety.
func New(opts Options) (*Gate, error) {
	if opts.Engine == nil || opts.Enforcer == nil || opts.Receipts == nil || opts.AuditLog == nil {
		return nil, fmt.Errorf("gate: engine, enforcer, receipts service, and audit log are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("component", "gate")
	}

	meter := otel.Meter("truthserum/gate")
	requestCounter, err := meter.Int64Counter("gate.requests",
		metric.WithDescription("Operations started"))
	if err != nil {
		return nil, fmt.Errorf("gate: create request counter: %w", err)
	}
	blockedCounter, err := meter.Int64Counter("gate.blocked",
		metric.WithDescription("Queries blocked by the safety classifier"))
	if err != nil {
		return nil, fmt.Errorf("gate: create blocked counter: %w", err)
	}
	errorCounter, err := meter.Int64Counter("gate.errors",
		metric.WithDescription("Operations that failed enforcement"))
	if err != nil {
		return nil, fmt.Errorf("gate: create error counter: %w", err)
	}
	durationMillis, err := meter.Float64Histogram("gate.duration_ms",
		metric.WithDescription("Operation duration in milliseconds"))
	if err != nil {
		return nil, fmt.Errorf("gate: create duration histogram: %w", err)
	}

	return &Gate{
		engine:         opts.Engine,
		enforcer:       opts.Enforcer,
		receipts:       opts.Receipts,
		auditLog:       opts.AuditLog,
		safetyLog:      opts.SafetyLog,
		logger:         logger,
		tracer:         otel.Tracer("truthserum/gate"),
		requestCounter: requestCounter,
		blockedCounter: blockedCounter,
		errorCounter:   errorCounter,
		durationMillis: durationMillis,
	}, nil
}

// needsSafetyClearance reports whether an operation generates content and
// therefore must pass the classifier before anything else runs.
func needsSafetyClearance(op receipts.OperationType) bool {
	switch op {
	case receipts.OpAIExplanation, receipts.OpAIVerification, receipts.OpSafetyEvaluation:
		return true
	}
	return false
}
