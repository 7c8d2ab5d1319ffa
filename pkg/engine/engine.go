package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cpathways/cprules/pkg/model"
	"cpathways/cprules/pkg/rules"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Request is a single authorization request from the host.
type Request struct {
	// Action is the host action name, e.g. "connection.create".
	Action string `json:"action" yaml:"action"`

	// Context is the action payload.
	Context *model.Context `json:"context" yaml:"context"`

	// SessionID identifies the editing session. Optional.
	SessionID string `json:"session_id,omitempty" yaml:"session_id,omitempty"`
}

// Decision is the outcome of evaluating a request.
type Decision struct {
	// Action is the parsed action.
	Action rules.Action `json:"action"`

	// Verdict is the chain's verdict after fail-safe handling.
	Verdict rules.Verdict `json:"verdict"`

	// Permitted is the final answer.
	Permitted bool `json:"permitted"`

	// Fallback is true when Permitted came from the configured fallback.
	Fallback bool `json:"fallback"`

	EvaluatedAt time.Time     `json:"evaluated_at"`
	Duration    time.Duration `json:"duration"`

	// Error holds the fault message if a decision function faulted.
	Error string `json:"error,omitempty"`
}

// MetricsRecorder receives evaluation metrics.
type MetricsRecorder interface {
	RecordEvaluation(action, verdict string, duration time.Duration)
	RecordFallback(action string)
	RecordFault(action string)
}

// DecisionRecorder receives every decision, typically for the audit trail.
type DecisionRecorder interface {
	RecordDecision(ctx context.Context, req *Request, decision *Decision) error
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics attaches a metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithRecorder attaches a decision recorder.
func WithRecorder(r DecisionRecorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithTracer attaches an OpenTelemetry tracer. Each evaluation becomes a
// "rules.evaluate" span.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// Engine evaluates requests against a rule chain.
// It is safe for concurrent use.
type Engine struct {
	chain    *rules.Chain
	config   *Config
	logger   *slog.Logger
	metrics  MetricsRecorder
	recorder DecisionRecorder
	tracer   trace.Tracer
}

// New creates an engine over chain.
func New(chain *rules.Chain, config *Config, logger *slog.Logger, opts ...Option) (*Engine, error) {
	if chain == nil {
		return nil, fmt.Errorf("rule chain cannot be nil")
	}

	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		chain:  chain,
		config: config,
		logger: logger.With("component", "engine"),
		tracer: noop.NewTracerProvider().Tracer("cprules/engine"),
	}
	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Evaluate authorizes a single request.
// It returns an error only for malformed requests; decision function faults
// are resolved through the fail-safe mode and reported in Decision.Error.
func (e *Engine) Evaluate(ctx context.Context, req *Request) (*Decision, error) {
	if req == nil {
		return nil, ErrNilRequest
	}

	action, err := rules.ParseAction(req.Action)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, span := e.tracer.Start(ctx, "rules.evaluate",
		trace.WithAttributes(attribute.String("cprules.action", action.String())),
	)
	defer span.End()

	start := time.Now()
	decision := &Decision{
		Action:      action,
		EvaluatedAt: start,
	}

	verdict, evalErr := e.chain.EvaluateSafe(action, req.Context)
	if evalErr != nil {
		verdict = e.handleFault(evalErr, action, req)
		decision.Error = evalErr.Error()
		span.RecordError(evalErr)
		span.SetStatus(codes.Error, "decision function fault")
	}

	decision.Verdict = verdict
	if verdict.IsDefer() {
		decision.Fallback = true
		decision.Permitted = e.config.Fallback == FallbackAllow
		if e.metrics != nil {
			e.metrics.RecordFallback(action.String())
		}
	} else {
		decision.Permitted = verdict.Permits(false)
	}
	decision.Duration = time.Since(start)

	span.SetAttributes(
		attribute.String("cprules.verdict", verdict.Label()),
		attribute.Bool("cprules.permitted", decision.Permitted),
		attribute.Bool("cprules.fallback", decision.Fallback),
	)
	if req.SessionID != "" {
		span.SetAttributes(attribute.String("cprules.session_id", req.SessionID))
	}

	if e.metrics != nil {
		e.metrics.RecordEvaluation(action.String(), verdict.Label(), decision.Duration)
	}

	e.logger.Debug("action evaluated",
		"action", action.String(),
		"verdict", verdict.String(),
		"permitted", decision.Permitted,
		"fallback", decision.Fallback,
		"session_id", req.SessionID,
		"duration_us", decision.Duration.Microseconds(),
	)

	if e.recorder != nil {
		if err := e.recorder.RecordDecision(ctx, req, decision); err != nil {
			e.logger.Warn("failed to record decision",
				"action", action.String(),
				"error", err,
			)
		}
	}

	return decision, nil
}

// handleFault applies the fail-safe mode to a faulting decision function.
func (e *Engine) handleFault(err error, action rules.Action, req *Request) rules.Verdict {
	e.logger.Error("rule evaluation error",
		"error", err,
		"action", action.String(),
		"session_id", req.SessionID,
		"fail_safe_mode", e.config.FailSafeMode,
	)

	if e.metrics != nil {
		e.metrics.RecordFault(action.String())
	}

	if e.config.FailSafeMode == FailOpen {
		return rules.Defer()
	}
	return rules.Deny()
}

// Chain returns the underlying rule chain.
func (e *Engine) Chain() *rules.Chain {
	return e.chain
}

// Config returns the engine configuration.
func (e *Engine) Config() *Config {
	return e.config
}
