package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"cpathways/cprules/pkg/audit"
	"cpathways/cprules/pkg/engine"
	"cpathways/cprules/pkg/rules"
	"cpathways/cprules/pkg/telemetry/logging"
)

// maxBatchSize bounds POST /v1/evaluate/batch.
const maxBatchSize = 1000

// EvaluateResponse is the answer to a single evaluation.
type EvaluateResponse struct {
	Action     string        `json:"action"`
	Verdict    rules.Verdict `json:"verdict"`
	Permitted  bool          `json:"permitted"`
	Fallback   bool          `json:"fallback"`
	DurationMS float64       `json:"duration_ms"`
	Error      string        `json:"error,omitempty"`
}

// BatchRequest is the body of POST /v1/evaluate/batch.
type BatchRequest struct {
	Requests []engine.Request `json:"requests"`
}

// BatchResult is one entry of a batch answer: either a decision or the
// reason the request was rejected.
type BatchResult struct {
	*EvaluateResponse
	Rejected string `json:"rejected,omitempty"`
}

// BatchResponse is the answer to POST /v1/evaluate/batch.
type BatchResponse struct {
	Results []BatchResult `json:"results"`
}

// RuleInfo describes the rules registered for one action.
type RuleInfo struct {
	Action string `json:"action"`
	Rules  int    `json:"rules"`
}

// RulesResponse is the answer to GET /v1/rules.
type RulesResponse struct {
	Rules []RuleInfo `json:"rules"`
}

// AuditResponse is the answer to GET /v1/audit.
type AuditResponse struct {
	Records []*audit.Record `json:"records"`
	Total   int64           `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

func newEvaluateResponse(d *engine.Decision) *EvaluateResponse {
	return &EvaluateResponse{
		Action:     d.Action.String(),
		Verdict:    d.Verdict,
		Permitted:  d.Permitted,
		Fallback:   d.Fallback,
		DurationMS: float64(d.Duration.Nanoseconds()) / 1e6,
		Error:      d.Error,
	}
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func (s *Server) withSession(ctx context.Context, sessionID string) context.Context {
	if sessionID == "" {
		return ctx
	}
	return logging.WithSessionID(ctx, sessionID)
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req engine.Request
	if err := s.decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorTypeInvalidRequest, err.Error())
		return
	}

	ctx := s.withSession(r.Context(), req.SessionID)
	decision, err := s.opts.Engine.Evaluate(ctx, &req)
	if err != nil {
		s.writeEvaluateError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newEvaluateResponse(decision))
}

func (s *Server) handleEvaluateBatch(w http.ResponseWriter, r *http.Request) {
	var batch BatchRequest
	if err := s.decodeBody(w, r, &batch); err != nil {
		writeError(w, http.StatusBadRequest, ErrorTypeInvalidRequest, err.Error())
		return
	}
	if len(batch.Requests) == 0 {
		writeError(w, http.StatusBadRequest, ErrorTypeInvalidRequest, "requests cannot be empty")
		return
	}
	if len(batch.Requests) > maxBatchSize {
		writeError(w, http.StatusBadRequest, ErrorTypeInvalidRequest,
			fmt.Sprintf("batch exceeds %d requests", maxBatchSize))
		return
	}

	resp := BatchResponse{Results: make([]BatchResult, 0, len(batch.Requests))}
	for i := range batch.Requests {
		req := &batch.Requests[i]
		decision, err := s.opts.Engine.Evaluate(s.withSession(r.Context(), req.SessionID), req)
		if err != nil {
			if ctxErr := r.Context().Err(); ctxErr != nil {
				writeError(w, http.StatusServiceUnavailable, ErrorTypeUnavailable, ctxErr.Error())
				return
			}
			resp.Results = append(resp.Results, BatchResult{Rejected: err.Error()})
			continue
		}
		resp.Results = append(resp.Results, BatchResult{EvaluateResponse: newEvaluateResponse(decision)})
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeEvaluateError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, rules.ErrUnknownAction), errors.Is(err, engine.ErrNilRequest):
		writeError(w, http.StatusBadRequest, ErrorTypeInvalidRequest, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, ErrorTypeUnavailable, err.Error())
	default:
		logging.FromContext(r.Context(), s.logger).Error("evaluation failed", "error", err)
		writeError(w, http.StatusInternalServerError, ErrorTypeServer, "evaluation failed")
	}
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	chain := s.opts.Engine.Chain()
	resp := RulesResponse{}
	for _, action := range rules.Actions() {
		resp.Rules = append(resp.Rules, RuleInfo{Action: action.String(), Rules: chain.Len(action)})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if s.opts.Storage == nil {
		writeError(w, http.StatusServiceUnavailable, ErrorTypeUnavailable, "audit trail is disabled")
		return
	}

	query, err := s.parseAuditQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorTypeInvalidRequest, err.Error())
		return
	}

	ctx := r.Context()
	if s.opts.Query.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Query.Timeout)
		defer cancel()
	}

	records, err := s.opts.Storage.Query(ctx, query)
	if err != nil {
		s.writeStorageError(w, r, err)
		return
	}

	countQuery := *query
	countQuery.Limit, countQuery.Offset = 0, 0
	total, err := s.opts.Storage.Count(ctx, &countQuery)
	if err != nil {
		s.writeStorageError(w, r, err)
		return
	}

	if records == nil {
		records = []*audit.Record{}
	}
	writeJSON(w, http.StatusOK, AuditResponse{
		Records: records,
		Total:   total,
		Limit:   query.Limit,
		Offset:  query.Offset,
	})
}

func (s *Server) writeStorageError(w http.ResponseWriter, r *http.Request, err error) {
	var qerr *audit.QueryError
	if errors.As(err, &qerr) {
		writeError(w, http.StatusBadRequest, ErrorTypeInvalidRequest, err.Error())
		return
	}
	logging.FromContext(r.Context(), s.logger).Error("audit query failed", "error", err)
	writeError(w, http.StatusInternalServerError, ErrorTypeServer, "audit query failed")
}

// parseAuditQuery reads the audit filters from the URL. Times are RFC 3339.
func (s *Server) parseAuditQuery(r *http.Request) (*audit.Query, error) {
	v := r.URL.Query()
	q := &audit.Query{
		Action:    v.Get("action"),
		Verdict:   v.Get("verdict"),
		SessionID: v.Get("session_id"),
		Status:    v.Get("status"),
		SortOrder: v.Get("sort"),
	}

	if raw := v.Get("action"); raw != "" {
		if _, err := rules.ParseAction(raw); err != nil {
			return nil, err
		}
	}

	var err error
	if q.Limit, err = intParam(v.Get("limit"), "limit"); err != nil {
		return nil, err
	}
	if q.Offset, err = intParam(v.Get("offset"), "offset"); err != nil {
		return nil, err
	}
	if q.Limit == 0 {
		q.Limit = s.opts.Query.DefaultLimit
	}
	if q.Limit > s.opts.Query.MaxLimit {
		return nil, fmt.Errorf("limit must be <= %d", s.opts.Query.MaxLimit)
	}

	if raw := v.Get("permitted"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid permitted: %q", raw)
		}
		q.Permitted = &b
	}
	if q.StartTime, err = timeParam(v.Get("start"), "start"); err != nil {
		return nil, err
	}
	if q.EndTime, err = timeParam(v.Get("end"), "end"); err != nil {
		return nil, err
	}

	if err := audit.ValidateQuery(q); err != nil {
		return nil, err
	}
	return q, nil
}

func intParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", name, raw)
	}
	return n, nil
}

func timeParam(raw, name string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %q (want RFC 3339)", name, raw)
	}
	return &t, nil
}
