// Package server exposes the rule engine over HTTP.
//
// # Routes
//
//	POST /v1/evaluate        evaluate one action
//	POST /v1/evaluate/batch  evaluate several actions in order
//	GET  /v1/rules           registered actions and their rule counts
//	GET  /v1/audit           query the decision audit trail
//	GET  /health             liveness
//	GET  /ready              readiness (rule chain and audit storage)
//	GET  /version            build information
//	GET  /metrics            Prometheus exposition (path configurable)
//	GET  /openapi.yaml       API description (also /openapi.json)
//
// An evaluation request carries the host action name and its context:
//
//	{
//	    "action": "connection.create",
//	    "context": {
//	        "source": {"id": "d1", "type": "cp:DecisionLogic"},
//	        "target": {"id": "g1", "type": "cp:EvidenceGateway"}
//	    },
//	    "session_id": "sess-42"
//	}
//
// and is answered with the verdict in the host's wire shape:
//
//	{"action": "connection.create", "verdict": {"type": "cp:Connection"},
//	 "permitted": true, "fallback": false, "duration_ms": 0.012}
//
// # Middleware
//
// Every request passes through panic recovery, request ID assignment
// (X-Request-ID is honoured when sent), tracing with W3C trace context, and
// access logging with per-route metrics.
//
// # Lifecycle
//
// Start blocks until the context is cancelled, then shuts down gracefully
// within the configured shutdown timeout.
package server
