package server_test

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"cpathways/cprules/pkg/audit"
	"cpathways/cprules/pkg/audit/storage"
	"cpathways/cprules/pkg/config"
	"cpathways/cprules/pkg/engine"
	"cpathways/cprules/pkg/model"
	"cpathways/cprules/pkg/rules"
	"cpathways/cprules/pkg/security/auth"
	cptls "cpathways/cprules/pkg/security/tls"
	"cpathways/cprules/pkg/security/tls/tlstest"
	"cpathways/cprules/pkg/server"
	"cpathways/cprules/pkg/telemetry/health"
	"cpathways/cprules/pkg/telemetry/logging"
	"cpathways/cprules/pkg/telemetry/metrics"
)

type fixture struct {
	srv     *server.Server
	store   *storage.MemoryStorage
	chain   *rules.Chain
	spans   *tracetest.SpanRecorder
	handler http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	chain := rules.NewChain(logging.Discard())
	rules.NewCPRules(chain)

	eng, err := engine.New(chain, nil, logging.Discard())
	require.NoError(t, err)

	store := storage.NewMemoryStorage()
	checker := health.New(time.Second)
	checker.RegisterCheck("rules", health.RulesCheck(chain))
	checker.RegisterCheck("audit", health.StorageCheck(store))

	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))

	cfg := config.Defaults()
	srv, err := server.New(&cfg.Server, server.Options{
		Engine:  eng,
		Storage: store,
		Health:  checker,
		Metrics: metrics.NewCollector(&cfg.Telemetry.Metrics, nil),
		Tracer:  tp.Tracer("test"),
		Logger:  logging.Discard(),
		Query:   cfg.Audit.Query,
		Version: "test",
	})
	require.NoError(t, err)

	return &fixture{srv: srv, store: store, chain: chain, spans: spans, handler: srv.Handler()}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestNew(t *testing.T) {
	_, err := server.New(nil, server.Options{})
	assert.Error(t, err)

	_, err = server.New(&config.ServerConfig{}, server.Options{})
	assert.Error(t, err, "engine is required")
}

func TestEvaluate(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name          string
		body          string
		wantVerdict   string
		wantPermitted bool
		wantFallback  bool
	}{
		{
			name:          "qualified connection",
			body:          `{"action":"connection.create","context":{"source":{"type":"cp:DecisionLogic"},"target":{"type":"cp:EvidenceGateway"}}}`,
			wantVerdict:   `{"type":"cp:Connection"}`,
			wantPermitted: true,
		},
		{
			name:         "self type connection falls back to deny",
			body:         `{"action":"connection.create","context":{"source":{"type":"cp:DecisionLogic"},"target":{"type":"cp:DecisionLogic"}}}`,
			wantVerdict:  `null`,
			wantFallback: true,
		},
		{
			name:          "move is always allowed",
			body:          `{"action":"elements.move","context":{}}`,
			wantVerdict:   `true`,
			wantPermitted: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/v1/evaluate", tt.body)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			resp := decode[map[string]json.RawMessage](t, rec)
			assert.JSONEq(t, tt.wantVerdict, string(resp["verdict"]))
			assert.Equal(t, fmt.Sprint(tt.wantPermitted), string(resp["permitted"]))
			assert.Equal(t, fmt.Sprint(tt.wantFallback), string(resp["fallback"]))
			assert.NotEmpty(t, rec.Header().Get(server.RequestIDHeader))
		})
	}
}

func TestEvaluateBadRequests(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"action":`},
		{name: "unknown action", body: `{"action":"shape.resize","context":{}}`},
		{name: "missing action", body: `{"context":{}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/v1/evaluate", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			resp := decode[server.ErrorResponse](t, rec)
			assert.Equal(t, server.ErrorTypeInvalidRequest, resp.Error.Type)
			assert.NotEmpty(t, resp.Error.RequestID)
		})
	}
}

func TestEvaluateBodyLimit(t *testing.T) {
	chain := rules.NewChain(logging.Discard())
	rules.NewCPRules(chain)
	eng, err := engine.New(chain, nil, logging.Discard())
	require.NoError(t, err)

	srv, err := server.New(&config.ServerConfig{MaxBodyBytes: 16}, server.Options{Engine: eng, Logger: logging.Discard()})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/evaluate",
		strings.NewReader(`{"action":"elements.move","context":{}}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEvaluateBatch(t *testing.T) {
	f := newFixture(t)

	body := `{"requests":[
		{"action":"shape.create","context":{"shape":{"type":"cp:EvidenceGateway"},"target":{"type":"cp:Pathway"}}},
		{"action":"bogus","context":{}},
		{"action":"connection.reconnectEnd","context":{"connection":{"type":"cp:Connection","source":{"type":"cp:Task"}},"target":{"type":"cp:DecisionLogic"}}}
	]}`
	rec := f.do(t, http.MethodPost, "/v1/evaluate/batch", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[struct {
		Results []map[string]json.RawMessage `json:"results"`
	}](t, rec)
	require.Len(t, resp.Results, 3)
	assert.Equal(t, "shape.create", strings.Trim(string(resp.Results[0]["action"]), `"`))
	assert.Contains(t, string(resp.Results[1]["rejected"]), "unknown action")
	assert.Equal(t, "connection.reconnectEnd", strings.Trim(string(resp.Results[2]["action"]), `"`))

	rec = f.do(t, http.MethodPost, "/v1/evaluate/batch", `{"requests":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRules(t *testing.T) {
	f := newFixture(t)
	f.chain.AddRule(rules.ShapeCreate, 500, func(*model.Context) rules.Verdict { return rules.Defer() })

	rec := f.do(t, http.MethodGet, "/v1/rules", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[server.RulesResponse](t, rec)
	require.Len(t, resp.Rules, len(rules.Actions()))
	counts := map[string]int{}
	for _, info := range resp.Rules {
		counts[info.Action] = info.Rules
	}
	assert.Equal(t, 2, counts["shape.create"])
	assert.Equal(t, 1, counts["connection.reconnectStart"])
}

func TestAudit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		action := "connection.create"
		if i%2 == 1 {
			action = "elements.move"
		}
		require.NoError(t, f.store.Store(ctx, &audit.Record{
			ID:          fmt.Sprintf("rec-%d", i),
			Action:      action,
			Verdict:     "allow",
			Permitted:   true,
			SessionID:   "sess-1",
			EvaluatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	rec := f.do(t, http.MethodGet, "/v1/audit?action=connection.create&limit=2&sort=asc", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[server.AuditResponse](t, rec)
	assert.Equal(t, int64(3), resp.Total)
	assert.Equal(t, 2, resp.Limit)
	require.Len(t, resp.Records, 2)
	assert.Equal(t, "rec-0", resp.Records[0].ID)
	assert.Equal(t, "rec-2", resp.Records[1].ID)

	start := base.Add(3 * time.Minute).Format(time.RFC3339)
	rec = f.do(t, http.MethodGet, "/v1/audit?start="+start, "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[server.AuditResponse](t, rec)
	assert.Equal(t, int64(2), resp.Total)
	assert.Equal(t, 100, resp.Limit)

	for _, bad := range []string{"?limit=abc", "?verdict=maybe", "?start=yesterday", "?action=shape.resize", "?permitted=sometimes", "?limit=20000"} {
		rec = f.do(t, http.MethodGet, "/v1/audit"+bad, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}
}

func TestAuditDisabled(t *testing.T) {
	chain := rules.NewChain(logging.Discard())
	eng, err := engine.New(chain, nil, logging.Discard())
	require.NoError(t, err)
	srv, err := server.New(&config.ServerConfig{}, server.Options{Engine: eng, Logger: logging.Discard()})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/audit", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/ready", "").Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/version", "").Code)

	f.do(t, http.MethodPost, "/v1/evaluate", `{"action":"elements.move","context":{}}`)

	rec := f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "cprules_http_requests_total")
	assert.Contains(t, body, `route="/v1/evaluate"`)
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/v2/nothing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, server.ErrorTypeNotFound, decode[server.ErrorResponse](t, rec).Error.Type)

	rec = f.do(t, http.MethodGet, "/v1/evaluate", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRequestIDAndTracing(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/evaluate", bytes.NewBufferString(`{"action":"elements.move","context":{}}`))
	req.Header.Set(server.RequestIDHeader, "client-id-1")
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "client-id-1", rec.Header().Get(server.RequestIDHeader))

	spans := f.spans.Ended()
	require.NotEmpty(t, spans)
	span := spans[len(spans)-1]
	assert.Equal(t, "POST /v1/evaluate", span.Name())
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", span.SpanContext().TraceID().String())
}

func TestServeAndShutdown(t *testing.T) {
	f := newFixture(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.srv.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/health"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)
	assert.True(t, f.srv.IsRunning())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
	assert.False(t, f.srv.IsRunning())
}

func TestAuth(t *testing.T) {
	chain := rules.NewChain(logging.Discard())
	rules.NewCPRules(chain)
	eng, err := engine.New(chain, nil, logging.Discard())
	require.NoError(t, err)

	cfg := config.Defaults()
	srv, err := server.New(&cfg.Server, server.Options{
		Engine: eng,
		Logger: logging.Discard(),
		Auth: auth.NewValidator([]*auth.KeyInfo{
			{Key: "cpr-editor", Client: "editor", Enabled: true},
		}),
	})
	require.NoError(t, err)
	handler := srv.Handler()

	send := func(key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/v1/rules", nil)
		if key != "" {
			req.Header.Set("Authorization", "Bearer "+key)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, send("cpr-editor").Code)

	for _, key := range []string{"", "cpr-wrong"} {
		rec := send(key)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "key %q", key)
		assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
		resp := decode[server.ErrorResponse](t, rec)
		assert.Equal(t, server.ErrorTypeAuthentication, resp.Error.Type)
	}

	// Probes stay open.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServeTLS(t *testing.T) {
	pair := tlstest.Valid(t, t.TempDir(), "cprules")
	tlsCfg, err := (&cptls.Config{CertFile: pair.CertFile, KeyFile: pair.KeyFile}).ServerConfig(nil)
	require.NoError(t, err)

	chain := rules.NewChain(logging.Discard())
	rules.NewCPRules(chain)
	eng, err := engine.New(chain, nil, logging.Discard())
	require.NoError(t, err)

	cfg := config.Defaults()
	srv, err := server.New(&cfg.Server, server.Options{Engine: eng, Logger: logging.Discard(), TLS: tlsCfg})
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	roots := x509.NewCertPool()
	roots.AddCert(pair.Cert)
	client := &http.Client{
		Timeout:   time.Second,
		Transport: &http.Transport{TLSClientConfig: &tls.Config{RootCAs: roots, MinVersion: tls.VersionTLS13}},
	}

	url := "https://" + ln.Addr().String() + "/v1/evaluate"
	require.Eventually(t, func() bool {
		resp, err := client.Post(url, "application/json", strings.NewReader(`{"action":"elements.move","context":{}}`))
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	// Plain HTTP is refused.
	resp, err := (&http.Client{Timeout: time.Second}).Get("http://" + ln.Addr().String() + "/health")
	if err == nil {
		resp.Body.Close()
		assert.NotEqual(t, http.StatusOK, resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
