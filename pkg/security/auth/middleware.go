package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// Source types.
const (
	SourceHeader = "header"
	SourceQuery  = "query"
)

// KeySource says where to find the API key in a request.
type KeySource struct {
	Type   string // SourceHeader or SourceQuery
	Name   string // header or query parameter name
	Scheme string // optional prefix such as "Bearer"
}

// DeniedFunc writes the response for a rejected request.
type DeniedFunc func(w http.ResponseWriter, r *http.Request, err error)

// Middleware authenticates requests by API key.
type Middleware struct {
	store   KeyStore
	sources []KeySource
	logger  *slog.Logger
	denied  DeniedFunc
}

// NewMiddleware creates a middleware that checks sources in order.
func NewMiddleware(store KeyStore, sources []KeySource, logger *slog.Logger) *Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &Middleware{
		store:   store,
		sources: sources,
		logger:  logger,
		denied: func(w http.ResponseWriter, r *http.Request, err error) {
			http.Error(w, "Missing or invalid API key", http.StatusUnauthorized)
		},
	}
}

// OnDenied replaces the default plain-text 401 response.
func (m *Middleware) OnDenied(fn DeniedFunc) {
	if fn != nil {
		m.denied = fn
	}
}

// Handle wraps next with API key authentication.
func (m *Middleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, ok := m.extractKey(r)
		if !ok {
			m.reject(w, r, ErrMissingKey)
			return
		}

		info, err := m.store.Validate(key)
		if err != nil {
			m.reject(w, r, err)
			return
		}

		m.logger.Debug("API key authenticated", "client", info.Client, "path", r.URL.Path)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), keyInfoKey, info)))
	})
}

func (m *Middleware) reject(w http.ResponseWriter, r *http.Request, err error) {
	m.logger.Warn("API key rejected",
		"error", err,
		"remote_addr", r.RemoteAddr,
		"path", r.URL.Path,
	)
	m.denied(w, r, err)
}

func (m *Middleware) extractKey(r *http.Request) (string, bool) {
	for _, source := range m.sources {
		var value string
		switch source.Type {
		case SourceHeader:
			value = r.Header.Get(source.Name)
		case SourceQuery:
			value = r.URL.Query().Get(source.Name)
		}
		if value == "" {
			continue
		}
		if source.Scheme == "" {
			return value, true
		}
		if rest, ok := strings.CutPrefix(value, source.Scheme+" "); ok && rest != "" {
			return rest, true
		}
	}
	return "", false
}

type contextKey string

// #nosec G101 - context key, not a credential
const keyInfoKey contextKey = "api_key_info"

// KeyInfoFromContext returns the authenticated key, if any.
func KeyInfoFromContext(ctx context.Context) (*KeyInfo, bool) {
	info, ok := ctx.Value(keyInfoKey).(*KeyInfo)
	return info, ok
}

// ClientFromContext returns the authenticated client name, or "".
func ClientFromContext(ctx context.Context) string {
	if info, ok := KeyInfoFromContext(ctx); ok {
		return info.Client
	}
	return ""
}
