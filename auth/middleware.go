package auth

import (
	"context"
	"net/http"
)

// Middleware authenticates requests by resolving their bearer token to a
// session and storing the session on the request context.
type Middleware struct {
	sessions     SessionResolver
	extractor    TokenExtractor
	skipper      MiddlewareSkipper
	errorHandler MiddlewareErrorHandler
}

type sessionContextKey struct{}

func NewMiddleware(sessions SessionResolver, opts ...MiddlewareOption) (*Middleware, error) {
	cfg, err := newMiddlewareConfig(sessions, opts...)
	if err != nil {
		return nil, err
	}
	return &Middleware{
		sessions:     cfg.sessions,
		extractor:    cfg.extractor,
		skipper:      cfg.skipper,
		errorHandler: cfg.errorHandler,
	}, nil
}

func (m *Middleware) Handler(next http.Handler) http.Handler {
	if m == nil {
		panic("auth: middleware is nil")
	}
	if next == nil {
		next = http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skipper(r) {
			next.ServeHTTP(w, r)
			return
		}
		raw, err := m.extractor(r)
		if err != nil {
			m.errorHandler(w, r, err)
			return
		}
		session, err := m.sessions.Get(r.Context(), raw)
		if err != nil {
			m.errorHandler(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
	})
}

// WithSession returns a copy of ctx carrying session.
func WithSession(ctx context.Context, session SessionToken) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, session)
}

func SessionFromContext(ctx context.Context) (SessionToken, bool) {
	if ctx == nil {
		return nil, false
	}
	session, ok := ctx.Value(sessionContextKey{}).(SessionToken)
	return session, ok
}
