package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

var (
	ErrTokenNotFound     = errors.New("auth: token not found")
	ErrTokenInvalidInput = errors.New("auth: invalid token source")
)

// SessionResolver turns a raw bearer value into a live session.
type SessionResolver interface {
	Get(ctx context.Context, id string) (SessionToken, error)
}

type TokenExtractor func(*http.Request) (string, error)

type MiddlewareSkipper func(*http.Request) bool

type MiddlewareErrorHandler func(http.ResponseWriter, *http.Request, error)

type MiddlewareOption func(*middlewareConfig)

type middlewareConfig struct {
	sessions     SessionResolver
	extractor    TokenExtractor
	skipper      MiddlewareSkipper
	errorHandler MiddlewareErrorHandler
}

func newMiddlewareConfig(sessions SessionResolver, opts ...MiddlewareOption) (middlewareConfig, error) {
	if sessions == nil {
		return middlewareConfig{}, errors.New("auth: middleware requires a session resolver")
	}
	cfg := middlewareConfig{
		sessions:     sessions,
		extractor:    BearerTokenExtractor(),
		skipper:      defaultSkipper,
		errorHandler: defaultErrorHandler,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg, nil
}

func WithTokenExtractor(extractor TokenExtractor) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		if extractor != nil {
			cfg.extractor = extractor
		}
	}
}

func WithSkipper(skipper MiddlewareSkipper) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		if skipper != nil {
			cfg.skipper = skipper
		}
	}
}

func WithErrorHandler(handler MiddlewareErrorHandler) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		if handler != nil {
			cfg.errorHandler = handler
		}
	}
}

func BearerTokenExtractor() TokenExtractor {
	return func(r *http.Request) (string, error) {
		header := r.Header.Get("Authorization")
		if header == "" {
			return "", ErrTokenNotFound
		}
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return "", ErrTokenInvalidInput
		}
		token = strings.TrimSpace(token)
		if token == "" {
			return "", ErrTokenInvalidInput
		}
		return token, nil
	}
}

func CookieTokenExtractor(name string) TokenExtractor {
	name = strings.TrimSpace(name)
	return func(r *http.Request) (string, error) {
		if name == "" {
			return "", ErrTokenInvalidInput
		}
		cookie, err := r.Cookie(name)
		if err != nil {
			if errors.Is(err, http.ErrNoCookie) {
				return "", ErrTokenNotFound
			}
			return "", err
		}
		value := strings.TrimSpace(cookie.Value)
		if value == "" {
			return "", ErrTokenInvalidInput
		}
		return value, nil
	}
}

// ChainExtractors returns the first token any extractor yields.
func ChainExtractors(extractors ...TokenExtractor) TokenExtractor {
	copied := append([]TokenExtractor(nil), extractors...)
	return func(r *http.Request) (string, error) {
		var lastErr error = ErrTokenNotFound
		for _, extractor := range copied {
			if extractor == nil {
				continue
			}
			token, err := extractor(r)
			if err == nil {
				return token, nil
			}
			lastErr = err
		}
		return "", lastErr
	}
}

func defaultSkipper(*http.Request) bool { return false }

func defaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	status := http.StatusUnauthorized
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusGatewayTimeout
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + http.StatusText(status) + `"}`))
}
