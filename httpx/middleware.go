package httpx

import (
	"net/http"
	"time"

	"github.com/apex/log"

	"github.com/adeilh/minutes/auth"
)

// AuthMiddleware runs the auth middleware in front of an echo handler. The
// handler's error is returned to echo so the error handler still sees it.
func AuthMiddleware(mw *auth.Middleware) MiddlewareFunc {
	if mw == nil {
		return func(next HandlerFunc) HandlerFunc {
			return func(c Context) error {
				return HTTPError(StatusUnauthorized, "auth middleware missing")
			}
		}
	}
	return func(next HandlerFunc) HandlerFunc {
		return func(c Context) error {
			var err error
			downstream := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				c.SetRequest(r)
				err = next(c)
			})
			mw.Handler(downstream).ServeHTTP(c.Response(), c.Request())
			return err
		}
	}
}

// RequestLogger logs one apex entry per request once the handler returns.
func RequestLogger(logger log.Interface) MiddlewareFunc {
	if logger == nil {
		logger = log.Log
	}
	return func(next HandlerFunc) HandlerFunc {
		return func(c Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// Let echo render the error first so the logged status is final.
				c.Error(err)
			}
			req := c.Request()
			entry := logger.WithFields(log.Fields{
				"method":  req.Method,
				"path":    req.URL.Path,
				"status":  c.Response().Status,
				"latency": time.Since(start).String(),
			})
			if err != nil {
				entry = entry.WithError(err)
			}
			switch status := c.Response().Status; {
			case status >= 500:
				entry.Error("request")
			case status >= 400:
				entry.Warn("request")
			default:
				entry.Debug("request")
			}
			return nil
		}
	}
}
