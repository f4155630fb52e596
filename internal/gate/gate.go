// Package gate provides HTTP middleware that guards routes behind a feature
// flag. Applications embedding the engine wrap handlers with Require; the
// evaluation decision for the request's user is placed on the context for
// the wrapped handler to read.
package gate

import (
	"context"
	"net/http"

	"github.com/go-chi/render"

	"github.com/rafaeljc/verdandi/internal/engine"
)

type contextKey struct{}

// Evaluation is what the wrapped handler sees for an admitted request.
type Evaluation struct {
	Enabled bool
	Variant string
	Config  map[string]any
}

// ContextFunc extracts the user context from an incoming request.
type ContextFunc func(r *http.Request) engine.UserContext

// Option customizes the gate.
type Option func(*gate)

type gate struct {
	userContext ContextFunc
	fallback    http.Handler
}

// WithContextFunc replaces the default header-based user extraction.
func WithContextFunc(fn ContextFunc) Option {
	return func(g *gate) { g.userContext = fn }
}

// WithFallback serves the given handler instead of a 404 when the flag does
// not evaluate to enabled. Useful for serving the old code path during a
// gradual rollout.
func WithFallback(h http.Handler) Option {
	return func(g *gate) { g.fallback = h }
}

// HeaderContext builds a user context from the conventional identity
// headers. Custom attributes cannot be expressed as headers; use
// WithContextFunc when conditions of type "custom" must match.
func HeaderContext(r *http.Request) engine.UserContext {
	return engine.UserContext{
		UserID:           r.Header.Get("X-User-Id"),
		UserType:         r.Header.Get("X-User-Type"),
		Location:         r.Header.Get("X-Location"),
		SubscriptionTier: r.Header.Get("X-Subscription-Tier"),
	}
}

// Require returns middleware admitting only requests for which flagKey
// evaluates to enabled. Excluded requests get the fallback handler when one
// is configured, otherwise a JSON 404.
func Require(eng *engine.Engine, flagKey string, opts ...Option) func(http.Handler) http.Handler {
	if eng == nil {
		panic("gate: engine cannot be nil")
	}
	if flagKey == "" {
		panic("gate: flag key cannot be empty")
	}

	g := &gate{userContext: HeaderContext}
	for _, opt := range opts {
		opt(g)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := eng.Evaluate(r.Context(), flagKey, g.userContext(r))

			if !d.Enabled {
				if g.fallback != nil {
					g.fallback.ServeHTTP(w, r)
					return
				}
				// A gated route behaves as if it does not exist for excluded
				// users.
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, map[string]string{"error": "feature not available"})
				return
			}

			ctx := context.WithValue(r.Context(), contextKey{}, Evaluation{
				Enabled: true,
				Variant: d.Variant,
				Config:  d.Config,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext returns the evaluation placed by Require, if any.
func FromContext(ctx context.Context) (Evaluation, bool) {
	ev, ok := ctx.Value(contextKey{}).(Evaluation)
	return ev, ok
}
