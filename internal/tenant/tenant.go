// Package tenant carries the tenant identifier through request contexts.
package tenant

import (
	"context"
	"strings"
)

// Default is used whenever a request carries no tenant.
const Default = "default"

type contextKey struct{}

// WithTenant returns a context carrying the given tenant.
func WithTenant(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the tenant stored in ctx, or Default.
func FromContext(ctx context.Context) string {
	if ctx != nil {
		if id, ok := ctx.Value(contextKey{}).(string); ok && strings.TrimSpace(id) != "" {
			return id
		}
	}
	return Default
}

// Or returns id, or Default when id is blank.
func Or(id string) string {
	if strings.TrimSpace(id) == "" {
		return Default
	}
	return id
}
