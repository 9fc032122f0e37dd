package geocode

import "context"

// Provider searches an external geocoding service. Implementations return
// candidates best match first; an empty slice means no match.
type Provider interface {
	Search(ctx context.Context, query string) ([]Candidate, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, query string) ([]Candidate, error)

// Search calls f(ctx, query).
func (f ProviderFunc) Search(ctx context.Context, query string) ([]Candidate, error) {
	return f(ctx, query)
}
