package domain

import "context"

// GenerateParams is the per-call input handed to a provider.
type GenerateParams struct {
	Context       string
	Mode          Mode
	DocVersion    int
	SelectionFrom int
	SelectionTo   int
}

// Cursor returns the effective cursor position for anchor math.
func (p GenerateParams) Cursor() int {
	if p.SelectionTo > 0 {
		return p.SelectionTo
	}
	return p.SelectionFrom
}

// Provider generates a raw intervention response from a request context.
// Implementations translate backend failures into *ProviderError; the
// returned response carries a provisional anchor and ids but no source
// tag and no safety corrections; those belong to the intervention
// service.
type Provider interface {
	Name() string

	// Model reports the backend model the instance is bound to.
	Model() string

	Generate(ctx context.Context, params GenerateParams) (*InterventionResponse, error)
}
