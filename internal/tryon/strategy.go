// Package tryon selects a rendering backend for a try-on request and owns
// the per-session state that selection depends on.
package tryon

import (
	"context"

	"tryon/internal/domain"
)

// Strategy is one interchangeable try-on backend.
type Strategy interface {
	Name() string
	TryOn(ctx context.Context, req domain.TryOnRequest) (domain.Image, error)
}
