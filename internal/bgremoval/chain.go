// Package bgremoval cuts garments out of their backgrounds by trying a list
// of removers in order.
package bgremoval

import (
	"context"
	"errors"

	"tryon/internal/compositor"
	"tryon/internal/domain"
	"tryon/internal/infra"
)

const (
	MethodCanvas   = "canvas"
	MethodOriginal = "original"
)

// Remover is one background-removal backend.
type Remover interface {
	Name() string
	RemoveBackground(ctx context.Context, img domain.Image) (domain.Image, error)
}

// Result is the processed image and the remover that produced it. Fallback
// is set when the original image was returned unmodified.
type Result struct {
	Image    domain.Image
	Method   string
	Fallback bool
}

// CanvasRemover is the local luminance cut. It only handles garments shot
// on a light backdrop.
type CanvasRemover struct {
	Threshold uint8
}

func (CanvasRemover) Name() string { return MethodCanvas }

func (c CanvasRemover) RemoveBackground(_ context.Context, img domain.Image) (domain.Image, error) {
	return compositor.RemoveLightBackground(img, c.Threshold)
}

// Chain tries removers in order. Nil entries are skipped so optional
// backends can be passed unconditionally.
type Chain struct {
	removers []Remover
	logger   *infra.Logger
}

func NewChain(logger *infra.Logger, removers ...Remover) *Chain {
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	kept := make([]Remover, 0, len(removers))
	for _, r := range removers {
		if r != nil {
			kept = append(kept, r)
		}
	}
	return &Chain{removers: kept, logger: logger}
}

// Methods lists the remover names in the order they are tried.
func (c *Chain) Methods() []string {
	names := make([]string, len(c.removers))
	for i, r := range c.removers {
		names[i] = r.Name()
	}
	return names
}

// Remove returns the first successful result. When every remover fails it
// returns the first error from a remote remover, or the last error if only
// the local one ran.
func (c *Chain) Remove(ctx context.Context, img domain.Image) (Result, error) {
	if img.IsZero() {
		return Result{}, domain.ErrInvalidInput
	}
	var firstRemote, last error
	for _, r := range c.removers {
		out, err := r.RemoveBackground(ctx, img)
		if err == nil {
			c.logger.Debug().Str("method", r.Name()).Msg("bgremoval: background removed")
			return Result{Image: out, Method: r.Name()}, nil
		}
		c.logger.Warn().Err(err).Str("method", r.Name()).Msg("bgremoval: remover failed")
		last = err
		if firstRemote == nil && r.Name() != MethodCanvas {
			firstRemote = err
		}
		if ctx.Err() != nil {
			return Result{}, context.Cause(ctx)
		}
	}
	if firstRemote != nil {
		return Result{}, firstRemote
	}
	if last == nil {
		last = errors.New("bgremoval: no removers configured")
	}
	return Result{}, last
}

// RemoveOrOriginal never fails: when Remove does, the original image comes
// back with Fallback set and the failure is logged.
func (c *Chain) RemoveOrOriginal(ctx context.Context, img domain.Image) Result {
	res, err := c.Remove(ctx, img)
	if err == nil {
		return res
	}
	c.logger.Warn().Err(err).Str("method", MethodOriginal).Bool("fallback", true).Msg("bgremoval: returning original image")
	return Result{Image: img, Method: MethodOriginal, Fallback: true}
}
