package domain

import "fmt"

const (
	DefaultDenoiseSteps = 20
	MinDenoiseSteps     = 6
	MaxDenoiseSteps     = 30
	DefaultSeed         = 42
)

// Params are the generation knobs forwarded to backends that accept them.
// Seed and Crop are nil when the caller left them unset.
type Params struct {
	DenoiseSteps int
	Seed         *int
	Crop         *bool
}

// DefaultParams returns the parameters used when the caller sets none.
func DefaultParams() Params {
	return Params{}.Normalize()
}

// Normalize clamps the step count into the supported range and fills
// unset fields with their defaults. Any seed the caller set is kept.
func (p Params) Normalize() Params {
	switch {
	case p.DenoiseSteps == 0:
		p.DenoiseSteps = DefaultDenoiseSteps
	case p.DenoiseSteps < MinDenoiseSteps:
		p.DenoiseSteps = MinDenoiseSteps
	case p.DenoiseSteps > MaxDenoiseSteps:
		p.DenoiseSteps = MaxDenoiseSteps
	}
	if p.Seed == nil {
		seed := DefaultSeed
		p.Seed = &seed
	}
	if p.Crop == nil {
		crop := true
		p.Crop = &crop
	}
	return p
}

// SeedValue returns the seed, or DefaultSeed when unset.
func (p Params) SeedValue() int {
	if p.Seed == nil {
		return DefaultSeed
	}
	return *p.Seed
}

// CropValue returns the crop flag, which defaults to true.
func (p Params) CropValue() bool {
	return p.Crop == nil || *p.Crop
}

// TryOnRequest is one user action. It is never persisted.
type TryOnRequest struct {
	Person Image
	// Garments are in dispatch order, top before bottom.
	Garments []Image
	// Composite is the merged garment image for backends that accept a
	// single garment. It is set by the orchestrator when len(Garments) > 1.
	Composite Image
	Prompt    string
	Params    Params
}

// SingleGarment returns the one garment image to send to single-garment
// backends, or false when the request still needs compositing.
func (r TryOnRequest) SingleGarment() (Image, bool) {
	if !r.Composite.IsZero() {
		return r.Composite, true
	}
	if len(r.Garments) == 1 {
		return r.Garments[0], true
	}
	return Image{}, false
}

// Validate checks the presence of the required images.
func (r TryOnRequest) Validate() error {
	if r.Person.IsZero() {
		return fmt.Errorf("%w: model image is required", ErrInvalidInput)
	}
	if len(r.Garments) == 0 {
		return fmt.Errorf("%w: at least one garment is required", ErrInvalidInput)
	}
	for i, g := range r.Garments {
		if g.IsZero() {
			return fmt.Errorf("%w: garment %d is empty", ErrInvalidInput, i)
		}
	}
	return nil
}

// TryOnResult is the rendered image and the strategy that produced it.
type TryOnResult struct {
	Image    Image
	DataURL  string
	Provider string
}
