package tryon

import (
	"context"
	"errors"
	"strings"
	"time"

	"tryon/internal/codec"
	"tryon/internal/compositor"
	"tryon/internal/domain"
	"tryon/internal/infra"
	"tryon/internal/normalize"
)

// DefaultDirectThreshold is how many direct API attempts a session gets
// before every request goes to the Space backend.
const DefaultDirectThreshold = 2

// Options configures an Orchestrator. Direct may be nil, in which case
// every request uses Space.
type Options struct {
	Direct          Strategy
	Space           Strategy
	DirectThreshold int
	Normalizer      *normalize.Normalizer
	Logger          *infra.Logger
}

// Orchestrator runs one strategy per request. It never retries with
// another backend; callers that want that use Fallback.
type Orchestrator struct {
	direct     Strategy
	space      Strategy
	threshold  int
	normalizer *normalize.Normalizer
	logger     *infra.Logger
}

func NewOrchestrator(opts Options) (*Orchestrator, error) {
	if opts.Space == nil {
		return nil, errors.New("tryon: space strategy is required")
	}
	threshold := opts.DirectThreshold
	if threshold < 0 {
		threshold = 0
	}
	n := opts.Normalizer
	if n == nil {
		n = normalize.New(normalize.Options{Logger: opts.Logger})
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	return &Orchestrator{
		direct:     opts.Direct,
		space:      opts.Space,
		threshold:  threshold,
		normalizer: n,
		logger:     logger,
	}, nil
}

// Direct returns the direct API strategy, or nil when disabled.
func (o *Orchestrator) Direct() Strategy { return o.direct }

// Space returns the Space strategy.
func (o *Orchestrator) Space() Strategy { return o.space }

// Select picks the strategy for the next request of sess: the direct API
// while the session is under the threshold, Space afterwards.
func (o *Orchestrator) Select(sess *Session) Strategy {
	if o.direct != nil && sess != nil && sess.DirectCalls() < o.threshold {
		return o.direct
	}
	return o.space
}

// HybridTryOn validates and prepares req, selects a strategy for sess and
// runs it once. A direct API attempt counts against the session whether
// or not it succeeds.
func (o *Orchestrator) HybridTryOn(ctx context.Context, sess *Session, req domain.TryOnRequest) (domain.TryOnResult, error) {
	release, err := sess.Acquire()
	if err != nil {
		return domain.TryOnResult{}, err
	}
	defer release()
	req, err = o.prepare(req)
	if err != nil {
		return domain.TryOnResult{}, err
	}
	return o.hybrid(ctx, sess, req, nil)
}

// hybrid runs a prepared request on the strategy selected for sess. When
// used is not nil the selection is reported through it.
func (o *Orchestrator) hybrid(ctx context.Context, sess *Session, req domain.TryOnRequest, used *Strategy) (domain.TryOnResult, error) {
	strategy := o.Select(sess)
	if used != nil {
		*used = strategy
	}
	if strategy == o.direct {
		sess.recordDirect()
	}
	return o.run(ctx, strategy, req)
}

// Run prepares req and runs it on strategy without touching any session.
func (o *Orchestrator) Run(ctx context.Context, strategy Strategy, req domain.TryOnRequest) (domain.TryOnResult, error) {
	req, err := o.prepare(req)
	if err != nil {
		return domain.TryOnResult{}, err
	}
	return o.run(ctx, strategy, req)
}

// prepare validates req and builds the composite garment when there is more
// than one.
func (o *Orchestrator) prepare(req domain.TryOnRequest) (domain.TryOnRequest, error) {
	if err := req.Validate(); err != nil {
		return req, err
	}
	req.Params = req.Params.Normalize()
	if len(req.Garments) > 1 && req.Composite.IsZero() {
		merged, err := compositor.Composite(req.Garments)
		if err != nil {
			return req, err
		}
		req.Composite = merged
	}
	return req, nil
}

func (o *Orchestrator) run(ctx context.Context, strategy Strategy, req domain.TryOnRequest) (domain.TryOnResult, error) {
	name := strategy.Name()
	start := time.Now()
	img, err := strategy.TryOn(ctx, req)
	if err != nil {
		o.logger.Warn().Err(err).Str("provider", name).Dur("elapsed", time.Since(start)).Msg("tryon: strategy failed")
		return domain.TryOnResult{}, err
	}

	payload := img.Base64
	if !strings.HasPrefix(payload, "data:") {
		payload = codec.ToDataURL(img)
	}
	out, dataURL, err := o.normalizer.Normalize(ctx, name, payload)
	if err != nil {
		o.logger.Warn().Err(err).Str("provider", name).Msg("tryon: output did not normalize")
		return domain.TryOnResult{}, err
	}
	o.logger.Info().Str("provider", name).Int("garments", len(req.Garments)).Dur("elapsed", time.Since(start)).Msg("tryon: rendered")
	return domain.TryOnResult{Image: out, DataURL: dataURL, Provider: name}, nil
}
