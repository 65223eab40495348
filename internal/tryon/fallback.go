package tryon

import (
	"context"
	"errors"

	"tryon/internal/domain"
)

// Step is one entry of a fallback policy. When decides whether the error of
// the previous attempt allows this step to run; nil means always.
type Step struct {
	Strategy Strategy
	When     func(error) bool
}

// Fallback runs the orchestrator's own selection first and then walks Steps
// in order until one succeeds. Strategies already attempted are skipped.
type Fallback struct {
	Orchestrator *Orchestrator
	Steps        []Step
}

// TryOn holds the session guard across every attempt. On total failure it
// returns the last error.
func (f *Fallback) TryOn(ctx context.Context, sess *Session, req domain.TryOnRequest) (domain.TryOnResult, error) {
	release, err := sess.Acquire()
	if err != nil {
		return domain.TryOnResult{}, err
	}
	defer release()

	req, err = f.Orchestrator.prepare(req)
	if err != nil {
		return domain.TryOnResult{}, err
	}
	var first Strategy
	res, err := f.Orchestrator.hybrid(ctx, sess, req, &first)
	if err == nil {
		return res, nil
	}
	tried := map[string]bool{}
	if first != nil {
		tried[first.Name()] = true
	}
	for _, step := range f.Steps {
		if step.Strategy == nil || tried[step.Strategy.Name()] {
			continue
		}
		if step.When != nil && !step.When(err) {
			continue
		}
		if ctx.Err() != nil {
			return domain.TryOnResult{}, err
		}
		tried[step.Strategy.Name()] = true
		f.Orchestrator.logger.Info().Err(err).Str("provider", step.Strategy.Name()).Msg("tryon: falling back")
		res, err = f.Orchestrator.run(ctx, step.Strategy, req)
		if err == nil {
			return res, nil
		}
	}
	return domain.TryOnResult{}, err
}

// OnProviderError accepts quota, timeout and provider failures.
func OnProviderError(err error) bool {
	return errors.Is(err, domain.ErrQuotaExceeded) ||
		errors.Is(err, domain.ErrTimeout) ||
		errors.Is(err, domain.ErrProviderFailure) ||
		errors.Is(err, domain.ErrNoImageInResponse)
}

// OnAny accepts every error except bad input and a busy session. Provider
// errors are always accepted, whatever they wrap.
func OnAny(err error) bool {
	if err == nil {
		return false
	}
	var perr *domain.ProviderError
	if errors.As(err, &perr) {
		return true
	}
	return !errors.Is(err, domain.ErrInvalidInput) &&
		!errors.Is(err, domain.ErrDecode) &&
		!errors.Is(err, domain.ErrBusy)
}
