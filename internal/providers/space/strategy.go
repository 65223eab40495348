package space

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"tryon/internal/codec"
	"tryon/internal/compositor"
	"tryon/internal/domain"
	"tryon/internal/infra"
	"tryon/internal/normalize"
	"tryon/internal/timeout"
)

const (
	ProviderName          = "space"
	DefaultTryOnEndpoint  = "/tryon"
	DefaultPredictTimeout = 110 * time.Second
	defaultQuotaRetry     = 60 * time.Second
)

// TryOnOptions configures the Space-hosted try-on backend.
type TryOnOptions struct {
	Cache          *ClientCache
	Normalizer     *normalize.Normalizer
	Endpoint       string
	PredictTimeout time.Duration
	Logger         *infra.Logger
}

// TryOnStrategy renders try-on images with an IDM-VTON Space. It accepts a
// single garment image and composites multi-garment requests itself when
// the caller has not.
type TryOnStrategy struct {
	cache          *ClientCache
	normalizer     *normalize.Normalizer
	endpoint       string
	predictTimeout time.Duration
	logger         *infra.Logger
}

func NewTryOnStrategy(opts TryOnOptions) (*TryOnStrategy, error) {
	if opts.Cache == nil {
		return nil, errors.New("space: client cache is required")
	}
	n := opts.Normalizer
	if n == nil {
		n = normalize.New(normalize.Options{})
	}
	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint == "" {
		endpoint = DefaultTryOnEndpoint
	}
	d := opts.PredictTimeout
	if d <= 0 {
		d = DefaultPredictTimeout
	}
	return &TryOnStrategy{
		cache:          opts.Cache,
		normalizer:     n,
		endpoint:       endpoint,
		predictTimeout: d,
		logger:         loggerOrDiscard(opts.Logger),
	}, nil
}

func (s *TryOnStrategy) Name() string { return ProviderName }

// TryOn uploads the person and garment, runs the endpoint and downloads the
// rendered image. Any failure invalidates the cached client handle.
func (s *TryOnStrategy) TryOn(ctx context.Context, req domain.TryOnRequest) (domain.Image, error) {
	if err := req.Validate(); err != nil {
		return domain.Image{}, err
	}
	garment, ok := req.SingleGarment()
	if !ok {
		merged, err := compositor.Composite(req.Garments)
		if err != nil {
			return domain.Image{}, err
		}
		garment = merged
	}
	personBytes, err := codec.Decode(req.Person)
	if err != nil {
		return domain.Image{}, fmt.Errorf("person image: %w", err)
	}
	garmentBytes, err := codec.Decode(garment)
	if err != nil {
		return domain.Image{}, fmt.Errorf("garment image: %w", err)
	}
	params := req.Params.Normalize()

	client, err := s.cache.Get(ctx)
	if err != nil {
		return domain.Image{}, s.fail(nil, err)
	}

	label := "IDM-VTON " + s.endpoint
	out, err := timeout.Do(ctx, s.predictTimeout, label, func(ctx context.Context) ([]json.RawMessage, error) {
		personRef, err := client.Upload(ctx, "person"+extension(req.Person.MIME), req.Person.MIME, personBytes)
		if err != nil {
			return nil, err
		}
		garmentRef, err := client.Upload(ctx, "garment"+extension(garment.MIME), garment.MIME, garmentBytes)
		if err != nil {
			return nil, err
		}
		return client.Predict(ctx, s.endpoint, []any{
			map[string]any{"background": personRef, "layers": []any{}, "composite": nil},
			garmentRef,
			GarmentDescription(req.Prompt),
			true,
			params.CropValue(),
			params.DenoiseSteps,
			params.SeedValue(),
		})
	})
	if err != nil {
		return domain.Image{}, s.fail(client, err)
	}

	payload := client.outputPayload(out)
	if payload == "" {
		payload = s.normalizer.Extract(out)
	}
	if payload == "" {
		return domain.Image{}, s.fail(client, domain.NewProviderError(ProviderName, domain.ErrNoImageInResponse, "no output image returned", nil))
	}
	img, err := s.normalizer.Resolve(ctx, ProviderName, payload)
	if err != nil {
		return domain.Image{}, s.fail(client, err)
	}
	s.logger.Debug().Str("provider", ProviderName).Str("space", client.Root()).Int("steps", params.DenoiseSteps).Int("seed", params.SeedValue()).Msg("space: try-on rendered")
	return img, nil
}

func (s *TryOnStrategy) fail(client *Client, err error) error {
	s.cache.Invalidate(client)
	err = classify(err)
	s.logger.Warn().Err(err).Str("provider", ProviderName).Msg("space: try-on failed, client invalidated")
	return err
}

var quotaRetryPattern = regexp.MustCompile(`(?i)try again in (\d+):(\d{2}):(\d{2})`)

// classify maps transport and queue failures onto the domain taxonomy.
func classify(err error) error {
	var perr *domain.ProviderError
	if errors.As(err, &perr) {
		return err
	}
	var te *domain.TimeoutError
	if errors.As(err, &te) {
		return domain.NewProviderError(ProviderName, domain.ErrTimeout, "request timed out", err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	var status *StatusError
	if errors.As(err, &status) && status.Code == 429 {
		return &domain.ProviderError{Provider: ProviderName, Kind: domain.ErrQuotaExceeded, Message: "space is rate limited", RetryAfter: defaultQuotaRetry, Err: err}
	}
	var qerr *QueueError
	if errors.As(err, &qerr) && strings.Contains(strings.ToLower(qerr.Message), "quota") {
		return &domain.ProviderError{Provider: ProviderName, Kind: domain.ErrQuotaExceeded, Message: "space GPU quota exceeded", RetryAfter: quotaRetryAfter(qerr.Message), Err: err}
	}
	return domain.NewProviderError(ProviderName, domain.ErrProviderFailure, "inference failed", err)
}

func quotaRetryAfter(msg string) time.Duration {
	m := quotaRetryPattern.FindStringSubmatch(msg)
	if m == nil {
		return defaultQuotaRetry
	}
	h, _ := strconv.Atoi(m[1])
	mins, _ := strconv.Atoi(m[2])
	sec, _ := strconv.Atoi(m[3])
	return time.Duration(h)*time.Hour + time.Duration(mins)*time.Minute + time.Duration(sec)*time.Second
}

func extension(mime string) string {
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}

func loggerOrDiscard(l *infra.Logger) *infra.Logger {
	if l != nil {
		return l
	}
	return infra.DiscardLogger()
}
