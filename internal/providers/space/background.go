package space

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"tryon/internal/codec"
	"tryon/internal/domain"
	"tryon/internal/infra"
	"tryon/internal/normalize"
	"tryon/internal/timeout"
)

const (
	BackgroundProviderName  = "space-rmbg"
	DefaultRemoveBGEndpoint = "/predict"
	DefaultRemoveBGTimeout  = 60 * time.Second
)

// BackgroundOptions configures the Space-hosted background remover.
type BackgroundOptions struct {
	Cache      *ClientCache
	Normalizer *normalize.Normalizer
	Endpoint   string
	Timeout    time.Duration
	Logger     *infra.Logger
}

// BackgroundRemover cuts garments out with a segmentation Space such as
// BRIA RMBG.
type BackgroundRemover struct {
	cache      *ClientCache
	normalizer *normalize.Normalizer
	endpoint   string
	timeout    time.Duration
	logger     *infra.Logger
}

func NewBackgroundRemover(opts BackgroundOptions) (*BackgroundRemover, error) {
	if opts.Cache == nil {
		return nil, errors.New("space: client cache is required")
	}
	n := opts.Normalizer
	if n == nil {
		n = normalize.New(normalize.Options{})
	}
	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint == "" {
		endpoint = DefaultRemoveBGEndpoint
	}
	d := opts.Timeout
	if d <= 0 {
		d = DefaultRemoveBGTimeout
	}
	return &BackgroundRemover{cache: opts.Cache, normalizer: n, endpoint: endpoint, timeout: d, logger: loggerOrDiscard(opts.Logger)}, nil
}

func (b *BackgroundRemover) Name() string { return BackgroundProviderName }

func (b *BackgroundRemover) RemoveBackground(ctx context.Context, img domain.Image) (domain.Image, error) {
	data, err := codec.Decode(img)
	if err != nil {
		return domain.Image{}, err
	}
	client, err := b.cache.Get(ctx)
	if err != nil {
		return domain.Image{}, b.fail(nil, err)
	}
	out, err := timeout.Do(ctx, b.timeout, "remove-bg "+b.endpoint, func(ctx context.Context) ([]json.RawMessage, error) {
		ref, err := client.Upload(ctx, "garment"+extension(img.MIME), img.MIME, data)
		if err != nil {
			return nil, err
		}
		return client.Predict(ctx, b.endpoint, []any{ref})
	})
	if err != nil {
		return domain.Image{}, b.fail(client, err)
	}
	payload := client.outputPayload(out)
	if payload == "" {
		payload = b.normalizer.Extract(out)
	}
	if payload == "" {
		return domain.Image{}, b.fail(client, domain.NewProviderError(BackgroundProviderName, domain.ErrNoImageInResponse, "space returned no data", nil))
	}
	result, err := b.normalizer.Resolve(ctx, BackgroundProviderName, payload)
	if err != nil {
		return domain.Image{}, b.fail(client, err)
	}
	return result, nil
}

func (b *BackgroundRemover) fail(client *Client, err error) error {
	b.cache.Invalidate(client)
	err = classify(err)
	b.logger.Warn().Err(err).Str("provider", BackgroundProviderName).Msg("space: remove-bg failed")
	return err
}
