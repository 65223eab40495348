package gemini

import (
	"context"
	"errors"
	"strings"

	"tryon/internal/domain"
	"tryon/internal/timeout"
)

const tryOnInstructions = `Generate a photorealistic image of the person in the first image wearing the clothing in the following image(s).
- If both a top and a bottom are provided, the person wears both.
- If a single dress or garment is provided, the person wears it.
- Keep the person's exact pose, face, body shape and background.
- Fit the clothing naturally to the body.
- High quality fashion photography.`

// Strategy renders try-on images with the direct generative API. It sends
// each garment separately, so it does not need the composite.
type Strategy struct {
	client *Client
}

func NewStrategy(client *Client) *Strategy {
	return &Strategy{client: client}
}

func (s *Strategy) Name() string { return ProviderName }

// TryOn sends the prompt, the person and then every garment in order.
func (s *Strategy) TryOn(ctx context.Context, req domain.TryOnRequest) (domain.Image, error) {
	if err := req.Validate(); err != nil {
		return domain.Image{}, err
	}
	images := make([]domain.Image, 0, len(req.Garments)+1)
	images = append(images, req.Person)
	images = append(images, req.Garments...)

	img, err := timeout.Do(ctx, s.client.timeout, "gemini try-on", func(ctx context.Context) (domain.Image, error) {
		return s.client.generateImage(ctx, buildPrompt(req.Prompt), images)
	})
	if err != nil {
		err = wrapTimeout(err)
		s.client.logger.Warn().Err(err).Str("provider", ProviderName).Str("model", s.client.model).Msg("gemini: try-on failed")
		return domain.Image{}, err
	}
	s.client.logger.Debug().Str("provider", ProviderName).Int("garments", len(req.Garments)).Msg("gemini: try-on rendered")
	return img, nil
}

func buildPrompt(userPrompt string) string {
	userPrompt = strings.TrimSpace(userPrompt)
	if userPrompt == "" {
		return tryOnInstructions
	}
	return userPrompt + "\n\n" + tryOnInstructions
}

func wrapTimeout(err error) error {
	var te *domain.TimeoutError
	if errors.As(err, &te) {
		var perr *domain.ProviderError
		if !errors.As(err, &perr) {
			return domain.NewProviderError(ProviderName, domain.ErrTimeout, "request timed out", err)
		}
	}
	return err
}
