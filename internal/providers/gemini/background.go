package gemini

import (
	"context"

	"tryon/internal/domain"
	"tryon/internal/timeout"
)

const backgroundPrompt = "Remove the background from this clothing item image. Make the background transparent or white."

// BackgroundRemover asks the model to cut the garment out of its background.
type BackgroundRemover struct {
	client *Client
}

func NewBackgroundRemover(client *Client) *BackgroundRemover {
	return &BackgroundRemover{client: client}
}

func (b *BackgroundRemover) Name() string { return ProviderName }

func (b *BackgroundRemover) RemoveBackground(ctx context.Context, img domain.Image) (domain.Image, error) {
	out, err := timeout.Do(ctx, b.client.timeout, "gemini remove-bg", func(ctx context.Context) (domain.Image, error) {
		return b.client.generateImage(ctx, backgroundPrompt, []domain.Image{img})
	})
	if err != nil {
		return domain.Image{}, wrapTimeout(err)
	}
	return out, nil
}
