// Package gemini implements the direct generative-API backend for try-on and
// background removal.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"tryon/internal/codec"
	"tryon/internal/domain"
	"tryon/internal/infra"
)

const (
	ProviderName     = "gemini"
	DefaultModel     = "gemini-2.5-flash-image"
	DefaultTimeout   = 90 * time.Second
	defaultRetryHint = 30 * time.Second
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("gemini: api key is required")

// contentGenerator is the slice of *genai.Models used here.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Options configures the Gemini client.
type Options struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
	Logger  *infra.Logger

	generator contentGenerator
}

// Client wraps the genai SDK with the error translation both strategies share.
type Client struct {
	generator contentGenerator
	model     string
	timeout   time.Duration
	logger    *infra.Logger
}

// NewClient constructs a Client backed by the Gemini Developer API.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	generator := opts.generator
	if generator == nil {
		key := strings.TrimSpace(opts.APIKey)
		if key == "" {
			return nil, ErrMissingAPIKey
		}
		cfg := &genai.ClientConfig{
			APIKey:  key,
			Backend: genai.BackendGeminiAPI,
		}
		if base := strings.TrimSpace(opts.BaseURL); base != "" {
			cfg.HTTPOptions = genai.HTTPOptions{BaseURL: base}
		}
		client, err := genai.NewClient(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("gemini: create client: %w", err)
		}
		generator = client.Models
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	return &Client{generator: generator, model: model, timeout: timeout, logger: logger}, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// generateImage sends prompt text followed by the images as inline parts and
// returns the first inline image of the first candidate.
func (c *Client) generateImage(ctx context.Context, prompt string, images []domain.Image) (domain.Image, error) {
	parts := make([]*genai.Part, 0, len(images)+1)
	parts = append(parts, genai.NewPartFromText(prompt))
	for i, img := range images {
		data, err := codec.Decode(img)
		if err != nil {
			return domain.Image{}, fmt.Errorf("gemini: image %d: %w", i, err)
		}
		mime := img.MIME
		if mime == "" {
			mime = codec.SniffMIME(data, codec.DefaultModelMIME)
		}
		parts = append(parts, genai.NewPartFromBytes(data, mime))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := c.generator.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{})
	if err != nil {
		return domain.Image{}, translateError(err)
	}
	return firstInlineImage(resp)
}

func firstInlineImage(resp *genai.GenerateContentResponse) (domain.Image, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].Content == nil {
		return domain.Image{}, domain.NewProviderError(ProviderName, domain.ErrNoImageInResponse, "response has no candidates", nil)
	}
	var text []string
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil {
			continue
		}
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			mime := part.InlineData.MIMEType
			if strings.TrimSpace(mime) == "" {
				mime = "image/png"
			}
			return codec.ToBase64(part.InlineData.Data, mime), nil
		}
		if t := strings.TrimSpace(part.Text); t != "" {
			text = append(text, t)
		}
	}
	msg := "response has no inline image"
	if len(text) > 0 {
		msg += ": " + truncate(strings.Join(text, " "), 200)
	}
	return domain.Image{}, domain.NewProviderError(ProviderName, domain.ErrNoImageInResponse, msg, nil)
}

// translateError maps SDK failures onto the domain taxonomy. Quota and rate
// limit responses become ErrQuotaExceeded with a backoff hint.
func translateError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	code, status, message := apiErrorFields(err)
	lower := strings.ToLower(message)
	switch {
	case code == http.StatusTooManyRequests || status == "RESOURCE_EXHAUSTED" ||
		strings.Contains(message, "429") || strings.Contains(lower, "quota") || strings.Contains(message, "RESOURCE_EXHAUSTED"):
		msg := "model is busy, wait 30-60 seconds and try again"
		if strings.Contains(message, "token_count") {
			msg = "image too large for the current quota, try again in 30 seconds"
		}
		return &domain.ProviderError{
			Provider:   ProviderName,
			Kind:       domain.ErrQuotaExceeded,
			Message:    msg,
			RetryAfter: defaultRetryHint,
			Err:        err,
		}
	case strings.Contains(lower, "modalities"):
		return domain.NewProviderError(ProviderName, domain.ErrProviderFailure, "image format not supported by the model", err)
	default:
		return domain.NewProviderError(ProviderName, domain.ErrProviderFailure, "generate content failed", err)
	}
}

func apiErrorFields(err error) (int, string, string) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, apiErr.Status, apiErr.Message
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, apiErrPtr.Status, apiErrPtr.Message
	}
	return 0, "", err.Error()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
