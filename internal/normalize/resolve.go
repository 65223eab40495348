package normalize

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tryon/internal/codec"
	"tryon/internal/domain"
	"tryon/internal/infra"
	"tryon/internal/timeout"
)

const (
	DefaultDownloadTimeout  = 30 * time.Second
	DefaultMaxDownloadBytes = 32 << 20
)

// Options configures a Normalizer.
type Options struct {
	Table           KeyTable
	HTTPClient      *http.Client
	DownloadTimeout time.Duration
	// MaxDownloadBytes caps a downloaded image. Larger bodies are a
	// provider failure.
	MaxDownloadBytes int64
	// Header is added to download requests whose host is listed in
	// HeaderHosts, e.g. a bearer token for private inference spaces.
	Header      http.Header
	HeaderHosts []string
	Logger      *infra.Logger
}

// Normalizer turns provider responses into canonical images.
type Normalizer struct {
	extractor       *Extractor
	httpClient      *http.Client
	downloadTimeout time.Duration
	maxBytes        int64
	header          http.Header
	headerHosts     []string
	logger          *infra.Logger
}

// New constructs a Normalizer with defaults for unset options.
func New(opts Options) *Normalizer {
	table := opts.Table
	if len(table.Keys) == 0 {
		table = DefaultKeyTable()
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	d := opts.DownloadTimeout
	if d <= 0 {
		d = DefaultDownloadTimeout
	}
	maxBytes := opts.MaxDownloadBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxDownloadBytes
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	return &Normalizer{
		extractor:       NewExtractor(table),
		httpClient:      httpClient,
		downloadTimeout: d,
		maxBytes:        maxBytes,
		header:          opts.Header.Clone(),
		headerHosts:     append([]string(nil), opts.HeaderHosts...),
		logger:          logger,
	}
}

// Extract exposes the underlying payload search.
func (n *Normalizer) Extract(body any) string {
	return n.extractor.Extract(body)
}

// Normalize extracts a payload from body and resolves it into an image and
// its data URL. provider tags the returned errors.
func (n *Normalizer) Normalize(ctx context.Context, provider string, body any) (domain.Image, string, error) {
	payload := n.extractor.Extract(body)
	if payload == "" {
		return domain.Image{}, "", domain.NewProviderError(provider, domain.ErrNoImageInResponse, "response carried no image payload", nil)
	}
	img, err := n.Resolve(ctx, provider, payload)
	if err != nil {
		return domain.Image{}, "", err
	}
	return img, codec.ToDataURL(img), nil
}

// Resolve converts a URL, data URL or bare base64 payload into an image.
// Remote URLs are fetched under the download timeout.
func (n *Normalizer) Resolve(ctx context.Context, provider, payload string) (domain.Image, error) {
	payload = strings.TrimSpace(payload)
	if isRemoteURL(payload) {
		return n.Download(ctx, provider, payload)
	}
	img, err := codec.Parse(payload, codec.DefaultGarmentMIME)
	if err != nil {
		return domain.Image{}, domain.NewProviderError(provider, domain.ErrNoImageInResponse, "payload is not a decodable image", err)
	}
	return img, nil
}

// Download fetches an image by URL and re-encodes it to base64.
func (n *Normalizer) Download(ctx context.Context, provider, rawURL string) (domain.Image, error) {
	img, err := timeout.Do(ctx, n.downloadTimeout, provider+" download", func(ctx context.Context) (domain.Image, error) {
		return n.fetch(ctx, rawURL)
	})
	if err != nil {
		n.logger.Warn().Err(err).Str("provider", provider).Str("url", rawURL).Msg("normalize: download failed")
		var te *domain.TimeoutError
		if errors.As(err, &te) {
			return domain.Image{}, domain.NewProviderError(provider, domain.ErrTimeout, "image download timed out", err)
		}
		return domain.Image{}, domain.NewProviderError(provider, domain.ErrProviderFailure, "image download failed", err)
	}
	n.logger.Debug().Str("provider", provider).Str("url", rawURL).Str("mime", img.MIME).Msg("normalize: downloaded image")
	return img, nil
}

func (n *Normalizer) fetch(ctx context.Context, rawURL string) (domain.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return domain.Image{}, fmt.Errorf("build download request: %w", err)
	}
	if n.trusted(req.URL) {
		for k, vs := range n.header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
	}
	resp, err := n.httpClient.Do(req)
	if err != nil {
		return domain.Image{}, fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return domain.Image{}, fmt.Errorf("download status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, n.maxBytes+1))
	if err != nil {
		return domain.Image{}, fmt.Errorf("read image: %w", err)
	}
	if int64(len(data)) > n.maxBytes {
		return domain.Image{}, fmt.Errorf("image exceeds %d bytes", n.maxBytes)
	}
	if len(data) == 0 {
		return domain.Image{}, errors.New("empty image body")
	}
	mime := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(mime, "image/") {
		mime = codec.SniffMIME(data, codec.DefaultGarmentMIME)
	}
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	return codec.ToBase64(data, mime), nil
}

// trusted reports whether download credentials may be sent to u.
func (n *Normalizer) trusted(u *url.URL) bool {
	for _, h := range n.headerHosts {
		if strings.EqualFold(u.Host, h) {
			return true
		}
	}
	return false
}

func isRemoteURL(s string) bool {
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return false
	}
	u, err := url.Parse(s)
	return err == nil && u.Host != ""
}
