// Package space talks to Hugging Face Spaces through the Gradio queue API
// and implements the try-on and background-removal backends built on it.
package space

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"tryon/internal/infra"
)

// ErrInvalidSpace is returned for space identifiers that are neither
// "owner/name" nor an absolute URL.
var ErrInvalidSpace = errors.New("space: invalid space identifier")

// ClientOptions configures a connection to one Space.
type ClientOptions struct {
	// Space is "owner/name" or the absolute root URL of the app.
	Space      string
	Token      string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client is a connected Gradio app. It is safe for concurrent use.
type Client struct {
	root       string
	prefix     string
	header     http.Header
	httpClient *http.Client
	logger     *infra.Logger
}

// FileRef references a file already uploaded to the app.
type FileRef struct {
	Path     string `json:"path"`
	OrigName string `json:"orig_name,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Meta     struct {
		Type string `json:"_type"`
	} `json:"meta"`
}

type appConfig struct {
	APIPrefix string `json:"api_prefix"`
	Version   string `json:"version"`
}

type callResponse struct {
	EventID string `json:"event_id"`
}

// Connect resolves the Space root and verifies the app answers its config
// endpoint.
func Connect(ctx context.Context, opts ClientOptions) (*Client, error) {
	root, err := SpaceRoot(opts.Space)
	if err != nil {
		return nil, err
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := loggerOrDiscard(opts.Logger)
	c := &Client{
		root:       root,
		header:     AuthHeader(opts.Token),
		httpClient: httpClient,
		logger:     logger,
	}

	raw, err := c.do(ctx, http.MethodGet, root+"/config", nil, "")
	if err != nil {
		return nil, fmt.Errorf("space: connect %s: %w", root, err)
	}
	var cfg appConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("space: decode config: %w", err)
	}
	c.prefix = strings.TrimRight(cfg.APIPrefix, "/")
	if c.prefix != "" && !strings.HasPrefix(c.prefix, "/") {
		c.prefix = "/" + c.prefix
	}
	c.logger.Debug().Str("space", root).Str("gradio", cfg.Version).Str("prefix", c.prefix).Msg("space: connected")
	return c, nil
}

// SpaceRoot maps "owner/name" onto https://owner-name.hf.space. Absolute
// URLs are returned without a trailing slash.
func SpaceRoot(space string) (string, error) {
	space = strings.TrimSpace(space)
	if strings.HasPrefix(space, "http://") || strings.HasPrefix(space, "https://") {
		u, err := url.Parse(space)
		if err != nil || u.Host == "" {
			return "", fmt.Errorf("%w: %q", ErrInvalidSpace, space)
		}
		return strings.TrimRight(u.String(), "/"), nil
	}
	owner, name, ok := strings.Cut(space, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidSpace, space)
	}
	sub := strings.ToLower(owner + "-" + name)
	sub = strings.NewReplacer(".", "-", "_", "-").Replace(sub)
	return "https://" + sub + ".hf.space", nil
}

// Hosts returns the hosts serving the named Spaces. Invalid names are
// skipped.
func Hosts(spaces ...string) []string {
	var hosts []string
	for _, name := range spaces {
		root, err := SpaceRoot(name)
		if err != nil {
			continue
		}
		if u, err := url.Parse(root); err == nil {
			hosts = append(hosts, u.Host)
		}
	}
	return hosts
}

// AuthHeader builds the headers that authenticate against private or
// rate-limited Spaces. An empty token yields no headers.
func AuthHeader(token string) http.Header {
	h := http.Header{}
	if token = strings.TrimSpace(token); token != "" {
		h.Set("Authorization", "Bearer "+token)
		h.Set("X-HF-Token", token)
	}
	return h
}

// Root returns the app root URL.
func (c *Client) Root() string {
	return c.root
}

// Header returns a copy of the authentication headers.
func (c *Client) Header() http.Header {
	return c.header.Clone()
}

// FileURL builds the download URL for a file path served by the app.
func (c *Client) FileURL(path string) string {
	return c.root + c.prefix + "/file=" + url.PathEscape(path)
}

// Upload sends one file and returns its reference.
func (c *Client) Upload(ctx context.Context, filename, mime string, data []byte) (FileRef, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="%s"`, filename))
	if mime != "" {
		h.Set("Content-Type", mime)
	}
	part, err := mw.CreatePart(h)
	if err != nil {
		return FileRef{}, fmt.Errorf("space: build upload: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return FileRef{}, fmt.Errorf("space: build upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return FileRef{}, fmt.Errorf("space: build upload: %w", err)
	}

	raw, err := c.do(ctx, http.MethodPost, c.root+c.prefix+"/upload", &body, mw.FormDataContentType())
	if err != nil {
		return FileRef{}, fmt.Errorf("space: upload %s: %w", filename, err)
	}
	var paths []string
	if err := json.Unmarshal(raw, &paths); err != nil || len(paths) == 0 {
		return FileRef{}, fmt.Errorf("space: upload %s: unexpected response %s", filename, truncate(string(raw), 200))
	}
	ref := FileRef{Path: paths[0], OrigName: filename, MimeType: mime}
	ref.Meta.Type = "gradio.FileData"
	return ref, nil
}

// Predict calls a named endpoint through the queue and waits for its result.
// It returns the elements of the output data envelope.
func (c *Client) Predict(ctx context.Context, endpoint string, data []any) ([]json.RawMessage, error) {
	name := strings.Trim(endpoint, "/")
	if name == "" {
		return nil, errors.New("space: endpoint is required")
	}
	payload, err := json.Marshal(map[string]any{"data": data})
	if err != nil {
		return nil, fmt.Errorf("space: encode %s: %w", endpoint, err)
	}
	callURL := c.root + c.prefix + "/call/" + name
	raw, err := c.do(ctx, http.MethodPost, callURL, bytes.NewReader(payload), "application/json")
	if err != nil {
		return nil, fmt.Errorf("space: call %s: %w", endpoint, err)
	}
	var call callResponse
	if err := json.Unmarshal(raw, &call); err != nil || call.EventID == "" {
		return nil, fmt.Errorf("space: call %s: missing event id in %s", endpoint, truncate(string(raw), 200))
	}
	return c.await(ctx, endpoint, callURL+"/"+url.PathEscape(call.EventID))
}

func (c *Client) await(ctx context.Context, endpoint, streamURL string) ([]json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return nil, fmt.Errorf("space: build stream request: %w", err)
	}
	c.applyHeader(req)
	req.Header.Set("Accept", "text/event-stream")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("space: stream %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	for ev, err := range streamEvents(resp.Body) {
		if err != nil {
			return nil, fmt.Errorf("space: read stream %s: %w", endpoint, err)
		}
		switch ev.Type {
		case "complete":
			var out []json.RawMessage
			if err := json.Unmarshal([]byte(ev.Data), &out); err != nil {
				return nil, fmt.Errorf("space: decode %s result: %w", endpoint, err)
			}
			return out, nil
		case "error":
			return nil, &QueueError{Endpoint: endpoint, Message: queueErrorMessage(ev.Data)}
		default:
			c.logger.Debug().Str("space", c.root).Str("endpoint", endpoint).Str("event", ev.Type).Msg("space: queue event")
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, context.Cause(ctx)
	}
	return nil, fmt.Errorf("space: stream %s ended without a result", endpoint)
}

func (c *Client) do(ctx context.Context, method, target string, body io.Reader, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	c.applyHeader(req)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Body: truncate(strings.TrimSpace(string(raw)), 500)}
	}
	return raw, nil
}

func (c *Client) applyHeader(req *http.Request) {
	for k, vs := range c.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
}

// StatusError is a non-2xx answer from the app.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("status %d", e.Code)
	}
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

// QueueError is an "error" event from the queue stream.
type QueueError struct {
	Endpoint string
	Message  string
}

func (e *QueueError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("space: %s failed", e.Endpoint)
	}
	return fmt.Sprintf("space: %s failed: %s", e.Endpoint, e.Message)
}

func queueErrorMessage(data string) string {
	data = strings.TrimSpace(data)
	if data == "" || data == "null" {
		return ""
	}
	var msg string
	if err := json.Unmarshal([]byte(data), &msg); err == nil {
		return msg
	}
	var obj struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(data), &obj); err == nil {
		if obj.Error != "" {
			return obj.Error
		}
		if obj.Message != "" {
			return obj.Message
		}
	}
	return truncate(data, 300)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
