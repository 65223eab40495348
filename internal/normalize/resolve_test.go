package normalize

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tryon/internal/domain"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestNormalizeDownloadsURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer hf" {
			t.Errorf("missing auth header")
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngHeader)
	}))
	defer srv.Close()

	n := New(Options{
		Header:      http.Header{"Authorization": []string{"Bearer hf"}},
		HeaderHosts: []string{strings.TrimPrefix(srv.URL, "http://")},
	})
	img, dataURL, err := n.Normalize(context.Background(), "space", []any{map[string]any{"url": srv.URL + "/out.png"}})
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}
	if img.MIME != "image/png" {
		t.Fatalf("MIME = %q", img.MIME)
	}
	if !strings.HasPrefix(dataURL, "data:image/png;base64,") {
		t.Fatalf("dataURL = %q", dataURL)
	}
}

func TestNormalizeDataURLAndBase64(t *testing.T) {
	n := New(Options{})
	_, dataURL, err := n.Normalize(context.Background(), "gemini", `{"imageBase64":"data:image/webp;base64,QUJD"}`)
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}
	if dataURL != "data:image/webp;base64,QUJD" {
		t.Fatalf("dataURL = %q", dataURL)
	}
	_, dataURL, err = n.Normalize(context.Background(), "bg", map[string]any{"processedBase64": "QUJD"})
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}
	if dataURL != "data:image/png;base64,QUJD" {
		t.Fatalf("dataURL = %q", dataURL)
	}
}

func TestNormalizeNoPayload(t *testing.T) {
	n := New(Options{})
	_, _, err := n.Normalize(context.Background(), "space", map[string]any{"status": 1.0})
	if !errors.Is(err, domain.ErrNoImageInResponse) || !errors.Is(err, domain.ErrProviderFailure) {
		t.Fatalf("expected no-image provider error, got %v", err)
	}
}

func TestNormalizeDownloadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()
	n := New(Options{})
	_, err := n.Resolve(context.Background(), "space", srv.URL+"/missing.png")
	if !errors.Is(err, domain.ErrProviderFailure) {
		t.Fatalf("expected provider failure, got %v", err)
	}
}

func TestNormalizeDownloadTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)
	n := New(Options{DownloadTimeout: 20 * time.Millisecond})
	_, err := n.Resolve(context.Background(), "space", srv.URL+"/slow.png")
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestNormalizeWithholdsHeaderFromOtherHosts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("credentials sent to untrusted host")
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngHeader)
	}))
	defer srv.Close()

	n := New(Options{
		Header:      http.Header{"Authorization": []string{"Bearer hf"}},
		HeaderHosts: []string{"owner-app.hf.space"},
	})
	if _, err := n.Resolve(context.Background(), "space", srv.URL+"/out.png"); err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
}

func TestNormalizeRejectsOversizeDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngHeader)
		_, _ = w.Write(make([]byte, 64))
	}))
	defer srv.Close()

	n := New(Options{MaxDownloadBytes: int64(len(pngHeader))})
	_, err := n.Resolve(context.Background(), "space", srv.URL+"/big.png")
	if !errors.Is(err, domain.ErrProviderFailure) {
		t.Fatalf("expected provider failure, got %v", err)
	}

	n = New(Options{MaxDownloadBytes: int64(len(pngHeader) + 64)})
	if _, err := n.Resolve(context.Background(), "space", srv.URL+"/big.png"); err != nil {
		t.Fatalf("body at the limit: %v", err)
	}
}

func TestNormalizeUndecodablePayloadIsProviderError(t *testing.T) {
	n := New(Options{})
	_, err := n.Resolve(context.Background(), "space", "this is !!! not an image")
	var perr *domain.ProviderError
	if !errors.As(err, &perr) || perr.Kind != domain.ErrNoImageInResponse {
		t.Fatalf("expected no-image provider error, got %v", err)
	}
	if !errors.Is(err, domain.ErrDecode) {
		t.Fatalf("codec cause lost: %v", err)
	}
}
