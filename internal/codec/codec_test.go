package codec

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"tryon/internal/domain"
)

func TestStripHeader(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"data:image/png;base64,QUJD", "QUJD"},
		{"QUJD", "QUJD"},
		{"data:text/plain;base64,QUJD", "data:text/plain;base64,QUJD"},
		{"", ""},
	}
	for _, tc := range tests {
		got := StripHeader(tc.in)
		if got != tc.want {
			t.Fatalf("StripHeader(%q) = %q, want %q", tc.in, got, tc.want)
		}
		if again := StripHeader(got); again != got {
			t.Fatalf("StripHeader not idempotent for %q: %q", tc.in, again)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	for _, mime := range []string{"image/png", "image/jpeg", "image/webp"} {
		img := domain.Image{MIME: mime, Base64: "aGVsbG8gd29ybGQ="}
		if got := StripHeader(ToDataURL(img)); got != img.Base64 {
			t.Fatalf("round trip for %s = %q", mime, got)
		}
	}
}

func TestDetectMIME(t *testing.T) {
	tests := []struct {
		in, fallback, want string
	}{
		{"data:image/png;base64,AAAA", DefaultModelMIME, "image/png"},
		{"data:image/jpeg;base64,AAAA", DefaultGarmentMIME, "image/jpeg"},
		{"data:image/webp;base64,AAAA", DefaultGarmentMIME, "image/webp"},
		{"AAAA", DefaultModelMIME, "image/jpeg"},
		{"AAAA", DefaultGarmentMIME, "image/png"},
		{"data:;base64,AAAA", DefaultGarmentMIME, "image/png"},
	}
	for _, tc := range tests {
		if got := DetectMIME(tc.in, tc.fallback); got != tc.want {
			t.Fatalf("DetectMIME(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseAndDecode(t *testing.T) {
	img, err := Parse("data:image/png;base64,aGVs\nbG8=", DefaultModelMIME)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if img.MIME != "image/png" || img.Base64 != "aGVsbG8=" {
		t.Fatalf("unexpected image: %+v", img)
	}
	data, err := Decode(img)
	if err != nil || string(data) != "hello" {
		t.Fatalf("Decode = %q, %v", data, err)
	}
	if _, err := Parse("   ", DefaultModelMIME); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := Parse("!!!not-base64!!!", DefaultModelMIME); !errors.Is(err, domain.ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestToBase64SniffsPNG(t *testing.T) {
	var buf bytes.Buffer
	pix := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	pix.Set(0, 0, color.NRGBA{R: 255, A: 255})
	if err := png.Encode(&buf, pix); err != nil {
		t.Fatalf("encode: %v", err)
	}
	img := ToBase64(buf.Bytes(), "")
	if img.MIME != "image/png" {
		t.Fatalf("MIME = %q", img.MIME)
	}
	decoded, format, err := DecodePixels(img)
	if err != nil {
		t.Fatalf("DecodePixels: %v", err)
	}
	if format != "png" || decoded.Bounds().Dx() != 2 {
		t.Fatalf("unexpected decode: %s %v", format, decoded.Bounds())
	}
}
