// Package codec converts images between raw bytes, base64 text and data URLs.
package codec

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"net/http"
	"strings"

	_ "golang.org/x/image/webp"

	"tryon/internal/domain"
)

const (
	// DefaultModelMIME applies to model photos that arrive without a header.
	DefaultModelMIME = "image/jpeg"
	// DefaultGarmentMIME applies to garment round-trips without a header.
	DefaultGarmentMIME = "image/png"
)

const dataImagePrefix = "data:image"

// ToBase64 wraps raw bytes into an Image. When mimeHint is empty the type is
// sniffed from the content.
func ToBase64(data []byte, mimeHint string) domain.Image {
	mime := strings.TrimSpace(mimeHint)
	if mime == "" {
		mime = SniffMIME(data, DefaultGarmentMIME)
	}
	return domain.Image{MIME: mime, Base64: base64.StdEncoding.EncodeToString(data)}
}

// StripHeader returns the payload after the first comma of a data URL and the
// input unchanged otherwise. Applying it twice is a no-op.
func StripHeader(s string) string {
	if strings.HasPrefix(s, dataImagePrefix) {
		if idx := strings.IndexByte(s, ','); idx >= 0 {
			return s[idx+1:]
		}
	}
	return s
}

// DetectMIME extracts the MIME token of a data URL, or returns fallback.
func DetectMIME(dataURL, fallback string) string {
	rest, ok := strings.CutPrefix(strings.TrimSpace(dataURL), "data:")
	if !ok {
		return fallback
	}
	end := strings.Index(rest, ";base64,")
	if end <= 0 {
		return fallback
	}
	return rest[:end]
}

// ToDataURL renders data:{mime};base64,{payload}.
func ToDataURL(img domain.Image) string {
	mime := img.MIME
	if mime == "" {
		mime = DefaultGarmentMIME
	}
	return "data:" + mime + ";base64," + img.Base64
}

// Parse accepts a data URL or bare base64 text and returns an Image whose
// payload is verified to decode.
func Parse(s, fallbackMIME string) (domain.Image, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return domain.Image{}, fmt.Errorf("%w: image is empty", domain.ErrInvalidInput)
	}
	img := domain.Image{
		MIME:   DetectMIME(s, fallbackMIME),
		Base64: compact(StripHeader(s)),
	}
	if _, err := Decode(img); err != nil {
		return domain.Image{}, err
	}
	return img, nil
}

// Decode returns the raw bytes of an image. Padding-free and URL-safe
// alphabets are accepted as well as embedded whitespace.
func Decode(img domain.Image) ([]byte, error) {
	payload := compact(StripHeader(img.Base64))
	if payload == "" {
		return nil, fmt.Errorf("%w: empty payload", domain.ErrDecode)
	}
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if data, err := enc.DecodeString(payload); err == nil {
			return data, nil
		}
	}
	return nil, fmt.Errorf("%w: invalid base64 payload", domain.ErrDecode)
}

// DecodePixels decodes an Image into a pixel buffer.
func DecodePixels(img domain.Image) (image.Image, string, error) {
	data, err := Decode(img)
	if err != nil {
		return nil, "", err
	}
	pix, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}
	return pix, format, nil
}

// EncodePNG encodes a pixel buffer into a PNG Image.
func EncodePNG(pix image.Image) (domain.Image, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, pix); err != nil {
		return domain.Image{}, fmt.Errorf("codec: encode png: %w", err)
	}
	return ToBase64(buf.Bytes(), "image/png"), nil
}

// SniffMIME guesses an image MIME type from content, or returns fallback.
func SniffMIME(data []byte, fallback string) string {
	if len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WEBP" {
		return "image/webp"
	}
	mime := http.DetectContentType(data)
	if strings.HasPrefix(mime, "image/") {
		return mime
	}
	return fallback
}

func compact(s string) string {
	if !strings.ContainsAny(s, " \t\r\n") {
		return s
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, s)
}
