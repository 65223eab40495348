package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newLocaleRequest(headers map[string]string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.4:80"
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req
}

func TestDetectLocale(t *testing.T) {
	tests := []struct {
		name     string
		headers  map[string]string
		fallback string
		country  string
		want     string
	}{
		{name: "x-locale wins over country", headers: map[string]string{"X-Locale": "ID"}, country: "US", want: "id"},
		{name: "x-locale with underscore", headers: map[string]string{"X-Locale": "id_ID"}, want: "id"},
		{name: "accept-language english", headers: map[string]string{"Accept-Language": "en-US,en;q=0.9"}, want: "en"},
		{name: "accept-language indonesian", headers: map[string]string{"Accept-Language": "id-ID,en;q=0.8"}, want: "id"},
		{name: "indonesian visitor", country: "ID", want: "id"},
		{name: "other country", country: "US", fallback: "id", want: "en"},
		{name: "configured fallback", fallback: "id", want: "id"},
		{name: "unknown fallback", fallback: "xx-invalid-", want: "en"},
		{name: "nothing known", want: "en"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := detectLocale(newLocaleRequest(tc.headers), tc.fallback, tc.country)
			if got != tc.want {
				t.Fatalf("detectLocale() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestResolveCountry(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		lookup  CountryLookup
		want    string
	}{
		{name: "proxy header order", headers: map[string]string{"X-Country-Code": "us", "CF-IPCountry": "id"}, want: "US"},
		{name: "cloudflare header", headers: map[string]string{"CF-IPCountry": "sg"}, want: "SG"},
		{name: "x-locale region", headers: map[string]string{"X-Locale": "en-AU"}, want: "AU"},
		{name: "accept-language region", headers: map[string]string{"Accept-Language": "en-GB,en;q=0.9"}, want: "GB"},
		{name: "indonesian without region", headers: map[string]string{"Accept-Language": "id;q=0.8"}, want: "ID"},
		{
			name: "ip lookup",
			lookup: func(ip string) (string, error) {
				if ip != "203.0.113.4" {
					return "", errors.New("unexpected ip " + ip)
				}
				return "my", nil
			},
			want: "MY",
		},
		{
			name:   "lookup failure",
			lookup: func(string) (string, error) { return "", errors.New("boom") },
			want:   "",
		},
		{name: "no lookup", want: ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ResolveCountry(newLocaleRequest(tc.headers), tc.lookup); got != tc.want {
				t.Fatalf("ResolveCountry() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	req := newLocaleRequest(map[string]string{"X-Forwarded-For": " 198.51.100.7 , 10.0.0.1"})
	if got := ClientIP(req); got != "198.51.100.7" {
		t.Fatalf("ClientIP() = %q", got)
	}
	req = newLocaleRequest(nil)
	if got := ClientIP(req); got != "203.0.113.4" {
		t.Fatalf("ClientIP() = %q", got)
	}
}

func TestLocaleFromContext(t *testing.T) {
	ctx := context.Background()
	if got := LocaleFromContext(ctx); got != "en" {
		t.Fatalf("default locale = %q", got)
	}
	if got := LocaleFromContext(context.WithValue(ctx, LocaleKey, "id")); got != "id" {
		t.Fatalf("stored locale = %q", got)
	}
}

func TestParseAcceptLanguageWeights(t *testing.T) {
	tests := map[string]string{
		"":                   "",
		"en;q=0.3, id;q=0.9": "id",
		"fr-FR, id;q=0.5":    "id",
		"de":                 "en",
	}
	for header, want := range tests {
		if got := parseAcceptLanguage(header); got != want {
			t.Fatalf("parseAcceptLanguage(%q) = %q, want %q", header, got, want)
		}
	}
}

func TestI18NMiddleware(t *testing.T) {
	var gotLocale, gotCountry string
	h := I18N("en", func(string) (string, error) { return "id", nil })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLocale = LocaleFromContext(r.Context())
		gotCountry = CountryFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:1234"
	h.ServeHTTP(httptest.NewRecorder(), req)
	if gotLocale != "id" || gotCountry != "ID" {
		t.Fatalf("locale=%q country=%q", gotLocale, gotCountry)
	}
}
