package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"golang.org/x/text/language"
)

type localeContextKey struct{}
type countryContextKey struct{}

var (
	LocaleKey  = localeContextKey{}
	CountryKey = countryContextKey{}
)

const defaultLocale = "en"

// CountryLookup resolves ISO country codes for an IP address.
type CountryLookup func(ip string) (string, error)

// countryHeaders are set by CDNs and load balancers in front of the API.
var countryHeaders = []string{"X-Country-Code", "X-IP-Country", "CF-IPCountry", "X-Appengine-Country"}

// supportedLocales lists the message catalogs; the first is the default.
var supportedLocales = []language.Tag{language.English, language.Indonesian}

var localeMatcher = language.NewMatcher(supportedLocales)

// I18N stores the negotiated locale and, when known, the visitor's country
// in the request context. Locale precedence is X-Locale, Accept-Language,
// the country (Indonesia maps to id), then fallback.
func I18N(fallback string, lookup CountryLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			country := ResolveCountry(r, lookup)
			ctx := context.WithValue(r.Context(), LocaleKey, detectLocale(r, fallback, country))
			if country != "" {
				ctx = context.WithValue(ctx, CountryKey, country)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func detectLocale(r *http.Request, fallback, country string) string {
	if v := strings.TrimSpace(r.Header.Get("X-Locale")); v != "" {
		return normalizeLocale(v)
	}
	if v := parseAcceptLanguage(r.Header.Get("Accept-Language")); v != "" {
		return v
	}
	switch {
	case strings.EqualFold(country, "ID"):
		return "id"
	case country != "":
		return defaultLocale
	case fallback != "":
		return normalizeLocale(fallback)
	}
	return defaultLocale
}

// parseAcceptLanguage matches a weighted Accept-Language header against the
// supported locales. It returns "" for an empty or unparsable header.
func parseAcceptLanguage(header string) string {
	tags := acceptTags(header)
	if len(tags) == 0 {
		return ""
	}
	return matchLocale(tags...)
}

func acceptTags(header string) []language.Tag {
	if strings.TrimSpace(header) == "" {
		return nil
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil {
		return nil
	}
	return tags
}

func parseTag(v string) (language.Tag, bool) {
	v = strings.TrimSpace(strings.ReplaceAll(v, "_", "-"))
	if v == "" {
		return language.Und, false
	}
	tag, err := language.Parse(v)
	return tag, err == nil
}

func normalizeLocale(locale string) string {
	tag, ok := parseTag(locale)
	if !ok {
		return defaultLocale
	}
	return matchLocale(tag)
}

func matchLocale(tags ...language.Tag) string {
	_, idx, conf := localeMatcher.Match(tags...)
	if conf == language.No {
		return defaultLocale
	}
	base, _ := supportedLocales[idx].Base()
	return base.String()
}

// explicitRegion returns the region subtag a client actually sent, e.g. AU
// for en-AU. Inferred regions (en implies US) are ignored.
func explicitRegion(tag language.Tag) string {
	region, conf := tag.Region()
	if conf != language.Exact {
		return ""
	}
	return region.String()
}

// ResolveCountry returns a best-effort upper-case ISO country code: proxy
// headers first, then a region in X-Locale or Accept-Language, then an
// Indonesian language preference, then the IP lookup.
func ResolveCountry(r *http.Request, lookup CountryLookup) string {
	if r == nil {
		return ""
	}
	for _, key := range countryHeaders {
		if v := strings.TrimSpace(r.Header.Get(key)); v != "" {
			return strings.ToUpper(v)
		}
	}

	var preferred []language.Tag
	if tag, ok := parseTag(r.Header.Get("X-Locale")); ok {
		preferred = append(preferred, tag)
	}
	preferred = append(preferred, acceptTags(r.Header.Get("Accept-Language"))...)
	for _, tag := range preferred {
		if region := explicitRegion(tag); region != "" {
			return region
		}
	}
	for _, tag := range preferred {
		if matchLocale(tag) == "id" {
			return "ID"
		}
	}

	if lookup == nil {
		return ""
	}
	ip := ClientIP(r)
	if ip == "" {
		return ""
	}
	country, err := lookup(ip)
	if err != nil {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(country))
}

// ClientIP returns the best-effort client IP address for the request. Behind
// chi's RealIP middleware RemoteAddr already holds the forwarded address.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		first, _, _ := strings.Cut(xf, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func LocaleFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(LocaleKey).(string); ok {
		return v
	}
	return defaultLocale
}

// CountryFromContext returns the ISO country code stored in the request context.
func CountryFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CountryKey).(string); ok {
		return v
	}
	return ""
}
