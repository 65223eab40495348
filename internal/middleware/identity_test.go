package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func serveIdentity(t *testing.T, secret string, setup func(r *http.Request)) (*httptest.ResponseRecorder, string, string) {
	t.Helper()
	var user, locale string
	h := Identity(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user = UserIDFromContext(r.Context())
		locale, _ = r.Context().Value(LocaleKey).(string)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if setup != nil {
		setup(req)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, user, locale
}

func TestIdentityVerifiesBearer(t *testing.T) {
	token, err := SignJWT("s3cret", TokenClaims{Sub: "user-9", Locale: "id-ID", Exp: time.Now().Add(time.Hour).Unix()})
	if err != nil {
		t.Fatalf("SignJWT error: %v", err)
	}
	rec, user, locale := serveIdentity(t, "s3cret", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
		r.Header.Set(UserIDHeader, "spoofed")
	})
	if rec.Code != http.StatusOK || user != "user-9" || locale != "id" {
		t.Fatalf("status=%d user=%q locale=%q", rec.Code, user, locale)
	}
}

func TestIdentityRejectsBadToken(t *testing.T) {
	token, _ := SignJWT("other", TokenClaims{Sub: "user-9"})
	rec, user, _ := serveIdentity(t, "s3cret", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})
	if rec.Code != http.StatusUnauthorized || user != "" {
		t.Fatalf("status=%d user=%q", rec.Code, user)
	}

	expired, _ := SignJWT("s3cret", TokenClaims{Sub: "user-9", Exp: time.Now().Add(-time.Minute).Unix()})
	if _, err := VerifyJWT("s3cret", expired); err != ErrTokenExpired {
		t.Fatalf("expected expired, got %v", err)
	}
}

func TestIdentityHeaderWithoutSecret(t *testing.T) {
	_, user, _ := serveIdentity(t, "", func(r *http.Request) {
		r.Header.Set(UserIDHeader, " user-1 ")
	})
	if user != "user-1" {
		t.Fatalf("user = %q", user)
	}
	_, user, _ = serveIdentity(t, "", nil)
	if user != "" {
		t.Fatalf("expected anonymous, got %q", user)
	}
}

func TestRequireUser(t *testing.T) {
	h := RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized || !strings.Contains(rec.Body.String(), `"code":"unauthorized"`) {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(ContextWithUserID(req.Context(), "u"))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"https://app.example.com/"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/v1/tryon", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "https://app.example.com" {
		t.Fatalf("missing allow origin")
	}
	if !strings.Contains(rec.Header().Get("Access-Control-Allow-Headers"), "X-Session-ID") {
		t.Fatalf("session header not allowed: %q", rec.Header().Get("Access-Control-Allow-Headers"))
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" || rec.Code != http.StatusOK {
		t.Fatalf("unexpected CORS for foreign origin")
	}
}

func TestLoggerIncludesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	h := RequestID(Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		zerolog.Ctx(r.Context()).Info().Msg("inside")
		w.WriteHeader(http.StatusTeapot)
	})))
	req := httptest.NewRequest(http.MethodGet, "/v1/healthz", nil)
	req.Header.Set("X-Request-ID", "rid-1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	if strings.Count(out, `"request_id":"rid-1"`) != 2 {
		t.Fatalf("request id missing: %s", out)
	}
	if !strings.Contains(out, `"status":418`) || !strings.Contains(out, `"level":"warn"`) {
		t.Fatalf("access log incomplete: %s", out)
	}
}
