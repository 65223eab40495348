package middleware

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientIPForRateLimit(t *testing.T) {
	tests := []struct {
		name, forwarded, remote, want string
	}{
		{name: "forwarded", forwarded: "203.0.113.1", remote: "198.51.100.10:1234", want: "203.0.113.1"},
		{name: "first valid hop", forwarded: " junk , 203.0.113.1 , 198.51.100.2 ", remote: "198.51.100.10:1234", want: "203.0.113.1"},
		{name: "garbage forwarded", forwarded: "invalid", remote: "198.51.100.10:1234", want: "198.51.100.10"},
		{name: "no forwarded", remote: "198.51.100.10:1234", want: "198.51.100.10"},
		{name: "ipv6", forwarded: "2001:db8::1", remote: net.JoinHostPort("2001:db8::2", "443"), want: "2001:db8::1"},
		{name: "ipv6 remote", remote: net.JoinHostPort("2001:db8::2", "443"), want: "2001:db8::2"},
		{name: "remote without port", remote: "203.0.113.1", want: "203.0.113.1"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			if tc.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tc.forwarded)
			}
			if got := clientIPForRateLimit(req); got != tc.want {
				t.Fatalf("clientIPForRateLimit() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestWindowLimiter(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := newWindowLimiter(2, time.Minute)
	l.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if ok, _ := l.allow("a"); !ok {
			t.Fatalf("request %d rejected", i)
		}
	}
	ok, wait := l.allow("a")
	if ok || wait != time.Minute {
		t.Fatalf("third request ok=%v wait=%v", ok, wait)
	}
	if ok, _ := l.allow("b"); !ok {
		t.Fatal("other key should have its own window")
	}

	now = now.Add(time.Minute)
	if ok, _ := l.allow("a"); !ok {
		t.Fatal("window should reset")
	}

	now = now.Add(3 * time.Minute)
	l.allow("c")
	if n := l.size(); n != 1 {
		t.Fatalf("expired windows not swept, size = %d", n)
	}
}

func TestRateLimitRejectsOverLimit(t *testing.T) {
	h := RateLimit(2, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	send := func(remote, user string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remote
		if user != "" {
			req = req.WithContext(ContextWithUserID(req.Context(), user))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := send("198.51.100.7:1000", ""); rec.Code != http.StatusNoContent {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}
	rec := send("198.51.100.7:1000", "")
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") == "" {
		t.Fatalf("status = %d retry-after = %q", rec.Code, rec.Header().Get("Retry-After"))
	}
	if rec := send("198.51.100.8:1000", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("other client status = %d", rec.Code)
	}
	// Signed-in callers get their own budget even behind a shared address.
	if rec := send("198.51.100.7:1000", "user-1"); rec.Code != http.StatusNoContent {
		t.Fatalf("signed-in status = %d", rec.Code)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	called := 0
	h := RateLimit(0, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called++ }))
	for i := 0; i < 5; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}
	if called != 5 {
		t.Fatalf("called = %d", called)
	}
}
