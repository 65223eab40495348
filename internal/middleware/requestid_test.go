package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{name: "client id echoed", incoming: "abc-123", keep: true},
		{name: "missing id minted"},
		{name: "spaces rejected", incoming: "a b"},
		{name: "oversized rejected", incoming: strings.Repeat("x", maxRequestIDLen+1)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.incoming != "" {
				req.Header.Set(RequestIDHeader, tc.incoming)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			got := rec.Header().Get(RequestIDHeader)
			if got != seen {
				t.Fatalf("header %q differs from context %q", got, seen)
			}
			if tc.keep {
				if got != tc.incoming {
					t.Fatalf("got %q, want %q", got, tc.incoming)
				}
				return
			}
			id, err := uuid.Parse(got)
			if err != nil || id.Version() != 7 {
				t.Fatalf("expected minted v7 uuid, got %q (%v)", got, err)
			}
		})
	}
}
