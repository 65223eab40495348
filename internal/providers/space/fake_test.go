package space

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDRfake")

type callRecord struct {
	endpoint string
	data     []json.RawMessage
	auth     string
}

// fakeSpace emulates the Gradio queue API of a Space.
type fakeSpace struct {
	t   *testing.T
	srv *httptest.Server

	mu           sync.Mutex
	configHits   int
	uploads      []string
	calls        []callRecord
	fileRequests []string
	output       string
	queueError   string
	failCalls    int
	stall        bool
}

func newFakeSpace(t *testing.T, output string) *fakeSpace {
	t.Helper()
	f := &fakeSpace{t: t, output: output}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeSpace) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/config":
		f.configHits++
		_, _ = io.WriteString(w, `{"version":"4.44.1","api_prefix":""}`)
	case r.Method == http.MethodPost && r.URL.Path == "/upload":
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		files := r.MultipartForm.File["files"]
		if len(files) != 1 {
			http.Error(w, "expected one file", http.StatusBadRequest)
			return
		}
		f.uploads = append(f.uploads, files[0].Filename)
		_ = json.NewEncoder(w).Encode([]string{fmt.Sprintf("/tmp/gradio/%d/%s", len(f.uploads), files[0].Filename)})
	case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/call/"):
		var body struct {
			Data []json.RawMessage `json:"data"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.calls = append(f.calls, callRecord{
			endpoint: strings.TrimPrefix(r.URL.Path, "/call/"),
			data:     body.Data,
			auth:     r.Header.Get("Authorization"),
		})
		if f.failCalls > 0 {
			f.failCalls--
			http.Error(w, "queue exploded", http.StatusInternalServerError)
			return
		}
		_, _ = io.WriteString(w, `{"event_id":"evt-1"}`)
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/call/"):
		w.Header().Set("Content-Type", "text/event-stream")
		if f.stall {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
			return
		}
		_, _ = io.WriteString(w, "event: heartbeat\ndata: null\n\n")
		_, _ = io.WriteString(w, "event: generating\ndata: null\n\n")
		if f.queueError != "" {
			msg, _ := json.Marshal(f.queueError)
			_, _ = fmt.Fprintf(w, "event: error\ndata: %s\n\n", msg)
			return
		}
		_, _ = fmt.Fprintf(w, "event: complete\ndata: [%s]\n\n", f.output)
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/file="):
		f.fileRequests = append(f.fileRequests, r.RequestURI)
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngBytes)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeSpace) cache(token string) *ClientCache {
	return NewClientCache(func(ctx context.Context) (*Client, error) {
		return Connect(ctx, ClientOptions{Space: f.srv.URL, Token: token, HTTPClient: f.srv.Client()})
	}, 0)
}
