package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"tryon/internal/bgremoval"
	"tryon/internal/domain"
	"tryon/internal/infra"
	"tryon/internal/middleware"
	"tryon/internal/tryon"
)

// maxBodyBytes bounds JSON request bodies; images arrive base64 encoded.
const maxBodyBytes = 25 << 20

// App carries the dependencies of every handler. Closet and Images are nil
// when no database is configured; the closet routes then answer 503.
type App struct {
	Config       *infra.Config
	Logger       *infra.Logger
	Orchestrator *tryon.Orchestrator
	Fallback     *tryon.Fallback
	Sessions     *tryon.SessionStore
	Background   *bgremoval.Chain
	Closet       domain.ClosetRepository
	Images       domain.ImageStore
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	Detail string `json:"detail,omitempty"`
}

// fail maps err onto a status and a localized message. The raw error is
// logged and only echoed back in development.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if retry := domain.RetryAfter(err); retry > 0 && status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(retry.Seconds())))
	}
	logger := a.requestLogger(r)
	ev := logger.Warn()
	if status >= http.StatusInternalServerError {
		ev = logger.Error()
	}
	ev.Err(err).Str("code", code).Int("status", status).Str("path", r.URL.Path).Msg("request failed")

	resp := errorResponse{Error: message(middleware.LocaleFromContext(r.Context()), code), Code: code}
	if a.Config != nil && a.Config.IsDevelopment() {
		resp.Detail = err.Error()
	}
	a.json(w, status, resp)
}

// classify maps err to a status and code. Provider kinds are checked first:
// a provider error may wrap a codec error, which is still a gateway failure.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrQuotaExceeded):
		return http.StatusTooManyRequests, codeQuota
	case errors.Is(err, domain.ErrTimeout):
		return http.StatusGatewayTimeout, codeTimeout
	case errors.Is(err, domain.ErrNoImageInResponse):
		return http.StatusBadGateway, codeNoImage
	case errors.Is(err, domain.ErrProviderFailure):
		return http.StatusBadGateway, codeProvider
	case errors.Is(err, domain.ErrDecode):
		return http.StatusBadRequest, codeDecode
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, codeInvalidInput
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, codeUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, domain.ErrBusy):
		return http.StatusConflict, codeBusy
	case errors.Is(err, domain.ErrUnavailable):
		return http.StatusServiceUnavailable, codeUnavailable
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

// decode reads a JSON body into v. Syntax errors and oversize bodies are
// invalid input.
func (a *App) decode(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: request body too large", domain.ErrInvalidInput)
		}
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", domain.ErrInvalidInput)
		}
		return fmt.Errorf("%w: invalid payload: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

func (a *App) requestLogger(r *http.Request) *zerolog.Logger {
	if l := zerolog.Ctx(r.Context()); l.GetLevel() != zerolog.Disabled {
		return l
	}
	if a.Logger != nil {
		return a.Logger
	}
	return zerolog.Ctx(r.Context())
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}

// sessionKey picks the try-on session for a request: the X-Session-ID
// header, then the signed-in user, then the client address.
func sessionKey(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get("X-Session-ID")); v != "" {
		return "sid:" + v
	}
	if v := middleware.UserIDFromContext(r.Context()); v != "" {
		return "user:" + v
	}
	return "ip:" + middleware.ClientIP(r)
}
