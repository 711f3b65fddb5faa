package http

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	applog "expensebot/internal/log"
)

// maxWebhookBody caps the size of an update accepted from Telegram.
const maxWebhookBody = 1 << 20

// DefaultWebhookPath is used when the configured webhook URL has no path.
const DefaultWebhookPath = "/telegram/webhook"

// WebhookSecretHeader carries the secret_token registered with setWebhook.
const WebhookSecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// WebhookHandler consumes one raw Telegram update. A decoding problem should
// be reported as an error wrapping ErrBadUpdate.
type WebhookHandler interface {
	HandleWebhook(ctx context.Context, body []byte) error
}

// ErrBadUpdate marks a webhook payload that could not be decoded.
var ErrBadUpdate = errors.New("bad update")

// ReadinessCheck reports whether the process can serve commands.
type ReadinessCheck func(ctx context.Context) error

// Options configures NewServer. Webhook may be nil when the bot polls. With a
// Webhook set, only requests carrying WebhookSecret are accepted; an empty
// secret rejects every update.
type Options struct {
	Addr              string
	Webhook           WebhookHandler
	WebhookPath       string
	WebhookSecret     string
	Ready             ReadinessCheck
	RequestsPerMinute int
	Logger            *applog.Logger
}

// Server wraps http.Server with the health, readiness and webhook routes.
type Server struct {
	http.Server

	webhook      WebhookHandler
	secret       []byte
	ready        ReadinessCheck
	rateLimiter  *rateLimiter
	logger       *applog.Logger
	shutdownOnce sync.Once
}

// NewServer configures routes and returns a ready-to-run server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			Handler:           applog.Middleware(logger)(securityHeaders(mux)),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       60 * time.Second,
			MaxHeaderBytes:    1 << 16,
		},
		webhook:     opts.Webhook,
		secret:      []byte(opts.WebhookSecret),
		ready:       opts.Ready,
		rateLimiter: newRateLimiter(opts.RequestsPerMinute),
		logger:      logger,
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	if s.webhook != nil {
		path := opts.WebhookPath
		if path == "" || path == "/" {
			path = DefaultWebhookPath
		}
		mux.HandleFunc(path, s.handleWebhook)
		logger.Info("Webhook route registered", applog.FieldPath, path)
	}
	return s
}

// Shutdown stops the rate limiter and gracefully shuts down the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	clientIP := extractClientIP(r)
	if !s.rateLimiter.allow(clientIP) {
		logger.WarnContext(ctx, "Rate limit exceeded", applog.FieldClientIP, clientIP)
		w.Header().Set("Retry-After", "60")
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	if !s.authorized(r) {
		logger.WarnContext(ctx, "Webhook secret mismatch", applog.FieldClientIP, clientIP)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		logger.WarnContext(ctx, "Webhook body rejected", applog.FieldClientIP, clientIP, applog.FieldError, err)
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}

	if err := s.webhook.HandleWebhook(ctx, body); err != nil {
		if errors.Is(err, ErrBadUpdate) {
			logger.WarnContext(ctx, "Malformed webhook update", applog.FieldClientIP, clientIP, applog.FieldError, err)
			http.Error(w, "malformed update", http.StatusBadRequest)
			return
		}
		// Telegram redelivers on non-2xx, which would replay the command.
		logger.ErrorContext(ctx, "Webhook update failed", applog.FieldError, err)
	}
	w.WriteHeader(http.StatusOK)
}

// authorized reports whether r carries the registered webhook secret.
func (s *Server) authorized(r *http.Request) bool {
	if len(s.secret) == 0 {
		return false
	}
	got := []byte(r.Header.Get(WebhookSecretHeader))
	return subtle.ConstantTimeCompare(got, s.secret) == 1
}
