package httpapi

import (
	"context"
	"crypto/hmac"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/0dayMonkey/linktree-backend/internal/auditlog"
	"github.com/0dayMonkey/linktree-backend/internal/config"
	"github.com/0dayMonkey/linktree-backend/internal/linktree"
	"github.com/0dayMonkey/linktree-backend/internal/spotify"
)

type Syncer interface {
	Sync(ctx context.Context, payload linktree.UpdatePayload) (linktree.SyncSummary, error)
}

type Reader interface {
	Read(ctx context.Context) (linktree.PublicPayload, error)
}

type TrackSearcher interface {
	Search(ctx context.Context, query string) ([]spotify.Track, error)
}

type AuditSink interface {
	RecordSync(ctx context.Context, entry auditlog.Entry) error
}

// RuntimeSource supplies hot-reloadable settings; when present it takes
// precedence over the static ServerConfig values.
type RuntimeSource interface {
	Current() config.Runtime
}

type Logger interface {
	Printf(format string, args ...any)
}

type ServerConfig struct {
	UpdateSecret    string
	AllowedOrigins  []string
	MaxBodyBytes    int64
	SyncTimeout     time.Duration
	RateLimitMax    int
	RateLimitWindow time.Duration
}

type ServerOptions struct {
	Syncer  Syncer
	Reader  Reader
	Tracks  TrackSearcher
	Audit   AuditSink
	Runtime RuntimeSource
	Logger  Logger
	Config  ServerConfig
}

type Server struct {
	syncer        Syncer
	reader        Reader
	tracks        TrackSearcher
	audit         AuditSink
	runtime       RuntimeSource
	logger        Logger
	cfg           ServerConfig
	events        *EventHub
	payloadSchema *jsonschema.Schema
	rateLimiter   *rateLimiter
}

type rateLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	max     int
	entries map[string]rateEntry
}

type rateEntry struct {
	count   int
	resetAt time.Time
}

func NewServer(opts ServerOptions) (*Server, error) {
	cfg := opts.Config
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 4 << 20
	}
	if cfg.SyncTimeout <= 0 {
		cfg.SyncTimeout = 30 * time.Second
	}
	if cfg.RateLimitMax < 0 {
		cfg.RateLimitMax = 0
	}
	if cfg.RateLimitWindow <= 0 {
		cfg.RateLimitWindow = time.Minute
	}
	schema, err := compilePayloadSchema()
	if err != nil {
		return nil, err
	}
	var limiter *rateLimiter
	if cfg.RateLimitMax > 0 {
		limiter = &rateLimiter{
			window:  cfg.RateLimitWindow,
			max:     cfg.RateLimitMax,
			entries: map[string]rateEntry{},
		}
	}
	logger := opts.Logger
	return &Server{
		syncer:        opts.Syncer,
		reader:        opts.Reader,
		tracks:        opts.Tracks,
		audit:         opts.Audit,
		runtime:       opts.Runtime,
		logger:        logger,
		cfg:           cfg,
		events:        NewEventHub(logger),
		payloadSchema: schema,
		rateLimiter:   limiter,
	}, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/health":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed", getCorrelationID(r))
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	case "/v1/data":
		switch r.Method {
		case http.MethodGet:
			s.handleGetData(w, r)
		case http.MethodPost:
			s.handleUpdateData(w, r)
		case http.MethodOptions:
			s.handlePreflight(w, r, "POST, GET, OPTIONS")
		default:
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed", getCorrelationID(r))
		}
	case "/v1/tracks/search":
		switch r.Method {
		case http.MethodPost:
			s.handleTrackSearch(w, r)
		case http.MethodOptions:
			s.handlePreflight(w, r, "POST, OPTIONS")
		default:
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed", getCorrelationID(r))
		}
	case "/v1/events":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed", getCorrelationID(r))
			return
		}
		s.events.Subscribe(w, r)
	default:
		writeError(w, http.StatusNotFound, "not_found", "route not found", getCorrelationID(r))
	}
}

func (s *Server) handlePreflight(w http.ResponseWriter, r *http.Request, methods string) {
	s.setCORSHeaders(w, r)
	w.Header().Set("Access-Control-Allow-Methods", methods)
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Correlation-Id")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetData(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	correlationID := getCorrelationID(r)
	payload, err := s.reader.Read(r.Context())
	if err != nil {
		s.logf("read failed: %v", err)
		writeError(w, http.StatusBadGateway, "store_error", err.Error(), correlationID)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

type updateRequest struct {
	Secret string                 `json:"secret"`
	Data   linktree.UpdatePayload `json:"data"`
}

func (s *Server) handleUpdateData(w http.ResponseWriter, r *http.Request) {
	s.setCORSHeaders(w, r)
	correlationID := getCorrelationID(r)

	if s.rateLimiter != nil {
		if !s.rateLimiter.allow(clientKey(r), time.Now().UTC()) {
			retryAfter := int(math.Ceil(s.rateLimiter.window.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			writeError(w, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded", correlationID)
			return
		}
	}

	body, ok := s.readRequestBody(w, r, correlationID)
	if !ok {
		return
	}
	if err := validatePayload(s.payloadSchema, body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error(), correlationID)
		return
	}
	var req updateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json body", correlationID)
		return
	}
	if !hmac.Equal([]byte(req.Secret), []byte(s.updateSecret())) {
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid update secret", correlationID)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.SyncTimeout)
	defer cancel()

	startedAt := time.Now().UTC()
	summary, err := s.syncer.Sync(ctx, req.Data)
	s.recordAudit(correlationID, startedAt, summary, err)
	if err != nil {
		switch {
		case errors.Is(err, linktree.ErrMissingProfile), errors.Is(err, linktree.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "bad_request", err.Error(), correlationID)
		default:
			s.logf("sync failed: %v", err)
			writeError(w, http.StatusBadGateway, "store_error", err.Error(), correlationID)
		}
		return
	}

	s.events.Broadcast(UpdateEvent{
		Type:          "updated",
		CorrelationID: correlationID,
		At:            time.Now().UTC(),
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"message":       "update successful",
		"summary":       summary,
		"correlationId": correlationID,
	})
}

type trackSearchRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleTrackSearch(w http.ResponseWriter, r *http.Request) {
	s.setCORSHeaders(w, r)
	correlationID := getCorrelationID(r)
	if s.tracks == nil {
		writeError(w, http.StatusNotFound, "not_found", "track search is not configured", correlationID)
		return
	}
	body, ok := s.readRequestBody(w, r, correlationID)
	if !ok {
		return
	}
	var req trackSearchRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json body", correlationID)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "search query is empty", correlationID)
		return
	}
	tracks, err := s.tracks.Search(r.Context(), req.Query)
	if err != nil {
		s.logf("track search failed: %v", err)
		writeError(w, http.StatusBadGateway, "search_error", err.Error(), correlationID)
		return
	}
	writeJSON(w, http.StatusOK, tracks)
}

func (s *Server) recordAudit(correlationID string, startedAt time.Time, summary linktree.SyncSummary, syncErr error) {
	if s.audit == nil {
		return
	}
	entry := auditlog.Entry{
		CorrelationID: correlationID,
		StartedAt:     startedAt,
		Duration:      time.Since(startedAt),
		Created:       summary.Created,
		Updated:       summary.Updated,
		Archived:      summary.Archived,
		Status:        "ok",
	}
	if syncErr != nil {
		entry.Status = "error"
		entry.Detail = syncErr.Error()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.audit.RecordSync(ctx, entry); err != nil {
		s.logf("audit record failed: %v", err)
	}
}

func (s *Server) updateSecret() string {
	if s.runtime != nil {
		return s.runtime.Current().UpdateSecret
	}
	return s.cfg.UpdateSecret
}

func (s *Server) allowedOrigins() []string {
	if s.runtime != nil {
		if origins := s.runtime.Current().AllowedOrigins; len(origins) > 0 {
			return origins
		}
	}
	return s.cfg.AllowedOrigins
}

func (s *Server) setCORSHeaders(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}
	for _, allowed := range s.allowedOrigins() {
		if allowed == "*" || allowed == origin {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			return
		}
	}
}

func (s *Server) readRequestBody(w http.ResponseWriter, r *http.Request, correlationID string) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body exceeds configured limit", correlationID)
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "bad_request", "failed to read request body", correlationID)
		return nil, false
	}
	return body, true
}

func (s *Server) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}

func getCorrelationID(r *http.Request) string {
	if id := r.Header.Get("X-Correlation-Id"); id != "" {
		return id
	}
	return uuid.NewString()
}

func clientKey(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if first, _, ok := strings.Cut(forwarded, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(forwarded)
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		host = host[:idx]
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message, correlationID string) {
	writeJSON(w, status, map[string]any{
		"code":          code,
		"message":       message,
		"correlationId": correlationID,
	})
}

func (rl *rateLimiter) allow(key string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.entries[key]
	if !ok || now.After(entry.resetAt) {
		rl.entries[key] = rateEntry{count: 1, resetAt: now.Add(rl.window)}
		return true
	}
	if entry.count >= rl.max {
		return false
	}
	entry.count++
	rl.entries[key] = entry
	return true
}
