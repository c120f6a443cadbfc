// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	service "github.com/okian/leadscore/internal/app"
	"github.com/okian/leadscore/internal/domain/model"
	"github.com/okian/leadscore/internal/domain/scoring"
	"github.com/okian/leadscore/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Process runs one lead payload through the pipeline.
	Process(ctx context.Context, raw map[string]any) (service.Outcome, error)

	// Attach repeats the attach step for an uploaded report.
	Attach(ctx context.Context, leadID, fileID, downloadURL string) (model.AttachmentResult, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	leadsHandler  *LeadsHandler
	logger        logger.Logger
}

// Option applies a configuration option to the Server.
type Option func(*serverConfig)

type serverConfig struct {
	logger         logger.Logger
	version        string
	maxBodyBytes   int64
	processTimeout time.Duration
	now            func() time.Time
}

// WithLogger sets a custom logger for the handlers.
func WithLogger(l logger.Logger) Option {
	return func(c *serverConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithVersion sets the version reported by the health endpoint.
func WithVersion(v string) Option {
	return func(c *serverConfig) { c.version = v }
}

// WithMaxBodyBytes caps accepted request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(c *serverConfig) {
		if n > 0 {
			c.maxBodyBytes = n
		}
	}
}

// WithProcessTimeout bounds one pipeline run. The run is not cancelled when
// the client disconnects, so a started upload is not abandoned halfway.
func WithProcessTimeout(d time.Duration) Option {
	return func(c *serverConfig) {
		if d > 0 {
			c.processTimeout = d
		}
	}
}

// WithClock sets the clock used for health timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *serverConfig) {
		if now != nil {
			c.now = now
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	cfg := serverConfig{
		logger:         logger.Nop(),
		maxBodyBytes:   1 << 20,
		processTimeout: 2 * time.Minute,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		healthHandler: NewHealthHandler(cfg.version, cfg.now),
		leadsHandler:  NewLeadsHandler(deps, cfg.logger, cfg.maxBodyBytes, cfg.processTimeout),
		logger:        cfg.logger,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", MetricsMiddleware(s.healthHandler.HandleHealth, "health"))
	mux.HandleFunc("POST /process-lead", MetricsMiddleware(s.leadsHandler.HandleProcessLead, "process_lead"))
	mux.HandleFunc("POST /leads/{lead_id}/attachments", MetricsMiddleware(s.leadsHandler.HandleAttach, "attach"))
	mux.Handle("GET /metrics", MetricsHandler())
}

// Handler wraps mux with request ids and panic recovery.
func (s *Server) Handler(mux *http.ServeMux) http.Handler {
	return RequestIDMiddleware(RecoverMiddleware(s.logger, mux))
}

// processResponse is the body of every /process-lead reply.
type processResponse struct {
	Success          bool                    `json:"success"`
	Message          string                  `json:"message"`
	Code             string                  `json:"code,omitempty"`
	LeadID           string                  `json:"lead_id,omitempty"`
	UploadResult     *model.UploadResult     `json:"upload_result"`
	AttachmentResult *model.AttachmentResult `json:"attachment_result"`
	Warnings         []string                `json:"warnings,omitempty"`
	Fields           []scoring.FieldError    `json:"fields,omitempty"`
}

// attachRequest is the body of POST /leads/{lead_id}/attachments.
type attachRequest struct {
	FileID      string `json:"file_id"`
	DownloadURL string `json:"download_url"`
}

type attachResponse struct {
	Success          bool                    `json:"success"`
	Message          string                  `json:"message"`
	Code             string                  `json:"code,omitempty"`
	LeadID           string                  `json:"lead_id,omitempty"`
	AttachmentResult *model.AttachmentResult `json:"attachment_result,omitempty"`
	Fields           []scoring.FieldError    `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
