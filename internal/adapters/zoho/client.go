// Package zoho talks to the Zoho WorkDrive and CRM APIs: it downloads the
// report template, uploads the finished report and attaches it to a lead.
//
// No call is retried here. A failed call surfaces as *UpstreamError and the
// caller decides what to repeat.
package zoho

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/okian/leadscore/internal/domain/dedupe"
	"github.com/okian/leadscore/pkg/logger"
	"github.com/okian/leadscore/pkg/metrics"
)

// Operation names used in errors, logs and metrics.
const (
	OpRefreshToken     = "refresh_token"
	OpDownloadTemplate = "download_template"
	OpUpload           = "upload"
	OpAttach           = "attach"
	OpListAttachments  = "list_attachments"
)

// maxResponseBytes bounds any vendor response read into memory. Templates
// are the largest bodies.
const maxResponseBytes = 64 << 20

// Endpoints holds the vendor URLs and fixed request parameters.
type Endpoints struct {
	UploadURL       string // WorkDrive upload endpoint
	CRMBaseURL      string // e.g. https://www.zohoapis.eu/crm/v2.1
	ParentFolderID  string // WorkDrive folder receiving reports
	AttachmentTitle string
}

// Client is a WorkDrive and CRM client sharing one connection pool.
type Client struct {
	http      *http.Client
	tokens    TokenProvider
	endpoints Endpoints
	ledger    dedupe.Ledger
	attaching singleflight.Group
	maxBody   int64
	logger    logger.Logger
}

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for every call.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithLedger sets the attachment ledger used to de-duplicate attach calls.
func WithLedger(l dedupe.Ledger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.ledger = l
		}
	}
}

// WithMaxResponseBytes bounds how much of a vendor response is read.
func WithMaxResponseBytes(n int64) Option {
	return func(cl *Client) {
		if n > 0 {
			cl.maxBody = n
		}
	}
}

// WithLogger sets a custom logger for the client.
func WithLogger(l logger.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.logger = l
		}
	}
}

// NewClient creates a vendor client. tokens supplies the access token for
// every call.
func NewClient(tokens TokenProvider, endpoints Endpoints, opts ...Option) *Client {
	c := &Client{
		http:      &http.Client{Timeout: 30 * time.Second},
		tokens:    tokens,
		endpoints: endpoints,
		maxBody:   maxResponseBytes,
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.ledger == nil {
		c.ledger = dedupe.NewInMemoryLedger()
	}
	return c
}

// NewHTTPClient returns the pooled client shared by all vendor calls.
func NewHTTPClient(timeout time.Duration, limiter *HostLimiter) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = 16
	var rt http.RoundTripper = transport
	if limiter != nil {
		rt = limiter.Transport(transport)
	}
	return &http.Client{Timeout: timeout, Transport: rt}
}

// send authorizes req, executes it and returns the body of a response with
// one of the accepted status codes. Everything else becomes *UpstreamError.
func (c *Client) send(ctx context.Context, op string, req *http.Request, accept ...int) ([]byte, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Zoho-oauthtoken "+token)

	start := time.Now()
	resp, err := c.http.Do(req.WithContext(ctx))
	elapsed := time.Since(start)
	if err != nil {
		metrics.RecordUpstreamRequest(op, "error", float64(elapsed.Milliseconds()))
		metrics.RecordErrorByComponent("zoho", op)
		c.logger.Warn(ctx, "vendor call failed",
			logger.String("op", op),
			logger.Duration("elapsed", elapsed),
			logger.Error(err))
		return nil, &UpstreamError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	status := strconv.Itoa(resp.StatusCode)
	metrics.RecordUpstreamRequest(op, status, float64(elapsed.Milliseconds()))
	if err != nil {
		return nil, &UpstreamError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(body)) > c.maxBody {
		metrics.RecordErrorByComponent("zoho", op)
		c.logger.Warn(ctx, "vendor response over limit",
			logger.String("op", op),
			logger.Int("status", resp.StatusCode),
			logger.Int("limit", int(c.maxBody)))
		return nil, &UpstreamError{Op: op, StatusCode: resp.StatusCode, Body: "response body over limit",
			Err: fmt.Errorf("%w: more than %d bytes", ErrResponseTooLarge, c.maxBody)}
	}

	for _, code := range accept {
		if resp.StatusCode == code {
			c.logger.Debug(ctx, "vendor call done",
				logger.String("op", op),
				logger.Int("status", resp.StatusCode),
				logger.Int("bytes", len(body)),
				logger.Duration("elapsed", elapsed))
			return body, nil
		}
	}

	metrics.RecordErrorByComponent("zoho", op)
	c.logger.Warn(ctx, "vendor rejected call",
		logger.String("op", op),
		logger.Int("status", resp.StatusCode),
		logger.String("body", excerpt(body)))
	return nil, &UpstreamError{Op: op, StatusCode: resp.StatusCode, Body: excerpt(body)}
}
