// Package service runs a lead through validation, rendering, upload and
// attachment, one request at a time.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okian/leadscore/internal/domain/chart"
	"github.com/okian/leadscore/internal/domain/model"
	"github.com/okian/leadscore/internal/domain/presentation"
	"github.com/okian/leadscore/internal/domain/scoring"
	"github.com/okian/leadscore/pkg/logger"
	"github.com/okian/leadscore/pkg/metrics"
)

// ReportDateLayout formats the report date shown on the title slide.
const ReportDateLayout = "02-01-2006"

// Response messages.
const (
	MessageProcessed     = "PPT processed and uploaded successfully"
	MessageAttached      = MessageProcessed + " and attached to Lead record"
	MessageAttachFailed  = MessageProcessed + " but failed to attach to Lead record"
	MessageNoDownloadURL = MessageProcessed + " but no download link was returned for attachment"
)

// TemplateSource fetches the presentation template.
type TemplateSource interface {
	DownloadTemplate(ctx context.Context, url string) ([]byte, error)
}

// Uploader stores a finished report.
type Uploader interface {
	Upload(ctx context.Context, art model.Artifact) (model.UploadResult, error)
}

// Attacher links a stored report to a CRM lead. Repeated calls for the same
// lead and file must not create duplicates.
type Attacher interface {
	Attach(ctx context.Context, leadID, fileID, downloadURL string) (model.AttachmentResult, error)
}

// Renderer draws the report charts.
type Renderer interface {
	Render(res *model.AnalyticsResult) ([]model.Chart, error)
}

// Filler writes analytics and charts into a template.
type Filler interface {
	Fill(template []byte, res *model.AnalyticsResult, charts []model.Chart) (model.Artifact, error)
}

// Outcome is what a run produced. State is the last state reached; on
// failure it tells how far the request got.
type Outcome struct {
	State      State
	LeadID     string
	Message    string
	Upload     *model.UploadResult
	Attachment *model.AttachmentResult
	Warnings   []string
}

// Respond moves the outcome into StateResponded once the caller has answered
// the request, and returns the state the run had reached before.
func (o *Outcome) Respond() State {
	reached := o.State
	o.State = StateResponded
	return reached
}

// Pipeline processes leads. It holds no per-request state and is safe for
// concurrent use.
type Pipeline struct {
	templateURL string
	templates   TemplateSource
	uploader    Uploader
	attacher    Attacher
	renderer    Renderer
	filler      Filler
	logger      logger.Logger
	now         func() time.Time
}

// NewPipeline wires a pipeline. Chart rendering and template filling use the
// built-in renderer and default layout unless replaced by options.
func NewPipeline(templateURL string, templates TemplateSource, uploader Uploader, attacher Attacher, opts ...Option) *Pipeline {
	p := &Pipeline{
		templateURL: templateURL,
		templates:   templates,
		uploader:    uploader,
		attacher:    attacher,
		logger:      logger.Nop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.renderer == nil {
		p.renderer = chart.NewRenderer()
	}
	if p.filler == nil {
		p.filler = presentation.NewFiller(nil, presentation.WithClock(p.now))
	}
	return p
}

// Process runs one lead through the state machine. The returned error is
// the most specific failure: *scoring.ValidationError, *zoho.UpstreamError,
// *presentation.TemplateError or *PartialSuccessError. The Outcome is
// always filled with whatever was produced before the failure.
func (p *Pipeline) Process(ctx context.Context, raw map[string]any) (out Outcome, err error) {
	out.State = StateReceivedRequest
	if id, ok := raw["Lead_ID"].(string); ok {
		out.LeadID = strings.TrimSpace(id)
	}
	log := p.logger.With(logger.String("lead_id", out.LeadID))

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrInternal, r)
			log.Error(ctx, "pipeline panicked", logger.Any("panic", r), logger.String("state", out.State.String()))
		}
		result := "success"
		switch {
		case errors.Is(err, ErrPartialSuccess):
			result = "partial"
		case err != nil:
			result = "failure"
		}
		metrics.RecordPipelineOutcome(out.State.String(), result)
	}()

	// Validated
	var res *model.AnalyticsResult
	err = p.stage(ctx, log, StateValidated, func() error {
		var nerr error
		res, nerr = scoring.Normalize(raw)
		return nerr
	})
	if err != nil {
		return out, wrap("validate", err)
	}
	out.State = StateValidated
	out.LeadID = res.Lead.LeadID
	out.Warnings = res.Warnings
	if n := len(res.Warnings); n > 0 {
		metrics.RecordValidationWarnings(n)
		for _, w := range res.Warnings {
			log.Warn(ctx, "data quality warning", logger.String("warning", w))
		}
	}
	res.ReportDate = p.now().Format(ReportDateLayout)

	// TemplateFetched
	var template []byte
	err = p.stage(ctx, log, StateTemplateFetched, func() error {
		var derr error
		template, derr = p.templates.DownloadTemplate(ctx, p.templateURL)
		return derr
	})
	if err != nil {
		return out, wrap("download template", err)
	}
	out.State = StateTemplateFetched

	// Rendered
	var art model.Artifact
	err = p.stage(ctx, log, StateRendered, func() error {
		charts, rerr := p.renderer.Render(res)
		if rerr != nil {
			return fmt.Errorf("%w: %w", ErrRender, rerr)
		}
		art, rerr = p.filler.Fill(template, res, charts)
		return rerr
	})
	if err != nil {
		return out, wrap("render", err)
	}
	out.State = StateRendered

	// Uploaded
	var up model.UploadResult
	err = p.stage(ctx, log, StateUploaded, func() error {
		var uerr error
		up, uerr = p.uploader.Upload(ctx, art)
		return uerr
	})
	if err != nil {
		return out, wrap("upload", err)
	}
	out.State = StateUploaded
	out.Upload = &up
	out.Message = MessageProcessed

	// Attached
	if up.DownloadURL == "" {
		att := model.AttachmentResult{Success: false, Message: "upload returned no download link"}
		out.Attachment = &att
		out.Message = MessageNoDownloadURL
		return out, &PartialSuccessError{Upload: up, Attachment: att}
	}
	var att model.AttachmentResult
	err = p.stage(ctx, log, StateAttached, func() error {
		var aerr error
		att, aerr = p.attacher.Attach(ctx, res.Lead.LeadID, up.FileID, up.DownloadURL)
		return aerr
	})
	out.Attachment = &att
	if err != nil {
		out.Message = MessageAttachFailed
		return out, &PartialSuccessError{Upload: up, Attachment: att, Err: err}
	}
	out.State = StateAttached
	out.Message = MessageAttached
	log.Info(ctx, "lead processed",
		logger.String("file_id", up.FileID),
		logger.String("attachment_id", att.AttachmentID))
	return out, nil
}

// Attach repeats only the attach step for an already uploaded report.
func (p *Pipeline) Attach(ctx context.Context, leadID, fileID, downloadURL string) (model.AttachmentResult, error) {
	verr := &scoring.ValidationError{}
	for _, f := range []struct{ name, value string }{
		{"lead_id", leadID},
		{"file_id", fileID},
		{"download_url", downloadURL},
	} {
		if strings.TrimSpace(f.value) == "" {
			verr.Fields = append(verr.Fields, scoring.FieldError{Field: f.name, Reason: "is required"})
		}
	}
	if len(verr.Fields) > 0 {
		return model.AttachmentResult{}, verr
	}

	log := p.logger.With(logger.String("lead_id", leadID), logger.String("file_id", fileID))
	var att model.AttachmentResult
	err := p.stage(ctx, log, StateAttached, func() error {
		var aerr error
		att, aerr = p.attacher.Attach(ctx, leadID, fileID, downloadURL)
		return aerr
	})
	if err != nil {
		return att, wrap("attach", err)
	}
	log.Info(ctx, "attachment retried", logger.String("attachment_id", att.AttachmentID))
	return att, nil
}

// stage runs fn as the transition into next, timing and logging it.
func (p *Pipeline) stage(ctx context.Context, log logger.Logger, next State, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	metrics.RecordStageDuration(next.String(), float64(elapsed.Milliseconds()))
	if err != nil {
		log.Error(ctx, "stage failed",
			logger.String("stage", next.String()),
			logger.Duration("elapsed", elapsed),
			logger.Error(err))
		return err
	}
	log.Debug(ctx, "stage done",
		logger.String("stage", next.String()),
		logger.Duration("elapsed", elapsed))
	return nil
}
