package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/okian/leadscore/internal/adapters/zoho"
	service "github.com/okian/leadscore/internal/app"
	"github.com/okian/leadscore/internal/domain/presentation"
	"github.com/okian/leadscore/internal/domain/scoring"
	"github.com/okian/leadscore/pkg/logger"
)

const (
	messageInternal = "Internal server error occurred while processing lead"
	messageRender   = "Report could not be generated"
	messageUpstream = "Document or CRM service call failed"
)

// LeadsHandler handles lead processing requests.
type LeadsHandler struct {
	deps           Dependencies
	logger         logger.Logger
	maxBodyBytes   int64
	processTimeout time.Duration
}

// NewLeadsHandler creates a new leads handler.
func NewLeadsHandler(deps Dependencies, log logger.Logger, maxBodyBytes int64, processTimeout time.Duration) *LeadsHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &LeadsHandler{deps: deps, logger: log, maxBodyBytes: maxBodyBytes, processTimeout: processTimeout}
}

// HandleProcessLead handles POST /process-lead requests.
func (h *LeadsHandler) HandleProcessLead(w http.ResponseWriter, r *http.Request) {
	const op = "api.process_lead"
	raw, err := h.decode(w, r)
	if err != nil {
		h.logger.Info(r.Context(), "rejected request", logger.String("op", op), logger.Error(err))
		writeJSON(w, http.StatusBadRequest, processResponse{
			Success: false,
			Code:    "bad_request",
			Message: requestMessage(err),
		})
		return
	}
	var obj map[string]any
	if err := decodeJSON(raw, &obj); err != nil || len(obj) == 0 {
		if err == nil {
			err = ErrEmptyBody
		}
		writeJSON(w, http.StatusBadRequest, processResponse{
			Success: false,
			Code:    "bad_request",
			Message: requestMessage(WrapKind(op, ErrBadRequest, err)),
		})
		return
	}

	ctx, cancel := detached(r.Context(), h.processTimeout)
	defer cancel()
	out, err := h.deps.Process(ctx, obj)

	resp := processResponse{
		Success:          err == nil,
		Message:          out.Message,
		LeadID:           out.LeadID,
		UploadResult:     out.Upload,
		AttachmentResult: out.Attachment,
		Warnings:         out.Warnings,
	}
	status := http.StatusOK
	if err != nil {
		status, resp.Code, resp.Message = classify(err)
		if status == http.StatusMultiStatus {
			resp.Message = out.Message
		}
		var verr *scoring.ValidationError
		if errors.As(err, &verr) {
			resp.Fields = verr.Fields
		}
		h.logger.Warn(ctx, "lead not fully processed",
			logger.String("lead_id", out.LeadID),
			logger.String("state", out.State.String()),
			logger.Int("status", status),
			logger.Error(err))
	}
	writeJSON(w, status, resp)
	reached := out.Respond()
	h.logger.Debug(ctx, "lead responded",
		logger.String("lead_id", out.LeadID),
		logger.String("reached", reached.String()),
		logger.String("state", out.State.String()),
		logger.Int("status", status))
}

// HandleAttach handles POST /leads/{lead_id}/attachments requests.
func (h *LeadsHandler) HandleAttach(w http.ResponseWriter, r *http.Request) {
	const op = "api.attach"
	leadID := r.PathValue("lead_id")
	raw, err := h.decode(w, r)
	var req attachRequest
	if err == nil {
		err = decodeJSON(raw, &req)
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, attachResponse{
			Success: false,
			Code:    "bad_request",
			LeadID:  leadID,
			Message: requestMessage(WrapKind(op, ErrBadRequest, err)),
		})
		return
	}

	ctx, cancel := detached(r.Context(), h.processTimeout)
	defer cancel()
	att, err := h.deps.Attach(ctx, leadID, strings.TrimSpace(req.FileID), strings.TrimSpace(req.DownloadURL))
	if err != nil {
		status, code, msg := classify(err)
		resp := attachResponse{Success: false, Code: code, Message: msg, LeadID: leadID}
		if att.Message != "" || att.AttachmentID != "" {
			resp.AttachmentResult = &att
		}
		var verr *scoring.ValidationError
		if errors.As(err, &verr) {
			resp.Fields = verr.Fields
		}
		h.logger.Warn(ctx, "attach retry failed", logger.String("lead_id", leadID), logger.Error(err))
		writeJSON(w, status, resp)
		return
	}
	writeJSON(w, http.StatusOK, attachResponse{
		Success:          true,
		Message:          att.Message,
		LeadID:           leadID,
		AttachmentResult: &att,
	})
}

// decode checks the content type and reads a bounded, non-empty body.
func (h *LeadsHandler) decode(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mt != "application/json" {
		return nil, ErrContentType
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var mberr *http.MaxBytesError
		if errors.As(err, &mberr) {
			return nil, ErrBodyTooBig
		}
		return nil, WrapKind("api.decode", ErrBadRequest, err)
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, ErrEmptyBody
	}
	return body, nil
}

// decodeJSON keeps numbers as json.Number so scoring sees them verbatim.
func decodeJSON(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("trailing data after JSON value")
	}
	return nil
}

func requestMessage(err error) string {
	switch {
	case errors.Is(err, ErrContentType):
		return "Content-Type must be application/json"
	case errors.Is(err, ErrEmptyBody):
		return "No JSON payload provided"
	case errors.Is(err, ErrBodyTooBig):
		return "Request body too large"
	default:
		return "Request body must be a JSON object"
	}
}

// classify maps a pipeline error onto status, code and client message.
func classify(err error) (int, string, string) {
	var (
		uerr *zoho.UpstreamError
		verr *scoring.ValidationError
	)
	switch {
	case errors.Is(err, service.ErrPartialSuccess):
		return http.StatusMultiStatus, "partial_success", service.MessageAttachFailed
	case errors.As(err, &verr):
		return http.StatusBadRequest, "validation_failed", verr.Error()
	case errors.As(err, &uerr):
		return http.StatusBadGateway, "upstream_error", messageUpstream + ": " + uerr.Op
	case errors.Is(err, presentation.ErrTemplate), errors.Is(err, service.ErrRender):
		return http.StatusInternalServerError, "render_failed", messageRender
	default:
		return http.StatusInternalServerError, "internal_error", messageInternal
	}
}
