package testleads

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/leadscore/pkg/logger"
)

// Verify checks one response against the processing contract: a 200 must
// echo the lead id and carry both a file id and an attachment id, a 207 must
// carry the file id needed to retry the attach.
func Verify(r Result, allowPartial bool) error {
	if r.Err != nil {
		return r.Err
	}
	resp := r.Response
	switch r.Status {
	case http.StatusOK:
		switch {
		case !resp.Success:
			return errors.New("200 without success")
		case resp.LeadID != r.LeadID:
			return fmt.Errorf("lead_id %q does not match %q", resp.LeadID, r.LeadID)
		case resp.UploadResult == nil || resp.UploadResult.FileID == "":
			return errors.New("missing upload_result.file_id")
		case resp.AttachmentResult == nil || resp.AttachmentResult.AttachmentID == "":
			return errors.New("missing attachment_result.attachment_id")
		}
		return nil
	case http.StatusMultiStatus:
		if resp.Success {
			return errors.New("207 reported as success")
		}
		if resp.UploadResult == nil || resp.UploadResult.FileID == "" {
			return errors.New("partial success without file_id")
		}
		if !allowPartial {
			return fmt.Errorf("attach failed: %s", resp.Message)
		}
		return nil
	default:
		return fmt.Errorf("status %d: %s", r.Status, resp.Message)
	}
}

// verifyResults tallies verdicts into stats.
func verifyResults(ctx context.Context, config *Config, results []Result, stats *Stats, log logger.Logger) {
	for _, r := range results {
		stats.Submitted++
		stats.Warnings += len(r.Response.Warnings)
		if err := Verify(r, config.AllowPartial); err != nil {
			stats.Failed++
			log.Warn(ctx, "lead failed verification",
				logger.String("lead_id", r.LeadID),
				logger.Int("status", r.Status),
				logger.Error(err))
			continue
		}
		if r.Status == http.StatusMultiStatus {
			stats.Partial++
			continue
		}
		stats.Succeeded++
	}
}
