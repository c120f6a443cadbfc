package zoho

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/okian/leadscore/internal/domain/model"
	"github.com/okian/leadscore/pkg/logger"
	"github.com/okian/leadscore/pkg/metrics"
)

// Messages reported in attachment results. Vendor detail stays in the logs.
const (
	messageAttached     = "File attached to Lead successfully"
	messageAttachFailed = "Failed to attach file to Lead"
)

type attachResponse struct {
	Data []struct {
		Code    string `json:"code"`
		Status  string `json:"status"`
		Message string `json:"message"`
		Details struct {
			ID string `json:"id"`
		} `json:"details"`
	} `json:"data"`
}

type listAttachmentsResponse struct {
	Data []struct {
		ID      string `json:"id"`
		LinkURL string `json:"$link_url"`
	} `json:"data"`
}

// Attach links the uploaded file to the lead as a URL attachment. Calling it
// again for the same lead and file returns the first attachment instead of
// creating another one: the ledger answers repeats within this process, and
// the lead's existing link attachments are checked before creating a new one.
// Concurrent calls for the same pair share one vendor call.
func (c *Client) Attach(ctx context.Context, leadID, fileID, downloadURL string) (model.AttachmentResult, error) {
	if id, ok := c.ledger.Lookup(ctx, leadID, fileID); ok {
		metrics.RecordAttachmentReused()
		return attached(id), nil
	}

	v, err, _ := c.attaching.Do(leadID+"\x00"+fileID, func() (any, error) {
		if id, ok := c.ledger.Lookup(ctx, leadID, fileID); ok {
			metrics.RecordAttachmentReused()
			return id, nil
		}
		if id := c.findExisting(ctx, leadID, downloadURL); id != "" {
			metrics.RecordAttachmentReused()
			c.ledger.Record(ctx, leadID, fileID, id)
			return id, nil
		}
		id, err := c.createAttachment(ctx, leadID, downloadURL)
		if err != nil {
			return "", err
		}
		c.ledger.Record(ctx, leadID, fileID, id)
		return id, nil
	})
	if err != nil {
		c.logger.Warn(ctx, "attach failed",
			logger.String("lead_id", leadID),
			logger.String("file_id", fileID),
			logger.Error(err))
		return model.AttachmentResult{Success: false, Message: messageAttachFailed}, err
	}
	return attached(v.(string)), nil
}

func attached(id string) model.AttachmentResult {
	return model.AttachmentResult{
		Success:      true,
		AttachmentID: id,
		Message:      messageAttached,
	}
}

func (c *Client) attachmentsURL(leadID string) string {
	return strings.TrimRight(c.endpoints.CRMBaseURL, "/") + "/Leads/" + url.PathEscape(leadID) + "/Attachments"
}

func (c *Client) createAttachment(ctx context.Context, leadID, downloadURL string) (string, error) {
	q := url.Values{}
	q.Set("attachmentUrl", downloadURL)
	q.Set("title", c.endpoints.AttachmentTitle)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.attachmentsURL(leadID)+"?"+q.Encode(), nil)
	if err != nil {
		return "", &UpstreamError{Op: OpAttach, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.send(ctx, OpAttach, req, http.StatusOK, http.StatusCreated)
	if err != nil {
		return "", err
	}

	var resp attachResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &UpstreamError{Op: OpAttach, StatusCode: http.StatusOK, Body: excerpt(body), Err: err}
	}
	if len(resp.Data) == 0 || resp.Data[0].Details.ID == "" {
		return "", &UpstreamError{Op: OpAttach, StatusCode: http.StatusOK, Body: excerpt(body)}
	}
	if s := resp.Data[0].Status; s != "" && !strings.EqualFold(s, "success") {
		return "", &UpstreamError{Op: OpAttach, StatusCode: http.StatusOK, Body: resp.Data[0].Code + ": " + resp.Data[0].Message}
	}
	return resp.Data[0].Details.ID, nil
}

// findExisting returns the id of a link attachment on the lead that already
// points at downloadURL. Lookup failures are logged and treated as "none".
func (c *Client) findExisting(ctx context.Context, leadID, downloadURL string) string {
	if downloadURL == "" {
		return ""
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.attachmentsURL(leadID)+"?fields=id,File_Name,$link_url", nil)
	if err != nil {
		return ""
	}
	body, err := c.send(ctx, OpListAttachments, req, http.StatusOK, http.StatusNoContent)
	if err != nil {
		c.logger.Debug(ctx, "listing attachments failed, creating a new one",
			logger.String("lead_id", leadID),
			logger.Error(err))
		return ""
	}
	if len(body) == 0 {
		return ""
	}
	var resp listAttachmentsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return ""
	}
	for _, a := range resp.Data {
		if a.LinkURL == downloadURL && a.ID != "" {
			return a.ID
		}
	}
	return ""
}
