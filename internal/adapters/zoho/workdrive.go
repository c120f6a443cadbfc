package zoho

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/google/uuid"

	"github.com/okian/leadscore/internal/domain/model"
)

// DownloadTemplate fetches the template blob at url.
func (c *Client) DownloadTemplate(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &UpstreamError{Op: OpDownloadTemplate, Err: err}
	}
	body, err := c.send(ctx, OpDownloadTemplate, req, http.StatusOK)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, &UpstreamError{Op: OpDownloadTemplate, StatusCode: http.StatusOK, Body: "empty template"}
	}
	return body, nil
}

// uploadResponse is the part of the WorkDrive upload reply we use.
type uploadResponse struct {
	Data []struct {
		Attributes struct {
			ResourceID string `json:"resource_id"`
			Permalink  string `json:"Permalink"`
			FileName   string `json:"FileName"`
		} `json:"attributes"`
	} `json:"data"`
}

// Upload stores the artifact in the configured folder. The stored name gets
// a short random suffix so concurrent reports never collide.
func (c *Client) Upload(ctx context.Context, art model.Artifact) (model.UploadResult, error) {
	name := uniqueName(art.Filename)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fields := [][2]string{
		{"filename", name},
		{"parent_id", c.endpoints.ParentFolderID},
		{"override-name-exist", "false"},
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return model.UploadResult{}, &UpstreamError{Op: OpUpload, Err: err}
		}
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="content"; filename=%q`, name))
	h.Set("Content-Type", model.ArtifactContentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return model.UploadResult{}, &UpstreamError{Op: OpUpload, Err: err}
	}
	if _, err := part.Write(art.Data); err != nil {
		return model.UploadResult{}, &UpstreamError{Op: OpUpload, Err: err}
	}
	if err := mw.Close(); err != nil {
		return model.UploadResult{}, &UpstreamError{Op: OpUpload, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoints.UploadURL, &buf)
	if err != nil {
		return model.UploadResult{}, &UpstreamError{Op: OpUpload, Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/vnd.api+json")

	body, err := c.send(ctx, OpUpload, req, http.StatusOK, http.StatusCreated)
	if err != nil {
		return model.UploadResult{}, err
	}

	var resp uploadResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return model.UploadResult{}, &UpstreamError{Op: OpUpload, StatusCode: http.StatusOK, Body: excerpt(body), Err: err}
	}
	if len(resp.Data) == 0 || resp.Data[0].Attributes.ResourceID == "" {
		return model.UploadResult{}, &UpstreamError{Op: OpUpload, StatusCode: http.StatusOK, Body: "response without resource_id"}
	}
	attrs := resp.Data[0].Attributes
	filename := attrs.FileName
	if filename == "" {
		filename = name
	}
	return model.UploadResult{
		Success:     true,
		FileID:      attrs.ResourceID,
		DownloadURL: attrs.Permalink,
		Filename:    filename,
		Message:     "File uploaded successfully",
	}, nil
}

// uniqueName inserts an 8 character suffix before the extension.
func uniqueName(name string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	if name == "" {
		return "lead_score_report_" + suffix + ".pptx"
	}
	if i := strings.LastIndex(name, "."); i > 0 {
		return name[:i] + "_" + suffix + name[i:]
	}
	return name + "_" + suffix
}
