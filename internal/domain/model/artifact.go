package model

// Chart is one rendered chart image.
type Chart struct {
	Name   string // slot name, e.g. "domain_scores"
	PNG    []byte
	Width  int // pixels
	Height int
}

// Artifact is a filled presentation ready for upload.
type Artifact struct {
	Filename string
	Data     []byte
}

// ContentType of every Artifact.
const ArtifactContentType = "application/vnd.openxmlformats-officedocument.presentationml.presentation"

// UploadResult describes a stored artifact.
type UploadResult struct {
	Success     bool   `json:"success"`
	FileID      string `json:"file_id,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
	Filename    string `json:"filename,omitempty"`
	Message     string `json:"message,omitempty"`
}

// AttachmentResult describes a CRM attachment.
type AttachmentResult struct {
	Success      bool   `json:"success"`
	AttachmentID string `json:"attachment_id,omitempty"`
	Message      string `json:"message,omitempty"`
}
