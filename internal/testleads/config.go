// Package testleads is a smoke client: it posts generated leads to a running
// service and checks every response.
package testleads

import "time"

// Config holds configuration for a smoke run.
type Config struct {
	BaseURL      string        // Base URL of the service
	NumLeads     int           // Number of leads to submit
	Workers      int           // Number of concurrent submitters
	Timeout      time.Duration // HTTP request timeout
	PayloadFile  string        // Optional JSON lead used as the base payload
	LeadPrefix   string        // Prefix for generated Lead_IDs; empty keeps the base id
	AllowPartial bool          // Count 207 responses as passed
	Verbose      bool          // Log every response
}

// Response mirrors the body of POST /process-lead.
type Response struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	Code         string `json:"code"`
	LeadID       string `json:"lead_id"`
	UploadResult *struct {
		FileID      string `json:"file_id"`
		DownloadURL string `json:"download_url"`
	} `json:"upload_result"`
	AttachmentResult *struct {
		Success      bool   `json:"success"`
		AttachmentID string `json:"attachment_id"`
	} `json:"attachment_result"`
	Warnings []string `json:"warnings"`
}

// Result is the verdict for one submitted lead.
type Result struct {
	LeadID   string
	Status   int
	Response Response
	Err      error
}

// Stats holds run statistics.
type Stats struct {
	LeadsGenerated int
	Submitted      int
	Succeeded      int
	Partial        int
	Failed         int
	Warnings       int
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
}
