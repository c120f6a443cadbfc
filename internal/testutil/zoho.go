package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// Fake vendor operations, used with SetStatus and Calls.
const (
	OpToken    = "token"
	OpDownload = "download"
	OpUpload   = "upload"
	OpList     = "list"
	OpAttach   = "attach"
)

// Fake vendor paths.
const (
	TokenPath    = "/oauth/v2/token"
	TemplatePath = "/download/template"
	UploadPath   = "/workdrive/api/v1/upload"
	CRMPath      = "/crm/v2.1"
)

// FakeZoho is an in-process stand-in for the token, WorkDrive and CRM
// endpoints. Every operation answers with its configured status; anything
// other than 2xx gets an error body.
type FakeZoho struct {
	*httptest.Server

	mu       sync.Mutex
	status   map[string]int
	calls    map[string]int
	template []byte
	uploads  [][]byte
	links    map[string]string // lead_id -> attached link
}

// NewFakeZoho starts a fake serving Template().
func NewFakeZoho() *FakeZoho {
	f := &FakeZoho{
		status:   map[string]int{},
		calls:    map[string]int{},
		template: Template(),
		links:    map[string]string{},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+TokenPath, f.handleToken)
	mux.HandleFunc("GET "+TemplatePath, f.handleDownload)
	mux.HandleFunc("POST "+UploadPath, f.handleUpload)
	mux.HandleFunc("GET "+CRMPath+"/Leads/{id}/Attachments", f.handleList)
	mux.HandleFunc("POST "+CRMPath+"/Leads/{id}/Attachments", f.handleAttach)
	f.Server = httptest.NewServer(mux)
	return f
}

// TemplateURL returns the template download URL.
func (f *FakeZoho) TemplateURL() string { return f.URL + TemplatePath }

// UploadURL returns the upload endpoint.
func (f *FakeZoho) UploadURL() string { return f.URL + UploadPath }

// CRMBaseURL returns the CRM API root.
func (f *FakeZoho) CRMBaseURL() string { return f.URL + CRMPath }

// TokenURL returns the OAuth token endpoint.
func (f *FakeZoho) TokenURL() string { return f.URL + TokenPath }

// SetStatus makes op answer with code.
func (f *FakeZoho) SetStatus(op string, code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status[op] = code
}

// Calls returns how often op was called.
func (f *FakeZoho) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// Uploads returns the uploaded report blobs in order.
func (f *FakeZoho) Uploads() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.uploads...)
}

func (f *FakeZoho) begin(op string, w http.ResponseWriter) bool {
	f.mu.Lock()
	f.calls[op]++
	code, ok := f.status[op]
	f.mu.Unlock()
	if !ok || code < 300 {
		return true
	}
	w.WriteHeader(code)
	_, _ = fmt.Fprintf(w, `{"code":"FAKE_ERROR","message":"%s failed"}`, op)
	return false
}

func (f *FakeZoho) handleToken(w http.ResponseWriter, r *http.Request) {
	if !f.begin(OpToken, w) {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, `{"access_token":"fake-access","token_type":"Bearer","expires_in":3600}`)
}

func (f *FakeZoho) authorized(w http.ResponseWriter, r *http.Request) bool {
	if !strings.HasPrefix(r.Header.Get("Authorization"), "Zoho-oauthtoken ") {
		w.WriteHeader(http.StatusUnauthorized)
		return false
	}
	return true
}

func (f *FakeZoho) handleDownload(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(w, r) || !f.begin(OpDownload, w) {
		return
	}
	_, _ = w.Write(f.template)
}

func (f *FakeZoho) handleUpload(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(w, r) || !f.begin(OpUpload, w) {
		return
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	file, _, err := r.FormFile("content")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	defer file.Close()
	blob, _ := io.ReadAll(file)

	f.mu.Lock()
	f.uploads = append(f.uploads, blob)
	id := fmt.Sprintf("file-%d", len(f.uploads))
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/vnd.api+json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data": []any{map[string]any{
			"attributes": map[string]any{
				"resource_id": id,
				"Permalink":   f.URL + "/file/" + id,
				"FileName":    r.FormValue("filename"),
			},
		}},
	})
}

func (f *FakeZoho) handleList(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(w, r) || !f.begin(OpList, w) {
		return
	}
	f.mu.Lock()
	link, ok := f.links[r.PathValue("id")]
	f.mu.Unlock()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data": []any{map[string]any{"id": "att-" + r.PathValue("id"), "$link_url": link}},
	})
}

func (f *FakeZoho) handleAttach(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(w, r) || !f.begin(OpAttach, w) {
		return
	}
	id := r.PathValue("id")
	f.mu.Lock()
	f.links[id] = r.URL.Query().Get("attachmentUrl")
	f.mu.Unlock()
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data": []any{map[string]any{
			"code":    "SUCCESS",
			"status":  "success",
			"message": "attachment uploaded successfully",
			"details": map[string]any{"id": "att-" + id},
		}},
	})
}
