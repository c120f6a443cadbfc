package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/leadscore/internal/adapters/http/api"
	"github.com/okian/leadscore/internal/adapters/zoho"
	service "github.com/okian/leadscore/internal/app"
	"github.com/okian/leadscore/internal/domain/model"
	"github.com/okian/leadscore/internal/testutil"
	"github.com/okian/leadscore/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

var fixedNow = func() time.Time { return time.Date(2025, 6, 12, 14, 30, 5, 0, time.UTC) }

type body struct {
	Success          bool                    `json:"success"`
	Message          string                  `json:"message"`
	Code             string                  `json:"code"`
	LeadID           string                  `json:"lead_id"`
	UploadResult     *model.UploadResult     `json:"upload_result"`
	AttachmentResult *model.AttachmentResult `json:"attachment_result"`
	Warnings         []string                `json:"warnings"`
	Fields           []struct {
		Field  string `json:"field"`
		Reason string `json:"reason"`
	} `json:"fields"`
}

// mockDeps records calls and answers with canned results.
type mockDeps struct {
	processed []map[string]any
	outcome   service.Outcome
	err       error
	panicMsg  string
}

func (m *mockDeps) Process(_ context.Context, raw map[string]any) (service.Outcome, error) {
	if m.panicMsg != "" {
		panic(m.panicMsg)
	}
	m.processed = append(m.processed, raw)
	return m.outcome, m.err
}

func (m *mockDeps) Attach(context.Context, string, string, string) (model.AttachmentResult, error) {
	return model.AttachmentResult{}, m.err
}

func newHandler(deps api.Dependencies, opts ...api.Option) http.Handler {
	srv := api.NewServer(deps, append([]api.Option{api.WithClock(fixedNow), api.WithVersion("test")}, opts...)...)
	mux := http.NewServeMux()
	srv.Register(mux)
	return srv.Handler(mux)
}

func newLiveHandler(fake *testutil.FakeZoho) http.Handler {
	client := zoho.NewClient(zoho.StaticToken("tok"), zoho.Endpoints{
		UploadURL:       fake.UploadURL(),
		CRMBaseURL:      fake.CRMBaseURL(),
		ParentFolderID:  "folder-1",
		AttachmentTitle: "Lead Score Matrix PPT",
	}, zoho.WithHTTPClient(fake.Client()))
	return newHandler(service.NewPipeline(fake.TemplateURL(), client, client, client, service.WithClock(fixedNow)))
}

func post(h http.Handler, path, contentType string, payload any) (*httptest.ResponseRecorder, body) {
	var buf bytes.Buffer
	switch p := payload.(type) {
	case string:
		buf.WriteString(p)
	case nil:
	default:
		_ = json.NewEncoder(&buf).Encode(p)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	var b body
	_ = json.Unmarshal(w.Body.Bytes(), &b)
	return w, b
}

func TestHealth(t *testing.T) {
	Convey("Given the API", t, func() {
		h := newHandler(&mockDeps{})

		Convey("When GET / is requested", func() {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

			Convey("Then the service reports healthy", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var got map[string]string
				So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
				So(got["status"], ShouldEqual, "healthy")
				So(got["message"], ShouldEqual, "Lead Score Processing Service is running")
				So(got["timestamp"], ShouldEqual, "2025-06-12T14:30:05Z")
				So(got["version"], ShouldEqual, "test")
				So(w.Header().Get(api.RequestIDHeader), ShouldNotBeEmpty)
			})
		})

		Convey("When an unknown path is requested", func() {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", http.NoBody))

			Convey("Then it is not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When /process-lead is requested with GET", func() {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/process-lead", http.NoBody))

			Convey("Then the method is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			})
		})

		Convey("When metrics are scraped", func() {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
			w = httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

			Convey("Then HTTP metrics are exposed", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "http_requests_total")
			})
		})

		Convey("When a request id is supplied", func() {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			req.Header.Set(api.RequestIDHeader, "req-1")
			h.ServeHTTP(w, req)

			Convey("Then it is echoed", func() {
				So(w.Header().Get(api.RequestIDHeader), ShouldEqual, "req-1")
			})
		})
	})
}

func TestProcessLead_Requests(t *testing.T) {
	Convey("Given the API with a recording pipeline", t, func() {
		deps := &mockDeps{outcome: service.Outcome{LeadID: "123456789", Message: service.MessageAttached}}
		h := newHandler(deps, api.WithMaxBodyBytes(4096))

		Convey("When the content type is not JSON", func() {
			w, b := post(h, "/process-lead", "text/plain", `{"Lead_ID":"1"}`)

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(b.Success, ShouldBeFalse)
				So(b.Message, ShouldEqual, "Content-Type must be application/json")
				So(deps.processed, ShouldBeEmpty)
			})
		})

		Convey("When the body is empty", func() {
			for _, payload := range []string{"", "null", "{}", "  "} {
				w, b := post(h, "/process-lead", "application/json", payload)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(b.Message, ShouldEqual, "No JSON payload provided")
			}
			So(deps.processed, ShouldBeEmpty)
		})

		Convey("When the body is not an object", func() {
			w, b := post(h, "/process-lead", "application/json", `[1,2]`)

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(b.Message, ShouldEqual, "Request body must be a JSON object")
			})
		})

		Convey("When the body is too large", func() {
			w, b := post(h, "/process-lead", "application/json", `{"x":"`+strings.Repeat("a", 5000)+`"}`)

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(b.Message, ShouldEqual, "Request body too large")
			})
		})

		Convey("When numbers are sent as JSON numbers", func() {
			w, _ := post(h, "/process-lead", "application/json; charset=utf-8", `{"Lead_ID":"1","Domain_1_Sum":7}`)

			Convey("Then they reach the pipeline verbatim", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(len(deps.processed), ShouldEqual, 1)
				So(deps.processed[0]["Domain_1_Sum"], ShouldEqual, json.Number("7"))
			})
		})

		Convey("When the pipeline panics", func() {
			deps.panicMsg = "boom"
			w, b := post(h, "/process-lead", "application/json", testutil.SamplePayload())

			Convey("Then the response is an internal error", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(b.Success, ShouldBeFalse)
				So(b.Code, ShouldEqual, "internal_error")
			})
		})

		Convey("When the pipeline fails for an unknown reason", func() {
			deps.err = io.ErrUnexpectedEOF
			w, b := post(h, "/process-lead", "application/json", testutil.SamplePayload())

			Convey("Then internals are not exposed", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(b.Message, ShouldNotContainSubstring, "EOF")
			})
		})
	})
}

func TestProcessLead_Responded(t *testing.T) {
	Convey("Given the API with a debug logger", t, func() {
		var logs bytes.Buffer
		log := logger.New(slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})))
		deps := &mockDeps{outcome: service.Outcome{
			State:   service.StateAttached,
			LeadID:  "123456789",
			Message: service.MessageAttached,
		}}
		h := newHandler(deps, api.WithLogger(log))

		Convey("When a lead is answered", func() {
			w, _ := post(h, "/process-lead", "application/json", testutil.SamplePayload())

			Convey("Then the run is logged as responded with the state it reached", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(logs.String(), ShouldContainSubstring, `"msg":"lead responded"`)
				So(logs.String(), ShouldContainSubstring, `"reached":"attached"`)
				So(logs.String(), ShouldContainSubstring, `"state":"responded"`)
			})
		})
	})
}

func TestProcessLead_Outcomes(t *testing.T) {
	Convey("Given the API against a fake vendor", t, func() {
		fake := testutil.NewFakeZoho()
		defer fake.Close()
		h := newLiveHandler(fake)

		Convey("When the sample lead is posted", func() {
			w, b := post(h, "/process-lead", "application/json", testutil.SamplePayload())

			Convey("Then the lead is processed end to end", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(b.Success, ShouldBeTrue)
				So(b.LeadID, ShouldEqual, "123456789")
				So(b.Message, ShouldEqual, service.MessageAttached)
				So(b.UploadResult.FileID, ShouldNotBeEmpty)
				So(b.AttachmentResult.AttachmentID, ShouldNotBeEmpty)
			})
		})

		Convey("When Lead_ID is missing", func() {
			w, b := post(h, "/process-lead", "application/json", testutil.Without("Lead_ID"))

			Convey("Then the response names the field", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(b.Code, ShouldEqual, "validation_failed")
				So(b.Message, ShouldContainSubstring, "Lead_ID")
				So(len(b.Fields), ShouldEqual, 1)
				So(b.Fields[0].Field, ShouldEqual, "Lead_ID")
			})
		})

		Convey("When a domain sum is not numeric", func() {
			w, b := post(h, "/process-lead", "application/json", testutil.With(map[string]any{"Domain_1_Sum": "abc"}))

			Convey("Then it is a validation error", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(b.Message, ShouldContainSubstring, "Domain_1_Sum")
			})
		})

		Convey("When the template download fails", func() {
			fake.SetStatus(testutil.OpDownload, http.StatusInternalServerError)
			w, b := post(h, "/process-lead", "application/json", testutil.SamplePayload())

			Convey("Then it is a bad gateway and nothing is uploaded", func() {
				So(w.Code, ShouldEqual, http.StatusBadGateway)
				So(b.Success, ShouldBeFalse)
				So(b.Code, ShouldEqual, "upstream_error")
				So(b.UploadResult, ShouldBeNil)
				So(fake.Calls(testutil.OpUpload), ShouldEqual, 0)
				So(fake.Calls(testutil.OpAttach), ShouldEqual, 0)
			})
		})

		Convey("When the upload fails", func() {
			fake.SetStatus(testutil.OpUpload, http.StatusInternalServerError)
			w, _ := post(h, "/process-lead", "application/json", testutil.SamplePayload())

			Convey("Then it is a bad gateway", func() {
				So(w.Code, ShouldEqual, http.StatusBadGateway)
				So(fake.Calls(testutil.OpAttach), ShouldEqual, 0)
			})
		})

		Convey("When the attach fails", func() {
			fake.SetStatus(testutil.OpAttach, http.StatusInternalServerError)
			w, b := post(h, "/process-lead", "application/json", testutil.SamplePayload())

			Convey("Then the upload is reported with a file id for retry", func() {
				So(w.Code, ShouldEqual, http.StatusMultiStatus)
				So(b.Success, ShouldBeFalse)
				So(b.Code, ShouldEqual, "partial_success")
				So(b.Message, ShouldEqual, service.MessageAttachFailed)
				So(b.UploadResult.Success, ShouldBeTrue)
				So(b.UploadResult.FileID, ShouldNotBeEmpty)
				So(b.AttachmentResult.Success, ShouldBeFalse)
				So(b.AttachmentResult.Message, ShouldEqual, "Failed to attach file to Lead")
			})

			Convey("And the attach can be retried through the API", func() {
				fake.SetStatus(testutil.OpAttach, http.StatusOK)
				w, b2 := post(h, "/leads/123456789/attachments", "application/json", map[string]string{
					"file_id":      b.UploadResult.FileID,
					"download_url": b.UploadResult.DownloadURL,
				})
				So(w.Code, ShouldEqual, http.StatusOK)
				So(b2.Success, ShouldBeTrue)
				So(b2.AttachmentResult.AttachmentID, ShouldEqual, "att-123456789")
			})
		})

		Convey("When an attach retry misses fields", func() {
			w, b := post(h, "/leads/123456789/attachments", "application/json", map[string]string{"file_id": "file-1"})

			Convey("Then the missing field is named", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(len(b.Fields), ShouldEqual, 1)
				So(b.Fields[0].Field, ShouldEqual, "download_url")
			})
		})

		Convey("When an attach retry hits a failing vendor", func() {
			fake.SetStatus(testutil.OpAttach, http.StatusInternalServerError)
			w, b := post(h, "/leads/123456789/attachments", "application/json", map[string]string{
				"file_id":      "file-1",
				"download_url": fake.URL + "/file/file-1",
			})

			Convey("Then it is a bad gateway", func() {
				So(w.Code, ShouldEqual, http.StatusBadGateway)
				So(b.Success, ShouldBeFalse)
			})
		})
	})
}
