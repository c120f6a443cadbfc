package service_test

import (
	"context"
	"crypto/sha256"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/okian/leadscore/internal/adapters/zoho"
	service "github.com/okian/leadscore/internal/app"
	"github.com/okian/leadscore/internal/domain/model"
	"github.com/okian/leadscore/internal/domain/presentation"
	"github.com/okian/leadscore/internal/domain/scoring"
	"github.com/okian/leadscore/internal/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

var fixedNow = func() time.Time { return time.Date(2025, 6, 12, 14, 30, 5, 0, time.UTC) }

func newPipeline(fake *testutil.FakeZoho, opts ...service.Option) *service.Pipeline {
	client := zoho.NewClient(zoho.StaticToken("tok"), zoho.Endpoints{
		UploadURL:       fake.UploadURL(),
		CRMBaseURL:      fake.CRMBaseURL(),
		ParentFolderID:  "folder-1",
		AttachmentTitle: "Lead Score Matrix PPT",
	}, zoho.WithHTTPClient(fake.Client()))
	opts = append([]service.Option{service.WithClock(fixedNow)}, opts...)
	return service.NewPipeline(fake.TemplateURL(), client, client, client, opts...)
}

type failingRenderer struct{}

func (failingRenderer) Render(*model.AnalyticsResult) ([]model.Chart, error) {
	return nil, errors.New("no font")
}

type panickingUploader struct{}

func (panickingUploader) Upload(context.Context, model.Artifact) (model.UploadResult, error) {
	panic("boom")
}

type noLinkUploader struct{}

func (noLinkUploader) Upload(context.Context, model.Artifact) (model.UploadResult, error) {
	return model.UploadResult{Success: true, FileID: "file-x"}, nil
}

func TestPipeline_Process(t *testing.T) {
	Convey("Given a pipeline against a healthy vendor", t, func() {
		fake := testutil.NewFakeZoho()
		defer fake.Close()
		p := newPipeline(fake)
		ctx := context.Background()

		Convey("When the sample lead is processed", func() {
			out, err := p.Process(ctx, testutil.SamplePayload())

			Convey("Then every state is reached", func() {
				So(err, ShouldBeNil)
				So(out.State, ShouldEqual, service.StateAttached)
				So(out.LeadID, ShouldEqual, "123456789")
				So(out.Message, ShouldEqual, service.MessageAttached)
				So(out.Upload, ShouldNotBeNil)
				So(out.Upload.FileID, ShouldNotBeEmpty)
				So(out.Attachment, ShouldNotBeNil)
				So(out.Attachment.AttachmentID, ShouldEqual, "att-123456789")
				So(out.Warnings, ShouldBeEmpty)
			})

			Convey("Then the uploaded report carries the lead and the report date", func() {
				uploads := fake.Uploads()
				So(len(uploads), ShouldEqual, 1)
				parts, err := testutil.Unzip(uploads[0])
				So(err, ShouldBeNil)
				slide1 := string(parts["ppt/slides/slide1.xml"])
				So(slide1, ShouldContainSubstring, "Datum: 12-06-2025")
				So(slide1, ShouldNotContainSubstring, "{{organi")
				So(parts, ShouldContainKey, "ppt/media/leadscore_5_domain_scores.png")
			})
		})

		Convey("When Lead_ID is missing", func() {
			out, err := p.Process(ctx, testutil.Without("Lead_ID"))

			Convey("Then a validation error names it and no vendor is called", func() {
				var verr *scoring.ValidationError
				So(errors.As(err, &verr), ShouldBeTrue)
				So(verr.FieldNames(), ShouldContain, "Lead_ID")
				So(out.State, ShouldEqual, service.StateReceivedRequest)
				So(fake.Calls(testutil.OpDownload), ShouldEqual, 0)
			})
		})

		Convey("When a domain sum is not numeric", func() {
			_, err := p.Process(ctx, testutil.With(map[string]any{"Domain_1_Sum": "abc"}))

			Convey("Then it is a validation error", func() {
				So(errors.Is(err, scoring.ErrValidation), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "Domain_1_Sum")
			})
		})

		Convey("When an answer has no leading digit", func() {
			out, err := p.Process(ctx, testutil.With(map[string]any{
				"Governance_Q1":         "no digit here",
				"Governance_Q1_Numeric": nil,
			}))

			Convey("Then the request still succeeds", func() {
				So(err, ShouldBeNil)
				So(out.State, ShouldEqual, service.StateAttached)
			})
		})

		Convey("When the totals diverge", func() {
			out, err := p.Process(ctx, testutil.With(map[string]any{"Total_Sum": "30"}))

			Convey("Then it succeeds with a warning", func() {
				So(err, ShouldBeNil)
				So(len(out.Warnings), ShouldEqual, 1)
			})
		})

		Convey("When the template download fails", func() {
			fake.SetStatus(testutil.OpDownload, http.StatusInternalServerError)
			out, err := p.Process(ctx, testutil.SamplePayload())

			Convey("Then an upstream error is returned and nothing is uploaded", func() {
				var uerr *zoho.UpstreamError
				So(errors.As(err, &uerr), ShouldBeTrue)
				So(uerr.Op, ShouldEqual, zoho.OpDownloadTemplate)
				So(out.State, ShouldEqual, service.StateValidated)
				So(fake.Calls(testutil.OpUpload), ShouldEqual, 0)
				So(fake.Calls(testutil.OpAttach), ShouldEqual, 0)
			})
		})

		Convey("When the upload fails", func() {
			fake.SetStatus(testutil.OpUpload, http.StatusBadGateway)
			out, err := p.Process(ctx, testutil.SamplePayload())

			Convey("Then no attach is attempted", func() {
				So(errors.Is(err, zoho.ErrUpstream), ShouldBeTrue)
				So(errors.Is(err, service.ErrPartialSuccess), ShouldBeFalse)
				So(out.State, ShouldEqual, service.StateRendered)
				So(out.Upload, ShouldBeNil)
				So(fake.Calls(testutil.OpAttach), ShouldEqual, 0)
			})
		})

		Convey("When the attach fails", func() {
			fake.SetStatus(testutil.OpAttach, http.StatusInternalServerError)
			out, err := p.Process(ctx, testutil.SamplePayload())

			Convey("Then the upload is reported with its file id", func() {
				var perr *service.PartialSuccessError
				So(errors.As(err, &perr), ShouldBeTrue)
				So(errors.Is(err, zoho.ErrUpstream), ShouldBeTrue)
				So(perr.Upload.FileID, ShouldNotBeEmpty)
				So(out.State, ShouldEqual, service.StateUploaded)
				So(out.Message, ShouldEqual, service.MessageAttachFailed)
				So(out.Upload.Success, ShouldBeTrue)
				So(out.Attachment.Success, ShouldBeFalse)
			})

			Convey("And retrying the attach step succeeds once the vendor recovers", func() {
				fake.SetStatus(testutil.OpAttach, http.StatusOK)
				att, err := p.Attach(ctx, out.LeadID, out.Upload.FileID, out.Upload.DownloadURL)
				So(err, ShouldBeNil)
				So(att.Success, ShouldBeTrue)
				So(fake.Calls(testutil.OpUpload), ShouldEqual, 1)
			})
		})

		Convey("When the template is not a presentation", func() {
			p := service.NewPipeline(fake.TemplateURL(),
				service.TemplateSource(templateFunc(func() []byte { return []byte("not a zip") })),
				nil, nil, service.WithClock(fixedNow))
			out, err := p.Process(ctx, testutil.SamplePayload())

			Convey("Then a template error is returned", func() {
				So(errors.Is(err, presentation.ErrTemplate), ShouldBeTrue)
				So(out.State, ShouldEqual, service.StateTemplateFetched)
			})
		})

		Convey("When chart rendering fails", func() {
			p := newPipeline(fake, service.WithRenderer(failingRenderer{}))
			_, err := p.Process(ctx, testutil.SamplePayload())

			Convey("Then a render error is returned", func() {
				So(errors.Is(err, service.ErrRender), ShouldBeTrue)
				So(fake.Calls(testutil.OpUpload), ShouldEqual, 0)
			})
		})

		Convey("When the upload returns no download link", func() {
			client := zoho.NewClient(zoho.StaticToken("tok"), zoho.Endpoints{CRMBaseURL: fake.CRMBaseURL()},
				zoho.WithHTTPClient(fake.Client()))
			p := service.NewPipeline(fake.TemplateURL(), client, noLinkUploader{}, client)
			out, err := p.Process(ctx, testutil.SamplePayload())

			Convey("Then the attach step is skipped as a partial success", func() {
				So(errors.Is(err, service.ErrPartialSuccess), ShouldBeTrue)
				So(out.Message, ShouldEqual, service.MessageNoDownloadURL)
				So(fake.Calls(testutil.OpAttach), ShouldEqual, 0)
			})
		})

		Convey("When a component panics", func() {
			client := zoho.NewClient(zoho.StaticToken("tok"), zoho.Endpoints{}, zoho.WithHTTPClient(fake.Client()))
			p := service.NewPipeline(fake.TemplateURL(), client, panickingUploader{}, client)
			out, err := p.Process(ctx, testutil.SamplePayload())

			Convey("Then it is reported as an internal error", func() {
				So(errors.Is(err, service.ErrInternal), ShouldBeTrue)
				So(out.State, ShouldEqual, service.StateRendered)
			})
		})

		Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := p.Process(cctx, testutil.SamplePayload())

			Convey("Then processing stops without vendor calls", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
				So(fake.Calls(testutil.OpDownload), ShouldEqual, 0)
			})
		})
	})

	Convey("Given a template blob served from memory", t, func() {
		fake := testutil.NewFakeZoho()
		defer fake.Close()
		tpl := testutil.Template()
		before := sha256.Sum256(tpl)
		client := zoho.NewClient(zoho.StaticToken("tok"), zoho.Endpoints{
			UploadURL:  fake.UploadURL(),
			CRMBaseURL: fake.CRMBaseURL(),
		}, zoho.WithHTTPClient(fake.Client()))
		p := service.NewPipeline("mem://template", templateFunc(func() []byte { return tpl }), client, client)

		Convey("When two leads are processed", func() {
			_, err1 := p.Process(context.Background(), testutil.SamplePayload())
			_, err2 := p.Process(context.Background(), testutil.With(map[string]any{"Lead_ID": "42"}))

			Convey("Then the shared template is unchanged", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(sha256.Sum256(tpl), ShouldResemble, before)
			})
		})
	})
}

func TestPipeline_Attach(t *testing.T) {
	Convey("Given a pipeline", t, func() {
		fake := testutil.NewFakeZoho()
		defer fake.Close()
		p := newPipeline(fake)
		ctx := context.Background()

		Convey("When fields are missing", func() {
			_, err := p.Attach(ctx, "", "file-1", "")

			Convey("Then every missing field is named", func() {
				var verr *scoring.ValidationError
				So(errors.As(err, &verr), ShouldBeTrue)
				So(verr.FieldNames(), ShouldResemble, []string{"lead_id", "download_url"})
			})
		})

		Convey("When the same file is attached twice", func() {
			first, err1 := p.Attach(ctx, "123456789", "file-1", fake.URL+"/file/file-1")
			second, err2 := p.Attach(ctx, "123456789", "file-1", fake.URL+"/file/file-1")

			Convey("Then the vendor sees one attach", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(second.AttachmentID, ShouldEqual, first.AttachmentID)
				So(fake.Calls(testutil.OpAttach), ShouldEqual, 1)
			})
		})
	})
}

func TestState(t *testing.T) {
	Convey("States have stable names", t, func() {
		So(service.StateReceivedRequest.String(), ShouldEqual, "received_request")
		So(service.StateResponded.String(), ShouldEqual, "responded")
		So(service.State(99).String(), ShouldEqual, "unknown")
		So(strings.Contains(service.StateTemplateFetched.String(), "template"), ShouldBeTrue)
	})

	Convey("Given an outcome that stopped after the upload", t, func() {
		out := service.Outcome{State: service.StateUploaded}

		Convey("When the caller responds", func() {
			reached := out.Respond()

			Convey("Then the run ends in the responded state", func() {
				So(reached, ShouldEqual, service.StateUploaded)
				So(out.State, ShouldEqual, service.StateResponded)
			})
		})
	})
}

type templateFunc func() []byte

func (f templateFunc) DownloadTemplate(context.Context, string) ([]byte, error) {
	return f(), nil
}
