// Package presentation fills a PPTX report template with lead analytics.
//
// A template is an OOXML zip. Text slots are placeholders such as
// {{organisatie}} inside slide paragraphs; chart slots are positions on a
// slide where a rendered PNG is placed. Which placeholder and chart goes on
// which slide is configuration, see Layout.
package presentation

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/okian/leadscore/internal/domain/model"
)

const contentTypesPart = "[Content_Types].xml"

// FilenameLayout formats the artifact timestamp.
const FilenameLayout = "20060102_150405"

// Filler produces report artifacts. It is safe for concurrent use.
type Filler struct {
	layout *Layout
	now    func() time.Time
}

// FillerOption configures a Filler.
type FillerOption func(*Filler)

// WithClock sets the clock used for artifact filenames.
func WithClock(now func() time.Time) FillerOption {
	return func(f *Filler) {
		if now != nil {
			f.now = now
		}
	}
}

// NewFiller creates a filler for layout; nil means DefaultLayout.
func NewFiller(layout *Layout, opts ...FillerOption) *Filler {
	if layout == nil {
		layout = DefaultLayout()
	}
	f := &Filler{layout: layout, now: time.Now}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Layout returns the slot layout in use.
func (f *Filler) Layout() *Layout { return f.layout }

// part is one zip entry, either copied verbatim or rewritten.
type part struct {
	name  string
	file  *zip.File
	data  []byte
	dirty bool
}

// pkg is the in-memory view of a template during one Fill.
type pkg struct {
	parts []*part
	index map[string]*part
}

func (p *pkg) get(name string) ([]byte, bool, error) {
	pt, ok := p.index[name]
	if !ok {
		return nil, false, nil
	}
	if pt.data != nil {
		return pt.data, true, nil
	}
	rc, err := pt.file.Open()
	if err != nil {
		return nil, true, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, true, err
	}
	pt.data = data
	return data, true, nil
}

func (p *pkg) set(name string, data []byte) {
	if pt, ok := p.index[name]; ok {
		pt.data = data
		pt.dirty = true
		return
	}
	pt := &part{name: name, data: data, dirty: true}
	p.parts = append(p.parts, pt)
	p.index[name] = pt
}

// Fill writes the values and charts of res into a copy of template. The
// template bytes are only read. Text slots whose key has no value and chart
// slots without a rendered chart are left untouched.
func (f *Filler) Fill(template []byte, res *model.AnalyticsResult, charts []model.Chart) (model.Artifact, error) {
	if res == nil {
		return model.Artifact{}, fmt.Errorf("fill template: nil analytics result")
	}
	zr, err := zip.NewReader(bytes.NewReader(template), int64(len(template)))
	if err != nil {
		return model.Artifact{}, templateErr("", "not a valid presentation file", err)
	}

	p := &pkg{index: make(map[string]*part, len(zr.File))}
	for _, zf := range zr.File {
		pt := &part{file: zf, name: zf.Name}
		p.parts = append(p.parts, pt)
		p.index[zf.Name] = pt
	}
	if _, ok := p.index[contentTypesPart]; !ok {
		return model.Artifact{}, templateErr(contentTypesPart, "missing", nil)
	}

	values := res.TextValues()
	byName := make(map[string]model.Chart, len(charts))
	for _, c := range charts {
		byName[c.Name] = c
	}

	pictures := 0
	for _, sl := range f.layout.Slides {
		n, err := f.fillSlide(p, sl, values, byName)
		if err != nil {
			return model.Artifact{}, err
		}
		pictures += n
	}

	if pictures > 0 {
		types, _, err := p.get(contentTypesPart)
		if err != nil {
			return model.Artifact{}, templateErr(contentTypesPart, "unreadable", err)
		}
		types, err = ensurePNGDefault(types)
		if err != nil {
			return model.Artifact{}, templateErr(contentTypesPart, "malformed", err)
		}
		p.set(contentTypesPart, types)
	}

	data, err := p.write()
	if err != nil {
		return model.Artifact{}, fmt.Errorf("write presentation: %w", err)
	}
	return model.Artifact{
		Filename: "lead_score_report_" + f.now().Format(FilenameLayout) + ".pptx",
		Data:     data,
	}, nil
}

// fillSlide applies one slide layout and returns the number of pictures
// added.
func (f *Filler) fillSlide(p *pkg, sl SlideLayout, values map[string]string, charts map[string]model.Chart) (int, error) {
	name := fmt.Sprintf("ppt/slides/slide%d.xml", sl.Slide)
	slide, ok, err := p.get(name)
	if err != nil {
		return 0, templateErr(name, "unreadable", err)
	}
	if !ok {
		for _, c := range sl.Charts {
			if c.Required {
				return 0, templateErr(name, fmt.Sprintf("missing slide for required chart %s", c.Chart), nil)
			}
		}
		return 0, nil
	}

	var pairs []string
	for _, t := range sl.Text {
		if v, ok := values[t.Key]; ok {
			pairs = append(pairs, t.Placeholder, v)
		}
	}
	changed := false
	if len(pairs) > 0 {
		slide, changed = replaceText(slide, pairs)
	}

	added := 0
	for _, c := range sl.Charts {
		ch, ok := charts[c.Chart]
		if !ok || len(ch.PNG) == 0 {
			continue
		}
		slide, err = f.addChart(p, sl.Slide, slide, c, ch)
		if err != nil {
			return 0, err
		}
		added++
	}

	if changed || added > 0 {
		p.set(name, slide)
	}
	return added, nil
}

func (f *Filler) addChart(p *pkg, n int, slide []byte, slot ChartSlot, ch model.Chart) ([]byte, error) {
	slideName := fmt.Sprintf("ppt/slides/slide%d.xml", n)
	relsName := fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", n)

	media := fmt.Sprintf("ppt/media/leadscore_%d_%s.png", n, slot.Chart)
	for i := 2; ; i++ {
		if _, taken := p.index[media]; !taken {
			break
		}
		media = fmt.Sprintf("ppt/media/leadscore_%d_%s_%d.png", n, slot.Chart, i)
	}

	rels, ok, err := p.get(relsName)
	if err != nil {
		return nil, templateErr(relsName, "unreadable", err)
	}
	if !ok {
		rels = emptyRels()
	}
	rels, relID, err := addImageRel(rels, "../media/"+strings.TrimPrefix(media, "ppt/media/"))
	if err != nil {
		return nil, templateErr(relsName, "malformed", err)
	}

	slide, err = addPicture(slide, relID, slot.Chart, slot)
	if err != nil {
		return nil, templateErr(slideName, "no shape tree for chart "+slot.Chart, err)
	}

	p.set(relsName, rels)
	p.set(media, ch.PNG)
	return slide, nil
}

// write serializes the package. Untouched parts are copied without
// recompression.
func (p *pkg) write() ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, pt := range p.parts {
		if !pt.dirty {
			if err := zw.Copy(pt.file); err != nil {
				return nil, err
			}
			continue
		}
		method := zip.Deflate
		if strings.HasSuffix(pt.name, ".png") {
			method = zip.Store
		}
		hdr := &zip.FileHeader{Name: pt.name, Method: method}
		if pt.file != nil {
			hdr.Modified = pt.file.Modified
		}
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(pt.data); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
