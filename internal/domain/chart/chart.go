// Package chart renders the analytics of one lead as PNG images.
//
// Every chart uses a fixed scale so reports of different leads can be
// compared side by side, and identical input always produces identical
// bytes.
package chart

import (
	"bytes"
	"fmt"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"github.com/okian/leadscore/internal/domain/model"
)

// Chart names double as the slot names in the presentation layout.
const (
	NameDomainScores    = "domain_scores"
	NameSubdomainRadar  = "subdomain_radar"
	NameScoreBreakdown  = "score_breakdown"
	NameRecommendations = "recommendations"
	NameSubdomainTable  = "subdomain_table"
	NameSupportOverview = "support_overview"
)

// Names lists every chart in render order.
func Names() []string {
	return []string{
		NameDomainScores, NameSubdomainRadar, NameScoreBreakdown,
		NameRecommendations, NameSubdomainTable, NameSupportOverview,
	}
}

// PlaceholderText is drawn when a lead has nothing to chart.
const PlaceholderText = "Geen gegevens beschikbaar"

// Renderer draws charts. It holds no per-request state and is safe for
// concurrent use.
type Renderer struct {
	width  int
	height int
	face   font.Face
}

// NewRenderer creates a renderer with the given options.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		width:  defaultWidth,
		height: defaultHeight,
		face:   basicfont.Face7x13,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render draws all charts for res. A result without any non-zero score gets
// a placeholder image under every chart name so the rest of the report can
// still be produced.
func (r *Renderer) Render(res *model.AnalyticsResult) ([]model.Chart, error) {
	if res == nil {
		return nil, fmt.Errorf("render charts: nil analytics result")
	}

	draws := map[string]func(*gg.Context, *model.AnalyticsResult){
		NameDomainScores:    r.drawDomainScores,
		NameSubdomainRadar:  r.drawSubdomainRadar,
		NameScoreBreakdown:  r.drawScoreBreakdown,
		NameRecommendations: r.drawRecommendations,
		NameSubdomainTable:  r.drawSubdomainTable,
		NameSupportOverview: r.drawSupportOverview,
	}

	chartable := res.HasChartableData()
	charts := make([]model.Chart, 0, len(draws))
	for _, name := range Names() {
		dc := r.canvas()
		if chartable {
			draws[name](dc, res)
		} else {
			r.drawPlaceholder(dc)
		}
		png, err := encode(dc)
		if err != nil {
			return nil, fmt.Errorf("render chart %s: %w", name, err)
		}
		charts = append(charts, model.Chart{
			Name:   name,
			PNG:    png,
			Width:  r.width,
			Height: r.height,
		})
	}
	return charts, nil
}

func (r *Renderer) canvas() *gg.Context {
	dc := gg.NewContext(r.width, r.height)
	dc.SetColor(colorBackground)
	dc.Clear()
	dc.SetFontFace(r.face)
	return dc
}

func encode(dc *gg.Context) ([]byte, error) {
	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
