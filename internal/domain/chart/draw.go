package chart

import (
	"fmt"
	"image/color"
	"math"

	"github.com/fogleman/gg"

	"github.com/okian/leadscore/internal/domain/model"
	"github.com/okian/leadscore/internal/domain/scoring"
)

var (
	colorBackground = color.RGBA{0xff, 0xff, 0xff, 0xff}
	colorText       = color.RGBA{0x1f, 0x2a, 0x37, 0xff}
	colorMuted      = color.RGBA{0x8a, 0x94, 0xa3, 0xff}
	colorGrid       = color.RGBA{0xdd, 0xe2, 0xe8, 0xff}
	colorAccent     = color.RGBA{0x0b, 0x5c, 0x8c, 0xff}
	colorMarker     = color.RGBA{0xd9, 0x48, 0x2b, 0xff}

	// themeColors follows theme order; phaseColors follows phase order.
	themeColors = []color.RGBA{
		{0x0b, 0x5c, 0x8c, 0xff},
		{0x2e, 0x8b, 0x57, 0xff},
		{0xe0, 0x8e, 0x0b, 0xff},
		{0x8e, 0x44, 0xad, 0xff},
	}
	phaseColors = []color.RGBA{
		{0xf4, 0xcc, 0xcc, 0xff},
		{0xfc, 0xe5, 0xcd, 0xff},
		{0xff, 0xf2, 0xcc, 0xff},
		{0xd9, 0xea, 0xd3, 0xff},
		{0xb6, 0xd7, 0xa8, 0xff},
	}
)

const (
	margin     = 40.0
	titleScale = 2.0
	rowGap     = 12.0
)

func themeColor(i int) color.RGBA {
	return themeColors[((i%len(themeColors))+len(themeColors))%len(themeColors)]
}

// drawTitle writes a heading at double size in the top left corner.
func drawTitle(dc *gg.Context, title string) {
	dc.Push()
	dc.Scale(titleScale, titleScale)
	dc.SetColor(colorText)
	dc.DrawStringAnchored(title, margin/titleScale, margin/titleScale, 0, 0.5)
	dc.Pop()
}

func (r *Renderer) drawPlaceholder(dc *gg.Context) {
	w, h := float64(r.width), float64(r.height)
	dc.SetColor(colorGrid)
	dc.SetLineWidth(2)
	dc.SetDash(8, 6)
	dc.DrawRectangle(margin, margin, w-2*margin, h-2*margin)
	dc.Stroke()
	dc.SetDash()

	dc.Push()
	dc.Scale(titleScale, titleScale)
	dc.SetColor(colorMuted)
	dc.DrawStringAnchored(PlaceholderText, w/2/titleScale, h/2/titleScale, 0.5, 0.5)
	dc.Pop()
}

// drawDomainScores draws one row per domain: name, score out of 10, a bar on
// the fixed 0..10 scale and a 0..5 dot rating.
func (r *Renderer) drawDomainScores(dc *gg.Context, res *model.AnalyticsResult) {
	w, h := float64(r.width), float64(r.height)
	drawTitle(dc, "Scores per domein")

	top := margin * 2.5
	rows := max(len(res.Domains), 1)
	rowH := (h - top - margin) / float64(rows)
	labelW := w * 0.25
	scoreW := 70.0
	dotsW := 5 * 24.0
	barX := margin + labelW + scoreW
	barW := w - barX - dotsW - 2*margin

	for i, d := range res.Domains {
		y := top + float64(i)*rowH
		mid := y + rowH/2

		dc.SetColor(colorText)
		dc.DrawStringAnchored(string(d.Theme), margin, mid, 0, 0.35)
		dc.DrawStringAnchored(fmt.Sprintf("%s / %d", model.FormatScore(d.Score), model.DomainMax),
			margin+labelW, mid, 0, 0.35)

		barH := math.Min(rowH-rowGap, 28)
		dc.SetColor(colorGrid)
		dc.DrawRectangle(barX, mid-barH/2, barW, barH)
		dc.Fill()
		frac := math.Max(0, math.Min(1, d.Score/model.DomainMax))
		dc.SetColor(themeColor(i))
		dc.DrawRectangle(barX, mid-barH/2, barW*frac, barH)
		dc.Fill()

		filled := int(math.Round(d.Rating))
		for k := 0; k < model.MaxOrdinal; k++ {
			cx := barX + barW + margin + float64(k)*24 + 8
			dc.DrawCircle(cx, mid, 8)
			if k < filled {
				dc.SetColor(themeColor(i))
				dc.Fill()
			} else {
				dc.SetColor(colorGrid)
				dc.SetLineWidth(2)
				dc.Stroke()
			}
		}
	}
}

// drawSubdomainRadar plots the eight answer ordinals on a fixed 0..5 radar.
func (r *Renderer) drawSubdomainRadar(dc *gg.Context, res *model.AnalyticsResult) {
	w, h := float64(r.width), float64(r.height)
	drawTitle(dc, "Subdomeinen")

	n := len(res.Answers)
	if n < 3 {
		r.drawPlaceholder(dc)
		return
	}
	cx, cy := w/2, h/2+margin/2
	radius := math.Min(w, h)/2 - margin*1.75
	angle := func(i int) float64 { return -math.Pi/2 + 2*math.Pi*float64(i)/float64(n) }
	point := func(i int, v float64) (float64, float64) {
		rr := radius * v / model.MaxOrdinal
		return cx + rr*math.Cos(angle(i)), cy + rr*math.Sin(angle(i))
	}

	dc.SetColor(colorGrid)
	dc.SetLineWidth(1)
	for ring := 1; ring <= model.MaxOrdinal; ring++ {
		for i := 0; i < n; i++ {
			x, y := point(i, float64(ring))
			if i == 0 {
				dc.MoveTo(x, y)
			} else {
				dc.LineTo(x, y)
			}
		}
		dc.ClosePath()
		dc.Stroke()
	}
	for i := 0; i < n; i++ {
		x, y := point(i, model.MaxOrdinal)
		dc.DrawLine(cx, cy, x, y)
		dc.Stroke()
	}

	for i, a := range res.Answers {
		x, y := point(i, float64(a.Ordinal))
		if i == 0 {
			dc.MoveTo(x, y)
		} else {
			dc.LineTo(x, y)
		}
	}
	dc.ClosePath()
	dc.SetColor(color.RGBA{colorAccent.R, colorAccent.G, colorAccent.B, 0x55})
	dc.FillPreserve()
	dc.SetColor(colorAccent)
	dc.SetLineWidth(2)
	dc.Stroke()

	for i, a := range res.Answers {
		x, y := point(i, float64(a.Ordinal))
		dc.DrawCircle(x, y, 4)
		dc.Fill()

		lx, ly := point(i, model.MaxOrdinal+0.6)
		ax := 0.5 - 0.5*math.Cos(angle(i))
		dc.SetColor(colorText)
		dc.DrawStringAnchored(fmt.Sprintf("%s (%d)", a.Keyword, a.Ordinal), lx, ly, ax, 0.5)
		dc.SetColor(colorAccent)
	}
}

// drawScoreBreakdown places the total on the 0..40 phase scale.
func (r *Renderer) drawScoreBreakdown(dc *gg.Context, res *model.AnalyticsResult) {
	w, h := float64(r.width), float64(r.height)
	drawTitle(dc, "Totaalscore en transitiefase")

	barX, barW := margin, w-2*margin
	barY, barH := h/2-20, 40.0
	scale := func(v float64) float64 {
		return barX + barW*math.Max(0, math.Min(1, v/model.TotalMax))
	}

	for i, p := range scoring.Phases() {
		x0 := scale(float64(p.Min))
		x1 := scale(math.Min(float64(p.Max+1), model.TotalMax))
		dc.SetColor(phaseColors[i%len(phaseColors)])
		dc.DrawRectangle(x0, barY, x1-x0, barH)
		dc.Fill()

		dc.SetColor(colorText)
		dc.DrawStringAnchored(p.Name, (x0+x1)/2, barY+barH+18, 0.5, 0.5)
		dc.SetColor(colorMuted)
		dc.DrawStringAnchored(p.Range, (x0+x1)/2, barY+barH+34, 0.5, 0.5)
	}

	dc.SetColor(colorGrid)
	dc.SetLineWidth(1)
	dc.DrawRectangle(barX, barY, barW, barH)
	dc.Stroke()

	total := res.Lead.TotalSum
	mx := scale(total)
	dc.SetColor(colorMarker)
	dc.SetLineWidth(3)
	dc.DrawLine(mx, barY-6, mx, barY+barH+6)
	dc.Stroke()
	dc.MoveTo(mx-8, barY-18)
	dc.LineTo(mx+8, barY-18)
	dc.LineTo(mx, barY-6)
	dc.ClosePath()
	dc.Fill()

	dc.SetColor(colorText)
	label := fmt.Sprintf("%s / %d - %s", model.FormatScore(total), model.TotalMax, res.Phase.Name)
	dc.DrawStringAnchored(label, mx, barY-30, anchorWithin(mx, barX, barW), 0.5)
	if res.Phase.Focus != "" {
		dc.SetColor(colorMuted)
		dc.DrawStringAnchored("Focus: "+res.Phase.Focus, margin, h-margin, 0, 0.5)
	}
}

// anchorWithin keeps labels near the bar ends inside the canvas.
func anchorWithin(x, barX, barW float64) float64 {
	switch {
	case x < barX+barW*0.15:
		return 0
	case x > barX+barW*0.85:
		return 1
	default:
		return 0.5
	}
}

// drawRecommendations tabulates advice for subdomains scoring 3 or lower.
func (r *Renderer) drawRecommendations(dc *gg.Context, res *model.AnalyticsResult) {
	w, h := float64(r.width), float64(r.height)
	drawTitle(dc, "Aanbevelingen")

	if len(res.Recommendations) == 0 {
		dc.Push()
		dc.Scale(titleScale, titleScale)
		dc.SetColor(colorAccent)
		dc.DrawStringAnchored("Alle subdomeinen scoren hoger dan 3", w/2/titleScale, h/2/titleScale, 0.5, 0.5)
		dc.Pop()
		return
	}

	cols := []struct {
		title string
		width float64
	}{
		{"Subdomein", 0.26},
		{"Score", 0.08},
		{"Advies", 0.44},
		{"Ondersteuning", 0.22},
	}
	tableW := w - 2*margin
	top := margin * 2.5
	lineH := float64(r.face.Metrics().Height.Ceil()) + 3
	rowH := 2*lineH + rowGap

	x := margin
	dc.SetColor(colorText)
	for _, c := range cols {
		dc.DrawStringAnchored(c.title, x, top, 0, 0.5)
		x += c.width * tableW
	}
	dc.SetColor(colorGrid)
	dc.SetLineWidth(1)
	dc.DrawLine(margin, top+lineH, w-margin, top+lineH)
	dc.Stroke()

	maxRows := int((h - top - lineH - margin) / rowH)
	for i, rec := range res.Recommendations {
		if i >= maxRows {
			dc.SetColor(colorMuted)
			dc.DrawStringAnchored(fmt.Sprintf("+ %d meer", len(res.Recommendations)-i), margin, h-margin/2, 0, 0.5)
			break
		}
		y := top + lineH + rowGap + float64(i)*rowH
		cells := []string{rec.Subdomain, fmt.Sprintf("%d", rec.Ordinal), rec.Advice, rec.SupportType}
		x := margin
		for k, c := range cols {
			cw := c.width*tableW - 10
			lines := dc.WordWrap(cells[k], cw)
			if len(lines) > 2 {
				lines = lines[:2]
				lines[1] = truncate(dc, lines[1]+" ...", cw)
			}
			dc.SetColor(colorText)
			if k == 1 {
				dc.SetColor(themeColor(themeIndex(rec.Theme)))
			}
			for l, line := range lines {
				dc.DrawStringAnchored(line, x, y+float64(l)*lineH, 0, 0.5)
			}
			x += c.width * tableW
		}
	}
}

func themeIndex(t model.Theme) int {
	switch t {
	case model.ThemeGovernance:
		return 0
	case model.ThemeStructure:
		return 1
	case model.ThemeProcess:
		return 2
	default:
		return 3
	}
}

// truncate shortens s from the right until it fits width.
func truncate(dc *gg.Context, s string, width float64) string {
	r := []rune(s)
	for len(r) > 0 {
		if tw, _ := dc.MeasureString(string(r)); tw <= width {
			break
		}
		r = r[:len(r)-1]
	}
	return string(r)
}
