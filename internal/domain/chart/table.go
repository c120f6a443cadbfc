package chart

import (
	"fmt"
	"image/color"

	"github.com/fogleman/gg"

	"github.com/okian/leadscore/internal/domain/model"
)

var (
	colorHeader  = color.RGBA{0x2c, 0x52, 0x82, 0xff}
	colorRowEven = color.RGBA{0xe2, 0xe8, 0xf0, 0xff}
	colorRowOdd  = color.RGBA{0xf7, 0xfa, 0xfc, 0xff}

	// ordinalColors is indexed by answer ordinal minus one.
	ordinalColors = []color.RGBA{
		{0xdc, 0x35, 0x45, 0xff},
		{0xfd, 0x7e, 0x8a, 0xff},
		{0xff, 0xc1, 0x07, 0xff},
		{0x90, 0xee, 0x90, 0xff},
		{0x28, 0xa7, 0x45, 0xff},
	}
	// supportColors marks the three ordinals that qualify for support.
	supportColors = []color.RGBA{
		{0xdc, 0x35, 0x45, 0xff},
		{0xff, 0x6b, 0x6b, 0xff},
		{0xff, 0x8c, 0x00, 0xff},
	}
)

// NoSupportText is shown in the support overview when every subdomain scores
// above the support threshold.
const NoSupportText = "Gefeliciteerd! Alle scores zijn hoger dan 3.\nGeen ondersteuning nodig."

func ordinalColor(o int) color.RGBA {
	if o < 1 || o > len(ordinalColors) {
		return colorGrid
	}
	return ordinalColors[o-1]
}

func supportColor(o int) color.RGBA {
	if o < 1 || o > len(supportColors) {
		return colorGrid
	}
	return supportColors[o-1]
}

type column struct {
	title string
	width float64
}

// table lays out a header row and a fixed row height across the canvas.
type table struct {
	dc    *gg.Context
	cols  []column
	x, w  float64
	top   float64
	rowH  float64
	lineH float64
}

func (r *Renderer) newTable(dc *gg.Context, cols []column, lines int) *table {
	lineH := float64(r.face.Metrics().Height.Ceil()) + 3
	return &table{
		dc:    dc,
		cols:  cols,
		x:     margin,
		w:     float64(r.width) - 2*margin,
		top:   margin * 2,
		rowH:  float64(lines)*lineH + rowGap,
		lineH: lineH,
	}
}

func (t *table) header() {
	t.dc.SetColor(colorHeader)
	t.dc.DrawRectangle(t.x, t.top, t.w, t.lineH+rowGap)
	t.dc.Fill()
	x := t.x
	t.dc.SetColor(colorBackground)
	for _, c := range t.cols {
		t.dc.DrawStringAnchored(c.title, x+6, t.top+(t.lineH+rowGap)/2, 0, 0.4)
		x += c.width * t.w
	}
}

// rowTop is the top edge of row i below the header.
func (t *table) rowTop(i int) float64 {
	return t.top + t.lineH + rowGap + float64(i)*t.rowH
}

// cell fills column k of row i with bg and writes the wrapped text.
func (t *table) cell(i, k int, text string, bg, fg color.Color) {
	x := t.x
	for _, c := range t.cols[:k] {
		x += c.width * t.w
	}
	cw := t.cols[k].width * t.w
	y := t.rowTop(i)
	t.dc.SetColor(bg)
	t.dc.DrawRectangle(x, y, cw, t.rowH)
	t.dc.Fill()

	maxLines := max(int((t.rowH-rowGap)/t.lineH), 1)
	lines := t.dc.WordWrap(text, cw-12)
	if len(lines) > maxLines {
		lines = lines[:maxLines]
		lines[maxLines-1] = truncate(t.dc, lines[maxLines-1]+" ...", cw-12)
	}
	t.dc.SetColor(fg)
	offset := (t.rowH - float64(len(lines))*t.lineH) / 2
	for l, line := range lines {
		t.dc.DrawStringAnchored(line, x+6, y+offset+(float64(l)+0.5)*t.lineH, 0, 0.4)
	}
}

func rowColor(i int) color.RGBA {
	if i%2 == 0 {
		return colorRowEven
	}
	return colorRowOdd
}

// drawSubdomainTable lists every answered subdomain with its domain and a
// score cell coloured on the fixed 1..5 scale.
func (r *Renderer) drawSubdomainTable(dc *gg.Context, res *model.AnalyticsResult) {
	drawTitle(dc, "Scores per subdomein")

	t := r.newTable(dc, []column{
		{"#", 0.07},
		{"Domein", 0.28},
		{"Subdomein", 0.45},
		{"Score", 0.20},
	}, 1)
	if n := len(res.Answers); n > 0 {
		if fit := (float64(r.height) - margin - t.rowTop(0)) / float64(n); fit < t.rowH {
			t.rowH = max(fit, t.lineH)
		}
	}
	t.header()
	for i, a := range res.Answers {
		bg := rowColor(i)
		t.cell(i, 0, fmt.Sprintf("%d", i+1), bg, colorText)
		t.cell(i, 1, string(a.Theme), bg, themeColor(themeIndex(a.Theme)))
		t.cell(i, 2, a.Subdomain, bg, colorText)
		t.cell(i, 3, fmt.Sprintf("%d", a.Ordinal), ordinalColor(a.Ordinal), colorText)
	}
}

// drawSupportOverview tabulates the support offered for every subdomain that
// scored 3 or lower.
func (r *Renderer) drawSupportOverview(dc *gg.Context, res *model.AnalyticsResult) {
	w, h := float64(r.width), float64(r.height)
	drawTitle(dc, "Ondersteuningsoverzicht")

	if len(res.Recommendations) == 0 {
		dc.SetColor(colorAccent)
		dc.DrawStringWrapped(NoSupportText, w/2, h/2, 0.5, 0.5, w-2*margin, 1.6, gg.AlignCenter)
		return
	}

	t := r.newTable(dc, []column{
		{"Subdomein", 0.24},
		{"Type", 0.16},
		{"Omschrijving", 0.48},
		{"Score", 0.12},
	}, 3)
	t.header()
	maxRows := int((h - t.rowTop(0) - margin/2) / t.rowH)
	for i, rec := range res.Recommendations {
		if i >= maxRows {
			dc.SetColor(colorMuted)
			dc.DrawStringAnchored(fmt.Sprintf("+ %d meer", len(res.Recommendations)-i), margin, h-margin/4, 0, 0.5)
			break
		}
		bg := rowColor(i)
		t.cell(i, 0, rec.Subdomain, bg, colorText)
		t.cell(i, 1, rec.SupportType, bg, colorText)
		t.cell(i, 2, rec.Support, bg, colorText)
		t.cell(i, 3, fmt.Sprintf("%d", rec.Ordinal), supportColor(rec.Ordinal), colorBackground)
	}
}
