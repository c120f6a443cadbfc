package presentation

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const (
	nsRelationships = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsDrawing       = "http://schemas.openxmlformats.org/drawingml/2006/main"
	relTypeImage    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
	pkgRelNamespace = "http://schemas.openxmlformats.org/package/2006/relationships"
)

var (
	paragraphRe  = regexp.MustCompile(`(?s)<a:p(?:\s[^>]*)?>.*?</a:p>`)
	runRe        = regexp.MustCompile(`(?s)<a:r>.*?</a:r>`)
	runTextRe    = regexp.MustCompile(`(?s)<a:t(?:\s[^>]*)?>(.*?)</a:t>`)
	runPropsRe   = regexp.MustCompile(`(?s)<a:rPr\b[^>]*/>|<a:rPr\b[^>]*>.*?</a:rPr>`)
	relIDRe      = regexp.MustCompile(`Id="rId(\d+)"`)
	shapeIDRe    = regexp.MustCompile(`<p:cNvPr\b[^>]*\bid="(\d+)"`)
	pngDefaultRe = regexp.MustCompile(`(?i)<Default\b[^>]*\bExtension="png"`)
	slideRootRe  = regexp.MustCompile(`<p:sld\b`)
)

// replaceText substitutes placeholders paragraph by paragraph. pairs holds
// placeholder, value pairs. A placeholder may be split across runs; only the
// runs it spans are merged, into one run that keeps the formatting of the
// first. Breaks, fields and other runs are kept. It reports whether anything
// changed.
func replaceText(slide []byte, pairs []string) ([]byte, bool) {
	subs := make([]substitution, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i] != "" {
			subs = append(subs, substitution{old: pairs[i], new: pairs[i+1]})
		}
	}
	if len(subs) == 0 {
		return slide, false
	}
	sort.SliceStable(subs, func(i, j int) bool { return len(subs[i].old) > len(subs[j].old) })

	changed := false
	out := paragraphRe.ReplaceAllFunc(slide, func(p []byte) []byte {
		np, ok := replaceParagraph(p, subs)
		if ok {
			changed = true
		}
		return np
	})
	return out, changed
}

type substitution struct {
	old, new string
}

// textRun is one <a:r> of a paragraph: its byte range and unescaped text.
type textRun struct {
	start, end int
	text       string
}

// match is one placeholder occurrence within a run group.
type match struct {
	start, end int // offsets in the joined text
	sub        substitution
}

func replaceParagraph(p []byte, subs []substitution) ([]byte, bool) {
	locs := runRe.FindAllIndex(p, -1)
	if len(locs) == 0 {
		return p, false
	}
	runs := make([]textRun, len(locs))
	for i, loc := range locs {
		var text strings.Builder
		for _, m := range runTextRe.FindAllSubmatch(p[loc[0]:loc[1]], -1) {
			text.WriteString(html.UnescapeString(string(m[1])))
		}
		runs[i] = textRun{start: loc[0], end: loc[1], text: text.String()}
	}

	var b bytes.Buffer
	last := 0
	changed := false
	for _, group := range runGroups(p, runs) {
		for _, span := range spans(group, subs) {
			first, end := group[span.from], group[span.to]
			b.Write(p[last:first.start])
			writeRuns(&b, runPropsRe.Find(p[first.start:first.end]), span.text)
			last = end.end
			changed = true
		}
	}
	if !changed {
		return p, false
	}
	b.Write(p[last:])
	return b.Bytes(), true
}

// runGroups splits runs into groups separated by anything but whitespace,
// such as <a:br> or <a:fld>. A placeholder never crosses a group.
func runGroups(p []byte, runs []textRun) [][]textRun {
	var groups [][]textRun
	cur := []textRun{runs[0]}
	for _, r := range runs[1:] {
		if len(bytes.TrimSpace(p[cur[len(cur)-1].end:r.start])) != 0 {
			groups = append(groups, cur)
			cur = nil
		}
		cur = append(cur, r)
	}
	return append(groups, cur)
}

// runSpan is a range of runs in a group rewritten as text.
type runSpan struct {
	from, to int
	text     string
}

// spans finds the placeholders in group and returns the run ranges they
// cover, with overlapping ranges joined and their text substituted.
func spans(group []textRun, subs []substitution) []runSpan {
	offsets := make([]int, len(group))
	var joined strings.Builder
	for i, r := range group {
		offsets[i] = joined.Len()
		joined.WriteString(r.text)
	}
	text := joined.String()

	var matches []match
	for pos := 0; pos < len(text); {
		found := false
		for _, s := range subs {
			if strings.HasPrefix(text[pos:], s.old) {
				matches = append(matches, match{start: pos, end: pos + len(s.old), sub: s})
				pos += len(s.old)
				found = true
				break
			}
		}
		if !found {
			pos++
		}
	}
	if len(matches) == 0 {
		return nil
	}

	runAt := func(off int) int {
		return sort.Search(len(offsets), func(i int) bool { return offsets[i] > off }) - 1
	}
	var out []runSpan
	var cur []match
	from, to := -1, -1
	flush := func() {
		if len(cur) == 0 {
			return
		}
		base := offsets[from]
		limit := offsets[to] + len(group[to].text)
		var sb strings.Builder
		pos := base
		for _, m := range cur {
			sb.WriteString(text[pos:m.start])
			sb.WriteString(m.sub.new)
			pos = m.end
		}
		sb.WriteString(text[pos:limit])
		out = append(out, runSpan{from: from, to: to, text: sb.String()})
		cur = nil
	}
	for _, m := range matches {
		a, z := runAt(m.start), runAt(m.end-1)
		if len(cur) > 0 && a <= to {
			if z > to {
				to = z
			}
		} else {
			flush()
			from, to = a, z
		}
		cur = append(cur, m)
	}
	flush()
	return out
}

// writeRuns writes text as runs with props, turning newlines into <a:br>.
func writeRuns(b *bytes.Buffer, props []byte, text string) {
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			b.WriteString("<a:br>")
			b.Write(props)
			b.WriteString("</a:br>")
		}
		b.WriteString("<a:r>")
		b.Write(props)
		b.WriteString(`<a:t>`)
		_ = xml.EscapeText(b, []byte(line))
		b.WriteString("</a:t></a:r>")
	}
}

// nextID returns one more than the largest numeric id matched by re.
func nextID(doc []byte, re *regexp.Regexp) int {
	maxID := 0
	for _, m := range re.FindAllSubmatch(doc, -1) {
		if n, err := strconv.Atoi(string(m[1])); err == nil && n > maxID {
			maxID = n
		}
	}
	return maxID + 1
}

// emptyRels is a relationships part for slides that have none yet.
func emptyRels() []byte {
	return []byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n" +
		`<Relationships xmlns="` + pkgRelNamespace + `"></Relationships>`)
}

// addImageRel appends an image relationship and returns its id.
func addImageRel(rels []byte, target string) ([]byte, string, error) {
	end := bytes.LastIndex(rels, []byte("</Relationships>"))
	if end < 0 {
		return nil, "", fmt.Errorf("no </Relationships>")
	}
	id := "rId" + strconv.Itoa(nextID(rels, relIDRe))
	rel := fmt.Sprintf(`<Relationship Id="%s" Type="%s" Target="%s"/>`, id, relTypeImage, target)
	return splice(rels, end, rel), id, nil
}

// addPicture inserts a picture shape at the end of the slide shape tree.
func addPicture(slide []byte, relID, name string, slot ChartSlot) ([]byte, error) {
	end := bytes.LastIndex(slide, []byte("</p:spTree>"))
	if end < 0 {
		return nil, fmt.Errorf("no <p:spTree>")
	}
	x, y, cx, cy := slot.emu()
	pic := fmt.Sprintf(`<p:pic><p:nvPicPr><p:cNvPr id="%d" name="%s"/>`+
		`<p:cNvPicPr><a:picLocks noChangeAspect="1"/></p:cNvPicPr><p:nvPr/></p:nvPicPr>`+
		`<p:blipFill><a:blip r:embed="%s"/><a:stretch><a:fillRect/></a:stretch></p:blipFill>`+
		`<p:spPr><a:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></a:xfrm>`+
		`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr></p:pic>`,
		nextID(slide, shapeIDRe), html.EscapeString(name), relID, x, y, cx, cy)
	slide = splice(slide, end, pic)
	return ensureNamespaces(slide), nil
}

// ensureNamespaces declares the r: and a: prefixes on the slide root when
// the template omitted them.
func ensureNamespaces(slide []byte) []byte {
	loc := slideRootRe.FindIndex(slide)
	if loc == nil {
		return slide
	}
	var decl string
	if !bytes.Contains(slide, []byte(`xmlns:r=`)) {
		decl += ` xmlns:r="` + nsRelationships + `"`
	}
	if !bytes.Contains(slide, []byte(`xmlns:a=`)) {
		decl += ` xmlns:a="` + nsDrawing + `"`
	}
	if decl == "" {
		return slide
	}
	return splice(slide, loc[1], decl)
}

// ensurePNGDefault registers the png content type once.
func ensurePNGDefault(types []byte) ([]byte, error) {
	if pngDefaultRe.Match(types) {
		return types, nil
	}
	end := bytes.LastIndex(types, []byte("</Types>"))
	if end < 0 {
		return nil, fmt.Errorf("no </Types>")
	}
	return splice(types, end, `<Default Extension="png" ContentType="image/png"/>`), nil
}

// splice returns a copy of doc with s inserted at i.
func splice(doc []byte, i int, s string) []byte {
	out := make([]byte, 0, len(doc)+len(s))
	out = append(out, doc[:i]...)
	out = append(out, s...)
	return append(out, doc[i:]...)
}
