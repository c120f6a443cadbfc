package testutil

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"sort"
)

const contentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/><Default Extension="xml" ContentType="application/xml"/><Override PartName="/ppt/presentation.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"/></Types>`

const rootRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="ppt/presentation.xml"/></Relationships>`

const presentation = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:presentation xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"/>`

const slideRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout" Target="../slideLayouts/slideLayout1.xml"/></Relationships>`

// Slide wraps paragraphs in a slide with one text box.
func Slide(paragraphs ...string) string {
	var body string
	for _, p := range paragraphs {
		body += p
	}
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"><p:cSld><p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/><p:sp><p:nvSpPr><p:cNvPr id="2" name="Tekst 1"/><p:cNvSpPr txBox="1"/><p:nvPr/></p:nvSpPr><p:spPr/><p:txBody><a:bodyPr/><a:lstStyle/>` +
		body + `</p:txBody></p:sp></p:spTree></p:cSld></p:sld>`
}

// Paragraph builds a paragraph with one run per text, all sharing rPr.
func Paragraph(rPr string, texts ...string) string {
	p := `<a:p><a:pPr algn="l"/>`
	for _, t := range texts {
		p += `<a:r>` + rPr + `<a:t>` + t + `</a:t></a:r>`
	}
	return p + `<a:endParaRPr lang="nl-NL"/></a:p>`
}

// TemplateParts returns the parts of a nine-slide report template. Slide 1
// splits {{organisatie}} across two runs with different formatting.
func TemplateParts() map[string]string {
	bold := `<a:rPr lang="nl-NL" sz="2800" b="1"/>`
	plain := `<a:rPr lang="nl-NL" sz="1800"/>`
	parts := map[string]string{
		"[Content_Types].xml":  contentTypes,
		"_rels/.rels":          rootRels,
		"ppt/presentation.xml": presentation,
	}
	slides := map[int]string{
		1: Slide(
			Paragraph(bold, "Rapport {{organi", "satie}}"),
			Paragraph(plain, "Datum: {{rapport_datum}}"),
			Paragraph(plain, "Respondent: {{respondent_naam}}"),
		),
		4: Slide(
			Paragraph(bold, "{{organisatie}}"),
			Paragraph(plain, "Totaalscore: {{totaalscore}} - {{transitiefase_naam}}"),
		),
		9: Slide(
			Paragraph(plain, "{{organisatie}} zit in fase {{transitiefase}}"),
			Paragraph(plain, "Aandacht voor: {{laagst_scorende_domein}}"),
			Paragraph(plain, "Onbekend veld: {{niet_bestaand}}"),
		),
	}
	for n := 1; n <= 9; n++ {
		s, ok := slides[n]
		if !ok {
			s = Slide(Paragraph(plain, fmt.Sprintf("Dia %d", n)))
		}
		parts[fmt.Sprintf("ppt/slides/slide%d.xml", n)] = s
		if n != 6 {
			parts[fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", n)] = slideRels
		}
	}
	return parts
}

// Template returns the report template fixture as PPTX bytes.
func Template() []byte {
	return Zip(TemplateParts())
}

// Zip packs parts into a zip archive in name order.
func Zip(parts map[string]string) []byte {
	names := make([]string, 0, len(parts))
	for n := range parts {
		names = append(names, n)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, n := range names {
		w, err := zw.Create(n)
		if err != nil {
			panic(err)
		}
		if _, err := io.WriteString(w, parts[n]); err != nil {
			panic(err)
		}
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// Unzip returns every part of a zip archive.
func Unzip(data []byte) (map[string][]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		out[f.Name] = b
	}
	return out, nil
}
