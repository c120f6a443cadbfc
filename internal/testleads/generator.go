package testleads

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/okian/leadscore/internal/testutil"
)

// questions lists the answer fields per domain in payload order.
var questions = [4][2]string{
	{"Governance_Q1", "Governance_Q2"},
	{"Structuur_Q1", "Structuur_Q2"},
	{"Proces_Q1", "Proces_Q2"},
	{"Uitkomsten_en_sturing_Q1", "Uitkomsten_en_sturing_Q2"},
}

// LoadPayload reads a lead from path, or returns the built-in sample when
// path is empty.
func LoadPayload(path string) (map[string]any, error) {
	if path == "" {
		return testutil.SamplePayload(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var p map[string]any
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode payload %s: %w", path, err)
	}
	return p, nil
}

// Generate derives n leads from base. Lead i gets the answer ordinals
// 1 + (i + 3q) mod 5 for question q, with domain and total sums that add up.
// With an empty prefix and n == 1 the base lead is returned unchanged.
func Generate(base map[string]any, n int, prefix string) []map[string]any {
	if n <= 0 {
		return nil
	}
	if n == 1 && prefix == "" {
		return []map[string]any{clone(base)}
	}
	if prefix == "" {
		prefix = "smoke"
	}
	out := make([]map[string]any, n)
	for i := range out {
		p := clone(base)
		p["Lead_ID"] = prefix + "-" + strconv.Itoa(i+1)
		total := 0
		for d, pair := range questions {
			sum := 0
			for j, field := range pair {
				q := d*2 + j
				ord := 1 + (i+3*q)%5
				sum += ord
				p[field] = strconv.Itoa(ord) + ". " + answerText(base[field])
				p[field+"_Numeric"] = strconv.Itoa(ord)
			}
			p["Domain_"+strconv.Itoa(d+1)+"_Sum"] = strconv.Itoa(sum)
			total += sum
		}
		p["Total_Sum"] = strconv.Itoa(total)
		out[i] = p
	}
	return out
}

// answerText strips the leading "N. " rank from an answer.
func answerText(v any) string {
	s, _ := v.(string)
	s = strings.TrimLeft(s, "0123456789")
	s = strings.TrimSpace(strings.TrimPrefix(s, "."))
	if s == "" {
		return "Antwoord"
	}
	return s
}

func clone(m map[string]any) map[string]any {
	c := make(map[string]any, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
