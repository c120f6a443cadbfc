// Package model contains domain models passed between layers.
package model

import (
	"strconv"
)

// Theme groups two questionnaire answers under one scoring domain.
type Theme string

// Themes in questionnaire order.
const (
	ThemeGovernance Theme = "Governance"
	ThemeStructure  Theme = "Structuur"
	ThemeProcess    Theme = "Proces"
	ThemeOutcomes   Theme = "Uitkomsten & sturing"
)

// MaxOrdinal is the top of the answer scale; DomainMax and TotalMax follow
// from two answers per domain and four domains.
const (
	MaxOrdinal = 5
	DomainMax  = 10
	TotalMax   = 40
)

// LeadRecord is the validated identity and scoring input of one request.
type LeadRecord struct {
	Email        string
	Organization string
	FirstName    string
	LastName     string
	LeadID       string
	CreatedTime  string

	// DomainSums holds Domain_1_Sum..Domain_4_Sum in theme order.
	DomainSums [4]float64
	TotalSum   float64
}

// Answer is one categorical questionnaire answer.
type Answer struct {
	Field     string // payload field, e.g. Governance_Q1
	Theme     Theme
	Subdomain string
	Keyword   string
	Text      string // display text, may be empty
	Ordinal   int    // leading rank digit, 0 when absent or unparseable
}

// DomainScore is one row of the domain overview.
type DomainScore struct {
	Index  int
	Theme  Theme
	Score  float64
	Rating float64 // Score mapped onto 0..MaxOrdinal
}

// Phase is the maturity phase derived from the total score.
type Phase struct {
	Index int // -1 when the total is outside the known ranges
	Name  string
	Range string
	Focus string
	Min   int // inclusive total score bounds
	Max   int
}

// Recommendation is advice for a subdomain that scored 3 or lower.
type Recommendation struct {
	Theme       Theme
	Subdomain   string
	Ordinal     int
	Advice      string
	Support     string
	SupportType string
}

// AnalyticsResult is the request-scoped outcome of normalization. It is
// never persisted.
type AnalyticsResult struct {
	Lead            LeadRecord
	RespondentName  string
	ReportDate      string // set by the pipeline, empty leaves the slot untouched
	Domains         []DomainScore
	Answers         []Answer
	Phase           Phase
	LowestScoring   string
	Recommendations []Recommendation
	Warnings        []string
}

// HasChartableData reports whether any score is non-zero.
func (r *AnalyticsResult) HasChartableData() bool {
	if r == nil {
		return false
	}
	for _, d := range r.Domains {
		if d.Score > 0 {
			return true
		}
	}
	for _, a := range r.Answers {
		if a.Ordinal > 0 {
			return true
		}
	}
	return r.Lead.TotalSum > 0
}

// TextValues returns the data keys available to template text slots. Keys
// whose value is unknown are omitted so their slots stay untouched.
func (r *AnalyticsResult) TextValues() map[string]string {
	v := map[string]string{
		"organization":    r.Lead.Organization,
		"email":           r.Lead.Email,
		"first_name":      r.Lead.FirstName,
		"last_name":       r.Lead.LastName,
		"lead_id":         r.Lead.LeadID,
		"respondent_name": r.RespondentName,
		"total_score":     FormatScore(r.Lead.TotalSum),
		"phase_name":      r.Phase.Name,
		"lowest_scoring":  r.LowestScoring,
	}
	if r.Lead.CreatedTime != "" {
		v["created_time"] = r.Lead.CreatedTime
	}
	if r.ReportDate != "" {
		v["report_date"] = r.ReportDate
	}
	for _, d := range r.Domains {
		v["domain_"+strconv.Itoa(d.Index)+"_score"] = FormatScore(d.Score)
	}
	for _, a := range r.Answers {
		if a.Text != "" {
			v[a.Field] = a.Text
		}
	}
	return v
}

// FormatScore renders whole numbers without decimals and keeps up to two
// decimals otherwise.
func FormatScore(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}
