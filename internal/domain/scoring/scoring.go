// Package scoring turns a raw lead payload into the analytics used by the
// chart renderer and the template filler.
package scoring

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/okian/leadscore/internal/domain/model"
)

// totalTolerance is the allowed gap between Total_Sum and the domain sums
// before a data-quality warning is raised.
const totalTolerance = 0.5

// validate checks the decoded payload; errors are reported by wire name.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// identity holds the required text fields.
type identity struct {
	Email        string `json:"Email" validate:"required"`
	Organization string `json:"Organization" validate:"required"`
	FirstName    string `json:"First_Name" validate:"required"`
	LastName     string `json:"Last_Name" validate:"required"`
	LeadID       string `json:"Lead_ID" validate:"required"`
}

// sums holds the numeric fields once parsed.
type sums struct {
	Domain1 float64 `json:"Domain_1_Sum" validate:"gte=0"`
	Domain2 float64 `json:"Domain_2_Sum" validate:"gte=0"`
	Domain3 float64 `json:"Domain_3_Sum" validate:"gte=0"`
	Domain4 float64 `json:"Domain_4_Sum" validate:"gte=0"`
	Total   float64 `json:"Total_Sum" validate:"gte=0"`
}

// Normalize validates raw and derives the analytics record. It is pure: the
// same mapping always yields the same result. Every offending field is
// reported in a single *ValidationError.
func Normalize(raw map[string]any) (*model.AnalyticsResult, error) {
	verr := &ValidationError{}

	id := identity{
		Email:        textField(raw, "Email", verr),
		Organization: textField(raw, "Organization", verr),
		FirstName:    textField(raw, "First_Name", verr),
		LastName:     textField(raw, "Last_Name", verr),
		LeadID:       textField(raw, "Lead_ID", verr),
	}
	collect(validate.Struct(id), verr)

	var domainSums [4]float64
	for i, d := range domainFields {
		domainSums[i] = numericField(raw, d.field, verr)
	}
	total := numericField(raw, totalField, verr)
	collect(validate.Struct(sums{
		Domain1: domainSums[0],
		Domain2: domainSums[1],
		Domain3: domainSums[2],
		Domain4: domainSums[3],
		Total:   total,
	}), verr)

	if len(verr.Fields) > 0 {
		return nil, verr
	}

	lead := model.LeadRecord{
		Email:        id.Email,
		Organization: id.Organization,
		FirstName:    id.FirstName,
		LastName:     id.LastName,
		LeadID:       id.LeadID,
		CreatedTime:  optionalText(raw, "Created_Time"),
		DomainSums:   domainSums,
		TotalSum:     total,
	}

	res := &model.AnalyticsResult{
		Lead:           lead,
		RespondentName: strings.TrimSpace(lead.FirstName + " " + lead.LastName),
		Phase:          PhaseFor(total),
	}

	var domainTotal float64
	for i, d := range domainFields {
		score := domainSums[i]
		domainTotal += score
		res.Domains = append(res.Domains, model.DomainScore{
			Index:  i + 1,
			Theme:  d.theme,
			Score:  score,
			Rating: Rating(score),
		})
	}
	if math.Abs(domainTotal-total) > totalTolerance {
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"Total_Sum %s differs from the sum of domain sums %s",
			model.FormatScore(total), model.FormatScore(domainTotal)))
	}

	var low []string
	for _, q := range questions {
		text := optionalText(raw, q.field)
		ord := Ordinal(text)
		if text == "" {
			ord = numericOrdinal(raw[q.field+"_Numeric"])
		}
		res.Answers = append(res.Answers, model.Answer{
			Field:     q.field,
			Theme:     q.theme,
			Subdomain: q.subdomain,
			Keyword:   q.keyword,
			Text:      text,
			Ordinal:   ord,
		})
		if ord == 1 || ord == 2 {
			low = append(low, fmt.Sprintf("%s: %d", q.keyword, ord))
		}
		if s, ok := support[ord]; ok {
			res.Recommendations = append(res.Recommendations, model.Recommendation{
				Theme:       q.theme,
				Subdomain:   q.subdomain,
				Ordinal:     ord,
				Advice:      advice[adviceKey{q.subdomain, ord}],
				Support:     s.text,
				SupportType: s.kind,
			})
		}
	}
	if len(low) == 0 {
		res.LowestScoring = "Geen lage scores"
	} else {
		res.LowestScoring = strings.Join(low, ", ")
	}

	return res, nil
}

// PhaseFor maps a total score onto its maturity phase.
func PhaseFor(total float64) model.Phase {
	t := int(math.Floor(total))
	if t < 0 {
		return unknownPhase
	}
	for _, p := range phases {
		if t <= p.Max {
			return p
		}
	}
	return unknownPhase
}

// Rating maps a domain sum (0..10) onto the 0..5 answer scale.
func Rating(score float64) float64 {
	r := score / model.DomainMax * model.MaxOrdinal
	return math.Max(0, math.Min(model.MaxOrdinal, r))
}

// Ordinal extracts the leading rank digits of an answer such as
// "4. Breed gedragen visie". Text without a leading number yields 0.
// Values above the answer scale are clamped.
func Ordinal(answer string) int {
	s := strings.TrimSpace(answer)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return min(n, model.MaxOrdinal)
}

func numericOrdinal(v any) int {
	s, ok := scalar(v)
	if !ok || s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || math.IsNaN(f) {
		return 0
	}
	return min(int(f), model.MaxOrdinal)
}

// textField returns the cleaned value of a required text field. Emptiness is
// left to the validator.
func textField(raw map[string]any, key string, verr *ValidationError) string {
	v, present := raw[key]
	if !present || v == nil {
		return ""
	}
	s, ok := scalar(v)
	if !ok {
		verr.add(key, "must be a text value")
		return ""
	}
	return CleanText(s)
}

func optionalText(raw map[string]any, key string) string {
	s, ok := scalar(raw[key])
	if !ok {
		return ""
	}
	return CleanText(s)
}

// numericField parses an optional number; absent or empty means 0.
func numericField(raw map[string]any, key string, verr *ValidationError) float64 {
	s, ok := scalar(raw[key])
	if !ok {
		verr.add(key, "must be numeric")
		return 0
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		verr.add(key, "must be numeric")
		return 0
	}
	return f
}

// scalar renders JSON scalars as text. Objects and arrays are rejected.
func scalar(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", true
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

// collect folds validator errors into verr.
func collect(err error, verr *ValidationError) {
	if err == nil {
		return
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		verr.add("payload", err.Error())
		return
	}
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			verr.add(fe.Field(), "is required")
		case "gte":
			verr.add(fe.Field(), "must not be negative")
		default:
			verr.add(fe.Field(), "is invalid")
		}
	}
}
