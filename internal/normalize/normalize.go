// Package normalize canonicalizes raw record fields before validation
// and resolution. Every change is recorded so dry-runs can show callers
// exactly what the engine rewrote.
package normalize

import (
	"strings"
	"time"

	"github.com/emerginginv/trace-aid-sub011/internal/domain"
)

// Rule names recorded on NormalizationChange entries.
const (
	RuleTrim      = "trim"
	RuleEmail     = "email_lowercase"
	RulePhone     = "phone_digits"
	RuleDate      = "date_iso8601"
	RuleStateCode = "state_code"
)

// dateLayouts are the accepted external date spellings, tried in order.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006",
	"1/2/2006",
	"2006/01/02",
	"January 2, 2006",
	"Jan 2, 2006",
}

var stateCodes = map[string]string{
	"alabama": "AL", "alaska": "AK", "arizona": "AZ", "arkansas": "AR",
	"california": "CA", "colorado": "CO", "connecticut": "CT",
	"delaware": "DE", "florida": "FL", "georgia": "GA", "hawaii": "HI",
	"idaho": "ID", "illinois": "IL", "indiana": "IN", "iowa": "IA",
	"kansas": "KS", "kentucky": "KY", "louisiana": "LA", "maine": "ME",
	"maryland": "MD", "massachusetts": "MA", "michigan": "MI",
	"minnesota": "MN", "mississippi": "MS", "missouri": "MO",
	"montana": "MT", "nebraska": "NE", "nevada": "NV",
	"new hampshire": "NH", "new jersey": "NJ", "new mexico": "NM",
	"new york": "NY", "north carolina": "NC", "north dakota": "ND",
	"ohio": "OH", "oklahoma": "OK", "oregon": "OR", "pennsylvania": "PA",
	"rhode island": "RI", "south carolina": "SC", "south dakota": "SD",
	"tennessee": "TN", "texas": "TX", "utah": "UT", "vermont": "VT",
	"virginia": "VA", "washington": "WA", "west virginia": "WV",
	"wisconsin": "WI", "wyoming": "WY",
	"district of columbia": "DC",
}

// Result holds the normalized field bag plus the audit of what changed.
type Result struct {
	Fields  map[string]any
	Changes []domain.NormalizationChange
}

// Record builds a normalized copy of a raw field bag. The input map is
// never mutated. Non-string values pass through unchanged.
func Record(data map[string]any) Result {
	out := Result{Fields: make(map[string]any, len(data))}

	for field, value := range data {
		s, ok := value.(string)
		if !ok {
			out.Fields[field] = value
			continue
		}

		normalized, rule := normalizeField(field, s)
		out.Fields[field] = normalized
		if normalized != s {
			out.Changes = append(out.Changes, domain.NormalizationChange{
				Field:      field,
				Original:   s,
				Normalized: normalized,
				Rule:       rule,
			})
		}
	}

	return out
}

func normalizeField(field, value string) (string, string) {
	trimmed := strings.TrimSpace(value)

	switch {
	case isEmailField(field):
		return strings.ToLower(trimmed), RuleEmail
	case isPhoneField(field):
		if p, ok := normalizePhone(trimmed); ok {
			return p, RulePhone
		}
	case isDateField(field):
		if d, ok := normalizeDate(trimmed); ok {
			return d, RuleDate
		}
	case isStateField(field):
		if code, ok := normalizeState(trimmed); ok {
			return code, RuleStateCode
		}
	}

	return trimmed, RuleTrim
}

func isEmailField(field string) bool {
	return field == "email" || strings.HasSuffix(field, "_email")
}

func isPhoneField(field string) bool {
	return field == "phone" || strings.HasSuffix(field, "_phone")
}

func isDateField(field string) bool {
	return strings.HasSuffix(field, "_at") ||
		strings.HasSuffix(field, "_date") ||
		field == "date_of_birth"
}

func isStateField(field string) bool {
	return field == "state" || strings.HasSuffix(field, "_state")
}

// normalizePhone keeps digits plus an optional leading +. Values with
// fewer than 7 digits are left alone; they are more likely extensions
// or garbage than numbers worth rewriting.
func normalizePhone(s string) (string, bool) {
	var b strings.Builder
	for i, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else if r == '+' && i == 0 {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(strings.TrimPrefix(digits, "+")) < 7 {
		return "", false
	}
	return digits, true
}

// normalizeDate parses the accepted layouts and renders RFC 3339, date
// only when the source carried no time of day.
func normalizeDate(s string) (string, bool) {
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if layout == "2006-01-02" || layout == "01/02/2006" || layout == "1/2/2006" ||
			layout == "2006/01/02" || layout == "January 2, 2006" || layout == "Jan 2, 2006" {
			return t.Format("2006-01-02"), true
		}
		return t.UTC().Format(time.RFC3339), true
	}
	return "", false
}

func normalizeState(s string) (string, bool) {
	if len(s) == 2 {
		upper := strings.ToUpper(s)
		if upper != s {
			return upper, true
		}
		return s, true
	}
	code, ok := stateCodes[strings.ToLower(s)]
	return code, ok
}
