package fines

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/fineprocessing/fines-processor/internal/gemini"
)

// NormalizationResult pairs the canonical updates with every validation
// failure found along the way. A non-empty error list means the job must
// fail; partially valid data is never persisted as processed.
type NormalizationResult struct {
	Updates          NormalizedUpdates
	ValidationErrors []string
}

var (
	isoDateRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	dmyDateRegex = regexp.MustCompile(`^(\d{2})[/-](\d{2})[/-](\d{4})$`)
)

// NormalizeDate converts a date string to ISO YYYY-MM-DD. Inputs already
// in ISO form pass through; DD/MM/YYYY and DD-MM-YYYY are reordered.
// Calendar-invalid dates (31/02) are rejected by round-tripping through
// a UTC parse and requiring the serialized form to match.
func NormalizeDate(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if isoDateRegex.MatchString(trimmed) {
		if roundTripsISO(trimmed) {
			return trimmed
		}
		return ""
	}

	m := dmyDateRegex.FindStringSubmatch(trimmed)
	if m == nil {
		return ""
	}
	iso := m[3] + "-" + m[2] + "-" + m[1]
	if !roundTripsISO(iso) {
		return ""
	}
	return iso
}

func roundTripsISO(iso string) bool {
	t, err := time.ParseInLocation("2006-01-02", iso, time.UTC)
	if err != nil {
		return false
	}
	return t.Format("2006-01-02") == iso
}

// Normalize maps an extraction result into the canonical update shape.
// Pure: same input, same output, no hidden state. The raw extraction
// JSON is always carried as the ai_analysis audit field, valid or not.
func Normalize(extracted gemini.TrafficFine, raw json.RawMessage) NormalizationResult {
	var validationErrors []string

	fineNumber := ""
	if extracted.FineIdentifiers != nil {
		fineNumber = strings.TrimSpace(extracted.FineIdentifiers.FineNumber)
	}
	if fineNumber == "" {
		validationErrors = append(validationErrors, "fine_number is required")
	}

	var fineAmount *float64
	if extracted.Penalty != nil && extracted.Penalty.BaseAmountEUR != nil {
		v := *extracted.Penalty.BaseAmountEUR
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			fineAmount = &v
		}
	}
	if fineAmount == nil {
		validationErrors = append(validationErrors, "fine_amount must be a finite number")
	}

	rawDate := ""
	if extracted.NoticeDates != nil {
		rawDate = extracted.NoticeDates.InfractionDate
	}
	fineDate := ""
	if rawDate != "" {
		fineDate = NormalizeDate(rawDate)
	}
	if fineDate == "" {
		validationErrors = append(validationErrors, "fine_date is required and must be parseable")
	}

	var locationParts []string
	if extracted.Location != nil {
		for _, v := range []string{
			extracted.Location.StreetName,
			extracted.Location.City,
			extracted.Location.DepartmentCode,
			extracted.Location.Country,
		} {
			if t := strings.TrimSpace(v); t != "" {
				locationParts = append(locationParts, t)
			}
		}
	}
	var location *string
	if len(locationParts) > 0 {
		joined := strings.Join(locationParts, ", ")
		location = &joined
	}

	var violationType *string
	if extracted.Infraction != nil {
		if t := strings.TrimSpace(extracted.Infraction.InfractionCategory); t != "" {
			violationType = &t
		}
	}

	return NormalizationResult{
		Updates: NormalizedUpdates{
			AIAnalysis:    raw,
			FineNumber:    nonEmpty(fineNumber),
			FineAmount:    fineAmount,
			FineDate:      nonEmpty(fineDate),
			Location:      location,
			ViolationType: violationType,
		},
		ValidationErrors: validationErrors,
	}
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
