package pipeline

import (
	"fmt"
	"strings"
	"time"
)

// Layouts the site renders for each date-bearing field.
var (
	uploadDateLayout = "02/01/06"

	testDateLayouts = []string{"01/2006", "02/01/2006", "01/06"}
)

// parseUploadDate parses the short dd/mm/yy upload date.
func parseUploadDate(raw string) (time.Time, error) {
	return time.Parse(uploadDateLayout, strings.TrimSpace(raw))
}

// parseTestDate tries the known test-expiry layouts in order.
func parseTestDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range testDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized test date %q", raw)
}

// parseOnRoadDate parses the mm/yyyy registration date, anchoring it to the
// first of the month. When the field is absent, the listing's summary year
// stands in, anchored to June of that year.
func parseOnRoadDate(raw, yearSummary string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw != "" {
		if t, err := time.Parse("02/01/2006", "01/"+raw); err == nil {
			return t, nil
		}
	}
	year := strings.TrimSpace(yearSummary)
	if year != "" {
		if t, err := time.Parse("02/01/2006", "01/06/"+year); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("no usable registration date (raw %q, year %q)", raw, yearSummary)
}

// monthsBetween counts whole calendar months from a to b. Day-of-month is
// ignored on purpose: the source data is month-granular.
func monthsBetween(a, b time.Time) float64 {
	return float64((b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month()))
}
