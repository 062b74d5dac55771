package booking

import (
	"strings"
	"time"
)

// dateLayouts are tried in order against human-entered dates. Layouts
// without a year resolve to the next future occurrence.
var dateLayouts = []string{
	"2006-01-02",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
	"01/02/2006",
	"January 2",
	"Jan 2",
	"2 January",
	"2 Jan",
}

// normalizeDate converts a human-readable date into YYYY-MM-DD, best effort.
// Unparseable input passes through unchanged; downstream search simply fails
// and the user gets another chance.
func normalizeDate(value string, now time.Time) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return value
	}

	for _, layout := range dateLayouts {
		parsed, err := time.Parse(layout, trimmed)
		if err != nil {
			continue
		}
		if parsed.Year() == 0 {
			parsed = time.Date(now.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, now.Location())
			if parsed.Before(now.Truncate(24 * time.Hour)) {
				parsed = parsed.AddDate(1, 0, 0)
			}
		}
		return parsed.Format("2006-01-02")
	}
	return value
}
