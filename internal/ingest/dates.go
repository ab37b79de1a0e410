package ingest

import (
	"fmt"
	"strings"
	"time"
)

// noDate is what the scraper writes when a review shows no date
const noDate = "Дата не указана"

// dateLayouts are tried in order. Layouts without a zone are read as UTC.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999-0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
	"02.01.2006",
}

// ParseDate reads a review date from a dump. It returns nil without error
// for an empty or placeholder value, and nil with an error for a value no
// known layout accepts.
func ParseDate(raw string) (*time.Time, error) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" || cleaned == noDate {
		return nil, nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognized date %q", raw)
}
