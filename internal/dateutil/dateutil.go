package dateutil

import "time"

const (
	// ISODate matches the <input type="date"> wire form used by form state.
	ISODate = "2006-01-02"
	// DisplayDate is the fixed display form records are stored with.
	DisplayDate = "02-Jan-2006"
	// Timestamp is the audit-column form for createdOn/modifiedOn.
	Timestamp = "02-Jan-2006 15:04:05"
)

// Today returns the device-local date in ISO form, the default value for
// date fields.
func Today(now time.Time) string {
	return now.Format(ISODate)
}

// FormatDisplayDate converts an ISO date string into DD-MMM-YYYY. Values that
// do not parse come back empty rather than erroring, matching how entry
// enrichment treats free-form input.
func FormatDisplayDate(value string) string {
	for _, layout := range []string{ISODate, DisplayDate, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(DisplayDate)
		}
	}
	return ""
}

// FormatTimestamp renders an audit timestamp.
func FormatTimestamp(now time.Time) string {
	return now.Format(Timestamp)
}
