package store

import (
	"fmt"
	"time"
)

const microsPerDay = int64(24 * time.Hour / time.Microsecond)

// DateDaysFromTS converts a ts_local_us value to the number of days since
// the Unix epoch (the date32 physical representation), treating the value
// as UTC microseconds the way the source engine's ts_to_date does.
func DateDaysFromTS(tsLocalUS int64) int32 {
	t := time.UnixMicro(tsLocalUS).UTC()
	y, m, d := t.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return int32(dayStart.Unix() / 86400)
}

// ParseDateDays parses a "YYYY-MM-DD" string into days-since-epoch.
func ParseDateDays(s string) (int32, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return 0, fmt.Errorf("store: invalid date %q: %w", s, err)
	}
	return int32(t.Unix() / 86400), nil
}

// formatDateDays renders days-since-epoch as "YYYY-MM-DD", the partition
// directory name format.
func formatDateDays(days int32) string {
	t := time.Unix(int64(days)*86400, 0).UTC()
	return t.Format("2006-01-02")
}

// DateBoundsTS returns the first (endOfDay=false) or last (endOfDay=true)
// ts_local_us microsecond of the calendar day identified by days.
func DateBoundsTS(days int32, endOfDay bool) int64 {
	base := int64(days) * microsPerDay
	if endOfDay {
		return base + microsPerDay - 1
	}
	return base
}
