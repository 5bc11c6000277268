package timeutil

import (
	"time"
)

// IST is Indian Standard Time (UTC+5:30). Day-scoped identifier series and
// report windows are cut on IST calendar days.
var IST *time.Location

func init() {
	var err error
	IST, err = time.LoadLocation("Asia/Kolkata")
	if err != nil {
		IST = time.FixedZone("IST", 5*60*60+30*60)
	}
}

// Common layouts
const (
	DateLayout     = "2006-01-02"
	DayStampLayout = "02012006"
	DisplayLayout  = "02 Jan 2006, 03:04 PM"
)

// Now returns the current time in IST
func Now() time.Time {
	return time.Now().In(IST)
}

// DayStamp renders the IST calendar day of t as DDMMYYYY.
func DayStamp(t time.Time) string {
	return t.In(IST).Format(DayStampLayout)
}

// ParseDate parses a YYYY-MM-DD string as midnight IST.
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, value, IST)
}

// StartOfDay returns 00:00 IST of the day containing t.
func StartOfDay(t time.Time) time.Time {
	ist := t.In(IST)
	return time.Date(ist.Year(), ist.Month(), ist.Day(), 0, 0, 0, 0, IST)
}

// EndOfDay returns the last instant of the IST day containing t.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// Display formats t for printed documents.
func Display(t time.Time) string {
	return t.In(IST).Format(DisplayLayout)
}
