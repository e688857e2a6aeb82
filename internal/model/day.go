package model

import (
	"fmt"
	"time"

	ptime "github.com/yaa110/go-persian-calendar"
)

// DayContext is the service-reported "current day" bundle the list view
// renders and navigates with. FaDate doubles as the day cursor.
type DayContext struct {
	FaFullDate string `json:"faFullDate"`
	EnFullDate string `json:"enFullDate"`
	FaDate     string `json:"faDate"` // Jalali "1402-05-12", the canonical cursor
	EnDate     string `json:"enDate"` // Gregorian "2006-01-02"
	Month      string `json:"month"`  // Persian month name
	Day        string `json:"day"`    // Persian weekday name
}

// TodayCursor returns the current Jalali day in Tehran time.
func TodayCursor() string {
	pt := ptime.New(time.Now().In(ptime.Iran()))
	return formatCursor(pt)
}

// ParseCursor validates a "yyyy-MM-dd" Jalali cursor and returns midnight of
// that day in Tehran time.
func ParseCursor(cursor string) (ptime.Time, error) {
	var y, m, d int
	if _, err := fmt.Sscanf(cursor, "%4d-%2d-%2d", &y, &m, &d); err != nil {
		return ptime.Time{}, fmt.Errorf("malformed day cursor %q", cursor)
	}
	if y < 1300 || y > 1500 || m < 1 || m > 12 || d < 1 || d > 31 {
		return ptime.Time{}, fmt.Errorf("day cursor %q out of range", cursor)
	}
	return ptime.Date(y, ptime.Month(m), d, 0, 0, 0, 0, ptime.Iran()), nil
}

// ShiftCursor moves a cursor by whole days. The arithmetic runs on the
// Gregorian side so Jalali month lengths never need handling here.
func ShiftCursor(cursor string, days int) (string, error) {
	pt, err := ParseCursor(cursor)
	if err != nil {
		return "", err
	}
	return formatCursor(ptime.New(pt.Time().AddDate(0, 0, days))), nil
}

// ContextFor builds the DayContext for a cursor.
func ContextFor(cursor string) (DayContext, error) {
	pt, err := ParseCursor(cursor)
	if err != nil {
		return DayContext{}, err
	}
	gt := pt.Time()
	return DayContext{
		FaFullDate: fmt.Sprintf("%s %d %s %d", pt.Weekday().String(), pt.Day(), pt.Month().String(), pt.Year()),
		EnFullDate: gt.Format("Monday, 02 January 2006"),
		FaDate:     formatCursor(pt),
		EnDate:     gt.Format("2006-01-02"),
		Month:      pt.Month().String(),
		Day:        pt.Weekday().String(),
	}, nil
}

func formatCursor(pt ptime.Time) string {
	return fmt.Sprintf("%04d-%02d-%02d", pt.Year(), int(pt.Month()), pt.Day())
}
