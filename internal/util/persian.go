package util

import (
	"fmt"
	"strings"
	"time"

	ptime "github.com/yaa110/go-persian-calendar"
)

// ToPersianDigits replaces every ASCII digit with its Persian glyph,
// character by character, so composite strings like "12:30" keep their
// separators.
func ToPersianDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			r = '۰' + (r - '0')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// CalendarOptions overrides the default Persian-calendar rendering.
type CalendarOptions struct {
	TwoDigit   bool // zero-pad day and month
	DateOnly   bool // drop the HH:mm part
	TwelveHour bool // 12-hour clock with the Persian am/pm marker
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ToPersianCalendar renders a Gregorian timestamp as a Persian-calendar
// date-time string with Persian digits, e.g. "۱۴۰۲/۱/۱ ۱۰:۳۰". Default is
// day/month without padding and a 24-hour clock. Unparseable input is an
// error, not a fallback.
func ToPersianCalendar(ts string, opts ...CalendarOptions) (string, error) {
	var opt CalendarOptions
	if len(opts) > 0 {
		opt = opts[0]
	}

	t, err := parseTimestamp(ts)
	if err != nil {
		return "", err
	}
	pt := ptime.New(t.In(ptime.Iran()))

	numFmt := "%d"
	if opt.TwoDigit {
		numFmt = "%02d"
	}
	s := fmt.Sprintf("%d/"+numFmt+"/"+numFmt, pt.Year(), int(pt.Month()), pt.Day())
	if !opt.DateOnly {
		if opt.TwelveHour {
			marker := "ق.ظ"
			if pt.Hour() >= 12 {
				marker = "ب.ظ"
			}
			hour := pt.Hour() % 12
			if hour == 0 {
				hour = 12
			}
			s += fmt.Sprintf(" %d:%02d %s", hour, pt.Minute(), marker)
		} else {
			s += fmt.Sprintf(" %02d:%02d", pt.Hour(), pt.Minute())
		}
	}
	return ToPersianDigits(s), nil
}

func parseTimestamp(ts string) (time.Time, error) {
	ts = strings.TrimSpace(ts)
	for _, layout := range timestampLayouts {
		// Layouts without a zone are read as Tehran wall-clock time.
		if t, err := time.ParseInLocation(layout, ts, ptime.Iran()); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", ts)
}
