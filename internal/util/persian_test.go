package util

import "testing"

func TestToPersianDigits(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"12:30", "۱۲:۳۰"},
		{"0912", "۰۹۱۲"},
		{"1402-05-12", "۱۴۰۲-۰۵-۱۲"},
		{"no digits", "no digits"},
		{"", ""},
	}
	for _, c := range cases {
		if got := ToPersianDigits(c.in); got != c.want {
			t.Fatalf("ToPersianDigits(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestToPersianCalendar(t *testing.T) {
	// Nowruz 1402 fell on 21 March 2023.
	got, err := ToPersianCalendar("2023-03-21", CalendarOptions{DateOnly: true})
	if err != nil {
		t.Fatalf("ToPersianCalendar: %v", err)
	}
	if want := "۱۴۰۲/۱/۱"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestToPersianCalendarTwoDigit(t *testing.T) {
	got, err := ToPersianCalendar("2023-03-21 10:30:00", CalendarOptions{TwoDigit: true})
	if err != nil {
		t.Fatalf("ToPersianCalendar: %v", err)
	}
	if want := "۱۴۰۲/۰۱/۰۱ ۱۰:۳۰"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestToPersianCalendarTwelveHour(t *testing.T) {
	got, err := ToPersianCalendar("2023-03-21 14:30:00", CalendarOptions{TwelveHour: true})
	if err != nil {
		t.Fatalf("ToPersianCalendar: %v", err)
	}
	if want := "۱۴۰۲/۱/۱ ۲:۳۰ ب.ظ"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	got, err = ToPersianCalendar("2023-03-21 00:15:00", CalendarOptions{TwelveHour: true})
	if err != nil {
		t.Fatalf("ToPersianCalendar: %v", err)
	}
	if want := "۱۴۰۲/۱/۱ ۱۲:۱۵ ق.ظ"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestToPersianCalendarBadInput(t *testing.T) {
	if _, err := ToPersianCalendar("not a date"); err == nil {
		t.Fatal("expected an error for unparseable input")
	}
}
