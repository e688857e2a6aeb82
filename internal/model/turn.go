package model

import (
	"fmt"
	"strings"
	"time"
)

const (
	FlagBooked     = "booked"
	FlagCommentSMS = "commentSms"
)

// StatusFlags is the decoded form of the comma-joined status column.
// The wire keeps the joined string; everything inside the process asks Has().
type StatusFlags []string

// ParseStatusFlags decodes "booked,commentSms" into a set. Empty input
// yields an empty set, never nil-vs-empty surprises on the wire.
func ParseStatusFlags(s string) StatusFlags {
	parts := strings.Split(s, ",")
	flags := make(StatusFlags, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !StatusFlags(flags).Has(p) {
			flags = append(flags, p)
		}
	}
	return flags
}

func (f StatusFlags) Has(flag string) bool {
	for _, v := range f {
		if v == flag {
			return true
		}
	}
	return false
}

// With returns a copy containing flag. Adding an existing flag is a no-op.
func (f StatusFlags) With(flag string) StatusFlags {
	if f.Has(flag) {
		return f
	}
	out := make(StatusFlags, len(f), len(f)+1)
	copy(out, f)
	return append(out, flag)
}

func (f StatusFlags) String() string {
	return strings.Join(f, ",")
}

// Slot is a booked quarter-hour: a Jalali day cursor plus HH:MM.
// The wire encodes it as the single composite "<date> <time>" string.
type Slot struct {
	Date string // "1402-05-12"
	Time string // "10:30"
}

// ParseSlot splits the composite wire encoding.
func ParseSlot(s string) (Slot, error) {
	date, tm, ok := strings.Cut(strings.TrimSpace(s), " ")
	if !ok || date == "" || tm == "" {
		return Slot{}, fmt.Errorf("malformed slot %q", s)
	}
	if _, err := ParseCursor(date); err != nil {
		return Slot{}, err
	}
	if len(tm) != 5 || tm[2] != ':' {
		return Slot{}, fmt.Errorf("malformed slot time %q", tm)
	}
	return Slot{Date: date, Time: tm}, nil
}

func (s Slot) String() string { return s.Date + " " + s.Time }

// Turn is one appointment slot, the system's central entity.
type Turn struct {
	ID          string
	RefName     string
	RefPhone    string
	User        string // last 4 chars of the creating operator's session token
	Description string
	Slot        Slot
	Status      StatusFlags
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TurnWire is the JSON shape shared by the API and its clients.
type TurnWire struct {
	ID          string `json:"id"`
	RefName     string `json:"refname,omitempty"`
	RefPhone    string `json:"refphone"`
	User        string `json:"user,omitempty"`
	Description string `json:"description,omitempty"`
	Date        string `json:"date"`        // composite "<jalali-date> <HH:MM>"
	CurrentTime string `json:"currenttime"` // record creation time, RFC3339
	Status      string `json:"status"`
}

func (t Turn) Wire() TurnWire {
	return TurnWire{
		ID:          t.ID,
		RefName:     t.RefName,
		RefPhone:    t.RefPhone,
		User:        t.User,
		Description: t.Description,
		Date:        t.Slot.String(),
		CurrentTime: t.CreatedAt.Format(time.RFC3339),
		Status:      t.Status.String(),
	}
}

// TurnFromWire decodes the composite slot and status immediately at the
// boundary; nothing downstream touches the raw strings again.
func TurnFromWire(w TurnWire) (Turn, error) {
	slot, err := ParseSlot(w.Date)
	if err != nil {
		return Turn{}, err
	}
	createdAt, err := time.Parse(time.RFC3339, w.CurrentTime)
	if err != nil {
		return Turn{}, fmt.Errorf("malformed currenttime %q: %w", w.CurrentTime, err)
	}
	return Turn{
		ID:          w.ID,
		RefName:     w.RefName,
		RefPhone:    w.RefPhone,
		User:        w.User,
		Description: w.Description,
		Slot:        slot,
		Status:      ParseStatusFlags(w.Status),
		CreatedAt:   createdAt,
	}, nil
}
