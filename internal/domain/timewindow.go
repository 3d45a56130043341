package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimeOfDay is a wall-clock time expressed as seconds since midnight.
// Reservations never cross midnight, so a pair of TimeOfDay values always
// describes a half-open interval within one calendar day.
type TimeOfDay int32

// EndOfDay is 23:59:59, the last representable second of a day.
const EndOfDay TimeOfDay = 24*3600 - 1

// ParseTimeOfDay accepts "HH:MM" or "HH:MM:SS".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var h, m, sec int

	switch n, _ := fmt.Sscanf(s, "%d:%d:%d", &h, &m, &sec); n {
	case 2, 3:
	default:
		return 0, fmt.Errorf("invalid time of day %q", s)
	}

	if h < 0 || h > 23 || m < 0 || m > 59 || sec < 0 || sec > 59 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}

	return TimeOfDay(h*3600 + m*60 + sec), nil
}

// TimeOfDayOf extracts the clock part of t.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*3600 + t.Minute()*60 + t.Second())
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", int(t)/3600, int(t)/60%60, int(t)%60)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}

	v, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}

	*t = v
	return nil
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Touching endpoints do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd TimeOfDay) bool {
	return aStart < bEnd && bStart < aEnd
}

// Window is one opening/closing pair. Close numerically at or before Open
// means service runs past midnight into the next calendar day.
type Window struct {
	Open  TimeOfDay `json:"open"`
	Close TimeOfDay `json:"close"`
}

func (w Window) Overnight() bool {
	return w.Close <= w.Open
}

// OpeningHours holds the four configured pairs: Monday through Thursday
// share one, Friday, Saturday and Sunday each have their own.
type OpeningHours struct {
	MonToThu Window `json:"mon_to_thu"`
	Friday   Window `json:"friday"`
	Saturday Window `json:"saturday"`
	Sunday   Window `json:"sunday"`
}

// WindowFor maps a weekday onto its configured window.
func (h OpeningHours) WindowFor(day time.Weekday) Window {
	switch day {
	case time.Friday:
		return h.Friday
	case time.Saturday:
		return h.Saturday
	case time.Sunday:
		return h.Sunday
	default:
		return h.MonToThu
	}
}

// OpeningWindowFor returns the opening window applying on the given date.
func (r *Restaurant) OpeningWindowFor(day time.Weekday) Window {
	return r.Hours.WindowFor(day)
}

// IsWithinOpeningHours reports whether [start, end) fits the service window
// applying on date. For an overnight window, today's valid span runs from
// opening until 23:59:59; additionally, if the previous day's window is
// itself overnight, the tail of last night's service covers [00:00:00,
// prevClose] today. The interval is accepted if either check passes.
// Callers guarantee start < end, so the interval never crosses midnight.
func (r *Restaurant) IsWithinOpeningHours(date time.Time, start, end TimeOfDay) bool {
	w := r.Hours.WindowFor(date.Weekday())

	if w.Overnight() {
		// end <= EndOfDay holds by construction.
		if start >= w.Open {
			return true
		}
	} else if start >= w.Open && end <= w.Close {
		return true
	}

	prev := r.Hours.WindowFor(date.AddDate(0, 0, -1).Weekday())
	if prev.Overnight() && end <= prev.Close {
		return true
	}

	return false
}
