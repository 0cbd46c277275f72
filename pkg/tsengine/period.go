package tsengine

import (
	"fmt"
	"time"

	"github.com/ClusterCockpit/ts-rollup-store/internal/storage"
)

// PeriodType names a rollup granularity.
type PeriodType int

const (
	Seconds PeriodType = iota
	Minutes
	Hours
	Days
	Months
	Years
)

func (p PeriodType) String() string {
	switch p {
	case Seconds:
		return "Seconds"
	case Minutes:
		return "Minutes"
	case Hours:
		return "Hours"
	case Days:
		return "Days"
	case Months:
		return "Months"
	case Years:
		return "Years"
	default:
		return "Unknown"
	}
}

// PeriodDuration is a value-typed rollup granularity: N units of Type.
type PeriodDuration struct {
	Type     PeriodType
	Duration int
}

func (d PeriodDuration) String() string {
	return fmt.Sprintf("%s-%d", d.Type, d.Duration)
}

// ticksPerUnit is 100ns units per second, i.e. the tick's time resolution.
const ticksPerUnit = int64(time.Second / 100)

// tickEpoch anchors tick 0. The spec leaves the epoch unspecified beyond
// "a fixed epoch"; the Unix epoch is used here so ticks for real-world
// instants stay comfortably inside an int64's range (a calendar epoch of
// year 1 would overflow time.Duration arithmetic for anything but ancient
// timestamps).
var tickEpoch = time.Unix(0, 0).UTC()

// tickFromTime converts an instant to its 100ns-tick representation.
func tickFromTime(t time.Time) storage.Tick {
	return storage.Tick(t.UTC().UnixNano() / 100)
}

// timeFromTick is the symmetric read for tickFromTime.
func timeFromTick(tk storage.Tick) time.Time {
	return tickEpoch.Add(time.Duration(tk) * 100)
}

// add advances t by one unit of d, using calendar-free arithmetic for
// Seconds/Minutes/Hours/Days and calendar arithmetic (month/year rollover)
// for Months/Years.
func add(t time.Time, d PeriodDuration) time.Time {
	switch d.Type {
	case Seconds:
		return t.Add(time.Duration(d.Duration) * time.Second)
	case Minutes:
		return t.Add(time.Duration(d.Duration) * time.Minute)
	case Hours:
		return t.Add(time.Duration(d.Duration) * time.Hour)
	case Days:
		return t.AddDate(0, 0, d.Duration)
	case Months:
		return t.AddDate(0, d.Duration, 0)
	case Years:
		return t.AddDate(d.Duration, 0, 0)
	default:
		return t
	}
}

// startOfRange floors t to the nearest boundary of d, field by field: the
// wall-clock field named in validateAligned's table (second, minute, hour,
// day-of-month, month, year) is floored to the nearest multiple of
// d.Duration, after truncating every finer-grained field to zero.
func startOfRange(t time.Time, d PeriodDuration) time.Time {
	t = t.UTC()
	switch d.Type {
	case Seconds:
		t = t.Truncate(time.Second)
		rem := t.Second() % d.Duration
		return t.Add(-time.Duration(rem) * time.Second)
	case Minutes:
		t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC)
		rem := t.Minute() % d.Duration
		return t.Add(-time.Duration(rem) * time.Minute)
	case Hours:
		t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, time.UTC)
		rem := t.Hour() % d.Duration
		return t.Add(-time.Duration(rem) * time.Hour)
	case Days:
		rem := t.Day() % d.Duration
		day := t.Day() - rem
		if day < 1 {
			day = 1
		}
		return time.Date(t.Year(), t.Month(), day, 0, 0, 0, 0, time.UTC)
	case Months:
		rem := int(t.Month()) % d.Duration
		month := int(t.Month()) - rem
		year := t.Year()
		if month < 1 {
			year--
			month += 12
		}
		return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	case Years:
		rem := t.Year() % d.Duration
		return time.Date(t.Year()-rem, time.January, 1, 0, 0, 0, 0, time.UTC)
	default:
		return t
	}
}

// validateAligned fails with InvalidQuery unless both start and end satisfy
// d's alignment rules (see the table in the component design). Months
// relaxes the day==1 requirement on end only, mirroring observed upstream
// behavior (flagged as an open question rather than silently "fixed").
func validateAligned(start, end time.Time, d PeriodDuration) error {
	if err := checkBoundary(start, d, false); err != nil {
		return err
	}
	if err := checkBoundary(end, d, true); err != nil {
		return err
	}
	return nil
}

func checkBoundary(b time.Time, d PeriodDuration, isEnd bool) error {
	b = b.UTC()
	switch d.Type {
	case Seconds:
		if b.Nanosecond() != 0 {
			return invalidQueryf("%s boundary cannot specify milliseconds", d.Type)
		}
		if b.Second()%d.Duration != 0 {
			return invalidQueryf("%s boundary second %d is not a multiple of %d", d.Type, b.Second(), d.Duration)
		}
	case Minutes:
		if b.Second() != 0 || b.Nanosecond() != 0 {
			return invalidQueryf("%s boundary cannot specify seconds or milliseconds", d.Type)
		}
		if b.Minute()%d.Duration != 0 {
			return invalidQueryf("%s boundary minute %d is not a multiple of %d", d.Type, b.Minute(), d.Duration)
		}
	case Hours:
		if b.Minute() != 0 || b.Second() != 0 || b.Nanosecond() != 0 {
			return invalidQueryf("%s boundary cannot specify minutes, seconds or milliseconds", d.Type)
		}
		if b.Hour()%d.Duration != 0 {
			return invalidQueryf("%s boundary hour %d is not a multiple of %d", d.Type, b.Hour(), d.Duration)
		}
	case Days:
		if b.Hour() != 0 || b.Minute() != 0 || b.Second() != 0 || b.Nanosecond() != 0 {
			return invalidQueryf("%s boundary cannot specify hours, minutes, seconds or milliseconds", d.Type)
		}
		if b.Day()%d.Duration != 0 {
			return invalidQueryf("%s boundary day %d is not a multiple of %d", d.Type, b.Day(), d.Duration)
		}
	case Months:
		if !isEnd && b.Day() != 1 {
			return invalidQueryf("%s boundary day must be 1", d.Type)
		}
		if b.Hour() != 0 || b.Minute() != 0 || b.Second() != 0 || b.Nanosecond() != 0 {
			return invalidQueryf("%s boundary cannot specify hours, minutes, seconds or milliseconds", d.Type)
		}
		if int(b.Month())%d.Duration != 0 {
			return invalidQueryf("%s boundary month %d is not a multiple of %d", d.Type, int(b.Month()), d.Duration)
		}
	case Years:
		if b.Month() != time.January || b.Day() != 1 {
			return invalidQueryf("%s boundary must fall on January 1st", d.Type)
		}
		if b.Hour() != 0 || b.Minute() != 0 || b.Second() != 0 || b.Nanosecond() != 0 {
			return invalidQueryf("%s boundary cannot specify hours, minutes, seconds or milliseconds", d.Type)
		}
		if b.Year()%d.Duration != 0 {
			return invalidQueryf("%s boundary year %d is not a multiple of %d", d.Type, b.Year(), d.Duration)
		}
	default:
		return invalidQueryf("unknown period type %v", d.Type)
	}
	return nil
}

func invalidQueryf(format string, args ...any) error {
	return newErr(KindInvalidQuery, fmt.Sprintf(format, args...))
}
