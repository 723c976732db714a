// Package filter computes which messages pass a set of filter criteria.
package filter

import (
	"fmt"
	"strings"
	"time"

	cerrors "github.com/Zuo-Peng/chatdash/internal/errors"
	"github.com/Zuo-Peng/chatdash/internal/metadata"
)

// SenderStatus is a manual override for one sender.
type SenderStatus int

const (
	Auto SenderStatus = iota
	Excluded
	Included
)

func (s SenderStatus) String() string {
	switch s {
	case Excluded:
		return "excluded"
	case Included:
		return "included"
	default:
		return "auto"
	}
}

// Next cycles auto -> excluded -> included -> auto.
func (s SenderStatus) Next() SenderStatus {
	return (s + 1) % 3
}

// WeekdaySet is a bitmask indexed by time.Weekday.
type WeekdaySet uint8

const AllWeekdays WeekdaySet = 0x7f

func Weekdays(days ...time.Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		s = s.With(d)
	}
	return s
}

func (s WeekdaySet) Has(d time.Weekday) bool {
	return s&(1<<uint(d)) != 0
}

func (s WeekdaySet) With(d time.Weekday) WeekdaySet {
	return s | 1<<uint(d)
}

func (s WeekdaySet) Without(d time.Weekday) WeekdaySet {
	return s &^ (1 << uint(d))
}

func (s WeekdaySet) Toggle(d time.Weekday) WeekdaySet {
	return s ^ (1 << uint(d))
}

func (s WeekdaySet) String() string {
	if s&AllWeekdays == AllWeekdays {
		return "all"
	}
	var names []string
	// Monday first.
	for i := 1; i <= 7; i++ {
		d := time.Weekday(i % 7)
		if s.Has(d) {
			names = append(names, strings.ToLower(d.String()[:3]))
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ",")
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

// ParseWeekdays reads a comma separated list such as "mon,tue,sat".
// "all" and the empty string select every day.
func ParseWeekdays(s string) (WeekdaySet, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" || s == "all" {
		return AllWeekdays, nil
	}
	var set WeekdaySet
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if len(part) < 3 {
			return 0, cerrors.InvalidInput(fmt.Sprintf("unknown weekday %q", part))
		}
		d, ok := weekdayNames[part[:3]]
		if !ok {
			return 0, cerrors.InvalidInput(fmt.Sprintf("unknown weekday %q", part))
		}
		set = set.With(d)
	}
	return set, nil
}

// Criteria is an immutable set of filter settings. The With* methods return
// modified copies; the receiver and its status map are never changed.
type Criteria struct {
	Start         time.Time // zero means unbounded
	End           time.Time // zero means unbounded
	Weekdays      WeekdaySet
	SenderStatus  map[string]SenderStatus
	MinPercentage float64 // 0..100
}

// DefaultCriteria spans the whole transcript on every weekday with no
// manual overrides.
func DefaultCriteria(meta metadata.Metadata, minPercentage float64) Criteria {
	c := Criteria{Weekdays: AllWeekdays, MinPercentage: minPercentage}
	if meta.HasDateRange() {
		c.Start = meta.FirstTimestamp
		c.End = meta.LastTimestamp
	}
	return c
}

func (c Criteria) WithRange(start, end time.Time) Criteria {
	c.Start, c.End = start, end
	return c
}

func (c Criteria) WithWeekdays(set WeekdaySet) Criteria {
	c.Weekdays = set & AllWeekdays
	return c
}

// WithWeekday turns one day on or off.
func (c Criteria) WithWeekday(d time.Weekday, on bool) Criteria {
	if on {
		c.Weekdays = c.Weekdays.With(d)
	} else {
		c.Weekdays = c.Weekdays.Without(d)
	}
	return c
}

// WithSenderStatus sets an override. Auto removes the entry.
func (c Criteria) WithSenderStatus(sender string, status SenderStatus) Criteria {
	m := make(map[string]SenderStatus, len(c.SenderStatus)+1)
	for k, v := range c.SenderStatus {
		m[k] = v
	}
	if status == Auto {
		delete(m, sender)
	} else {
		m[sender] = status
	}
	c.SenderStatus = m
	return c
}

func (c Criteria) WithMinPercentage(p float64) Criteria {
	c.MinPercentage = p
	return c
}

// Status returns the override for sender, Auto when there is none.
func (c Criteria) Status(sender string) SenderStatus {
	return c.SenderStatus[sender]
}

func (c Criteria) Validate() error {
	if !(c.MinPercentage >= 0 && c.MinPercentage <= 100) {
		return cerrors.InvalidInput(fmt.Sprintf("min percentage %g out of range 0..100", c.MinPercentage))
	}
	if !c.Start.IsZero() && !c.End.IsZero() && c.End.Before(c.Start) {
		return cerrors.InvalidInput("end date is before start date").
			WithDetail("start", c.Start.Format(time.RFC3339)).
			WithDetail("end", c.End.Format(time.RFC3339))
	}
	for sender, s := range c.SenderStatus {
		if s < Auto || s > Included {
			return cerrors.InvalidInput(fmt.Sprintf("invalid status %d for sender %q", s, sender))
		}
	}
	return nil
}
