package parse

import (
	"fmt"
	"strconv"
	"time"
)

// timestamp combines the prefix's date and time tokens under format f.
// Impossible dates (31.02.) and clock mismatches are errors.
func (p prefix) timestamp(f Format, loc *time.Location) (time.Time, error) {
	year, month, day, err := parseDate(p.dateA, p.dateB, p.dateC, f.Order)
	if err != nil {
		return time.Time{}, err
	}
	hour, minute, second, err := parseClock(p.hour, p.minute, p.second, p.meridiem, f.Clock)
	if err != nil {
		return time.Time{}, err
	}

	ts := time.Date(year, time.Month(month), day, hour, minute, second, 0, loc)
	if ts.Year() != year || int(ts.Month()) != month || ts.Day() != day {
		return time.Time{}, fmt.Errorf("date %d-%02d-%02d does not exist", year, month, day)
	}
	return ts, nil
}

func parseDate(a, b, c string, order DateOrder) (year, month, day int, err error) {
	var ys, ms, ds string
	switch order {
	case DMY:
		ds, ms, ys = a, b, c
	case MDY:
		ms, ds, ys = a, b, c
	case YMD:
		if len(a) != 4 {
			return 0, 0, 0, fmt.Errorf("year-first date needs a 4-digit year, got %q", a)
		}
		ys, ms, ds = a, b, c
	}
	if len(ds) > 2 || len(ms) > 2 {
		return 0, 0, 0, fmt.Errorf("day/month token too long: %q/%q", ds, ms)
	}

	year, err = parseYear(ys)
	if err != nil {
		return 0, 0, 0, err
	}
	month, _ = strconv.Atoi(ms)
	day, _ = strconv.Atoi(ds)
	if month < 1 || month > 12 {
		return 0, 0, 0, fmt.Errorf("month out of range: %d", month)
	}
	if day < 1 || day > 31 {
		return 0, 0, 0, fmt.Errorf("day out of range: %d", day)
	}
	return year, month, day, nil
}

// parseYear accepts 2- and 4-digit years. Two-digit years are 20yy: chat
// exporters postdate 2000.
func parseYear(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("bad year %q: %w", s, err)
	}
	switch len(s) {
	case 2:
		return 2000 + n, nil
	case 4:
		return n, nil
	default:
		return 0, fmt.Errorf("year must have 2 or 4 digits, got %q", s)
	}
}

func parseClock(hs, ms, ss, meridiem string, clock Clock) (hour, minute, second int, err error) {
	hour, _ = strconv.Atoi(hs)
	minute, _ = strconv.Atoi(ms)
	if ss != "" {
		second, _ = strconv.Atoi(ss)
	}
	if minute > 59 || second > 59 {
		return 0, 0, 0, fmt.Errorf("time out of range: %s:%s", hs, ms)
	}

	switch clock {
	case Clock24:
		if meridiem != "" {
			return 0, 0, 0, fmt.Errorf("unexpected meridiem on 24h clock")
		}
		if hour > 23 {
			return 0, 0, 0, fmt.Errorf("hour out of range: %d", hour)
		}
	case Clock12:
		if meridiem == "" {
			return 0, 0, 0, fmt.Errorf("missing meridiem on 12h clock")
		}
		if hour < 1 || hour > 12 {
			return 0, 0, 0, fmt.Errorf("hour out of range for 12h clock: %d", hour)
		}
		pm := meridiem == "p" || meridiem == "P"
		switch {
		case hour == 12 && !pm:
			hour = 0
		case hour != 12 && pm:
			hour += 12
		}
	}
	return hour, minute, second, nil
}
