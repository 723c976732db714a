package parse

import (
	"fmt"
	"regexp"
	"strings"
)

type Family string

const (
	FamilyAndroid Family = "android"
	FamilyIOS     Family = "ios"
)

type DateOrder int

const (
	DMY DateOrder = iota
	MDY
	YMD
)

func (o DateOrder) String() string {
	switch o {
	case MDY:
		return "mdy"
	case YMD:
		return "ymd"
	default:
		return "dmy"
	}
}

type Clock int

const (
	Clock24 Clock = iota
	Clock12
)

func (c Clock) String() string {
	if c == Clock12 {
		return "12h"
	}
	return "24h"
}

// Format is a recognised combination of line layout, date order and clock.
// The zero value is Unknown.
type Format struct {
	Family Family
	Order  DateOrder
	Clock  Clock
}

var Unknown = Format{}

func (f Format) IsUnknown() bool {
	return f.Family == ""
}

func (f Format) Name() string {
	if f.IsUnknown() {
		return "unknown"
	}
	return fmt.Sprintf("%s-%s-%s", f.Family, f.Order, f.Clock)
}

func (f Format) String() string {
	return f.Name()
}

// ParseFormat is the inverse of Format.Name.
func ParseFormat(name string) (Format, error) {
	if name == "unknown" || name == "" {
		return Unknown, nil
	}
	for _, f := range Formats() {
		if f.Name() == name {
			return f, nil
		}
	}
	return Unknown, fmt.Errorf("unknown format name: %q", name)
}

// Formats lists every descriptor in tie-break order. Day-first wins ties
// on 24h clocks, month-first on 12h clocks.
func Formats() []Format {
	var out []Format
	for _, fam := range []Family{FamilyAndroid, FamilyIOS} {
		out = append(out,
			Format{fam, DMY, Clock24},
			Format{fam, MDY, Clock24},
			Format{fam, YMD, Clock24},
			Format{fam, MDY, Clock12},
			Format{fam, DMY, Clock12},
			Format{fam, YMD, Clock12},
		)
	}
	return out
}

const (
	datePattern = `(\d{1,4})[./-](\d{1,2})[./-](\d{1,4})`
	timePattern = `((\d{1,2})[:.](\d{2})(?:[:.](\d{2}))?(?:[\s\x{202f}\x{a0}]?([AaPp])\.?\s?[Mm]\.?)?)`
)

// submatch indexes shared by both family patterns
const (
	gDateA = iota + 1
	gDateB
	gDateC
	gTime
	gHour
	gMinute
	gSecond
	gMeridiem
	gRest
)

var familyPatterns = map[Family]*regexp.Regexp{
	// 01.02.2023, 14:05 - Alice: Hello
	FamilyAndroid: regexp.MustCompile(`^` + datePattern + `,?\s` + timePattern + `\s[-–]\s(.*)$`),
	// [01.02.23, 14:05:33] Alice: Hello
	FamilyIOS: regexp.MustCompile(`^\[` + datePattern + `,?\s` + timePattern + `\]\s?(.*)$`),
}

var familyOrder = []Family{FamilyAndroid, FamilyIOS}

// prefix is the timestamp prefix of a line split into its raw tokens.
type prefix struct {
	family               Family
	dateA, dateB, dateC  string
	time                 string
	hour, minute, second string
	meridiem             string
	rest                 string
}

// matchPrefix returns the prefix of a line under the first family whose
// pattern matches, or ok=false for continuation lines.
func matchPrefix(line string) (prefix, bool) {
	for _, fam := range familyOrder {
		if p, ok := matchFamily(fam, line); ok {
			return p, true
		}
	}
	return prefix{}, false
}

func matchFamily(fam Family, line string) (prefix, bool) {
	m := familyPatterns[fam].FindStringSubmatch(line)
	if m == nil {
		return prefix{}, false
	}
	return prefix{
		family:   fam,
		dateA:    m[gDateA],
		dateB:    m[gDateB],
		dateC:    m[gDateC],
		time:     m[gTime],
		hour:     m[gHour],
		minute:   m[gMinute],
		second:   m[gSecond],
		meridiem: m[gMeridiem],
		rest:     m[gRest],
	}, true
}

// splitSender splits "Sender: body". ok is false for system notices,
// which carry no sender.
func splitSender(rest string) (sender, body string, ok bool) {
	idx := strings.Index(rest, ": ")
	if idx <= 0 {
		if strings.HasSuffix(rest, ":") && len(rest) > 1 {
			return rest[:len(rest)-1], "", true
		}
		return "", "", false
	}
	return rest[:idx], rest[idx+2:], true
}

// lineMarks are invisible characters exporters put at the start of lines.
const lineMarks = "\ufeff\u200e\u200f"

func cleanLine(line string) string {
	line = strings.TrimRight(line, "\r")
	return strings.TrimLeft(line, lineMarks)
}
