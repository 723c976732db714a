package metadata

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// displayMarks are bidi controls WhatsApp wraps around phone numbers.
var displayMarks = strings.NewReplacer(
	"\u200e", "", "\u200f", "",
	"\u202a", "", "\u202b", "", "\u202c", "",
	"\u2066", "", "\u2067", "", "\u2068", "", "\u2069", "",
	"\u00a0", " ",
)

func cleanName(sender string) string {
	return strings.Join(strings.Fields(displayMarks.Replace(sender)), " ")
}

func isPhoneNumber(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return r == '+' || unicode.IsDigit(r)
}

// ShortNames abbreviates each sender to its first name. Senders sharing a
// first name become "First L." using the next name's initial; if that still
// collides, or there is no next name, the full name is used. Phone numbers
// are never abbreviated.
func ShortNames(senders []string) map[string]string {
	first := make(map[string]string, len(senders))
	byFirst := make(map[string]int)
	for _, s := range senders {
		name := cleanName(s)
		f := name
		if !isPhoneNumber(name) {
			if fields := strings.Fields(name); len(fields) > 0 {
				f = fields[0]
			}
		}
		first[s] = f
		byFirst[f]++
	}

	out := make(map[string]string, len(senders))
	second := make(map[string]string)
	byInitial := make(map[string]int)
	for _, s := range senders {
		if byFirst[first[s]] == 1 {
			out[s] = first[s]
			continue
		}
		fields := strings.Fields(cleanName(s))
		if len(fields) < 2 || isPhoneNumber(fields[0]) {
			continue
		}
		r, _ := utf8.DecodeRuneInString(fields[1])
		abbr := fields[0] + " " + string(r) + "."
		second[s] = abbr
		byInitial[abbr]++
	}

	for _, s := range senders {
		if _, done := out[s]; done {
			continue
		}
		if abbr, ok := second[s]; ok && byInitial[abbr] == 1 {
			out[s] = abbr
			continue
		}
		out[s] = cleanName(s)
	}
	return out
}
