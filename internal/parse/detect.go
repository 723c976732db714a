package parse

import "time"

// Detection is the outcome of scoring every known format against a sample.
type Detection struct {
	Format  Format
	Sampled int // timestamp-prefixed lines looked at
	Matched int // of those, lines the winner parsed
	Ratio   float64
	sample  []string
}

type candidate struct {
	text   string
	prefix prefix
}

// sampleCandidates collects up to n lines carrying a timestamp prefix.
// Continuation lines are skipped, so long multi-line messages at the top
// of a transcript do not starve the sample.
func sampleCandidates(lines []string, n int) []candidate {
	var out []candidate
	for _, raw := range lines {
		line := cleanLine(raw)
		if line == "" {
			continue
		}
		p, ok := matchPrefix(line)
		if !ok {
			continue
		}
		out = append(out, candidate{text: line, prefix: p})
		if len(out) >= n {
			break
		}
	}
	return out
}

type score struct {
	format  Format
	matched int
	ordered int // consecutive parsed pairs in non-decreasing order
}

func scoreFormat(f Format, sample []candidate, loc *time.Location) score {
	s := score{format: f}
	var prev time.Time
	for _, c := range sample {
		if c.prefix.family != f.Family {
			continue
		}
		ts, err := c.prefix.timestamp(f, loc)
		if err != nil {
			continue
		}
		if s.matched > 0 && !ts.Before(prev) {
			s.ordered++
		}
		prev = ts
		s.matched++
	}
	return s
}

// Detect scores every format against the first opts.SampleLines
// timestamp-prefixed lines and picks the best by success rate. Ties go to
// the format whose parse of the sample is more often chronological, then to
// the earlier entry of Formats.
func Detect(lines []string, opts Options) Detection {
	opts = opts.withDefaults()
	sample := sampleCandidates(lines, opts.SampleLines)

	d := Detection{Format: Unknown, Sampled: len(sample)}
	for _, c := range sample {
		d.sample = append(d.sample, c.text)
	}
	if len(sample) == 0 {
		return d
	}

	var best score
	for _, f := range Formats() {
		s := scoreFormat(f, sample, opts.Location)
		if s.matched > best.matched || (s.matched == best.matched && s.ordered > best.ordered) {
			best = s
		}
	}

	d.Matched = best.matched
	d.Ratio = float64(best.matched) / float64(len(sample))
	if best.matched < opts.MinMatchedLines || d.Ratio < opts.MinMatchRatio {
		return d
	}
	d.Format = best.format
	return d
}
