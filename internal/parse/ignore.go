package parse

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// IgnoreList yields the substrings that mark system notices for a detected
// language and exporter family.
type IgnoreList interface {
	Lookup(language string, family Family) []string
	Languages() []string
}

//go:embed ignore.yaml
var defaultIgnoreYAML []byte

// StaticIgnoreList is an IgnoreList backed by a language -> family -> list map.
type StaticIgnoreList map[string]map[Family][]string

func (l StaticIgnoreList) Lookup(language string, family Family) []string {
	return l[language][family]
}

func (l StaticIgnoreList) Languages() []string {
	langs := make([]string, 0, len(l))
	for lang := range l {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// DefaultIgnoreList returns the built-in list.
func DefaultIgnoreList() StaticIgnoreList {
	l, err := decodeIgnoreList(defaultIgnoreYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded ignore list: %v", err))
	}
	return l
}

// LoadIgnoreList reads a YAML ignore list from path.
func LoadIgnoreList(path string) (StaticIgnoreList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	l, err := decodeIgnoreList(data)
	if err != nil {
		return nil, fmt.Errorf("parse ignore list %s: %w", path, err)
	}
	return l, nil
}

func decodeIgnoreList(data []byte) (StaticIgnoreList, error) {
	var raw map[string]map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	l := make(StaticIgnoreList, len(raw))
	for lang, fams := range raw {
		l[lang] = make(map[Family][]string, len(fams))
		for fam, subs := range fams {
			l[lang][Family(fam)] = subs
		}
	}
	return l, nil
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// detectLanguage picks the language whose notices occur most often in
// lines; ties go to the alphabetically first language.
func detectLanguage(lines []string, family Family, list IgnoreList, fallback string) string {
	if list == nil {
		return fallback
	}
	best, bestHits := fallback, 0
	for _, lang := range list.Languages() {
		subs := list.Lookup(lang, family)
		hits := 0
		for _, line := range lines {
			if containsAny(line, subs) {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = lang, hits
		}
	}
	return best
}
