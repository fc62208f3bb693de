// Package parser turns the free text of a scraped listing into a structured
// product specification. Each attribute is extracted independently by an
// ordered list of patterns evaluated first-match-wins, so new model names or
// chip variants are additive table entries rather than code changes.
package parser

import (
	"regexp"
	"strings"

	"refurbtracker/internal/domain"
)

// productTypes is checked by substring containment, first match wins. More
// specific names must come before shorter ones sharing a prefix ("iPad Pro"
// before "iPad").
var productTypes = []string{
	"MacBook Pro",
	"MacBook Air",
	"Mac Studio",
	"Mac mini",
	"Mac Pro",
	"iMac",
	"iPad Pro",
	"iPad Air",
	"iPad mini",
	"iPad",
	"Apple TV",
}

// colors is the closed set the storefront uses; first match in list order wins.
var colors = []string{
	"太空灰色",
	"太空黑色",
	"午夜色",
	"星光色",
	"銀色",
	"金色",
}

// fieldPattern pairs a compiled pattern with an optional suffix appended to
// the first capture group when the pattern matches.
type fieldPattern struct {
	re     *regexp.Regexp
	suffix string
}

// Chip token grammar: M<digits> optionally followed by Pro/Max/Ultra.
// Patterns run in order of decreasing specificity: vendor-prefixed, then the
// localized chip suffix, then the bare token.
var chipPatterns = []fieldPattern{
	{re: regexp.MustCompile(`Apple (M\d+(?: (?:Pro|Max|Ultra))?)`)},
	{re: regexp.MustCompile(`(M\d+(?: ?(?:Pro|Max|Ultra))?) ?晶片`)},
	{re: regexp.MustCompile(`\b(M\d+(?: (?:Pro|Max|Ultra))?)\b`)},
}

var screenPatterns = []fieldPattern{
	{re: regexp.MustCompile(`(\d+)吋`), suffix: "吋"},
}

// Memory is tried against the description first and the name second, so a
// tagline like "16GB統一記憶體 256GB SSD" binds 16GB to memory before the
// bare-GB fallback can touch the storage figure.
var memoryPatterns = []fieldPattern{
	{re: regexp.MustCompile(`(\d+)GB ?統一記憶體`), suffix: "GB"},
	{re: regexp.MustCompile(`(\d+)GB ?記憶體`), suffix: "GB"},
	{re: regexp.MustCompile(`(\d+)GB`), suffix: "GB"},
}

// Storage keeps the unit it was written in; TB is never converted to GB here.
var storagePatterns = []fieldPattern{
	{re: regexp.MustCompile(`(\d+(?:\.\d+)?TB)`)},
	{re: regexp.MustCompile(`(\d+GB) ?SSD`)},
	{re: regexp.MustCompile(`(\d+GB) ?儲存`)},
}

// Parse extracts a ProductSpec from a listing's name and description.
// Extraction failures are never errors; an undetermined attribute is simply
// left empty.
func Parse(name, description string, category domain.Category) domain.ProductSpec {
	name = normalize(name)
	description = normalize(description)
	text := name + " " + description

	return domain.ProductSpec{
		ProductType: matchList(text, productTypes),
		Chip:        strings.TrimSpace(matchFirst(text, chipPatterns)),
		ScreenSize:  matchFirst(text, screenPatterns),
		Memory:      firstNonEmpty(matchFirst(description, memoryPatterns), matchFirst(name, memoryPatterns)),
		Storage:     firstNonEmpty(matchFirst(description, storagePatterns), matchFirst(name, storagePatterns)),
		Color:       matchList(text, colors),
		Category:    string(category),
	}
}

// normalize folds the storefront's non-breaking spaces into ordinary spaces.
// The source text mixes both inconsistently and unnormalized input makes the
// pattern tables fail silently.
var spaceNormalizer = strings.NewReplacer(" ", " ", " ", " ")

func normalize(s string) string {
	return spaceNormalizer.Replace(s)
}

func matchList(text string, candidates []string) string {
	for _, c := range candidates {
		if strings.Contains(text, c) {
			return c
		}
	}
	return ""
}

func matchFirst(text string, patterns []fieldPattern) string {
	for _, p := range patterns {
		if m := p.re.FindStringSubmatch(text); m != nil {
			return m[1] + p.suffix
		}
	}
	return ""
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
