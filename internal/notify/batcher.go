package notify

import (
	"fmt"
	"strings"

	"refurbtracker/internal/domain"
	"refurbtracker/internal/filter"
)

// DefaultBatchSize is how many products go into one outbound message.
const DefaultBatchSize = 10

// Match is one new product annotated with the names of the rules that
// matched it, in rule order.
type Match struct {
	Product   domain.Product
	RuleNames []string
}

// BuildMatches evaluates a user's rules against the new-products subset and
// returns each matched product exactly once, in scrape order, with every
// matching rule name attached. Products are deduplicated by ProductKey, so a
// listing that shows up under two category pages appears once. Disabled
// rules never match.
func BuildMatches(newProducts []domain.Product, rules []domain.TrackingRule) []Match {
	matches := make([]Match, 0)
	seen := make(map[string]bool, len(newProducts))
	for _, p := range newProducts {
		key := p.ProductKey
		if key == "" {
			key = p.URL
		}
		if seen[key] {
			continue
		}
		seen[key] = true

		var names []string
		for _, r := range rules {
			if !r.Enabled {
				continue
			}
			if filter.Matches(p, r.Filters) {
				names = append(names, r.Name)
			}
		}
		if len(names) > 0 {
			matches = append(matches, Match{Product: p, RuleNames: names})
		}
	}
	return matches
}

// FormatBatches renders matches into messages of at most batchSize entries.
// Sequence numbers run continuously across batches. The first batch's header
// carries the total count; when more than one batch exists every header also
// carries a "batch i/n" indicator. shorten may be nil, in which case the
// original URL is used.
func FormatBatches(matches []Match, batchSize int, shorten func(string) string) []string {
	if len(matches) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	total := (len(matches) + batchSize - 1) / batchSize

	messages := make([]string, 0, total)
	for b := 0; b < total; b++ {
		var msg strings.Builder
		writeHeader(&msg, b, total, len(matches))

		start := b * batchSize
		end := start + batchSize
		if end > len(matches) {
			end = len(matches)
		}
		for i, m := range matches[start:end] {
			writeEntry(&msg, start+i+1, m, shorten)
		}
		messages = append(messages, msg.String())
	}
	return messages
}

func writeHeader(b *strings.Builder, batch, totalBatches, totalProducts int) {
	if batch == 0 {
		fmt.Fprintf(b, "Found %d new refurbished product(s)", totalProducts)
		if totalBatches > 1 {
			fmt.Fprintf(b, " (batch 1/%d)", totalBatches)
		}
		b.WriteString("\n")
		return
	}
	fmt.Fprintf(b, "(batch %d/%d)\n", batch+1, totalBatches)
}

func writeEntry(b *strings.Builder, seq int, m Match, shorten func(string) string) {
	link := m.Product.URL
	if shorten != nil {
		link = shorten(link)
	}
	fmt.Fprintf(b, "\n%d. %s\n", seq, CleanDisplayName(m.Product.Name))
	if m.Product.Price != "" {
		fmt.Fprintf(b, "   %s\n", m.Product.Price)
	}
	if len(m.RuleNames) > 0 {
		fmt.Fprintf(b, "   Matched: %s\n", strings.Join(m.RuleNames, ", "))
	}
	fmt.Fprintf(b, "   %s\n", link)
}

// refurbSuffixes is the boilerplate the storefront appends to every listing
// name, longest form first.
var refurbSuffixes = []string{"(整修品)", "- 整修品", "整修品"}

// CleanDisplayName strips the vendor prefix and the "refurbished" suffix
// boilerplate from a listing name.
func CleanDisplayName(name string) string {
	s := strings.TrimSpace(name)
	s = strings.TrimPrefix(s, "Apple ")
	for _, suffix := range refurbSuffixes {
		s = strings.TrimSpace(strings.TrimSuffix(s, suffix))
	}
	return s
}
