// Package filter implements the rule-matching engine that evaluates a
// FilterSpec against parsed products.
package filter

import (
	"regexp"
	"strconv"
	"strings"

	"refurbtracker/internal/domain"
)

// Products returns the subset of products satisfying every constraint in
// filters, preserving the input order. Absent filter fields impose no
// constraint; a product whose spec lacks a constrained attribute is excluded.
func Products(products []domain.Product, filters domain.FilterSpec) []domain.Product {
	if filters.Empty() {
		out := make([]domain.Product, len(products))
		copy(out, products)
		return out
	}
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if Matches(p, filters) {
			out = append(out, p)
		}
	}
	return out
}

// Matches evaluates a single product against filters, AND-combining the
// present fields and short-circuiting on the first failure.
func Matches(p domain.Product, f domain.FilterSpec) bool {
	if f.ProductType != "" && p.Specs.ProductType != f.ProductType {
		return false
	}
	if f.Chip != "" && p.Specs.Chip != f.Chip {
		return false
	}
	if f.Color != "" && p.Specs.Color != f.Color {
		return false
	}
	if f.MinMemory > 0 {
		gb, ok := leadingInt(p.Specs.Memory)
		if !ok || gb < f.MinMemory {
			return false
		}
	}
	if f.MinStorage != "" {
		// Both sides go through the same conversion; an unparseable product
		// capacity counts as zero, so it only passes a zero minimum.
		if minGB := StorageGB(f.MinStorage); minGB > 0 && StorageGB(p.Specs.Storage) < minGB {
			return false
		}
	}
	if f.MaxPrice > 0 {
		price, ok := priceValue(p.Price)
		if !ok || price > f.MaxPrice {
			return false
		}
	}
	return true
}

var storagePattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)(TB|GB)$`)

// StorageGB converts a capacity string ("512GB", "1TB", "1.5TB") to whole
// gigabytes with 1 TB = 1000 GB. Unparseable input yields 0.
func StorageGB(s string) int {
	m := storagePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	if m[2] == "TB" {
		return int(n * 1000)
	}
	return int(n)
}

// leadingInt parses the integer prefix of a spec value such as "16GB".
func leadingInt(s string) (int, bool) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil {
		return 0, false
	}
	return n, true
}

var nonDigits = regexp.MustCompile(`\D`)

// priceValue parses a display price like "NT$36,390" into whole currency
// units by discarding everything that is not a digit.
func priceValue(display string) (int, bool) {
	digits := nonDigits.ReplaceAllString(display, "")
	if digits == "" {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}
