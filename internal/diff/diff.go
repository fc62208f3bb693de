// Package diff detects which scraped products have not been seen before.
package diff

import "refurbtracker/internal/domain"

// DetectNew returns the products in current whose ProductKey is absent from
// history, in the order they appear in current. It is a pure membership
// check: a changed price or description on a known product is not "new".
//
// Callers that fail to load history must not pass an improvised empty map
// here, since an empty history marks everything as new; degrade to skipping
// the diff instead.
func DetectNew(current []domain.Product, history map[string]domain.Product) []domain.Product {
	fresh := make([]domain.Product, 0)
	for _, p := range current {
		key := p.ProductKey
		if key == "" {
			key = domain.ProductKey(p.URL)
		}
		if _, seen := history[key]; !seen {
			fresh = append(fresh, p)
		}
	}
	return fresh
}
