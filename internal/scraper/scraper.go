package scraper

import (
	"context"

	"refurbtracker/internal/domain"
)

// Scraper fetches the raw listings from a set of storefront category pages.
type Scraper interface {
	// Scrape visits each category URL and returns every product tile found.
	// A single unreadable category contributes nothing; an error is returned
	// only when the whole session is unusable.
	Scrape(ctx context.Context, urls []string) ([]domain.RawListing, error)

	// Close releases the underlying browser session.
	Close() error
}
