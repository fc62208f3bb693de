package domain

import (
	"regexp"
	"strings"
	"time"
)

// Category identifies which storefront section a listing was scraped from.
type Category string

// Storefront categories tracked by the scraper.
const (
	CategoryMac     Category = "mac"
	CategoryIPad    Category = "ipad"
	CategoryAppleTV Category = "appletv"
	CategoryOther   Category = "other"
)

// RawListing is one scraped product tile before structured parsing.
// It is consumed immediately by the spec parser and never persisted verbatim.
type RawListing struct {
	Name        string
	Price       string
	Description string
	URL         string
	Image       string
	Category    Category
}

// ProductSpec holds the structured attributes extracted from a listing's
// free text. An empty field means the attribute could not be determined
// from the text, not that it does not apply.
type ProductSpec struct {
	ScreenSize  string `json:"screen_size,omitempty"`
	Chip        string `json:"chip,omitempty"`
	Memory      string `json:"memory,omitempty"`
	Storage     string `json:"storage,omitempty"`
	Color       string `json:"color,omitempty"`
	ProductType string `json:"product_type,omitempty"`
	Category    string `json:"category"`
}

// Product is the persisted entity. Its identity is the ProductKey; repeated
// scrapes overwrite the mutable fields and bump LastSeen.
type Product struct {
	Name        string      `json:"name"`
	Price       string      `json:"price"`
	Description string      `json:"description"`
	URL         string      `json:"url"`
	Image       string      `json:"image,omitempty"`
	Category    Category    `json:"category"`
	Specs       ProductSpec `json:"specs"`
	ProductKey  string      `json:"product_key"`
	LastSeen    time.Time   `json:"last_seen"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// ProductKey derives the stable identity of a listing from its URL by
// stripping the query string. The storefront decorates links with volatile
// tracking parameters, so two visits to the same product must still yield
// the same key.
func ProductKey(rawURL string) string {
	if i := strings.Index(rawURL, "?"); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// ProductID turns a ProductKey into a storage-safe document name: the scheme
// and host are dropped and every run of non-alphanumeric characters collapses
// to a single underscore. It is never shown to users.
func ProductID(productKey string) string {
	path := productKey
	if i := strings.Index(path, "://"); i >= 0 {
		path = path[i+3:]
		if j := strings.Index(path, "/"); j >= 0 {
			path = path[j:]
		} else {
			path = ""
		}
	}
	return strings.Trim(nonAlphanumeric.ReplaceAllString(path, "_"), "_")
}
