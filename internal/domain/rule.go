package domain

import "time"

// FilterSpec describes the constraints of a tracking rule. Every field is
// optional; a zero value imposes no constraint, and the present fields are
// AND-combined when a product is evaluated.
type FilterSpec struct {
	ProductType string `json:"product_type,omitempty"`
	Chip        string `json:"chip,omitempty"`
	Color       string `json:"color,omitempty"`
	// MinMemory is a lower bound in GB on the product's unified memory.
	MinMemory int `json:"min_memory,omitempty"`
	// MinStorage is a lower bound on capacity, written the way the
	// storefront does ("512GB", "1TB").
	MinStorage string `json:"min_storage,omitempty"`
	// MaxPrice is an upper bound on the listing price in whole currency units.
	MaxPrice int `json:"max_price,omitempty"`
}

// Empty reports whether the spec constrains anything at all.
func (f FilterSpec) Empty() bool {
	return f == FilterSpec{}
}

// TrackingRule is a user-owned, named filter over new products. A disabled
// rule is kept in the store but excluded from matching.
type TrackingRule struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Enabled     bool       `json:"enabled"`
	Filters     FilterSpec `json:"filters"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
