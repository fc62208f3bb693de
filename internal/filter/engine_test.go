package filter

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"refurbtracker/internal/domain"
)

func product(name string, specs domain.ProductSpec, price string) domain.Product {
	return domain.Product{
		Name:       name,
		Price:      price,
		URL:        "https://www.apple.com/tw/shop/product/" + name,
		ProductKey: "https://www.apple.com/tw/shop/product/" + name,
		Specs:      specs,
	}
}

func TestProductsMinMemory(t *testing.T) {
	products := []domain.Product{
		product("no-memory", domain.ProductSpec{}, "NT$20,000"),
		product("8gb", domain.ProductSpec{Memory: "8GB"}, "NT$20,000"),
		product("32gb", domain.ProductSpec{Memory: "32GB"}, "NT$20,000"),
	}

	got := Products(products, domain.FilterSpec{MinMemory: 16})

	assert.Len(t, got, 1)
	assert.Equal(t, "32gb", got[0].Name)
}

func TestProductsMinStorage(t *testing.T) {
	products := []domain.Product{
		product("2tb", domain.ProductSpec{Storage: "2TB"}, ""),
		product("512gb", domain.ProductSpec{Storage: "512GB"}, ""),
		product("unknown", domain.ProductSpec{}, ""),
	}

	got := Products(products, domain.FilterSpec{MinStorage: "1TB"})

	assert.Len(t, got, 1)
	assert.Equal(t, "2tb", got[0].Name)

	// An unparseable filter minimum converts to zero and constrains nothing.
	got = Products(products, domain.FilterSpec{MinStorage: "huge"})
	assert.Len(t, got, 3)
}

func TestProductsMaxPrice(t *testing.T) {
	products := []domain.Product{
		product("cheap", domain.ProductSpec{}, "NT$21,990"),
		product("pricey", domain.ProductSpec{}, "NT$56,900"),
		product("unpriced", domain.ProductSpec{}, ""),
	}

	got := Products(products, domain.FilterSpec{MaxPrice: 30000})

	assert.Len(t, got, 1)
	assert.Equal(t, "cheap", got[0].Name)
}

func TestProductsExactFields(t *testing.T) {
	air := product("air", domain.ProductSpec{ProductType: "MacBook Air", Chip: "M4", Color: "午夜色"}, "")
	pro := product("pro", domain.ProductSpec{ProductType: "MacBook Pro", Chip: "M4 Pro"}, "")
	bare := product("bare", domain.ProductSpec{}, "")
	products := []domain.Product{air, pro, bare}

	got := Products(products, domain.FilterSpec{ProductType: "MacBook Air"})
	assert.Equal(t, []domain.Product{air}, got)

	got = Products(products, domain.FilterSpec{Chip: "M4 Pro"})
	assert.Equal(t, []domain.Product{pro}, got)

	// An empty spec field never equals a non-empty filter value.
	got = Products(products, domain.FilterSpec{Color: "銀色"})
	assert.Empty(t, got)
}

func TestProductsOpenFilterKeepsEverything(t *testing.T) {
	products := []domain.Product{
		product("a", domain.ProductSpec{}, ""),
		product("b", domain.ProductSpec{Memory: "8GB"}, ""),
	}
	got := Products(products, domain.FilterSpec{})
	if diff := cmp.Diff(products, got); diff != "" {
		t.Errorf("open filter changed the result (-want +got):\n%s", diff)
	}
}

func TestProductsIsStableAndIdempotent(t *testing.T) {
	products := []domain.Product{
		product("a", domain.ProductSpec{Memory: "16GB"}, ""),
		product("b", domain.ProductSpec{Memory: "24GB"}, ""),
		product("c", domain.ProductSpec{Memory: "32GB"}, ""),
	}
	f := domain.FilterSpec{MinMemory: 24}

	once := Products(products, f)
	twice := Products(once, f)

	assert.Equal(t, []string{"b", "c"}, []string{once[0].Name, once[1].Name})
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("filter not idempotent (-once +twice):\n%s", diff)
	}
}

func TestProductsMonotonicity(t *testing.T) {
	products := []domain.Product{
		product("a", domain.ProductSpec{ProductType: "MacBook Air", Memory: "16GB"}, "NT$30,900"),
		product("b", domain.ProductSpec{ProductType: "MacBook Air", Memory: "24GB"}, "NT$40,900"),
		product("c", domain.ProductSpec{ProductType: "MacBook Pro", Memory: "32GB"}, "NT$80,900"),
	}

	base := domain.FilterSpec{ProductType: "MacBook Air"}
	narrower := []domain.FilterSpec{
		{ProductType: "MacBook Air", MinMemory: 24},
		{ProductType: "MacBook Air", MaxPrice: 35000},
		{ProductType: "MacBook Air", Chip: "M4"},
	}

	baseCount := len(Products(products, base))
	for _, f := range narrower {
		assert.LessOrEqual(t, len(Products(products, f)), baseCount, "filter %+v", f)
	}
}

func TestStorageGB(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"512GB", 512},
		{"1TB", 1000},
		{"1.5TB", 1500},
		{"2TB", 2000},
		{"", 0},
		{"SSD", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StorageGB(tt.in), "input %q", tt.in)
	}
}
