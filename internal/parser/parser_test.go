package parser

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"refurbtracker/internal/domain"
)

func TestParseMacBookAir(t *testing.T) {
	got := Parse(
		"Apple MacBook Air 13吋 M4晶片 8核心CPU 16GB統一記憶體",
		"16GB統一記憶體 256GB SSD",
		domain.CategoryMac,
	)
	want := domain.ProductSpec{
		ProductType: "MacBook Air",
		ScreenSize:  "13吋",
		Chip:        "M4",
		Memory:      "16GB",
		Storage:     "256GB",
		Category:    "mac",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Parse mismatch (-want +got):\n%s", diff)
	}
}

func TestParseNormalizesNonBreakingSpaces(t *testing.T) {
	// The storefront emits U+00A0 between figures and units.
	got := Parse(
		"MacBook Pro 14吋 M3 Pro晶片",
		"18GB 統一記憶體 512GB SSD",
		domain.CategoryMac,
	)
	assert.Equal(t, "MacBook Pro", got.ProductType)
	assert.Equal(t, "M3 Pro", got.Chip)
	assert.Equal(t, "18GB", got.Memory)
	assert.Equal(t, "512GB", got.Storage)
}

func TestParseChipPatternOrder(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"vendor prefix", "Apple M2 Max 配備 Mac Studio", "M2 Max"},
		{"chip suffix", "Mac mini M2晶片", "M2"},
		{"chip suffix with variant", "Mac mini M2 Pro晶片", "M2 Pro"},
		{"bare token", "iMac 24吋 M1 8核心", "M1"},
		{"no chip", "Apple TV 4K", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.text, "", domain.CategoryMac)
			assert.Equal(t, tt.want, got.Chip)
		})
	}
}

func TestParseProductTypeSpecificityOrder(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Apple MacBook Pro 16吋", "MacBook Pro"},
		{"Apple iPad Pro 11吋", "iPad Pro"},
		{"Apple iPad mini", "iPad mini"},
		{"Apple iPad (第10代)", "iPad"},
		{"Apple Mac Studio", "Mac Studio"},
		{"Apple TV 4K Wi-Fi", "Apple TV"},
		{"HomePod mini", ""},
	}
	for _, tt := range tests {
		got := Parse(tt.text, "", domain.CategoryOther)
		assert.Equal(t, tt.want, got.ProductType, "text %q", tt.text)
	}
}

func TestParseMemoryPrefersDescription(t *testing.T) {
	// Name carries a different figure than the description; the description
	// wins.
	got := Parse(
		"MacBook Air 8GB",
		"16GB統一記憶體 512GB SSD",
		domain.CategoryMac,
	)
	assert.Equal(t, "16GB", got.Memory)

	// Description silent on memory, name fallback applies.
	got = Parse("MacBook Air 8GB記憶體", "好的選擇", domain.CategoryMac)
	assert.Equal(t, "8GB", got.Memory)
}

func TestParseStorage(t *testing.T) {
	tests := []struct {
		desc string
		want string
	}{
		{"16GB統一記憶體 1TB SSD", "1TB"},
		{"16GB統一記憶體 1.5TB SSD", "1.5TB"},
		{"256GB SSD", "256GB"},
		{"128GB 儲存裝置", "128GB"},
		{"16GB統一記憶體", ""},
	}
	for _, tt := range tests {
		got := Parse("", tt.desc, domain.CategoryMac)
		assert.Equal(t, tt.want, got.Storage, "description %q", tt.desc)
	}
}

func TestParseColor(t *testing.T) {
	got := Parse("MacBook Air 13吋 - 午夜色", "", domain.CategoryMac)
	assert.Equal(t, "午夜色", got.Color)

	got = Parse("Mac mini", "", domain.CategoryMac)
	assert.Empty(t, got.Color)
}

func TestParseFieldsAreIndependent(t *testing.T) {
	// Nothing parseable at all: every attribute stays empty, no error.
	got := Parse("整修品", "", domain.CategoryOther)
	want := domain.ProductSpec{Category: "other"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Parse mismatch (-want +got):\n%s", diff)
	}
}
