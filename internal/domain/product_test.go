package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProductKeyStripsQueryString(t *testing.T) {
	base := "https://www.apple.com/tw/shop/product/FD2H4TA/A"

	assert.Equal(t, base, ProductKey(base))
	assert.Equal(t, base, ProductKey(base+"?fnode=8e0bd28a"))
	assert.Equal(t, base, ProductKey(base+"?fnode=8e0bd28a&cid=abc"))
	assert.Equal(t, base, ProductKey(base+"?"))

	// Same path, different decoration, same key.
	assert.Equal(t,
		ProductKey(base+"?fnode=xyz"),
		ProductKey(base+"?session=123&ref=mail"),
	)
}

func TestProductID(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{
			key:  "https://www.apple.com/tw/shop/product/FD2H4TA/A",
			want: "tw_shop_product_FD2H4TA_A",
		},
		{
			key:  "https://www.apple.com/tw/shop/product/G1J42TA%2FA",
			want: "tw_shop_product_G1J42TA_2FA",
		},
		{
			// No path at all.
			key:  "https://www.apple.com",
			want: "",
		},
		{
			// Already a bare path.
			key:  "/tw/shop/refurbished/mac",
			want: "tw_shop_refurbished_mac",
		},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ProductID(tt.key), "key %q", tt.key)
	}
}

func TestProductIDDeterministic(t *testing.T) {
	key := ProductKey("https://www.apple.com/tw/shop/product/FD2H4TA/A?fnode=1")
	assert.Equal(t, ProductID(key), ProductID(key))
}
