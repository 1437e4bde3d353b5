package source

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	t.Parallel()

	reg, err := NewRegistry(nil)
	require.NoError(t, err)

	tests := []struct {
		name     string
		fileName string
		sample   []RawRecord
		want     string
	}{
		{
			name:     "filename hint wins",
			fileName: "Supermart_Export_May.JSON",
			sample:   []RawRecord{{"product_name": "x", "selling_price": "y"}},
			want:     "supermart",
		},
		{
			name:     "jumia filename",
			fileName: "jumia_products.json",
			want:     "jumia",
		},
		{
			name:     "supermart key shape",
			fileName: "export.json",
			sample:   []RawRecord{{"Title": "Rice", "Price": "₦1,200", "Title_URL": "u"}},
			want:     "supermart",
		},
		{
			name:     "jumia key shape",
			fileName: "export.json",
			sample:   []RawRecord{{"Title": "Rice", "prc": "1200", "Title_URL": "u"}},
			want:     "jumia",
		},
		{
			name:     "jumia alternate shape",
			fileName: "export.json",
			sample:   []RawRecord{{"product_name": "Rice", "selling_price": "1200"}},
			want:     "jumia",
		},
		{
			name:     "unknown shape falls back to generic",
			fileName: "export.json",
			sample:   []RawRecord{{"sku": "a", "val": "b"}},
			want:     GenericProfile,
		},
		{
			name:     "empty sample falls back to generic",
			fileName: "export.json",
			want:     GenericProfile,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, reg.Detect(tc.fileName, tc.sample))
		})
	}
}

func TestRegistryFallback(t *testing.T) {
	t.Parallel()

	reg, err := NewRegistry(nil)
	require.NoError(t, err)

	p := reg.Profile("no-such-source")
	require.Equal(t, GenericProfile, p.Name)
	require.NotNil(t, p.PricePattern)
	require.True(t, reg.Has("supermart"))
	require.False(t, reg.Has("no-such-source"))
}

func TestRegistryExtras(t *testing.T) {
	t.Parallel()

	reg, err := NewRegistry(map[string]Spec{
		"shoprite": {
			TitleFields: []string{"item"},
			PriceFields: []string{"naira"},
			Market:      "Shoprite",
		},
	})
	require.NoError(t, err)

	p := reg.Profile("shoprite")
	require.Equal(t, "shoprite", p.Name)
	require.Equal(t, "Shoprite", p.Market)
	require.NotNil(t, p.PricePattern, "extras without a pattern inherit the generic one")

	_, err = NewRegistry(map[string]Spec{"bad": {PricePattern: "("}})
	require.Error(t, err)
}
