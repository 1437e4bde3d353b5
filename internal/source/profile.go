// Package source maps heterogeneous scraped listing records onto canonical
// fields. Profiles are configuration, not code: each known data source is a
// named set of candidate field names plus a price pattern, and unrecognized
// input always falls back to the generic profile.
package source

import (
	"fmt"
	"regexp"
	"strings"
)

// GenericProfile is the fallback profile name. It always exists.
const GenericProfile = "generic"

// Profile describes how one scraped data source's fields map to canonical
// fields. Candidate order encodes priority among synonymous field names.
type Profile struct {
	Name         string
	TitleFields  []string
	PriceFields  []string
	URLFields    []string
	PricePattern *regexp.Regexp
	Market       string
}

// Spec is the config-file form of a Profile, with the pattern uncompiled.
type Spec struct {
	TitleFields  []string `mapstructure:"title_fields"`
	PriceFields  []string `mapstructure:"price_fields"`
	URLFields    []string `mapstructure:"url_fields"`
	PricePattern string   `mapstructure:"price_pattern"`
	Market       string   `mapstructure:"market"`
}

// Registry holds the known profiles. It is immutable after construction.
type Registry struct {
	profiles map[string]Profile
}

var (
	// Comma-grouped amounts or plain integers, optionally with two decimals,
	// after an optional currency symbol.
	supermartPrice = regexp.MustCompile(`(?i)[₦N]?\s*([0-9]{1,3}(?:,[0-9]{3})+|[0-9]+(?:\.[0-9]{2})?)`)
	marketPrice    = regexp.MustCompile(`(?i)[₦N]?\s*([0-9]{1,3}(?:,[0-9]{3})+|[0-9]+)`)
	genericPrice   = regexp.MustCompile(`(?i)[₦N$]?\s*([0-9]{1,3}(?:,[0-9]{3})+|[0-9]+(?:\.[0-9]{2})?)`)
)

func defaultProfiles() map[string]Profile {
	return map[string]Profile{
		"supermart": {
			Name:         "supermart",
			TitleFields:  []string{"Title", "title", "name", "product_name", "item_name"},
			PriceFields:  []string{"Price", "price", "cost", "amount"},
			URLFields:    []string{"Title_URL", "url", "product_url", "link", "href"},
			PricePattern: supermartPrice,
			Market:       "Supermart",
		},
		"jumia": {
			Name:         "jumia",
			TitleFields:  []string{"Title", "product_name", "title", "name"},
			PriceFields:  []string{"prc", "price", "current_price", "selling_price"},
			URLFields:    []string{"Title_URL", "product_url", "url", "link"},
			PricePattern: marketPrice,
			Market:       "Jumia",
		},
		"konga": {
			Name:         "konga",
			TitleFields:  []string{"name", "product_name", "title"},
			PriceFields:  []string{"price", "amount", "cost"},
			URLFields:    []string{"url", "product_link", "href"},
			PricePattern: marketPrice,
			Market:       "Konga",
		},
		GenericProfile: {
			Name:         GenericProfile,
			TitleFields:  []string{"Title", "title", "name", "product", "item", "product_name", "item_name"},
			PriceFields:  []string{"prc", "Price", "price", "cost", "amount", "value"},
			URLFields:    []string{"Title_URL", "url", "link", "href", "product_url", "item_url"},
			PricePattern: genericPrice,
			Market:       "Unknown",
		},
	}
}

// NewRegistry builds a Registry from the built-in profiles plus any extras
// from configuration. Extras may override built-ins by name; the generic
// profile cannot be removed.
func NewRegistry(extras map[string]Spec) (*Registry, error) {
	profiles := defaultProfiles()
	for name, spec := range extras {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			return nil, fmt.Errorf("source profile name is required")
		}
		pattern := genericPrice
		if spec.PricePattern != "" {
			compiled, err := regexp.Compile(spec.PricePattern)
			if err != nil {
				return nil, fmt.Errorf("compile price pattern for source %q: %w", name, err)
			}
			pattern = compiled
		}
		market := spec.Market
		if market == "" {
			market = "Unknown"
		}
		profiles[name] = Profile{
			Name:         name,
			TitleFields:  spec.TitleFields,
			PriceFields:  spec.PriceFields,
			URLFields:    spec.URLFields,
			PricePattern: pattern,
			Market:       market,
		}
	}
	return &Registry{profiles: profiles}, nil
}

// Profile returns the named profile, falling back to generic for unknown names.
func (r *Registry) Profile(name string) Profile {
	if p, ok := r.profiles[strings.ToLower(strings.TrimSpace(name))]; ok {
		return p
	}
	return r.profiles[GenericProfile]
}

// Has reports whether a profile with the given name exists.
func (r *Registry) Has(name string) bool {
	_, ok := r.profiles[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// Detect resolves the profile name for a file. Filename substrings win because
// they are the cheapest source-specific hint; otherwise the key shape of the
// first sample record is checked against known signatures. Detection is
// best-effort and never fails: unmatched input resolves to generic.
func (r *Registry) Detect(fileName string, sample []RawRecord) string {
	lower := strings.ToLower(fileName)
	for _, name := range []string{"supermart", "jumia", "konga"} {
		if strings.Contains(lower, name) {
			return name
		}
	}

	if len(sample) == 0 {
		return GenericProfile
	}
	keys := make(map[string]bool, len(sample[0]))
	for k := range sample[0] {
		keys[strings.ToLower(k)] = true
	}
	switch {
	case keys["title"] && keys["price"] && keys["title_url"]:
		return "supermart"
	case keys["title"] && keys["prc"] && keys["title_url"]:
		return "jumia"
	case keys["product_name"] && keys["selling_price"]:
		return "jumia"
	}
	return GenericProfile
}
