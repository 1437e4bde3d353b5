package source

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// RawRecord is one untyped scraped record as decoded by encoding/json.
// Values are string, float64, bool, nil, or nested structures; only scalar
// string/number values are meaningful to the extractor.
type RawRecord map[string]any

// FindField returns the first candidate field present on the record with a
// non-nil, non-empty value. Candidate order encodes priority.
func FindField(rec RawRecord, candidates []string) (string, bool) {
	for _, name := range candidates {
		v, ok := rec[name]
		if !ok || v == nil {
			continue
		}
		switch val := v.(type) {
		case string:
			if val != "" {
				return val, true
			}
		case float64:
			return formatNumber(val), true
		}
	}
	return "", false
}

// Scraped text arrives through lossy transcoding that turns the naira sign
// into known three-byte sequences. Repaired before pattern matching so a
// corrupted price string extracts the same amount as its clean equivalent.
var currencyRepairer = strings.NewReplacer(
	"â‚¦", "₦",
	"â€¹", "₦",
	"â‚¬", "₦",
)

// ExtractPrice parses a noisy price string using the profile's pattern.
// Absence (no match, unparsable, or non-positive amount) is reported via the
// bool, never an error: a bad price degrades to a skipped record upstream.
func ExtractPrice(raw string, pattern *regexp.Regexp) (float64, bool) {
	clean := strings.TrimSpace(currencyRepairer.Replace(raw))
	if clean == "" || strings.HasPrefix(clean, "-") {
		return 0, false
	}
	m := pattern.FindStringSubmatch(clean)
	if len(m) < 2 {
		return 0, false
	}
	digits := strings.ReplaceAll(m[1], ",", "")
	digits = strings.Join(strings.Fields(digits), "")
	amount, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return 0, false
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return 0, false
	}
	return amount, true
}

// Domains recognized inside listing URLs, mapped to display market names.
var marketDomains = []struct {
	substr string
	market string
}{
	{"jumia", "Jumia"},
	{"konga", "Konga"},
	{"supermart", "Supermart"},
	{"shoprite", "Shoprite"},
	{"spar", "Spar"},
}

// ExtractMarket resolves the market name for a record. An explicit
// market/store/shop field wins, then known domains in the listing URL, then
// the profile's default label.
func ExtractMarket(rec RawRecord, fallback, url string) string {
	for _, field := range []string{"market", "store", "shop"} {
		if v, ok := FindField(rec, []string{field}); ok {
			return v
		}
	}
	lower := strings.ToLower(url)
	for _, d := range marketDomains {
		if strings.Contains(lower, d.substr) {
			return d.market
		}
	}
	return fallback
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
