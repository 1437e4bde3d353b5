// Package parse holds the pure price-line parser used by the catalog ingest
// API. It turns loosely formatted lines like "Golden Penny Rice 50kg - ₦47,200
// (Jumia)" into an item name, an optional unit, a price and an optional market.
package parse

import (
	"regexp"
	"strconv"
	"strings"
)

// PricedLine is one parsed scrape line. Unit and Market are empty when the
// line carries neither.
type PricedLine struct {
	Item   string
	Unit   string
	Price  float64
	Market string
}

var (
	marketRe = regexp.MustCompile(`\(([^)]+)\)\s*$`)
	// Comma-grouped amounts win over bare digit runs; the trailing boundary
	// keeps unit tokens like "50kg" from being read as a price.
	priceRe    = regexp.MustCompile(`(?i)[₦N]?\s*([0-9]{1,3}(?:,[0-9]{3})+|[0-9]+)\b`)
	unitRe     = regexp.MustCompile(`(?i)\b(\d+\s?(?:kg|g|l|ml|tuber|bag))\b`)
	trailSepRe = regexp.MustCompile(`[-—:]+\s*$`)
	bareUnitRe = regexp.MustCompile(`(?i)\b(bag|tuber)\b`)
	dashRe     = regexp.MustCompile(`[_–—-]`)
	squeezeRe  = regexp.MustCompile(`\s{2,}`)
	wordRe     = regexp.MustCompile(`\b\w`)
	andRe      = regexp.MustCompile(`\bAnd\b`)
	splitRe    = regexp.MustCompile(`[—:-]`)
)

// PriceLine parses one line. It returns ok=false when no price amount or no
// item name can be recovered from the text.
func PriceLine(line string) (PricedLine, bool) {
	text := strings.TrimSpace(line)

	var market string
	if m := marketRe.FindStringSubmatch(text); m != nil {
		market = strings.TrimSpace(m[1])
	}

	loc := priceRe.FindStringSubmatchIndex(text)
	if loc == nil {
		return PricedLine{}, false
	}
	amount := strings.ReplaceAll(text[loc[2]:loc[3]], ",", "")
	price, err := strconv.ParseFloat(amount, 64)
	if err != nil {
		return PricedLine{}, false
	}

	// The region before the amount carries the item name and the unit.
	beforePrice := strings.TrimSpace(text[:loc[0]])

	var unit string
	if m := unitRe.FindStringSubmatch(beforePrice); m != nil {
		unit = strings.ToLower(strings.ReplaceAll(m[1], " ", ""))
	}

	item := trailSepRe.ReplaceAllString(beforePrice, "")
	item = stripFirst(item, unitRe)
	item = bareUnitRe.ReplaceAllString(item, "")
	item = dashRe.ReplaceAllString(item, " ")
	item = squeezeRe.ReplaceAllString(item, " ")
	item = strings.TrimSpace(item)

	if item != "" {
		item = strings.ToLower(item)
		item = wordRe.ReplaceAllStringFunc(item, strings.ToUpper)
		item = andRe.ReplaceAllString(item, "and")
	}

	if item == "" {
		alt := splitRe.Split(text, 2)[0]
		item = strings.TrimSpace(stripFirst(alt, unitRe))
	}
	if item == "" {
		return PricedLine{}, false
	}

	return PricedLine{Item: item, Unit: unit, Price: price, Market: market}, true
}

// stripFirst removes the first match of re from s.
func stripFirst(s string, re *regexp.Regexp) string {
	loc := re.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[0]] + s[loc[1]:]
}
