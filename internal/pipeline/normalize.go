// Package pipeline turns raw scraped records into canonical upload records
// and runs the per-file ingest flow: parse, normalize, archive, upload.
package pipeline

import (
	"fmt"
	"strings"

	"github.com/LukSky123/Prices.ai/internal/source"
	"github.com/LukSky123/Prices.ai/internal/upload"
)

// SkipReason tags why a raw record did not become a canonical record.
type SkipReason string

// Validation skips are not errors: they are counted, never retried.
const (
	SkipMissingTitle SkipReason = "missing-title"
	SkipInvalidPrice SkipReason = "invalid-price"
)

// Outcome is the result of normalizing one raw record: either a canonical
// record or a skip with a reason. Normalization is pure and deterministic.
type Outcome struct {
	Record   upload.Record
	Skipped  bool
	Reason   SkipReason
	RawPrice string
}

// Normalize resolves one raw record against a source profile. pos is the
// record's 1-based position within its file.
func Normalize(rec source.RawRecord, profile source.Profile, pos int) Outcome {
	title, ok := source.FindField(rec, profile.TitleFields)
	if !ok {
		return Outcome{Skipped: true, Reason: SkipMissingTitle}
	}

	rawPrice, _ := source.FindField(rec, profile.PriceFields)
	amount, ok := source.ExtractPrice(rawPrice, profile.PricePattern)
	if !ok {
		return Outcome{Skipped: true, Reason: SkipInvalidPrice, RawPrice: rawPrice}
	}

	url, _ := source.FindField(rec, profile.URLFields)

	return Outcome{
		Record: upload.Record{
			Title:       title,
			Price:       FormatNaira(amount),
			TitleURL:    url,
			Market:      source.ExtractMarket(rec, profile.Market, url),
			SourceIndex: pos,
		},
	}
}

// FormatNaira renders an amount in the catalog wire format: naira sign,
// comma-grouped integer part, two decimals.
func FormatNaira(amount float64) string {
	s := fmt.Sprintf("%.2f", amount)
	dot := strings.IndexByte(s, '.')
	intPart, fracPart := s[:dot], s[dot:]

	var b strings.Builder
	b.WriteString("₦")
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if b.Len() > len("₦") {
			b.WriteByte(',')
		}
		b.WriteString(intPart[i : i+3])
	}
	b.WriteString(fracPart)
	return b.String()
}
