// Package extract turns the vision model's free-form transcription of a
// bottle label into best-effort candidate values for the five record
// fields. Extraction is pattern matching around lexical markers; it
// never fails, it only returns empty candidates and leaves the rest to
// manual entry.
package extract

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"github.com/yuchiaw/oil-intake/constants"
	"github.com/yuchiaw/oil-intake/internal/entity"
)

// FieldExtractor is one independent extraction rule: a pure function
// from raw text to a candidate value, empty when nothing matched.
type FieldExtractor struct {
	Field   string
	Extract func(text string) string
}

var (
	// Marker-led patterns. Colons come in ASCII and full-width variants,
	// and models like to wrap markers in markdown emphasis, so the gap
	// between marker and value tolerates ':：*_ ' noise.
	reName       = regexp.MustCompile(`(?:品名|產品名稱|名稱)[\s*_:：]*([^\s,，]+)`)
	rePriceWord  = regexp.MustCompile(`(?:售價|售价|價格)[\s*_:：]*(?:NT\$|[$＄])?\s*(\d[\d ]*)`)
	rePriceCurr  = regexp.MustCompile(`(?:NT\$|[$＄])\s*(\d[\d ]*)`)
	reVolume     = regexp.MustCompile(`(\d+)\s*(?:(?i:mL)|毫升)`)
	reExpiry     = regexp.MustCompile(`(?:(?i:sell\s*by\s*date)|保存期限|有效期限)[\s*_:：]*(\d{2})\s*[-/]\s*(\d{2})`)
	reBatch      = regexp.MustCompile(`(?:(?i:batch\s*no\.?)|批號|批号)[\s*_:：]*([0-9A-Z][0-9A-Z-]*)`)
	reAllDigits  = regexp.MustCompile(`^\d+$`)
	nameNoise    = "*_{}\"'`:：「」（）()[]"
	echoedLabels = []string{"品名", "產品名稱", "名稱"}
)

// Front returns the ordered extractors for a front-of-label photo:
// name, price, volume.
func Front() []FieldExtractor {
	return []FieldExtractor{
		{Field: constants.FieldName, Extract: extractName},
		{Field: constants.FieldPrice, Extract: extractPrice},
		{Field: constants.FieldVolume, Extract: extractVolume},
	}
}

// Side returns the ordered extractors for a side-of-label photo:
// expiry and batch code.
func Side() []FieldExtractor {
	return []FieldExtractor{
		{Field: constants.FieldExpiry, Extract: extractExpiry},
		{Field: constants.FieldBatch, Extract: extractBatch},
	}
}

// ForRegion maps a region name to its extractor list. Unknown regions
// get no extractors rather than an error; the caller ends up with an
// empty candidate map, which is the contract for everything here.
func ForRegion(region string) []FieldExtractor {
	switch region {
	case constants.RegionFront:
		return Front()
	case constants.RegionSide:
		return Side()
	}
	return nil
}

// Normalizer runs the per-region extractor lists over raw model output.
type Normalizer struct {
	logger *slog.Logger
}

func NewNormalizer(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{logger: logger}
}

// Normalize extracts candidates for one photographed region. Worst case
// on garbage input is an all-empty map, never an error.
func (n *Normalizer) Normalize(region, text string) entity.FieldCandidates {
	out := entity.FieldCandidates{}
	matched := 0
	for _, ex := range ForRegion(region) {
		v := ex.Extract(text)
		out[ex.Field] = v
		if v != "" {
			matched++
		}
	}
	n.logger.Debug("extract.normalize",
		"region", region, "text_len", len(text), "matched", matched, "fields", len(out))
	return out
}

// extractName looks for a product-name marker first; without one it
// falls back to the first line containing Han script, then to the first
// non-empty line. The label text is Traditional Chinese, so a line with
// Han runes is a far better guess than markdown preamble.
func extractName(text string) string {
	if m := reName.FindStringSubmatch(text); m != nil {
		if v := cleanName(m[1]); v != "" {
			return v
		}
	}
	var firstNonEmpty string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if firstNonEmpty == "" {
			firstNonEmpty = line
		}
		if containsHan(line) {
			return cleanName(line)
		}
	}
	return cleanName(firstNonEmpty)
}

// extractPrice prefers a price-word marker, then a bare currency
// symbol.
func extractPrice(text string) string {
	for _, re := range []*regexp.Regexp{rePriceWord, rePriceCurr} {
		if m := re.FindStringSubmatch(text); m != nil {
			return joinSpacedDigits(m[1])
		}
	}
	return ""
}

// joinSpacedDigits cleans up a captured amount that may run past the
// price. Models sometimes space out a single number ("7 0 0"); that is
// the only case where chunks merge. A multi-digit chunk after the
// first ("700 6") is the next number on the label, usually the volume,
// and is dropped.
func joinSpacedDigits(s string) string {
	chunks := strings.Fields(s)
	if len(chunks) == 0 {
		return ""
	}
	for _, c := range chunks {
		if len(c) != 1 {
			return chunks[0]
		}
	}
	return strings.Join(chunks, "")
}

// extractVolume captures digits attached to a milliliter marker and
// drops the unit.
func extractVolume(text string) string {
	if m := reVolume.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// extractExpiry requires the sell-by marker. Labels encode the date as
// MM-YY (two-digit year assumed 20YY), which is the same
// digits-and-hyphen shape as a batch code, so an unlabeled pair is
// never promoted to an expiry.
func extractExpiry(text string) string {
	m := reExpiry.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return "20" + m[2] + "-" + m[1]
}

// extractBatch requires the batch-number marker and rejects long
// purely numeric captures, which on these labels are the adjacent
// barcode rather than the batch code. When nothing matches it returns
// empty instead of guessing from other prominent text, the big
// storage-slot code makes that guess wrong more often than right.
func extractBatch(text string) string {
	m := reBatch.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	tok := strings.Trim(m[1], "-")
	if reAllDigits.MatchString(tok) && len(tok) > constants.MaxBarcodeDigits {
		return ""
	}
	return tok
}

func cleanName(s string) string {
	s = strings.Trim(s, nameNoise+" \t")
	for _, label := range echoedLabels {
		s = strings.ReplaceAll(s, label, "")
	}
	return strings.Trim(s, nameNoise+" \t")
}

func containsHan(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}
