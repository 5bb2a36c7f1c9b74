// Package cache builds canonical grid keys and defines the KV-with-TTL
// store interface that CacheCheck and CacheWrite read and write through.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/recommend-consensus/internal/model"
)

// keyFormatter renders floats with exactly three fraction digits in the
// invariant ("und", i.e. language-neutral) locale, so the grid key never
// depends on the process's configured locale.
var keyFormatter = message.NewPrinter(language.Und)

// BuildKey computes the canonical cache key for a coordinate-mode lookup.
// Coordinates are rounded to three decimals, half-away-from-zero, before
// formatting, and categories are sorted ascending by name so that
// permutations of the same category set collide on one key.
func BuildKey(lat, lng float64, categories []model.Category) string {
	latPart := formatCoord(roundHalfAwayFromZero(lat, 3))
	lngPart := formatCoord(roundHalfAwayFromZero(lng, 3))
	return "rec:v1:" + latPart + ":" + lngPart + ":" + catPart(categories)
}

// BuildAddressKey computes the canonical cache key for address-only mode
// (geocoding unavailable). h is the first 16 hex characters of the SHA-256
// of the lower-cased, trimmed address.
func BuildAddressKey(address string, categories []model.Category) string {
	normalized := strings.ToLower(strings.TrimSpace(address))
	sum := sha256.Sum256([]byte(normalized))
	h := strings.ToUpper(hex.EncodeToString(sum[:])[:16])

	cat := string(model.CategoryAll)
	if len(categories) == 1 {
		cat = string(categories[0])
	}
	return "rec:v1:addr:" + h + ":" + cat
}

func catPart(categories []model.Category) string {
	if len(categories) == 1 {
		return string(categories[0])
	}
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = string(c)
	}
	sort.Strings(names)
	return strings.Join(names, "+")
}

// roundHalfAwayFromZero rounds v to places decimal places, rounding ties
// away from zero rather than to even — Go's math.Round already rounds
// half away from zero, so this only needs the decimal shift.
func roundHalfAwayFromZero(v float64, places int) float64 {
	scale := math.Pow10(places)
	return math.Round(v*scale) / scale
}

func formatCoord(v float64) string {
	return strings.TrimSpace(keyFormatter.Sprintf("%.3f", v))
}
