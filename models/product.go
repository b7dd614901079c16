package models

import "strings"

// Platform identifies the e-commerce site a record came from.
type Platform string

const (
	PlatformJumia    Platform = "Jumia"
	PlatformKilimall Platform = "Kilimall"
)

// KnownPlatforms lists every platform in source invocation order.
var KnownPlatforms = []Platform{PlatformJumia, PlatformKilimall}

// ParsePlatform matches a platform name case-insensitively.
func ParsePlatform(s string) (Platform, bool) {
	for _, p := range KnownPlatforms {
		if strings.EqualFold(strings.TrimSpace(s), string(p)) {
			return p, true
		}
	}
	return "", false
}

// ProductRecord is one normalized listing. Records are built once by the
// extractor's normalizer and never mutated afterwards.
type ProductRecord struct {
	Name          string   `json:"name"`
	Price         int64    `json:"price"`
	OriginalPrice int64    `json:"original_price"`
	Platform      Platform `json:"platform"`
	URL           string   `json:"url"`
	ImageURL      string   `json:"image_url"`
}

// Savings is how much cheaper the listing is than its advertised original price.
func (p ProductRecord) Savings() int64 {
	if p.OriginalPrice > p.Price {
		return p.OriginalPrice - p.Price
	}
	return 0
}

// DiscountPercent truncates savings/original to a whole percentage.
func (p ProductRecord) DiscountPercent() int {
	if p.OriginalPrice <= 0 {
		return 0
	}
	return int(p.Savings() * 100 / p.OriginalPrice)
}
