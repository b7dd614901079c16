package extractor

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/use-agent/shopsavvy/models"
)

const (
	minNameLen = 3
	maxNameLen = 100
)

// Normalize promotes a candidate to a ProductRecord or rejects it.
//
// Checks run in order: positive price, a trimmed name of at least three
// characters, then an absolute product URL. The name is clamped to 100
// characters and OriginalPrice falls back to Price unless it is strictly
// greater. An image URL that is not absolute is dropped rather than
// rejecting the whole record.
func Normalize(raw RawCandidate, platform models.Platform) (models.ProductRecord, error) {
	if _, ok := models.ParsePlatform(string(platform)); !ok {
		return models.ProductRecord{}, ErrUnknownPlatform
	}
	if raw.Price <= 0 {
		return models.ProductRecord{}, ErrInvalidPrice
	}

	name := strings.TrimSpace(raw.Name)
	if utf8.RuneCountInString(name) < minNameLen {
		return models.ProductRecord{}, ErrShortName
	}
	name = clamp(name, maxNameLen)

	if !isAbsoluteHTTP(raw.URL) {
		return models.ProductRecord{}, ErrInvalidURL
	}

	image := raw.ImageURL
	if image != "" && !isAbsoluteHTTP(image) {
		image = ""
	}

	original := raw.OriginalPrice
	if original <= raw.Price {
		original = raw.Price
	}

	return models.ProductRecord{
		Name:          name,
		Price:         raw.Price,
		OriginalPrice: original,
		Platform:      platform,
		URL:           raw.URL,
		ImageURL:      image,
	}, nil
}

// clamp cuts s to at most n runes.
func clamp(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

func isAbsoluteHTTP(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
