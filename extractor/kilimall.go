package extractor

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/use-agent/shopsavvy/config"
	"github.com/use-agent/shopsavvy/models"
	"github.com/use-agent/shopsavvy/price"
)

var anyLink = cascadia.MustCompile("a[href]")

// kilimallImageAttrs is the order image attributes are tried in: the eager
// source first, then the lazy-load variants.
var kilimallImageAttrs = []string{"src", "data-src", "data-original", "data-img"}

// Kilimall extracts the unstructured-link site. It has no card container, so
// candidates are anchors pointing at product detail pages and every field is
// recovered through an ordered chain of heuristics.
type Kilimall struct {
	site    Site
	detail  []*regexp.Regexp
	priceRe *regexp.Regexp

	names  []nameStrategy
	prices []priceScope
}

// nameStrategy derives a product name from an anchor and its image (which
// may be nil). An empty result passes control to the next strategy.
type nameStrategy func(anchor, img *html.Node) string

// priceScope picks the node whose text is scanned for a price. A nil result
// passes control to the next scope.
type priceScope func(anchor *html.Node) *html.Node

// NewKilimall builds the link extractor. The currency symbol and the detail
// patterns come from configuration so a format change on the site is a
// config edit.
func NewKilimall(cfg config.KilimallConfig) (*Kilimall, error) {
	site, err := NewSite(cfg.SourceConfig)
	if err != nil {
		return nil, fmt.Errorf("kilimall: %w", err)
	}

	symbol := strings.TrimSpace(cfg.CurrencySymbol)
	if symbol == "" {
		return nil, fmt.Errorf("kilimall: currency symbol is empty")
	}
	if len(cfg.DetailPatterns) == 0 {
		return nil, fmt.Errorf("kilimall: no detail patterns")
	}

	detail := make([]*regexp.Regexp, 0, len(cfg.DetailPatterns))
	for _, p := range cfg.DetailPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("kilimall: detail pattern %q: %w", p, err)
		}
		detail = append(detail, re)
	}

	return &Kilimall{
		site:    site,
		detail:  detail,
		// &nbsp; between symbol and amount decodes to U+00A0, which \s misses.
		priceRe: regexp.MustCompile(regexp.QuoteMeta(symbol) + `[\s\p{Zs}]*([\d,]+)`),
		names:   []nameStrategy{imageAlt, anchorText},
		prices:  []priceScope{anchorScope, parentScope},
	}, nil
}

func (k *Kilimall) Platform() models.Platform { return models.PlatformKilimall }

func (k *Kilimall) Site() Site { return k.site }

// Extract walks at most ScanLimit detail-page anchors in document order.
// An href that was already processed is skipped without producing a result.
func (k *Kilimall) Extract(rawHTML, _ string) ([]Result, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("kilimall: parse html: %w", err)
	}

	anchors := k.detailAnchors(doc)
	seen := make(map[string]struct{}, len(anchors))
	results := make([]Result, 0, len(anchors))

	for _, a := range anchors {
		href := attr(a, "href")
		if href == "" {
			continue
		}
		if _, dup := seen[href]; dup {
			continue
		}
		seen[href] = struct{}{}

		c, err := safely(func() (RawCandidate, error) { return k.candidate(a, href) })
		results = append(results, Result{Candidate: c, Err: err})
	}
	return results, nil
}

// detailAnchors returns the first ScanLimit anchors whose href matches any
// detail pattern. The cap applies before de-duplication.
func (k *Kilimall) detailAnchors(doc *html.Node) []*html.Node {
	var out []*html.Node
	for _, a := range cascadia.QueryAll(doc, anyLink) {
		if len(out) == k.site.ScanLimit {
			break
		}
		if k.isDetail(attr(a, "href")) {
			out = append(out, a)
		}
	}
	return out
}

func (k *Kilimall) isDetail(href string) bool {
	for _, re := range k.detail {
		if re.MatchString(href) {
			return true
		}
	}
	return false
}

func (k *Kilimall) candidate(a *html.Node, href string) (RawCandidate, error) {
	link, err := resolve(k.site.BaseURL, href)
	if err != nil {
		return RawCandidate{}, err
	}

	img := cascadia.Query(a, anyImage)

	var name string
	for _, strategy := range k.names {
		if name = strategy(a, img); name != "" {
			break
		}
	}
	if utf8.RuneCountInString(name) < minNameLen {
		return RawCandidate{}, ErrShortName
	}

	p, ok := k.findPrice(a)
	if !ok {
		return RawCandidate{}, ErrMissingPrice
	}
	if p == 0 {
		return RawCandidate{}, ErrInvalidPrice
	}

	return RawCandidate{
		Name:          name,
		Price:         p,
		OriginalPrice: p,
		URL:           link,
		ImageURL:      k.imageURL(img),
	}, nil
}

// findPrice scans each scope's text for the first currency-prefixed amount.
func (k *Kilimall) findPrice(a *html.Node) (int64, bool) {
	for _, scope := range k.prices {
		n := scope(a)
		if n == nil {
			continue
		}
		if m := k.priceRe.FindStringSubmatch(textContent(n)); m != nil {
			return price.Parse(m[1]), true
		}
	}
	return 0, false
}

// imageURL accepts the first attribute that is absolute or site-relative.
func (k *Kilimall) imageURL(img *html.Node) string {
	if img == nil {
		return ""
	}
	for _, key := range kilimallImageAttrs {
		v := strings.TrimSpace(attr(img, key))
		switch {
		case v == "":
			continue
		case strings.HasPrefix(v, "http"):
			return v
		case strings.HasPrefix(v, "//"):
			return k.site.BaseURL.Scheme + ":" + v
		case strings.HasPrefix(v, "/"):
			return k.site.Origin() + v
		}
	}
	return ""
}

// imageAlt treats a whitespace-only alt as missing so the anchor text is used.
func imageAlt(_, img *html.Node) string {
	return strings.TrimSpace(attr(img, "alt"))
}

func anchorText(a, _ *html.Node) string {
	return strippedText(a)
}

func anchorScope(a *html.Node) *html.Node { return a }

func parentScope(a *html.Node) *html.Node { return a.Parent }

// compile-time checks
var (
	_ Extractor = (*Jumia)(nil)
	_ Extractor = (*Kilimall)(nil)
)
