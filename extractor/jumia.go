package extractor

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/use-agent/shopsavvy/config"
	"github.com/use-agent/shopsavvy/models"
	"github.com/use-agent/shopsavvy/price"
)

// Jumia renders search results as repeated <article class="prd"> cards with
// fixed child markers, so every field has one well-known place.
var (
	jumiaCard     = cascadia.MustCompile("article.prd")
	jumiaName     = cascadia.MustCompile("h3.name")
	jumiaPrice    = cascadia.MustCompile("div.prc")
	jumiaOldPrice = cascadia.MustCompile("div.old")
	jumiaLink     = cascadia.MustCompile("a.core")
	anyImage      = cascadia.MustCompile("img")
)

// jumiaImageAttrs prefers the lazy-load attribute over the eager one.
var jumiaImageAttrs = []string{"data-src", "src"}

// Jumia extracts the structured-card site.
type Jumia struct {
	site Site
}

// NewJumia builds the card extractor from its source configuration.
func NewJumia(cfg config.SourceConfig) (*Jumia, error) {
	site, err := NewSite(cfg)
	if err != nil {
		return nil, fmt.Errorf("jumia: %w", err)
	}
	return &Jumia{site: site}, nil
}

func (j *Jumia) Platform() models.Platform { return models.PlatformJumia }

func (j *Jumia) Site() Site { return j.site }

// Extract scans at most ScanLimit cards. Cards without a name or a readable
// price are reported as skipped; they still count against the limit.
func (j *Jumia) Extract(rawHTML, _ string) ([]Result, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("jumia: parse html: %w", err)
	}

	cards := doc.FindMatcher(jumiaCard)
	n := min(cards.Length(), j.site.ScanLimit)

	results := make([]Result, 0, n)
	cards.Slice(0, n).Each(func(_ int, card *goquery.Selection) {
		c, err := safely(func() (RawCandidate, error) { return j.card(card) })
		results = append(results, Result{Candidate: c, Err: err})
	})
	return results, nil
}

func (j *Jumia) card(card *goquery.Selection) (RawCandidate, error) {
	name := card.FindMatcher(jumiaName).First()
	if name.Length() == 0 {
		return RawCandidate{}, ErrMissingName
	}
	prc := card.FindMatcher(jumiaPrice).First()
	if prc.Length() == 0 {
		return RawCandidate{}, ErrMissingPrice
	}

	p := price.Parse(prc.Text())
	if p == 0 {
		return RawCandidate{}, ErrInvalidPrice
	}

	original := p
	if old := card.FindMatcher(jumiaOldPrice).First(); old.Length() > 0 {
		if v := price.Parse(old.Text()); v > p {
			original = v
		}
	}

	href, _ := card.FindMatcher(jumiaLink).First().Attr("href")
	link, err := resolve(j.site.BaseURL, href)
	if err != nil {
		return RawCandidate{}, err
	}

	var image string
	if img := card.FindMatcher(anyImage).First(); img.Length() > 0 {
		for _, attr := range jumiaImageAttrs {
			if v := strings.TrimSpace(img.AttrOr(attr, "")); v != "" {
				image = v
				break
			}
		}
	}
	if image != "" {
		if abs, err := resolve(j.site.BaseURL, image); err == nil {
			image = abs
		} else {
			image = ""
		}
	}

	return RawCandidate{
		Name:          strings.TrimSpace(name.Text()),
		Price:         p,
		OriginalPrice: original,
		URL:           link,
		ImageURL:      image,
	}, nil
}
