package extractor

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/shopsavvy/config"
	"github.com/use-agent/shopsavvy/models"
)

func jumiaConfig() config.SourceConfig {
	return config.SourceConfig{
		BaseURL:    "https://www.jumia.co.ke",
		SearchPath: "/catalog/?q=%s",
		Timeout:    20 * time.Second,
		ScanLimit:  15,
	}
}

func newJumia(t *testing.T) *Jumia {
	t.Helper()
	j, err := NewJumia(jumiaConfig())
	require.NoError(t, err)
	return j
}

func jumiaCardHTML(name, prc, old, href, img string) string {
	var b strings.Builder
	b.WriteString(`<article class="prd _fb col c-prd">`)
	fmt.Fprintf(&b, `<a class="core" href="%s">`, href)
	if img != "" {
		b.WriteString(img)
	}
	b.WriteString(`<div class="info">`)
	if name != "" {
		fmt.Fprintf(&b, `<h3 class="name">%s</h3>`, name)
	}
	if prc != "" {
		fmt.Fprintf(&b, `<div class="prc">%s</div>`, prc)
	}
	if old != "" {
		fmt.Fprintf(&b, `<div class="s-prc-w"><div class="old">%s</div></div>`, old)
	}
	b.WriteString(`</div></a></article>`)
	return b.String()
}

func TestJumia_ThreeGoodCardsAndOneMalformed(t *testing.T) {
	page := `<html><body><div class="-paxs row _no-g _4cl-3cm-shs">` +
		jumiaCardHTML("Oraimo FreePods 4", "KSh 500", "", "/oraimo-freepods-4.html", "") +
		jumiaCardHTML("Sony WH-CH520", "KSh 200", "", "/sony-wh-ch520.html", "") +
		jumiaCardHTML("JBL Tune 520BT", "", "", "/jbl-tune.html", "") +
		jumiaCardHTML("Anker Soundcore Q20i", "KSh 800", "", "/anker-q20i.html", "") +
		`</div></body></html>`

	out, err := Run(newJumia(t), page, "headphones")
	require.NoError(t, err)

	require.Len(t, out.Records, 3)
	require.Len(t, out.Rejected, 1)
	assert.ErrorIs(t, out.Rejected[0], ErrMissingPrice)

	prices := []int64{out.Records[0].Price, out.Records[1].Price, out.Records[2].Price}
	assert.Equal(t, []int64{500, 200, 800}, prices, "extraction keeps document order; sorting is the aggregator's job")

	for _, r := range out.Records {
		assert.Equal(t, models.PlatformJumia, r.Platform)
		assert.True(t, strings.HasPrefix(r.URL, "https://www.jumia.co.ke/"), r.URL)
		assert.GreaterOrEqual(t, r.OriginalPrice, r.Price)
	}
}

func TestJumia_OldPrice(t *testing.T) {
	tests := []struct {
		name    string
		old     string
		wantOrg int64
	}{
		{"higher old price is kept", "KSh 1,500", 1500},
		{"equal old price falls back", "KSh 1,000", 1000},
		{"lower old price falls back", "KSh 900", 1000},
		{"unparseable old price falls back", "was", 1000},
		{"absent old price falls back", "", 1000},
	}

	j := newJumia(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := jumiaCardHTML("Samsung Galaxy Buds", "KSh 1,000", tt.old, "/buds.html", "")
			out, err := Run(j, page, "buds")
			require.NoError(t, err)
			require.Len(t, out.Records, 1)
			assert.Equal(t, int64(1000), out.Records[0].Price)
			assert.Equal(t, tt.wantOrg, out.Records[0].OriginalPrice)
		})
	}
}

func TestJumia_ImagePrefersLazyAttribute(t *testing.T) {
	tests := []struct {
		name string
		img  string
		want string
	}{
		{"lazy over eager", `<img data-src="https://ke.jumia.is/a.jpg" src="data:image/gif;base64,R0lG">`, "https://ke.jumia.is/a.jpg"},
		{"eager when lazy missing", `<img src="https://ke.jumia.is/b.jpg">`, "https://ke.jumia.is/b.jpg"},
		{"relative image resolved", `<img data-src="/img/c.jpg">`, "https://www.jumia.co.ke/img/c.jpg"},
		{"no image", "", ""},
	}

	j := newJumia(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := jumiaCardHTML("Xiaomi Redmi Buds", "KSh 2,300", "", "/redmi.html", tt.img)
			out, err := Run(j, page, "buds")
			require.NoError(t, err)
			require.Len(t, out.Records, 1)
			assert.Equal(t, tt.want, out.Records[0].ImageURL)
		})
	}
}

func TestJumia_SkipsZeroPriceAndMissingName(t *testing.T) {
	page := jumiaCardHTML("", "KSh 300", "", "/a.html", "") +
		jumiaCardHTML("Free Sticker", "KSh 0", "", "/b.html", "") +
		jumiaCardHTML("Real Product", "KSh 300", "", "/c.html", "")

	out, err := Run(newJumia(t), page, "x")
	require.NoError(t, err)
	require.Len(t, out.Records, 1)
	assert.Equal(t, "Real Product", out.Records[0].Name)
	require.Len(t, out.Rejected, 2)
	assert.ErrorIs(t, out.Rejected[0], ErrMissingName)
	assert.ErrorIs(t, out.Rejected[1], ErrInvalidPrice)
}

func TestJumia_ScanLimit(t *testing.T) {
	var b strings.Builder
	for i := range 40 {
		b.WriteString(jumiaCardHTML(fmt.Sprintf("Product %02d", i), fmt.Sprintf("KSh %d", 100+i), "", fmt.Sprintf("/p%d.html", i), ""))
	}

	results, err := newJumia(t).Extract(b.String(), "x")
	require.NoError(t, err)
	assert.Len(t, results, 15)
}

func TestJumia_MissingLinkResolvesToBase(t *testing.T) {
	page := `<article class="prd"><h3 class="name">Bare Card</h3><div class="prc">KSh 450</div></article>`
	out, err := Run(newJumia(t), page, "x")
	require.NoError(t, err)
	require.Len(t, out.Records, 1)
	assert.Equal(t, "https://www.jumia.co.ke", out.Records[0].URL)
}

func TestJumia_EmptyPage(t *testing.T) {
	out, err := Run(newJumia(t), "", "x")
	require.NoError(t, err)
	assert.Empty(t, out.Records)
	assert.Empty(t, out.Rejected)
}

func TestNewJumia_RejectsBadConfig(t *testing.T) {
	cfg := jumiaConfig()
	cfg.BaseURL = "www.jumia.co.ke"
	_, err := NewJumia(cfg)
	assert.Error(t, err)

	cfg = jumiaConfig()
	cfg.SearchPath = "/catalog/"
	_, err = NewJumia(cfg)
	assert.Error(t, err)
}

func TestSite_SearchURL(t *testing.T) {
	site, err := NewSite(jumiaConfig())
	require.NoError(t, err)
	assert.Equal(t, "https://www.jumia.co.ke/catalog/?q=wireless+headphones%26more", site.SearchURL("wireless headphones&more"))
	assert.Equal(t, "https://www.jumia.co.ke", site.Origin())
}
