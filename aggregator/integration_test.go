package aggregator_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/shopsavvy/aggregator"
	"github.com/use-agent/shopsavvy/config"
	"github.com/use-agent/shopsavvy/engine"
	"github.com/use-agent/shopsavvy/extractor"
	"github.com/use-agent/shopsavvy/models"
	"github.com/use-agent/shopsavvy/refine"
)

func jumiaSite(t *testing.T, prices ...int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/catalog/" || r.URL.Query().Get("q") == "" {
			http.NotFound(w, r)
			return
		}
		var b strings.Builder
		b.WriteString(`<html><body><div class="row">`)
		for i, p := range prices {
			fmt.Fprintf(&b, `<article class="prd"><a class="core" href="/item-%d.html"><img data-src="/img/%d.jpg">`+
				`<h3 class="name">%s model %d</h3><div class="prc">KSh %d</div></a></article>`, i, i, r.URL.Query().Get("q"), i, p)
		}
		b.WriteString(`</div></body></html>`)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(b.String()))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func kilimallSite(t *testing.T, prices ...int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var b strings.Builder
		b.WriteString(`<html><body><ul>`)
		for i, p := range prices {
			fmt.Fprintf(&b, `<li><a href="/product/%d"><img src="/img/%d.png" alt="Kilimall %s %d"></a><span>KSh %d</span></li>`,
				i, i, r.URL.Query().Get("q"), i, p)
		}
		b.WriteString(`</ul></body></html>`)
		w.Write([]byte(b.String()))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newAggregator(t *testing.T, jumiaURL, kilimallURL string) *aggregator.Aggregator {
	t.Helper()
	cfg := config.Load()
	cfg.Jumia.BaseURL = jumiaURL
	cfg.Kilimall.BaseURL = kilimallURL

	j, err := extractor.NewJumia(cfg.Jumia)
	require.NoError(t, err)
	k, err := extractor.NewKilimall(cfg.Kilimall)
	require.NoError(t, err)

	opts := engine.Options{UserAgent: cfg.HTTP.UserAgent, AcceptLanguage: cfg.HTTP.AcceptLanguage}
	d := engine.NewDispatcher([]engine.Engine{engine.NewHTTPEngine(opts), engine.NewStdEngine(opts)}, engine.NewDomainMemory(time.Hour))
	return aggregator.New(d, []extractor.Extractor{j, k}, aggregator.Options{})
}

func TestEndToEnd_PriceRangeFilter(t *testing.T) {
	js := jumiaSite(t, 1500, 250, 4200, 999, 3100)
	ks := kilimallSite(t, 1200, 5000, 1000, 2999)
	agg := newAggregator(t, js.URL, ks.URL)

	res := agg.Search(context.Background(), "headphones", 50)
	require.Len(t, res.Products, 9)
	for _, s := range res.Sources {
		assert.Empty(t, s.Error, s.Platform)
	}

	f := refine.Filter{MinPrice: 1000, MaxPrice: 3000}
	filtered := f.Apply(res.Products)
	require.NotEmpty(t, filtered)
	for _, r := range filtered {
		assert.GreaterOrEqual(t, r.Price, int64(1000), r.Name)
		assert.LessOrEqual(t, r.Price, int64(3000), r.Name)
	}
	assert.Len(t, filtered, 4) // 1500, 1200, 1000, 2999

	for i := 1; i < len(res.Products); i++ {
		assert.LessOrEqual(t, res.Products[i-1].Price, res.Products[i].Price)
	}
	for _, r := range res.Products {
		assert.True(t, strings.HasPrefix(r.URL, "http://"), r.URL)
		assert.GreaterOrEqual(t, r.OriginalPrice, r.Price)
		if r.Platform == models.PlatformKilimall {
			assert.Equal(t, ks.URL+"/img/", r.ImageURL[:len(ks.URL)+5])
		}
	}
}

func TestEndToEnd_OneSiteDown(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()
	ks := kilimallSite(t, 800, 600)

	res := newAggregator(t, down.URL, ks.URL).Search(context.Background(), "kettle", 50)
	require.Len(t, res.Products, 2)
	assert.Equal(t, int64(600), res.Products[0].Price)
	assert.Contains(t, res.Sources[0].Error, "503")
	assert.Equal(t, 2, res.Sources[1].Found)
}
