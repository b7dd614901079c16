package refine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/use-agent/shopsavvy/models"
)

func TestCleanQuery(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Samsung phone on Jumia", "Samsung phone"},
		{"  tv   from KILIMALL  ", "tv"},
		{"headphones in jumia and kilimall", "headphones and"},
		{"jumia", "jumia"},
		{"   ", ""},
		{"", ""},
		{"within budget laptop", "within budget laptop"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanQuery(tt.raw))
		})
	}
}

func rec(name string, price int64, p models.Platform) models.ProductRecord {
	return models.ProductRecord{Name: name, Price: price, OriginalPrice: price, Platform: p, URL: "https://example.com/" + name}
}

func sample() []models.ProductRecord {
	return []models.ProductRecord{
		rec("j-200", 200, models.PlatformJumia),
		rec("k-200", 200, models.PlatformKilimall),
		rec("j-500", 500, models.PlatformJumia),
		rec("k-50", 50, models.PlatformKilimall),
		rec("j-800", 800, models.PlatformJumia),
	}
}

func names(records []models.ProductRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Name
	}
	return out
}

func TestFilter_Apply(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"zero filter keeps all", Filter{}, []string{"j-200", "k-200", "j-500", "k-50", "j-800"}},
		{"inclusive bounds", Filter{MinPrice: 200, MaxPrice: 500}, []string{"j-200", "k-200", "j-500"}},
		{"min only", Filter{MinPrice: 600}, []string{"j-800"}},
		{"platform", Filter{Platforms: []models.Platform{models.PlatformKilimall}}, []string{"k-200", "k-50"}},
		{"empty range", Filter{MinPrice: 900, MaxPrice: 1000}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := sample()
			got := tt.filter.Apply(in)
			assert.Equal(t, tt.want, names(got))
			assert.Equal(t, sample(), in, "input untouched")
		})
	}
}

func TestSort(t *testing.T) {
	in := sample()

	assert.Equal(t, []string{"k-50", "j-200", "k-200", "j-500", "j-800"}, names(Sort(in, Ascending)))
	assert.Equal(t, []string{"j-800", "j-500", "j-200", "k-200", "k-50"}, names(Sort(in, Descending)))
	assert.Equal(t, sample(), in, "input untouched")
	assert.Empty(t, Sort(nil, Ascending))
}

func TestSummarize(t *testing.T) {
	stats := Summarize(sample())
	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 3, stats.ByPlatform[models.PlatformJumia])
	assert.Equal(t, 2, stats.ByPlatform[models.PlatformKilimall])
	assert.Equal(t, int64(50), stats.Cheapest)
	assert.Equal(t, int64(350), stats.Average)
	assert.Equal(t, int64(800), stats.Priciest)

	empty := Summarize(nil)
	assert.Equal(t, 0, empty.Total)
	assert.Equal(t, int64(0), empty.Cheapest)
	assert.Equal(t, 0, empty.ByPlatform[models.PlatformJumia])
}
