package course

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/udemo/academy/core"
)

func i64(v int64) *int64     { return &v }
func f64(v float64) *float64 { return &v }

func TestParseSearchFilter(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  SearchFilter
	}{
		{name: "empty", query: "", want: SearchFilter{}},
		{
			name:  "comma separated categories",
			query: "category=1,2,3",
			want:  SearchFilter{CategoryIDs: []int64{1, 2, 3}},
		},
		{
			name:  "url-encoded categories",
			query: "category=1%252C2",
			want:  SearchFilter{CategoryIDs: []int64{1, 2}},
		},
		{
			name:  "repeated categories, invalid tokens ignored",
			query: "category=4&category=x,5,-1,&category=",
			want:  SearchFilter{CategoryIDs: []int64{4, 5}},
		},
		{
			name:  "prices and rating",
			query: "min_price=100000&max_price=500000.5&min_rating=4.5",
			want:  SearchFilter{MinPrice: i64(100000), MaxPrice: i64(500000), MinRating: f64(4.5)},
		},
		{
			name:  "malformed numbers ignored",
			query: "min_price=abc&max_price=-5&min_rating=x&page=two&limit=",
			want:  SearchFilter{},
		},
		{
			name:  "flags sort paging",
			query: "q=+golang+&featured=on&discount=1&sort=PRICE_ASC&page=3&limit=20",
			want:  SearchFilter{Query: "golang", Featured: true, Discount: true, Sort: SortPriceAsc, Page: 3, Limit: 20},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, ParseSearchFilter(q))
		})
	}
}

func TestSearchFilter_Normalize(t *testing.T) {
	f := SearchFilter{
		MinPrice:  i64(500),
		MaxPrice:  i64(100),
		MinRating: f64(7),
		Sort:      "cheapest",
		Page:      -2,
		Limit:     1000,
	}
	f.Normalize(12, 50)
	assert.Equal(t, int64(100), *f.MinPrice)
	assert.Equal(t, int64(500), *f.MaxPrice)
	assert.Equal(t, 5.0, *f.MinRating)
	assert.Equal(t, SortPopular, f.Sort)
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, 50, f.Limit)

	f = SearchFilter{MinRating: f64(-1)}
	f.Normalize(12, 50)
	assert.Equal(t, 0.0, *f.MinRating)
	assert.Equal(t, 12, f.Limit)
}

func TestSearchFilter_Values(t *testing.T) {
	f := SearchFilter{
		Query:       "go",
		CategoryIDs: []int64{1, 2},
		MinPrice:    i64(0),
		Discount:    true,
		Sort:        SortNewest,
		Page:        2,
		Limit:       core.Conf.SearchPageSize,
	}
	assert.Equal(t, "category=1%2C2&discount=1&min_price=0&page=2&q=go&sort=newest", f.Values().Encode())

	// round trip through the parser
	parsed := ParseSearchFilter(f.Values())
	parsed.Normalize(core.Conf.SearchPageSize, core.Conf.SearchMaxPerPage)
	assert.Equal(t, f, parsed)
}

func TestOrdering(t *testing.T) {
	id := core.DBOrdering{Field: FieldID}
	tests := []struct {
		sort string
		want []core.DBOrdering
	}{
		{sort: SortNewest, want: []core.DBOrdering{{Field: FieldCreatedAt}, id}},
		{sort: SortPriceAsc, want: []core.DBOrdering{{Field: FieldEffectivePrice, Ascending: true}, id}},
		{sort: SortPriceDesc, want: []core.DBOrdering{{Field: FieldEffectivePrice}, id}},
		{sort: SortRating, want: []core.DBOrdering{{Field: FieldRating}, {Field: FieldRatingCount}, id}},
		{sort: SortPopular, want: []core.DBOrdering{{Field: FieldEnrollmentCount}, id}},
		{sort: "", want: []core.DBOrdering{{Field: FieldEnrollmentCount}, id}},
		{sort: "bogus", want: []core.DBOrdering{{Field: FieldEnrollmentCount}, id}},
	}
	for _, tt := range tests {
		t.Run(tt.sort, func(t *testing.T) {
			assert.Equal(t, tt.want, Ordering(tt.sort))
		})
	}
}

func TestTextQuery(t *testing.T) {
	tests := []struct {
		name    string
		q       string
		mode    TextMode
		term    string
		tsquery string
	}{
		{name: "empty", q: "", mode: TextNone},
		{name: "only punctuation", q: " ?!... ", mode: TextNone},
		{name: "short", q: "Go", mode: TextSubstring, term: "Go"},
		{name: "short after cleaning", q: "C#!", mode: TextSubstring, term: "C"},
		{name: "two runes with diacritics", q: "Ấn", mode: TextSubstring, term: "Ấn"},
		{name: "three runes", q: "php", mode: TextFullText, term: "php", tsquery: "php:*"},
		{name: "multi term folded", q: "  Lập   trình, Web! ", mode: TextFullText, term: "Lập trình Web", tsquery: "lap:* & trinh:* & web:*"},
		{name: "punctuation splits terms", q: "node.js", mode: TextFullText, term: "node js", tsquery: "node:* & js:*"},
		{name: "tsquery operators stripped", q: "a & b | !c:*", mode: TextFullText, term: "a b c", tsquery: "a:* & b:* & c:*"},
		{name: "stroke d", q: "Đồ họa", mode: TextFullText, term: "Đồ họa", tsquery: "do:* & hoa:*"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := TextQuery(tt.q)
			assert.Equal(t, tt.mode, ts.Mode)
			assert.Equal(t, tt.term, ts.Term)
			if tt.mode == TextFullText {
				assert.Equal(t, tt.tsquery, ts.TSQuery())
			}
		})
	}
}
