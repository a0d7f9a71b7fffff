package course

import (
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"github.com/udemo/academy/core"
)

// Sort keys
const (
	SortPopular   = "popular"
	SortNewest    = "newest"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortRating    = "rating"
)

// Logical ordering fields, mapped to columns by the repositories.
const (
	FieldCreatedAt       = "created_at"
	FieldEffectivePrice  = "effective_price"
	FieldRating          = "rating"
	FieldRatingCount     = "rating_count"
	FieldEnrollmentCount = "enrollment_count"
	FieldID              = "id"
)

// shorter cleaned queries use substring matching
const minFullTextLen = 3

type SortOption struct {
	Value string
	Label string
}

var SortOptions = []SortOption{
	{Value: SortPopular, Label: "Phổ biến nhất"},
	{Value: SortNewest, Label: "Mới nhất"},
	{Value: SortRating, Label: "Đánh giá cao"},
	{Value: SortPriceAsc, Label: "Giá thấp đến cao"},
	{Value: SortPriceDesc, Label: "Giá cao đến thấp"},
}

type SearchFilter struct {
	Query       string
	CategoryIDs []int64
	MinPrice    *int64
	MaxPrice    *int64
	MinRating   *float64
	Featured    bool
	Discount    bool
	Sort        string
	Page        int
	Limit       int

	// not parsed from public query strings
	TeacherID       int64
	IncludeDisabled bool
}

// ParseSearchFilter reads the listing query string. Malformed values are ignored.
func ParseSearchFilter(q url.Values) SearchFilter {
	f := SearchFilter{
		Query:       core.CleanString(q.Get("q")),
		CategoryIDs: parseIDList(q["category"]),
		MinPrice:    parsePrice(q.Get("min_price")),
		MaxPrice:    parsePrice(q.Get("max_price")),
		Featured:    parseFlag(q.Get("featured")),
		Discount:    parseFlag(q.Get("discount")),
		Sort:        core.CleanString(q.Get("sort"), true /* lower */),
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(q.Get("min_rating")), 64); err == nil {
		f.MinRating = &v
	}
	f.Page, _ = strconv.Atoi(strings.TrimSpace(q.Get("page")))
	f.Limit, _ = strconv.Atoi(strings.TrimSpace(q.Get("limit")))
	return f
}

// parseIDList accepts repeated params holding comma separated ids, possibly url-encoded ("1%2C2").
func parseIDList(values []string) []int64 {
	var ids []int64
	for _, val := range values {
		if unescaped, err := url.QueryUnescape(val); err == nil {
			val = unescaped
		}
		for _, tok := range strings.Split(val, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(tok), 10, 64)
			if err != nil || id <= 0 {
				continue
			}
			ids = append(ids, id)
		}
	}
	return ids
}

func parsePrice(val string) *int64 {
	val = strings.TrimSpace(val)
	if val == "" {
		return nil
	}
	price, err := strconv.ParseFloat(val, 64)
	if err != nil || price < 0 {
		return nil
	}
	p := int64(price)
	return &p
}

func parseFlag(val string) bool {
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// Normalize swaps inverted price bounds, clamps the rating to [0,5],
// replaces unknown sort keys and clamps pagination.
func (f *SearchFilter) Normalize(defaultLimit, maxLimit int) {
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		f.MinPrice, f.MaxPrice = f.MaxPrice, f.MinPrice
	}
	if f.MinRating != nil {
		r := *f.MinRating
		if r < 0 {
			r = 0
		} else if r > 5 {
			r = 5
		}
		f.MinRating = &r
	}
	f.Sort = NormalizeSort(f.Sort)

	p := core.NewPagination(f.Page, f.Limit, defaultLimit, maxLimit)
	f.Page, f.Limit = p.Page, p.Limit
}

func (f SearchFilter) Pagination() core.Pagination {
	return core.Pagination{Page: f.Page, Limit: f.Limit}
}

// Values renders the filter back to a query string (defaults omitted).
func (f SearchFilter) Values() url.Values {
	v := make(url.Values)
	if f.Query != "" {
		v.Set("q", f.Query)
	}
	if len(f.CategoryIDs) > 0 {
		ids := make([]string, len(f.CategoryIDs))
		for i, id := range f.CategoryIDs {
			ids[i] = strconv.FormatInt(id, 10)
		}
		v.Set("category", strings.Join(ids, ","))
	}
	if f.MinPrice != nil {
		v.Set("min_price", strconv.FormatInt(*f.MinPrice, 10))
	}
	if f.MaxPrice != nil {
		v.Set("max_price", strconv.FormatInt(*f.MaxPrice, 10))
	}
	if f.MinRating != nil {
		v.Set("min_rating", strconv.FormatFloat(*f.MinRating, 'f', -1, 64))
	}
	if f.Featured {
		v.Set("featured", "1")
	}
	if f.Discount {
		v.Set("discount", "1")
	}
	if f.Sort != "" && f.Sort != SortPopular {
		v.Set("sort", f.Sort)
	}
	if f.Page > 1 {
		v.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 && f.Limit != core.Conf.SearchPageSize {
		v.Set("limit", strconv.Itoa(f.Limit))
	}
	return v
}

func (f SearchFilter) HasCategory(id int64) bool {
	for _, cid := range f.CategoryIDs {
		if cid == id {
			return true
		}
	}
	return false
}

func NormalizeSort(key string) string {
	switch key {
	case SortNewest, SortPriceAsc, SortPriceDesc, SortRating:
		return key
	}
	return SortPopular
}

// Ordering maps a sort key to its ordering; id DESC always breaks ties.
func Ordering(key string) []core.DBOrdering {
	var ord []core.DBOrdering
	switch NormalizeSort(key) {
	case SortNewest:
		ord = []core.DBOrdering{{Field: FieldCreatedAt}}
	case SortPriceAsc:
		ord = []core.DBOrdering{{Field: FieldEffectivePrice, Ascending: true}}
	case SortPriceDesc:
		ord = []core.DBOrdering{{Field: FieldEffectivePrice}}
	case SortRating:
		ord = []core.DBOrdering{{Field: FieldRating}, {Field: FieldRatingCount}}
	default:
		ord = []core.DBOrdering{{Field: FieldEnrollmentCount}}
	}
	return append(ord, core.DBOrdering{Field: FieldID})
}

type TextMode int

const (
	TextNone TextMode = iota
	TextSubstring
	TextFullText
)

func (m TextMode) String() string {
	switch m {
	case TextSubstring:
		return "substring"
	case TextFullText:
		return "fulltext"
	}
	return "none"
}

// TextSearch is the resolved free-text part of a listing query.
type TextSearch struct {
	Mode TextMode
	// Term is the cleaned query, matched as a substring in TextSubstring mode.
	Term string
	// Terms are the folded, lowered words, each matched as a prefix in TextFullText mode.
	Terms []string
}

// TSQuery renders Terms as a prefix AND query: "lap:* & trinh:*".
func (ts TextSearch) TSQuery() string {
	parts := make([]string, len(ts.Terms))
	for i, term := range ts.Terms {
		parts[i] = term + ":*"
	}
	return strings.Join(parts, " & ")
}

// TextQuery strips punctuation from q and picks the matching strategy by the cleaned length.
func TextQuery(q string) TextSearch {
	cleaned := cleanQuery(q)
	switch {
	case cleaned == "":
		return TextSearch{Mode: TextNone}
	case len([]rune(cleaned)) < minFullTextLen:
		return TextSearch{Mode: TextSubstring, Term: cleaned}
	}
	return TextSearch{
		Mode:  TextFullText,
		Term:  cleaned,
		Terms: strings.Fields(strings.ToLower(core.Fold(cleaned))),
	}
}

// cleanQuery keeps letters, digits and single spaces.
func cleanQuery(q string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r) {
			return r
		}
		return ' '
	}, q)
	return strings.Join(strings.Fields(mapped), " ")
}
