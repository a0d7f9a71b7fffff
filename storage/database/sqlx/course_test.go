package sqlxrepos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udemo/academy/core/course"
)

func i64(v int64) *int64     { return &v }
func f64(v float64) *float64 { return &v }

const joins = "FROM courses c " +
	"JOIN categories cat ON cat.id = c.category_id " +
	"LEFT JOIN categories pcat ON pcat.id = cat.parent_id " +
	"JOIN users u ON u.id = c.teacher_id"

func TestBuildSearchQuery_Defaults(t *testing.T) {
	f := course.SearchFilter{}
	f.Normalize(12, 50)
	list, count := buildSearchQuery(f, course.TextQuery(""), nil)

	listSQL, listArgs, err := list.ToSql()
	require.NoError(t, err)
	countSQL, countArgs, err := count.ToSql()
	require.NoError(t, err)

	assert.Contains(t, listSQL, joins)
	assert.Contains(t, listSQL, "WHERE c.is_disabled = $1")
	assert.Contains(t, listSQL, "ORDER BY c.enrollment_count DESC, c.id DESC")
	assert.Contains(t, listSQL, "LIMIT 12")
	assert.Equal(t, false, listArgs[0])

	assert.Equal(t, "SELECT COUNT(*) "+joins+" WHERE c.is_disabled = $1", countSQL)
	assert.Equal(t, []interface{}{false}, countArgs)
}

func TestBuildSearchQuery_AllFilters(t *testing.T) {
	f := course.SearchFilter{
		Query:     "Lập trình",
		MinPrice:  i64(100000),
		MaxPrice:  i64(500000),
		MinRating: f64(4),
		Featured:  true,
		Discount:  true,
		Sort:      course.SortPriceAsc,
		Page:      3,
		Limit:     10,
	}
	f.Normalize(12, 50)
	list, count := buildSearchQuery(f, course.TextQuery(f.Query), []int64{1, 2, 3})

	listSQL, listArgs, err := list.ToSql()
	require.NoError(t, err)
	countSQL, countArgs, err := count.ToSql()
	require.NoError(t, err)

	wantWhere := "WHERE c.is_disabled = $1" +
		" AND c.category_id IN ($2,$3,$4)" +
		" AND c.search_vector @@ to_tsquery('simple', $5)" +
		" AND COALESCE(c.discount_price, c.price) >= $6" +
		" AND COALESCE(c.discount_price, c.price) <= $7" +
		" AND c.rating >= $8" +
		" AND c.is_featured = $9" +
		" AND c.discount_price IS NOT NULL AND c.discount_price < c.price"
	wantArgs := []interface{}{false, int64(1), int64(2), int64(3), "lap:* & trinh:*", int64(100000), int64(500000), 4.0, true}

	assert.Contains(t, listSQL, wantWhere)
	assert.Contains(t, listSQL, "ORDER BY COALESCE(c.discount_price, c.price) ASC, c.id DESC")
	assert.Contains(t, listSQL, "LIMIT 10")
	assert.Contains(t, listSQL, "OFFSET 20")
	assert.Equal(t, wantArgs, listArgs[:len(wantArgs)])

	assert.Equal(t, "SELECT COUNT(*) "+joins+" "+wantWhere, countSQL)
	assert.Equal(t, wantArgs, countArgs)
}

func TestBuildSearchQuery_Substring(t *testing.T) {
	f := course.SearchFilter{Query: "c_", Sort: course.SortRating}
	f.Normalize(12, 50)
	list, _ := buildSearchQuery(f, course.TextQuery(f.Query), nil)

	sql, args, err := list.ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "(c.title ILIKE $2 OR c.description ILIKE $3 OR cat.name ILIKE $4 OR u.name ILIKE $5)")
	assert.Contains(t, sql, "ORDER BY c.rating DESC, c.rating_count DESC, c.id DESC")
	assert.NotContains(t, sql, "search_vector")
	// "_" is stripped by cleaning: only "c" remains
	assert.Equal(t, []interface{}{false, "%c%", "%c%", "%c%", "%c%"}, args[:5])
}

func TestBuildSearchQuery_TeacherAndDisabled(t *testing.T) {
	f := course.SearchFilter{TeacherID: 7, IncludeDisabled: true, Sort: course.SortNewest}
	f.Normalize(12, 50)
	list, count := buildSearchQuery(f, course.TextQuery(""), nil)

	sql, args, err := list.ToSql()
	require.NoError(t, err)
	assert.NotContains(t, sql, "is_disabled =")
	assert.Contains(t, sql, "WHERE c.teacher_id = $1")
	assert.Contains(t, sql, "ORDER BY c.created_at DESC, c.id DESC")
	assert.Equal(t, int64(7), args[0])

	countSQL, _, err := count.ToSql()
	require.NoError(t, err)
	assert.NotContains(t, countSQL, "ORDER BY")
	assert.NotContains(t, countSQL, "LIMIT")
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%`, escapeLike("100%"))
	assert.Equal(t, `a\_b`, escapeLike("a_b"))
	assert.Equal(t, `c:\\`, escapeLike(`c:\`))
}
