package echoapi

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"math"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/go-playground/locales/vi"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/udemo/academy/core"
	"github.com/udemo/academy/core/course"
	appfs "github.com/udemo/academy/fs"
)

const (
	webTemplatesDir = "templates/web"
	layoutTemplate  = "_layout.gohtml"
	pageWindow      = 5
)

var viLocale = vi.New()

// templateRenderer holds one template set per page, each parsed together with the layout.
type templateRenderer struct {
	pages map[string]*template.Template
}

var _ echo.Renderer = (*templateRenderer)(nil)

func newTemplateRenderer() *templateRenderer {
	fps, err := fs.Glob(appfs.FS, path.Join(webTemplatesDir, "*.gohtml"))
	if err != nil {
		panic(errors.Wrap(err, "listing web templates"))
	}
	r := &templateRenderer{pages: make(map[string]*template.Template, len(fps))}
	for _, fp := range fps {
		fname := path.Base(fp)
		if strings.HasPrefix(fname, "_") {
			continue
		}
		tmpl := template.Must(
			template.New(layoutTemplate).
				Funcs(templateFuncs).
				ParseFS(appfs.FS, path.Join(webTemplatesDir, layoutTemplate), fp),
		)
		if core.Conf.Debug || core.Conf.TestMode {
			tmpl = tmpl.Option("missingkey=error")
		}
		r.pages[strings.TrimSuffix(fname, ".gohtml")] = tmpl
	}
	return r
}

func (r *templateRenderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return errors.Errorf("web template %q not found", name)
	}
	return tmpl.ExecuteTemplate(w, "layout", data)
}

var templateFuncs = template.FuncMap{
	"price":          formatPrice,
	"effectivePrice": func(c course.Course) string { return formatPrice(c.EffectivePrice()) },
	"duration":       course.FormatDuration,
	"stars":          stars,
	"pageRange":      pageRange,
	"queryWith":      queryWith,
	"date":           formatDate,
	"rating":         func(r float64) string { return viLocale.FmtNumber(r, 1) },
	"add":            func(a, b int) int { return a + b },
	"float":          func(i int) float64 { return float64(i) },
	"hasCategory":    func(f course.SearchFilter, id int64) bool { return f.HasCategory(id) },
}

// formatPrice renders VND amounts with Vietnamese digit grouping, e.g. "1.250.000 ₫".
func formatPrice(amount int64) string {
	if amount <= 0 {
		return "Miễn phí"
	}
	return viLocale.FmtNumber(float64(amount), 0) + " ₫"
}

// stars renders a 0..5 rating rounded to the nearest whole star.
func stars(rating float64) string {
	full := int(math.Round(rating))
	if full < 0 {
		full = 0
	}
	if full > 5 {
		full = 5
	}
	return strings.Repeat("★", full) + strings.Repeat("☆", 5-full)
}

// pageRange returns up to pageWindow page numbers centered on current.
func pageRange(current, total int) []int {
	if total < 1 {
		return nil
	}
	start := current - pageWindow/2
	if start < 1 {
		start = 1
	}
	end := start + pageWindow - 1
	if end > total {
		end = total
		if start = end - pageWindow + 1; start < 1 {
			start = 1
		}
	}
	pages := make([]int, 0, end-start+1)
	for p := start; p <= end; p++ {
		pages = append(pages, p)
	}
	return pages
}

// queryWith rebuilds a query string with key set to val; an empty val removes the key.
// Changing anything but the page resets pagination.
func queryWith(values url.Values, key string, val interface{}) string {
	v := make(url.Values, len(values))
	for k, vals := range values {
		v[k] = append([]string(nil), vals...)
	}
	if s := fmt.Sprint(val); s != "" && s != "0" {
		v.Set(key, s)
	} else {
		v.Del(key)
	}
	if key != "page" {
		v.Del("page")
	}
	if len(v) == 0 {
		return "?"
	}
	return "?" + v.Encode()
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(vnLocation).Format("02/01/2006")
}

var vnLocation = loadLocation("Asia/Ho_Chi_Minh", 7*60*60)

func loadLocation(name string, offset int) *time.Location {
	if loc, err := time.LoadLocation(name); err == nil {
		return loc
	}
	return time.FixedZone(name, offset)
}
