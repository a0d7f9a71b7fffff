package tests

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udemo/academy/core"
	"github.com/udemo/academy/core/user"
	emailsvc "github.com/udemo/academy/services/email"
	testutil "github.com/udemo/academy/tests"
)

func authCookie(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == core.Conf.AuthCookieName {
			return c.Value
		}
	}
	t.Fatalf("no %s cookie set", core.Conf.AuthCookieName)
	return ""
}

func Test_webPages_catalog(t *testing.T) {
	c := newCatalog(t)

	tests := []struct {
		name     string
		path     string
		wantCode int
		contains []string
		excludes []string
	}{
		{name: "home", path: "/", wantCode: http.StatusOK, contains: []string{c.golang.Title, c.react.Title, "Lập trình", "Miễn phí"}},
		{name: "listing", path: "/courses", wantCode: http.StatusOK, contains: []string{"3 kết quả", "300.000 ₫", "400.000 ₫", "-25%"}},
		{name: "text search", path: "/courses?q=figma", wantCode: http.StatusOK, contains: []string{c.figma.Title, "1 kết quả"}, excludes: []string{c.golang.Title}},
		{
			name: "category page", path: fmt.Sprintf("/categories/%d", c.prog.ID), wantCode: http.StatusOK,
			contains: []string{c.golang.Title, c.react.Title}, excludes: []string{c.figma.Title},
		},
		{name: "unknown category", path: "/categories/999", wantCode: http.StatusNotFound, contains: []string{"category not found"}},
		{
			name: "course page", path: fmt.Sprintf("/courses/%d", c.react.ID), wantCode: http.StatusOK,
			contains: []string{c.react.Title, "Trần Minh", "Lập trình", "Web", "Đăng ký học"},
		},
		{name: "unknown course", path: "/courses/999", wantCode: http.StatusNotFound, contains: []string{"404", "course not found"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newFormRequest(http.MethodGet, tt.path, "", nil)
			c.ServeHTTP(rec, req)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
			for _, s := range tt.contains {
				assert.Contains(t, rec.Body.String(), s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, rec.Body.String(), s)
			}
		})
	}
}

func Test_webPages_pagination(t *testing.T) {
	c := newCatalog(t)

	req, rec := newFormRequest(http.MethodGet, "/courses?limit=1&page=2&sort=price_asc", "", nil)
	c.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := rec.Body.String()
	assert.Contains(t, body, c.golang.Title) // 0, 300k, 400k
	assert.NotContains(t, body, c.figma.Title)
	assert.Contains(t, body, "<strong>2</strong>")
	assert.Contains(t, body, `href="?limit=1&amp;page=3&amp;sort=price_asc"`)
}

func Test_webPages_login(t *testing.T) {
	app := setup(t)
	testutil.CreateUser(t, app.usrRepo, "Hero", "hero", "hero@test.cd", strongPwd, []string{user.RoleStudent}, true)

	req, rec := newFormRequest(http.MethodGet, "/my-courses", "", nil)
	app.ServeHTTP(rec, req)
	assertRedirect(t, rec, "/login?next=%2Fmy-courses")

	req, rec = newFormRequest(http.MethodGet, "/login?next=%2Fmy-courses", "", nil)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `value="/my-courses"`)

	req, rec = newFormRequest(http.MethodPost, "/login", "", url.Values{"username": {"hero"}, "password": {"wrong"}, "next": {"/my-courses"}})
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "authentication failed")
	assert.Contains(t, rec.Body.String(), `value="hero"`)

	req, rec = newFormRequest(http.MethodPost, "/login", "", url.Values{"username": {"hero@test.cd"}, "password": {strongPwd}, "next": {"//evil.test"}})
	app.ServeHTTP(rec, req)
	assertRedirect(t, rec, "/")

	req, rec = newFormRequest(http.MethodPost, "/login", "", url.Values{"username": {"hero"}, "password": {strongPwd}, "next": {"/my-courses"}})
	app.ServeHTTP(rec, req)
	assertRedirect(t, rec, "/my-courses")
	token := authCookie(t, rec)

	req, rec = newFormRequest(http.MethodGet, "/my-courses", token, nil)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Hero")
	assert.Contains(t, rec.Body.String(), "Đăng xuất")

	// a garbage cookie is dropped
	req, rec = newFormRequest(http.MethodGet, "/my-courses", "garbage", nil)
	app.ServeHTTP(rec, req)
	assertRedirect(t, rec, "/login?next=%2Fmy-courses")

	req, rec = newFormRequest(http.MethodGet, "/logout", token, nil)
	app.ServeHTTP(rec, req)
	assertRedirect(t, rec, "/")
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == core.Conf.AuthCookieName {
			assert.Empty(t, ck.Value)
			assert.True(t, ck.MaxAge < 0)
		}
	}
}

func Test_webPages_registerAndVerify(t *testing.T) {
	app := setup(t)
	emailsvc.ResetSentMessages()

	form := url.Values{"name": {"Võ Thu"}, "email": {"thu@test.cd"}, "password": {strongPwd}, "password_confirm": {"nope"}}
	req, rec := newFormRequest(http.MethodPost, "/register", "", form)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="thu@test.cd"`)
	assert.Contains(t, rec.Body.String(), "Giá trị nhập lại không khớp")
	assert.NotContains(t, rec.Body.String(), strongPwd)

	form.Set("password_confirm", strongPwd)
	req, rec = newFormRequest(http.MethodPost, "/register", "", form)
	app.ServeHTTP(rec, req)
	assertRedirect(t, rec, "/verify?email=thu%40test.cd")

	req, rec = newFormRequest(http.MethodGet, "/verify?email=thu%40test.cd", "", nil)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="thu@test.cd"`)

	msg, ok := emailsvc.LastMessageTo("thu@test.cd")
	require.True(t, ok)
	code := msg.TemplateData.(map[string]interface{})["Code"].(string)

	req, rec = newFormRequest(http.MethodPost, "/verify", "", url.Values{"email": {"thu@test.cd"}, "code": {"12"}})
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req, rec = newFormRequest(http.MethodPost, "/verify", "", url.Values{"email": {"thu@test.cd"}, "code": {code}})
	req.RemoteAddr = "198.51.100.3:1234"
	app.ServeHTTP(rec, req)
	assertRedirect(t, rec, "/my-courses")
	assert.NotEmpty(t, authCookie(t, rec))
}

func Test_webPages_courseActions(t *testing.T) {
	c := newCatalog(t)
	token := getToken(t, c.student)
	coursePath := fmt.Sprintf("/courses/%d", c.golang.ID)

	// anonymous posts bounce through the login page back to the course
	req, rec := newFormRequest(http.MethodPost, coursePath+"/enroll", "", url.Values{})
	c.ServeHTTP(rec, req)
	assertRedirect(t, rec, "/login?"+url.Values{"next": {coursePath}}.Encode())

	req, rec = newFormRequest(http.MethodPost, coursePath+"/enroll", token, url.Values{})
	c.ServeHTTP(rec, req)
	assertRedirect(t, rec, coursePath)

	req, rec = newFormRequest(http.MethodPost, coursePath+"/enroll", token, url.Values{})
	c.ServeHTTP(rec, req)
	assertRedirect(t, rec, coursePath+"?"+url.Values{"error": {"already enrolled in this course"}}.Encode())

	req, rec = newFormRequest(http.MethodPost, coursePath+"/reviews", token, url.Values{"rating": {"5"}, "comment": {"Tuyệt vời"}})
	c.ServeHTTP(rec, req)
	assertRedirect(t, rec, coursePath)

	req, rec = newFormRequest(http.MethodPost, fmt.Sprintf("/courses/%d/watchlist", c.figma.ID), token, url.Values{})
	c.ServeHTTP(rec, req)
	assertRedirect(t, rec, fmt.Sprintf("/courses/%d", c.figma.ID))

	req, rec = newFormRequest(http.MethodGet, coursePath, token, nil)
	c.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := rec.Body.String()
	assert.Contains(t, body, "Bạn đã đăng ký khóa học này.")
	assert.Contains(t, body, "Tuyệt vời")
	assert.Contains(t, body, "★★★★★")

	req, rec = newFormRequest(http.MethodGet, "/my-courses", token, nil)
	c.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), c.golang.Title)
	assert.Contains(t, rec.Body.String(), c.figma.Title)
	assert.NotContains(t, rec.Body.String(), c.react.Title)
}
