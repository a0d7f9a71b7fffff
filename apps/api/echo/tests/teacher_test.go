package tests

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udemo/academy/core/course"
	"github.com/udemo/academy/core/user"
	mediasvc "github.com/udemo/academy/services/media"
	"github.com/udemo/academy/tests"
)

func Test_teacherApi_courses(t *testing.T) {
	c := newCatalog(t)
	token := getToken(t, c.teacher)
	other := testutil.CreateUser(t, c.usrRepo, "Lê Hoa", "hoa", "hoa@test.cd", "", []string{user.RoleTeacher}, true)
	otherToken := getToken(t, other)

	tests := []httpTest{
		{name: "students are not allowed", method: http.MethodGet, path: "/v1/teacher/courses", token: getToken(t, c.student), wantCode: http.StatusForbidden},
		{
			name: "create: validation", method: http.MethodPost, path: "/v1/teacher/courses", token: token,
			body: []byte(fmt.Sprintf(`{"title": "", "category_id": %d, "price": 100000, "discount_price": 200000}`, c.prog.ID)), wantCode: http.StatusBadRequest,
		},
		{
			name: "create: unknown category", method: http.MethodPost, path: "/v1/teacher/courses", token: token,
			body: []byte(`{"title": "Rust", "category_id": 999, "price": 100000}`), wantCode: http.StatusBadRequest,
		},
		{
			name: "create", method: http.MethodPost, path: "/v1/teacher/courses", token: otherToken,
			body: []byte(fmt.Sprintf(`{"title": "Docker cho người mới", "category_id": %d, "price": 250000}`, c.prog.ID)), wantCode: http.StatusCreated,
		},
		{
			name: "update someone else's course", method: http.MethodPut, path: fmt.Sprintf("/v1/teacher/courses/%d", c.golang.ID), token: otherToken,
			body: []byte(fmt.Sprintf(`{"title": "Mine now", "category_id": %d}`, c.prog.ID)), wantCode: http.StatusForbidden,
		},
		{
			name: "update own course", method: http.MethodPut, path: fmt.Sprintf("/v1/teacher/courses/%d", c.golang.ID), token: token,
			body: []byte(fmt.Sprintf(`{"title": "Lập trình Go", "category_id": %d, "price": 450000}`, c.prog.ID)), wantCode: http.StatusOK,
		},
		{name: "update unknown course", method: http.MethodPut, path: "/v1/teacher/courses/999", token: token, body: []byte(`{}`), wantCode: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			c.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	req, rec := newAuthRequest(http.MethodGet, "/v1/teacher/courses", otherToken)
	c.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var res course.SearchResult
	unmarshal(t, rec, &res)
	assert.Equal(t, []string{"Docker cho người mới"}, courseTitles(res.Courses))

	updated, err := c.courses.GetByID(req.Context(), c.golang.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lập trình Go", updated.Title)
	assert.Equal(t, int64(450000), updated.Price)
	assert.Nil(t, updated.DiscountPrice)
}

func Test_teacherApi_curriculum(t *testing.T) {
	c := newCatalog(t)
	token := getToken(t, c.teacher)
	otherToken := getToken(t, testutil.CreateUser(t, c.usrRepo, "Lê Hoa", "hoa", "hoa@test.cd", "", []string{user.RoleTeacher}, true))

	post := func(path, tok, body string) *httptest.ResponseRecorder {
		req, rec := newAuthRequest(http.MethodPost, path, tok, []byte(body))
		c.ServeHTTP(rec, req)
		return rec
	}

	rec := post(fmt.Sprintf("/v1/teacher/courses/%d/sections", c.golang.ID), otherToken, `{"title": "Intro"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = post(fmt.Sprintf("/v1/teacher/courses/%d/sections", c.golang.ID), token, `{"title": "Giới thiệu"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var intro course.Section
	unmarshal(t, rec, &intro)

	rec = post(fmt.Sprintf("/v1/teacher/courses/%d/sections", c.golang.ID), token, `{"title": "Cơ bản"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var basics course.Section
	unmarshal(t, rec, &basics)
	assert.Greater(t, basics.OrderIndex, intro.OrderIndex)

	rec = post(fmt.Sprintf("/v1/teacher/sections/%d/lectures", intro.ID), otherToken, `{"title": "Hack"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = post(fmt.Sprintf("/v1/teacher/sections/%d/lectures", intro.ID), token, `{"title": "Cài đặt", "minutes": 20, "is_preview": true}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var setup course.Lecture
	unmarshal(t, rec, &setup)

	rec = post(fmt.Sprintf("/v1/teacher/sections/%d/lectures", basics.ID), token, `{"title": "Biến", "minutes": 50, "video_url": "not a url"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(fmt.Sprintf("/v1/teacher/sections/%d/lectures", basics.ID), token, `{"title": "Biến", "minutes": 50, "video_url": "https://cdn.test/bien.mp4"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	req, rec := newAuthRequest(http.MethodPut, fmt.Sprintf("/v1/teacher/lectures/%d", setup.ID), token, []byte(`{"title": "Cài đặt Go", "minutes": 25}`))
	c.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	req, rec = newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/teacher/courses/%d/curriculum", c.golang.ID), token)
	c.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var sections []course.Section
	unmarshal(t, rec, &sections)
	require.Len(t, sections, 2)
	assert.Equal(t, "Giới thiệu", sections[0].Title)
	require.Len(t, sections[0].Lectures, 1)
	assert.Equal(t, "Cài đặt Go", sections[0].Lectures[0].Title)
	assert.Equal(t, 25, sections[0].Minutes)
	assert.Equal(t, 50, sections[1].Minutes)

	req, rec = newAuthRequest(http.MethodDelete, fmt.Sprintf("/v1/teacher/sections/%d", intro.ID), token)
	c.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	req, rec = newAuthRequest(http.MethodDelete, fmt.Sprintf("/v1/teacher/lectures/%d", setup.ID), token)
	c.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code) // went away with its section
}

func newThumbnailRequest(t *testing.T, path, token string, img image.Image) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("thumbnail", "cover.png")
	require.NoError(t, err)
	if img != nil {
		require.NoError(t, png.Encode(part, img))
	} else {
		_, err = part.Write([]byte("not an image"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req, httptest.NewRecorder()
}

func Test_teacherApi_uploadThumbnail(t *testing.T) {
	c := newCatalog(t)
	token := getToken(t, c.teacher)
	path := fmt.Sprintf("/v1/teacher/courses/%d/thumbnail", c.golang.ID)

	img := image.NewRGBA(image.Rect(0, 0, 400, 400))
	for x := 0; x < 400; x++ {
		img.Set(x, x, color.RGBA{R: 255, A: 255})
	}

	req, rec := newThumbnailRequest(t, path, token, nil)
	c.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	upload := func() course.Course {
		req, rec := newThumbnailRequest(t, path, token, img)
		c.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var updated course.Course
		unmarshal(t, rec, &updated)
		require.True(t, strings.HasPrefix(updated.Thumbnail, mediasvc.URLPrefix+"/"), updated.Thumbnail)
		return updated
	}
	first := upload()
	onDisk := func(publicPath string) string {
		return filepath.Join(c.media.Root(), filepath.FromSlash(strings.TrimPrefix(publicPath, mediasvc.URLPrefix+"/")))
	}
	_, err := os.Stat(onDisk(first.Thumbnail))
	require.NoError(t, err)

	// the file is served back
	req, rec = newRequest(http.MethodGet, first.Thumbnail)
	c.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	cfg, format, err := image.DecodeConfig(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 1280, cfg.Width)
	assert.Equal(t, 720, cfg.Height)

	// replacing drops the previous file
	second := upload()
	assert.NotEqual(t, first.Thumbnail, second.Thumbnail)
	_, err = os.Stat(onDisk(first.Thumbnail))
	assert.True(t, os.IsNotExist(err))
}
