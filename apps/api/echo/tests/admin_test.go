package tests

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udemo/academy/core/course"
)

func Test_adminApi_courses(t *testing.T) {
	c := newCatalog(t)
	adminToken := getToken(t, c.admin)
	golangPath := fmt.Sprintf("/v1/admin/courses/%d", c.golang.ID)

	tests := []httpTest{
		{name: "teachers are not allowed", method: http.MethodGet, path: "/v1/admin/courses", token: getToken(t, c.teacher), wantCode: http.StatusForbidden},
		{
			name: "flag value required", method: http.MethodPut, path: golangPath + "/disabled", token: adminToken,
			body: []byte(`{}`), wantCode: http.StatusBadRequest,
		},
		{name: "disable", method: http.MethodPut, path: golangPath + "/disabled", token: adminToken, body: []byte(`{"value": true}`), wantCode: http.StatusOK},
		{name: "feature", method: http.MethodPut, path: fmt.Sprintf("/v1/admin/courses/%d/featured", c.react.ID), token: adminToken, body: []byte(`{"value": true}`), wantCode: http.StatusOK},
		{name: "flag unknown course", method: http.MethodPut, path: "/v1/admin/courses/999/featured", token: adminToken, body: []byte(`{"value": true}`), wantCode: http.StatusNotFound},
		{name: "delete", method: http.MethodDelete, path: fmt.Sprintf("/v1/admin/courses/%d", c.figma.ID), token: adminToken, wantCode: http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			c.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	// disabled courses leave the public catalog, deleted ones are gone for good
	assert.Equal(t, []string{c.react.Title}, searchTitles(t, c.testApp, ""))

	req, rec := newAuthRequest(http.MethodGet, "/v1/admin/courses?sort=newest", adminToken)
	c.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var res course.SearchResult
	unmarshal(t, rec, &res)
	require.Equal(t, []string{c.react.Title, c.golang.Title}, courseTitles(res.Courses))
	assert.True(t, res.Courses[0].IsFeatured)
	assert.True(t, res.Courses[1].IsDisabled)
}

func Test_metricsEndpoint(t *testing.T) {
	c := newCatalog(t)
	searchTitles(t, c.testApp, "?q=golang")

	req, rec := newRequest(http.MethodGet, "/metrics")
	c.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `academy_course_searches_total{mode="fulltext"} 1`)
	assert.Contains(t, rec.Body.String(), `route="/v1/courses"`)
}
