package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPagination(t *testing.T) {
	tests := []struct {
		name              string
		page, limit       int
		wantPage, wantLim int
		wantOffset        int
	}{
		{name: "defaults", page: 0, limit: 0, wantPage: 1, wantLim: 12, wantOffset: 0},
		{name: "negative page", page: -3, limit: 10, wantPage: 1, wantLim: 10, wantOffset: 0},
		{name: "limit above max", page: 2, limit: 500, wantPage: 2, wantLim: 50, wantOffset: 50},
		{name: "negative limit", page: 3, limit: -1, wantPage: 3, wantLim: 12, wantOffset: 24},
		{name: "regular", page: 4, limit: 5, wantPage: 4, wantLim: 5, wantOffset: 15},
		{name: "huge page", page: math.MaxInt64, limit: 12, wantPage: (math.MaxInt64-12)/12 + 1, wantLim: 12, wantOffset: math.MaxInt64 - 12 - (math.MaxInt64-12)%12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPagination(tt.page, tt.limit, 12, 50)
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, tt.wantLim, p.Limit)
			assert.Equal(t, tt.wantOffset, p.Offset())
		})
	}
}

func TestPagination_TotalPages(t *testing.T) {
	p := NewPagination(1, 10, 12, 50)
	assert.Equal(t, 1, p.TotalPages(0))
	assert.Equal(t, 1, p.TotalPages(10))
	assert.Equal(t, 2, p.TotalPages(11))
	assert.Equal(t, 5, p.TotalPages(50))
}

func TestNewPagination_windowFitsInt(t *testing.T) {
	for _, limit := range []int{1, 7, 12, 50} {
		p := NewPagination(math.MaxInt64, limit, 12, 50)
		assert.GreaterOrEqual(t, p.Offset(), 0)
		assert.GreaterOrEqual(t, p.Offset()+p.Limit, p.Offset())
	}
}
