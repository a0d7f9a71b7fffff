package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Lập trình Web", want: "Lap trinh Web"},
		{in: "Đà Nẵng đẹp", want: "Da Nang dep"},
		{in: "Tiếng Việt cơ bản", want: "Tieng Viet co ban"},
		{in: "plain ascii", want: "plain ascii"},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Fold(tt.in))
		})
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Lập trình Web", want: "lap-trinh-web"},
		{in: "  C# & .NET  ", want: "c-net"},
		{in: "Thiết kế / Đồ họa", want: "thiet-ke-do-hoa"},
		{in: "---", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}
