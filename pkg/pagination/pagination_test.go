package pagination

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFallsBackToDefaults(t *testing.T) {
	cases := []struct {
		page, size string
		want       Params
	}{
		{"", "", Params{Page: 1, Size: 10}},
		{"0", "0", Params{Page: 1, Size: 10}},
		{"-3", "-1", Params{Page: 1, Size: 10}},
		{"NaN", "abc", Params{Page: 1, Size: 10}},
		{"Inf", "1e309", Params{Page: 1, Size: 10}},
		{"3", "25", Params{Page: 3, Size: 25}},
		{"2.7", "5", Params{Page: 2, Size: 5}},
		{"1", "5000", Params{Page: 1, Size: MaxSize}},
		{"9223372036854775807", "10", Params{Page: 1, Size: 10}},
		{"2147483648", "10", Params{Page: 1, Size: 10}},
		{"2147483647", "10", Params{Page: MaxPage, Size: 10}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Parse(tc.page, tc.size), "page=%q size=%q", tc.page, tc.size)
	}
}

func TestOffsetAndLimit(t *testing.T) {
	p := Params{Page: 3, Size: 20}
	assert.Equal(t, 40, p.Offset())
	assert.Equal(t, 20, p.Limit())

	assert.Equal(t, 0, Params{}.Offset())
	assert.Equal(t, DefaultSize, Params{}.Limit())

	huge := Params{Page: math.MaxInt, Size: MaxSize}
	assert.Equal(t, (MaxPage-1)*MaxSize, huge.Offset())
	assert.Positive(t, huge.Offset())
}

func TestNewPage(t *testing.T) {
	assert.Equal(t, Page{Page: 1, Size: 10, Total: 0, TotalPages: 0}, NewPage(Params{}, 0))
	assert.Equal(t, Page{Page: 2, Size: 10, Total: 21, TotalPages: 3}, NewPage(Params{Page: 2, Size: 10}, 21))
}
