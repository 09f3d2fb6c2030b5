package repository

import (
	"net/url"
	"strconv"
)

const (
	// LimitParam caps the number of rows a list read returns.
	LimitParam = "limit"
	// OffsetParam skips rows of a list read.
	OffsetParam = "offset"
)

// Page selects a window of an ordered result. Zero values mean unbounded.
type Page struct {
	Limit  int
	Offset int
}

// ParsePage reads limit and offset from query parameters. Values that are not
// positive integers are ignored.
func ParsePage(params url.Values) Page {
	return Page{
		Limit:  positive(params.Get(LimitParam)),
		Offset: positive(params.Get(OffsetParam)),
	}
}

// Window returns the bounds of p applied to n rows.
func (p Page) Window(n int) (start, end int) {
	start = min(p.Offset, n)
	end = n
	if p.Limit > 0 && p.Limit < n-start {
		end = start + p.Limit
	}
	return start, end
}

func positive(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}
