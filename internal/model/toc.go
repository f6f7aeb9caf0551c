package model

import "sort"

// TOCEntry is one table of contents line. Page is used as a 0-based page
// index: outline entries are resolved to the index of their target page,
// entries read from dot leader lines keep the printed number unchanged.
type TOCEntry struct {
	Title string `json:"title"`
	Page  int    `json:"page"`
	Depth int    `json:"depth"`
}

// PageSet holds 0-based page indices.
type PageSet map[int]struct{}

func NewPageSet(pages ...int) PageSet {
	s := make(PageSet, len(pages))
	for _, p := range pages {
		s.Add(p)
	}
	return s
}

func (s PageSet) Add(page int) {
	s[page] = struct{}{}
}

func (s PageSet) AddRange(from, to int) {
	for i := from; i < to; i++ {
		s.Add(i)
	}
}

func (s PageSet) Has(page int) bool {
	_, ok := s[page]
	return ok
}

// Clamp drops indices outside [0, pageCount).
func (s PageSet) Clamp(pageCount int) PageSet {
	for p := range s {
		if p < 0 || p >= pageCount {
			delete(s, p)
		}
	}
	return s
}

func (s PageSet) Sorted() []int {
	out := make([]int, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}
