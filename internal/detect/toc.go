package detect

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/xxxsen/supportrag/internal/model"
)

var (
	tocLineRegex = regexp.MustCompile(`^(.*?\S)\s*\.{2,}\s*(\d+)$`)
	tocDenyRegex = regexp.MustCompile(`(?i)(other resources|additional resources|resources|acronyms|abbreviations|abstract|index|recycling|specifications)`)
)

// ExtractTOC prefers the native outline. Without one it collects dot leader
// lines of every page and ranks their font sizes into depths, the largest
// font being depth 1.
func ExtractTOC(pages []model.Page, native []model.TOCEntry) []model.TOCEntry {
	if len(native) > 0 {
		out := make([]model.TOCEntry, len(native))
		copy(out, native)
		return out
	}
	type rawEntry struct {
		title string
		page  int
		size  float64
	}
	var raw []rawEntry
	sizes := map[float64]struct{}{}
	for _, page := range pages {
		for _, line := range page.Lines {
			m := tocLineRegex.FindStringSubmatch(strings.TrimSpace(line.Text))
			if m == nil {
				continue
			}
			num, err := strconv.Atoi(m[2])
			if err != nil {
				continue
			}
			raw = append(raw, rawEntry{title: strings.TrimSpace(m[1]), page: num, size: line.FontSize})
			sizes[line.FontSize] = struct{}{}
		}
	}
	ordered := make([]float64, 0, len(sizes))
	for size := range sizes {
		ordered = append(ordered, size)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(ordered)))
	depth := make(map[float64]int, len(ordered))
	for i, size := range ordered {
		depth[size] = i + 1
	}
	out := make([]model.TOCEntry, 0, len(raw))
	for _, r := range raw {
		out = append(out, model.TOCEntry{Title: r.title, Page: r.page, Depth: depth[r.size]})
	}
	return out
}

// tocEntryExclusions applies the denylist to entry titles. A matching entry
// excludes its own page and the start page of every later entry at the
// same or a shallower depth; deeper entries are left alone. A match on the
// last entry excludes everything up to the end of the document.
func tocEntryExclusions(toc []model.TOCEntry, pageCount int) model.PageSet {
	out := model.NewPageSet()
	for i, entry := range toc {
		if !tocDenyRegex.MatchString(entry.Title) {
			continue
		}
		out.Add(entry.Page)
		for _, next := range toc[i+1:] {
			if next.Depth <= entry.Depth {
				out.Add(next.Page)
			}
		}
		if i == len(toc)-1 {
			out.AddRange(entry.Page, pageCount)
		}
	}
	return out
}
