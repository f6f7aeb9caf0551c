package linearize

import (
	"context"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/supportrag/internal/model"
)

const listIndent = 4

type Options struct {
	IncludeTables bool
}

type Linearizer struct {
	includeTables bool
}

func New(opts Options) *Linearizer {
	return &Linearizer{includeTables: opts.IncludeTables}
}

type walkState struct {
	nesting   int
	prevLevel int
	inList    bool
	items     []string
	listPage  int
	segments  []model.TextSegment
}

func (s *walkState) emit(text string, pageNo int) {
	s.segments = append(s.segments, model.TextSegment{Text: text, PageNo: pageNo})
}

func (s *walkState) flushList() {
	if len(s.items) > 0 {
		s.emit(strings.Join(s.items, "\n"), s.listPage)
	}
	s.items = nil
	s.listPage = 0
	s.inList = false
}

func (s *walkState) trackLevel(level int) {
	if level < s.prevLevel {
		s.nesting -= s.prevLevel - level
		if s.nesting < 0 {
			s.nesting = 0
		}
	}
	s.prevLevel = level
}

// Linearize walks elements in order and renders them to markdown-like
// segments. Elements on excluded pages are dropped one by one, the list
// state still advances over them.
func (l *Linearizer) Linearize(ctx context.Context, elements []model.Element, excluded model.PageSet) []model.TextSegment {
	st := &walkState{}
	for _, el := range elements {
		st.trackLevel(el.Level)
		listish := el.Kind == model.ElementKindListItem || el.Kind == model.ElementKindGroup
		if !listish && st.inList {
			st.flushList()
		}
		skip := el.HasPage() && excluded.Has(el.PageIndex)

		switch el.Kind {
		case model.ElementKindGroup:
			if el.List {
				st.nesting++
				st.inList = true
				if !skip && st.listPage == 0 {
					st.listPage = el.PageNo()
				}
				continue
			}
			if skip || el.Text == "" {
				continue
			}
			if st.inList {
				st.flushList()
			}
			st.emit(el.Text, el.PageNo())
		case model.ElementKindListItem:
			if skip {
				continue
			}
			st.inList = true
			if st.listPage == 0 {
				st.listPage = el.PageNo()
			}
			st.items = append(st.items, renderListItem(el, st.nesting))
		case model.ElementKindTitle:
			if skip {
				continue
			}
			st.emit("# "+el.Text, el.PageNo())
		case model.ElementKindSectionHeader:
			if skip {
				continue
			}
			st.emit(headerMarker(el.Level)+el.Text, el.PageNo())
		case model.ElementKindTable:
			if skip || !l.includeTables {
				continue
			}
			if text := RenderTable(el.Rows); text != "" {
				st.emit(text, el.PageNo())
			}
		default:
			if skip || el.Text == "" {
				continue
			}
			st.emit(el.Text, el.PageNo())
		}
	}
	st.flushList()

	logutil.GetLogger(ctx).Debug("document linearized",
		zap.Int("elements", len(elements)),
		zap.Int("segments", len(st.segments)),
		zap.Int("excluded_pages", len(excluded)),
	)
	return st.segments
}

func headerMarker(level int) string {
	if level > 6 {
		level = 6
	}
	if level < 2 {
		level = 2
	}
	return strings.Repeat("#", level) + " "
}

func renderListItem(el model.Element, nesting int) string {
	depth := nesting - 1
	if depth < 0 {
		depth = 0
	}
	marker := "- "
	if el.Enumerated && el.Marker != "" {
		marker = el.Marker + " "
	}
	return strings.Repeat(" ", listIndent*depth) + marker + el.Text
}

// RenderTable renders rows as a markdown grid, the first row being the header.
func RenderTable(rows [][]string) string {
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	if width == 0 {
		return ""
	}
	var sb strings.Builder
	writeRow := func(row []string) {
		sb.WriteString("|")
		for i := 0; i < width; i++ {
			cell := ""
			if i < len(row) {
				cell = strings.ReplaceAll(strings.TrimSpace(row[i]), "|", "\\|")
				cell = strings.ReplaceAll(cell, "\n", " ")
			}
			sb.WriteString(" ")
			sb.WriteString(cell)
			sb.WriteString(" |")
		}
		sb.WriteString("\n")
	}
	writeRow(rows[0])
	sb.WriteString("|")
	for i := 0; i < width; i++ {
		sb.WriteString(" --- |")
	}
	sb.WriteString("\n")
	for _, row := range rows[1:] {
		writeRow(row)
	}
	return strings.TrimRight(sb.String(), "\n")
}
