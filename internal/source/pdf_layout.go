package source

import (
	"strings"

	"github.com/tsawler/tabula/layout"
	tabmodel "github.com/tsawler/tabula/model"

	"github.com/xxxsen/supportrag/internal/model"
)

// layoutConverter maps analyzer output to elements. The first level one
// heading of the document becomes its title.
type layoutConverter struct {
	titleSeen bool
}

func (c *layoutConverter) convert(pageIndex int, elems []layout.LayoutElement, found []*tabmodel.Table) []model.Element {
	var out []model.Element
	for _, el := range elems {
		if insideTable(el.BBox, found) {
			continue
		}
		switch el.Type {
		case tabmodel.ElementTypeHeading:
			out = append(out, c.heading(pageIndex, el))
		case tabmodel.ElementTypeList:
			if el.List == nil {
				continue
			}
			out = append(out, listElements(pageIndex, el.List, bbox(el.BBox))...)
		default:
			txt := strings.TrimSpace(el.Text)
			if txt == "" {
				continue
			}
			out = append(out, model.Element{
				Kind:      model.ElementKindParagraph,
				Text:      txt,
				PageIndex: pageIndex,
				Level:     1,
				BBox:      bbox(el.BBox),
			})
		}
	}
	for _, tbl := range found {
		out = append(out, tableElement(pageIndex, tbl))
	}
	return out
}

func (c *layoutConverter) heading(pageIndex int, el layout.LayoutElement) model.Element {
	level := 2
	txt := el.Text
	if el.Heading != nil {
		level = int(el.Heading.Level)
		if el.Heading.Text != "" {
			txt = el.Heading.Text
		}
	}
	if level < 1 {
		level = 1
	}
	kind := model.ElementKindSectionHeader
	if level == 1 && !c.titleSeen {
		kind = model.ElementKindTitle
		c.titleSeen = true
	}
	return model.Element{
		Kind:      kind,
		Text:      strings.TrimSpace(txt),
		PageIndex: pageIndex,
		Level:     level,
		BBox:      bbox(el.BBox),
	}
}

func listElements(pageIndex int, list *layout.List, box model.BBox) []model.Element {
	enumerated := isEnumerated(list.Type)
	out := []model.Element{{
		Kind:       model.ElementKindGroup,
		List:       true,
		Enumerated: enumerated,
		PageIndex:  pageIndex,
		Level:      1,
		BBox:       box,
	}}
	return appendItems(out, pageIndex, list.Items, enumerated, 0)
}

func appendItems(out []model.Element, pageIndex int, items []layout.ListItem, enumerated bool, depth int) []model.Element {
	for _, it := range items {
		out = append(out, model.Element{
			Kind:       model.ElementKindListItem,
			Text:       strings.TrimSpace(it.Text),
			PageIndex:  pageIndex,
			Level:      2 + depth,
			Enumerated: enumerated || isEnumerated(it.ListType),
			Marker:     strings.TrimSpace(it.Prefix),
			BBox:       bbox(it.BBox),
		})
		if len(it.Children) == 0 {
			continue
		}
		childEnumerated := isEnumerated(it.Children[0].ListType)
		out = append(out, model.Element{
			Kind:       model.ElementKindGroup,
			List:       true,
			Enumerated: childEnumerated,
			PageIndex:  pageIndex,
			Level:      2 + depth,
		})
		out = appendItems(out, pageIndex, it.Children, childEnumerated, depth+1)
	}
	return out
}

func isEnumerated(t layout.ListType) bool {
	switch t {
	case layout.ListTypeNumbered, layout.ListTypeLettered, layout.ListTypeRoman:
		return true
	}
	return false
}

func tableElement(pageIndex int, tbl *tabmodel.Table) model.Element {
	rows := make([][]string, 0, len(tbl.Rows))
	for _, row := range tbl.Rows {
		cells := make([]string, 0, len(row))
		for _, cell := range row {
			cells = append(cells, strings.TrimSpace(cell.Text))
		}
		rows = append(rows, cells)
	}
	return model.Element{
		Kind:      model.ElementKindTable,
		PageIndex: pageIndex,
		Level:     1,
		BBox:      bbox(tbl.BBox),
		Rows:      rows,
	}
}

func insideTable(box tabmodel.BBox, found []*tabmodel.Table) bool {
	center := box.Center()
	for _, tbl := range found {
		if tbl != nil && tbl.BBox.Contains(center) {
			return true
		}
	}
	return false
}

func bbox(b tabmodel.BBox) model.BBox {
	return model.BBox{X: b.X, Y: b.Y, Width: b.Width, Height: b.Height}
}
