package model

// NoPage marks content without page provenance, e.g. html manuals.
const NoPage = -1

type ElementKind int

const (
	ElementKindParagraph ElementKind = iota
	ElementKindTitle
	ElementKindSectionHeader
	ElementKindListItem
	ElementKindTable
	ElementKindGroup
)

func (k ElementKind) String() string {
	switch k {
	case ElementKindTitle:
		return "title"
	case ElementKindSectionHeader:
		return "section_header"
	case ElementKindListItem:
		return "list_item"
	case ElementKindTable:
		return "table"
	case ElementKindGroup:
		return "group"
	default:
		return "paragraph"
	}
}

type BBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Element is one structural item of a parsed document. PageIndex is 0-based.
// Level is the tree depth of the element: body content sits at 1, the items
// of a list group one deeper than the group itself.
type Element struct {
	Kind       ElementKind `json:"kind"`
	Text       string      `json:"text"`
	PageIndex  int         `json:"page_index"`
	Level      int         `json:"level"`
	Enumerated bool        `json:"enumerated"`
	Marker     string      `json:"marker"`
	List       bool        `json:"list"`
	BBox       BBox        `json:"bbox"`
	Rows       [][]string  `json:"rows,omitempty"`
}

func (e Element) HasPage() bool {
	return e.PageIndex >= 0
}

// PageNo is the 1-based page number, 0 when unknown.
func (e Element) PageNo() int {
	if !e.HasPage() {
		return 0
	}
	return e.PageIndex + 1
}

type TextLine struct {
	Text     string  `json:"text"`
	FontSize float64 `json:"font_size"`
}

type Page struct {
	Index  int        `json:"index"`
	Text   string     `json:"text"`
	Lines  []TextLine `json:"lines"`
	Width  float64    `json:"width"`
	Height float64    `json:"height"`
}

type Document struct {
	Name     string     `json:"name"`
	Format   string     `json:"format"`
	Pages    []Page     `json:"pages"`
	Elements []Element  `json:"elements"`
	Outline  []TOCEntry `json:"outline"`
}

func (d *Document) PageCount() int {
	return len(d.Pages)
}

func (d *Document) Paginated() bool {
	return len(d.Pages) > 0
}
