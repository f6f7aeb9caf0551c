package source

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tsawler/tabula/layout"
	tabmodel "github.com/tsawler/tabula/model"

	"github.com/xxxsen/supportrag/internal/model"
	appErr "github.com/xxxsen/supportrag/internal/pkg/errors"
)

func TestFormatOf(t *testing.T) {
	cases := []struct {
		name   string
		format string
		err    bool
	}{
		{"manual.pdf", FormatPDF, false},
		{"Manual.PDF", FormatPDF, false},
		{"guide.md", FormatMarkdown, false},
		{"https://example.com/docs/page.html?lang=en#top", FormatHTML, false},
		{"notes.docx", "", true},
		{"noext", "", true},
	}
	for _, tc := range cases {
		got, err := FormatOf(tc.name)
		if tc.err {
			require.ErrorIs(t, err, appErr.ErrInputFormat, tc.name)
			continue
		}
		require.NoError(t, err, tc.name)
		require.Equal(t, tc.format, got, tc.name)
	}
}

func TestNewUnknownFormat(t *testing.T) {
	_, err := New("docx")
	require.True(t, errors.Is(err, appErr.ErrInputFormat))
	p, err := New(" Markdown ")
	require.NoError(t, err)
	require.IsType(t, &MarkdownParser{}, p)
}

func TestMarkdownParse(t *testing.T) {
	src := `# Pump Manual

Intro paragraph
spanning two lines.

## Maintenance

1. Stop the pump
2. Drain the tank
   - open valve
   - wait

| Part | Code |
| ---- | ---- |
| Filter | F-1 |

# Appendix
`
	doc, err := (&MarkdownParser{}).Parse(context.Background(), strings.NewReader(src), "pump.md")
	require.NoError(t, err)
	require.Equal(t, FormatMarkdown, doc.Format)
	require.False(t, doc.Paginated())

	var kinds []model.ElementKind
	for _, el := range doc.Elements {
		require.Equal(t, model.NoPage, el.PageIndex)
		kinds = append(kinds, el.Kind)
	}
	require.Equal(t, []model.ElementKind{
		model.ElementKindTitle,
		model.ElementKindParagraph,
		model.ElementKindSectionHeader,
		model.ElementKindGroup,
		model.ElementKindListItem,
		model.ElementKindListItem,
		model.ElementKindGroup,
		model.ElementKindListItem,
		model.ElementKindListItem,
		model.ElementKindTable,
		model.ElementKindSectionHeader,
	}, kinds)

	require.Equal(t, "Pump Manual", doc.Elements[0].Text)
	require.Equal(t, "Intro paragraph spanning two lines.", doc.Elements[1].Text)
	require.Equal(t, 2, doc.Elements[2].Level)
	require.True(t, doc.Elements[3].Enumerated)
	require.Equal(t, "1.", doc.Elements[4].Marker)
	require.Equal(t, "Drain the tank", doc.Elements[5].Text)
	require.Equal(t, "2.", doc.Elements[5].Marker)
	require.False(t, doc.Elements[6].Enumerated)
	require.Equal(t, 2, doc.Elements[6].Level)
	require.Equal(t, 3, doc.Elements[7].Level)
	require.Equal(t, [][]string{{"Part", "Code"}, {"Filter", "F-1"}}, doc.Elements[9].Rows)
	require.Equal(t, "Appendix", doc.Elements[10].Text)
	require.Equal(t, 1, doc.Elements[10].Level)
}

func TestMarkdownEmpty(t *testing.T) {
	_, err := (&MarkdownParser{}).Parse(context.Background(), strings.NewReader("  \n"), "empty.md")
	require.ErrorIs(t, err, appErr.ErrInputFormat)
}

func TestHTMLParse(t *testing.T) {
	src := `<html><head><title>x</title><style>p{}</style></head><body>
<nav>menu</nav>
<h1>Dryer Guide</h1>
<p>Read   carefully.</p>
<h2>Cleaning</h2>
<ol><li>Unplug</li><li>Remove lint<ul><li>screen</li></ul></li></ol>
<table><tr><th>Code</th><th>Meaning</th></tr><tr><td>E1</td><td>Heater</td></tr></table>
<script>var a = 1;</script>
<footer>copyright</footer>
</body></html>`
	doc, err := (&HTMLParser{}).Parse(context.Background(), strings.NewReader(src), "dryer.html")
	require.NoError(t, err)
	var texts []string
	for _, el := range doc.Elements {
		require.Equal(t, model.NoPage, el.PageIndex)
		texts = append(texts, el.Kind.String()+":"+el.Text)
	}
	require.Equal(t, []string{
		"title:Dryer Guide",
		"paragraph:Read carefully.",
		"section_header:Cleaning",
		"group:",
		"list_item:Unplug",
		"list_item:Remove lint",
		"group:",
		"list_item:screen",
		"table:",
	}, texts)
	require.Equal(t, "1.", doc.Elements[4].Marker)
	require.Equal(t, "2.", doc.Elements[5].Marker)
	require.Equal(t, 3, doc.Elements[7].Level)
	require.Equal(t, [][]string{{"Code", "Meaning"}, {"E1", "Heater"}}, doc.Elements[8].Rows)
}

func TestHTMLNoContent(t *testing.T) {
	_, err := (&HTMLParser{}).Parse(context.Background(), strings.NewReader("<html><body><script>x</script></body></html>"), "x.html")
	require.ErrorIs(t, err, appErr.ErrInputFormat)
}

func TestLayoutConverter(t *testing.T) {
	conv := &layoutConverter{}
	tbl := &tabmodel.Table{
		BBox: tabmodel.BBox{X: 0, Y: 0, Width: 500, Height: 300},
	}
	elems := []layout.LayoutElement{
		{Type: tabmodel.ElementTypeHeading, Text: "Oven", Heading: &layout.Heading{Level: 1, Text: "Oven"}, BBox: tabmodel.BBox{X: 10, Y: 700, Width: 100, Height: 20}},
		{Type: tabmodel.ElementTypeParagraph, Text: " body text ", BBox: tabmodel.BBox{X: 10, Y: 600, Width: 300, Height: 40}},
		{Type: tabmodel.ElementTypeParagraph, Text: "cell text", BBox: tabmodel.BBox{X: 10, Y: 10, Width: 50, Height: 10}},
		{Type: tabmodel.ElementTypeList, BBox: tabmodel.BBox{X: 10, Y: 400, Width: 300, Height: 100}, List: &layout.List{
			Type: layout.ListTypeNumbered,
			Items: []layout.ListItem{
				{Text: "first", Prefix: "1.", ListType: layout.ListTypeNumbered, Children: []layout.ListItem{
					{Text: "nested", Prefix: "•", ListType: layout.ListTypeBullet},
				}},
			},
		}},
	}
	out := conv.convert(4, elems, []*tabmodel.Table{tbl})
	var kinds []model.ElementKind
	for _, el := range out {
		require.Equal(t, 4, el.PageIndex)
		kinds = append(kinds, el.Kind)
	}
	require.Equal(t, []model.ElementKind{
		model.ElementKindTitle,
		model.ElementKindParagraph,
		model.ElementKindGroup,
		model.ElementKindListItem,
		model.ElementKindGroup,
		model.ElementKindListItem,
		model.ElementKindTable,
	}, kinds)
	require.Equal(t, "body text", out[1].Text)
	require.True(t, out[2].Enumerated)
	require.Equal(t, "1.", out[3].Marker)
	require.False(t, out[4].Enumerated)
	require.Equal(t, 3, out[5].Level)

	// a second level one heading is a section header
	more := conv.convert(5, []layout.LayoutElement{
		{Type: tabmodel.ElementTypeHeading, Heading: &layout.Heading{Level: 1, Text: "Index"}, BBox: tabmodel.BBox{X: 10, Y: 700, Width: 100, Height: 20}},
	}, nil)
	require.Equal(t, model.ElementKindSectionHeader, more[0].Kind)
	require.Equal(t, 1, more[0].Level)
}
