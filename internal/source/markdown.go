package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/xxxsen/supportrag/internal/model"
)

func init() {
	Register(FormatMarkdown, func() Parser { return &MarkdownParser{} })
}

// MarkdownParser reads markdown manuals. They carry no page information.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(ctx context.Context, r io.Reader, name string) (*model.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read markdown: %w", err)
	}
	if strings.TrimSpace(string(src)) == "" {
		return nil, inputError(FormatMarkdown, errors.New("empty document"))
	}
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	root := md.Parser().Parse(text.NewReader(src))

	doc := &model.Document{Name: name, Format: FormatMarkdown}
	titleSeen := false
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			kind := model.ElementKindSectionHeader
			if node.Level == 1 && !titleSeen {
				kind = model.ElementKindTitle
				titleSeen = true
			}
			doc.Elements = append(doc.Elements, model.Element{
				Kind:      kind,
				Text:      inlineText(node, src),
				PageIndex: model.NoPage,
				Level:     node.Level,
			})
		case *ast.List:
			doc.Elements = markdownList(doc.Elements, node, src, 0)
		case *extast.Table:
			doc.Elements = append(doc.Elements, model.Element{
				Kind:      model.ElementKindTable,
				PageIndex: model.NoPage,
				Level:     1,
				Rows:      markdownTableRows(node, src),
			})
		case *ast.ThematicBreak, *ast.HTMLBlock:
			continue
		default:
			if txt := blockText(node, src); txt != "" {
				doc.Elements = append(doc.Elements, model.Element{
					Kind:      model.ElementKindParagraph,
					Text:      txt,
					PageIndex: model.NoPage,
					Level:     1,
				})
			}
		}
	}
	if len(doc.Elements) == 0 {
		return nil, inputError(FormatMarkdown, errors.New("no content"))
	}
	return doc, nil
}

func markdownList(out []model.Element, list *ast.List, src []byte, depth int) []model.Element {
	out = append(out, model.Element{
		Kind:       model.ElementKindGroup,
		List:       true,
		Enumerated: list.IsOrdered(),
		PageIndex:  model.NoPage,
		Level:      1 + depth,
	})
	counter := list.Start
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		var parts []string
		var nested []*ast.List
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			if sub, ok := c.(*ast.List); ok {
				nested = append(nested, sub)
				continue
			}
			if txt := blockText(c, src); txt != "" {
				parts = append(parts, txt)
			}
		}
		el := model.Element{
			Kind:      model.ElementKindListItem,
			Text:      strings.Join(parts, " "),
			PageIndex: model.NoPage,
			Level:     2 + depth,
		}
		if list.IsOrdered() {
			el.Enumerated = true
			el.Marker = fmt.Sprintf("%d%c", counter, list.Marker)
			counter++
		}
		out = append(out, el)
		for _, sub := range nested {
			out = markdownList(out, sub, src, depth+1)
		}
	}
	return out
}

func markdownTableRows(tbl *extast.Table, src []byte) [][]string {
	var rows [][]string
	for row := tbl.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, inlineText(cell, src))
		}
		rows = append(rows, cells)
	}
	return rows
}

func blockText(n ast.Node, src []byte) string {
	switch n.Kind() {
	case ast.KindFencedCodeBlock, ast.KindCodeBlock:
		var sb strings.Builder
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			sb.Write(seg.Value(src))
		}
		return strings.TrimSpace(sb.String())
	}
	return inlineText(n, src)
}

func inlineText(n ast.Node, src []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := node.(*ast.Text); ok {
			sb.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.Join(strings.Fields(sb.String()), " ")
}
