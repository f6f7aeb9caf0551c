package source

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/xxxsen/supportrag/internal/model"
)

func init() {
	Register(FormatHTML, func() Parser { return &HTMLParser{} })
}

// HTMLParser reads web manuals. Elements carry no page.
type HTMLParser struct{}

type htmlWalker struct {
	elements  []model.Element
	titleSeen bool
}

func (p *HTMLParser) Parse(ctx context.Context, r io.Reader, name string) (*model.Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, inputError(FormatHTML, err)
	}
	w := &htmlWalker{}
	if body := findElement(root, "body"); body != nil {
		w.walk(body)
	} else {
		w.walk(root)
	}
	if len(w.elements) == 0 {
		return nil, inputError(FormatHTML, errors.New("no content"))
	}
	return &model.Document{Name: name, Format: FormatHTML, Elements: w.elements}, nil
}

func (w *htmlWalker) add(el model.Element) {
	el.PageIndex = model.NoPage
	if el.Level == 0 {
		el.Level = 1
	}
	w.elements = append(w.elements, el)
}

func (w *htmlWalker) walk(n *html.Node) {
	if n.Type == html.ElementNode {
		if level := headingLevel(n.Data); level > 0 {
			txt := textContent(n)
			if txt == "" {
				return
			}
			kind := model.ElementKindSectionHeader
			if level == 1 && !w.titleSeen {
				kind = model.ElementKindTitle
				w.titleSeen = true
			}
			w.add(model.Element{Kind: kind, Text: txt, Level: level})
			return
		}
		switch n.Data {
		case "script", "style", "nav", "footer", "header", "noscript":
			return
		case "ul", "ol":
			w.list(n, 0)
			return
		case "table":
			if rows := tableRows(n); len(rows) > 0 {
				w.add(model.Element{Kind: model.ElementKindTable, Rows: rows})
			}
			return
		case "p", "pre", "blockquote", "dd", "dt", "figcaption":
			if txt := textContent(n); txt != "" {
				w.add(model.Element{Kind: model.ElementKindParagraph, Text: txt})
			}
			return
		}
	}
	if n.Type == html.TextNode && n.Parent != nil && n.Parent.Type == html.ElementNode && isLooseContainer(n.Parent.Data) {
		if txt := normalizeSpace(n.Data); txt != "" {
			w.add(model.Element{Kind: model.ElementKindParagraph, Text: txt})
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
}

func (w *htmlWalker) list(n *html.Node, depth int) {
	ordered := n.Data == "ol"
	w.add(model.Element{Kind: model.ElementKindGroup, List: true, Enumerated: ordered, Level: 1 + depth})
	counter := 1
	for li := n.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.Data != "li" {
			continue
		}
		var parts []string
		var nested []*html.Node
		for c := li.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (c.Data == "ul" || c.Data == "ol") {
				nested = append(nested, c)
				continue
			}
			if txt := textContent(c); txt != "" {
				parts = append(parts, txt)
			}
		}
		el := model.Element{Kind: model.ElementKindListItem, Text: strings.Join(parts, " "), Level: 2 + depth}
		if ordered {
			el.Enumerated = true
			el.Marker = strconv.Itoa(counter) + "."
			counter++
		}
		w.add(el)
		for _, sub := range nested {
			w.list(sub, depth+1)
		}
	}
}

func tableRows(n *html.Node) [][]string {
	var rows [][]string
	var visit func(*html.Node)
	visit = func(node *html.Node) {
		if node.Type == html.ElementNode && node.Data == "tr" {
			var cells []string
			for c := node.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
					cells = append(cells, textContent(c))
				}
			}
			if len(cells) > 0 {
				rows = append(rows, cells)
			}
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return rows
}

func isLooseContainer(tag string) bool {
	switch tag {
	case "body", "div", "section", "article", "main", "span":
		return true
	}
	return false
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return normalizeSpace(sb.String())
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

