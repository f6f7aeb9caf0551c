package source

import (
	"fmt"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/xxxsen/supportrag/internal/model"
)

type pageText struct {
	text  string
	lines []model.TextLine
}

// extractPageText reads the plain text and the text rows of every page, plus
// the document outline. A row keeps the largest font size found on it.
func extractPageText(path string) (out []pageText, outline []model.TOCEntry, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf text reader panic: %v", r)
		}
	}()
	f, rd, err := pdflib.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	numPages := rd.NumPage()
	out = make([]pageText, numPages)
	for i := 1; i <= numPages; i++ {
		page := rd.Page(i)
		if page.V.IsNull() {
			continue
		}
		if txt, err := page.GetPlainText(nil); err == nil {
			out[i-1].text = txt
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		for _, row := range rows {
			var sb strings.Builder
			size := 0.0
			for _, t := range row.Content {
				sb.WriteString(t.S)
				if t.FontSize > size {
					size = t.FontSize
				}
			}
			line := strings.TrimSpace(sb.String())
			if line == "" {
				continue
			}
			out[i-1].lines = append(out[i-1].lines, model.TextLine{Text: line, FontSize: size})
		}
	}
	return out, readOutline(rd), nil
}

const maxOutlineEntries = 4096

// readOutline flattens the native outline in reading order. Entry pages are
// 0-based page indices; entries whose destination does not resolve to a page
// are left out. Pages are matched by their dictionary, so pages with
// identical dictionaries resolve to the last of them.
func readOutline(rd *pdflib.Reader) (out []model.TOCEntry) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
		}
	}()
	root := rd.Trailer().Key("Root")
	first := root.Key("Outlines").Key("First")
	if first.Kind() != pdflib.Dict {
		return nil
	}
	pages := make(map[string]int, rd.NumPage())
	for i := 1; i <= rd.NumPage(); i++ {
		if page := rd.Page(i); !page.V.IsNull() {
			pages[page.V.String()] = i - 1
		}
	}
	named := root.Key("Dests")
	seen := 0
	var walk func(item pdflib.Value, depth int)
	walk = func(item pdflib.Value, depth int) {
		for ; item.Kind() == pdflib.Dict && seen < maxOutlineEntries; item = item.Key("Next") {
			seen++
			title := strings.TrimSpace(item.Key("Title").Text())
			if idx, ok := outlinePage(item, named, pages); ok && title != "" {
				out = append(out, model.TOCEntry{Title: title, Page: idx, Depth: depth})
			}
			walk(item.Key("First"), depth+1)
		}
	}
	walk(first, 1)
	return out
}

// outlinePage resolves an outline item to a page index through its /Dest or
// a GoTo action, following named destinations of the catalog /Dests.
func outlinePage(item, named pdflib.Value, pages map[string]int) (int, bool) {
	dest := item.Key("Dest")
	if dest.IsNull() {
		if action := item.Key("A"); action.Key("S").Name() == "GoTo" {
			dest = action.Key("D")
		}
	}
	switch dest.Kind() {
	case pdflib.Name:
		dest = named.Key(dest.Name())
	case pdflib.String:
		dest = named.Key(dest.RawString())
	}
	if dest.Kind() == pdflib.Dict {
		dest = dest.Key("D")
	}
	if dest.Kind() != pdflib.Array || dest.Len() == 0 {
		return 0, false
	}
	idx, ok := pages[dest.Index(0).String()]
	return idx, ok
}
