package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tsawler/tabula/layout"
	tabmodel "github.com/tsawler/tabula/model"
	"github.com/tsawler/tabula/reader"
	"github.com/tsawler/tabula/tables"
	"github.com/tsawler/tabula/text"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/supportrag/internal/model"
)

func init() {
	Register(FormatPDF, func() Parser { return &PDFParser{} })
}

type PDFParser struct{}

type pdfPage struct {
	index     int
	width     float64
	height    float64
	fragments []text.TextFragment
}

func (p *PDFParser) Parse(ctx context.Context, r io.Reader, name string) (*model.Document, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("document", name))
	// both pdf libraries want a seekable file
	tmp, err := os.CreateTemp("", "supportrag-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	size, err := io.Copy(tmp, r)
	tmp.Close()
	if err != nil {
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if size == 0 {
		return nil, inputError(FormatPDF, errors.New("empty document"))
	}

	rd, err := reader.Open(tmpPath)
	if err != nil {
		return nil, inputError(FormatPDF, err)
	}
	defer rd.Close()
	pageCount, err := rd.PageCount()
	if err != nil {
		return nil, inputError(FormatPDF, err)
	}
	if pageCount == 0 {
		return nil, inputError(FormatPDF, errors.New("no pages"))
	}

	raw := make([]pdfPage, 0, pageCount)
	for i := 0; i < pageCount; i++ {
		page, err := rd.GetPage(i)
		if err != nil {
			logger.Warn("read pdf page failed", zap.Int("page", i), zap.Error(err))
			raw = append(raw, pdfPage{index: i})
			continue
		}
		width, _ := page.Width()
		height, _ := page.Height()
		fragments, err := rd.ExtractTextFragments(page)
		if err != nil {
			logger.Warn("extract pdf fragments failed", zap.Int("page", i), zap.Error(err))
		}
		raw = append(raw, pdfPage{index: i, width: width, height: height, fragments: fragments})
	}

	doc := &model.Document{Name: name, Format: FormatPDF, Pages: make([]model.Page, pageCount)}
	conv := &layoutConverter{}
	analyzer := layout.NewAnalyzer()
	detector := tables.NewGeometricDetector()
	headerFooter := detectHeaderFooter(raw)
	for _, pg := range raw {
		doc.Pages[pg.index] = model.Page{Index: pg.index, Width: pg.width, Height: pg.height}
		if len(pg.fragments) == 0 {
			continue
		}
		fragments := pg.fragments
		if headerFooter != nil {
			fragments = headerFooter.FilterFragments(pg.index, fragments, pg.height)
		}
		tablePage := tabmodel.NewPage(pg.width, pg.height)
		tablePage.Number = pg.index + 1
		tablePage.RawText = toModelFragments(pg.fragments)
		found, err := detector.Detect(tablePage)
		if err != nil {
			logger.Warn("table detection failed", zap.Int("page", pg.index), zap.Error(err))
			found = nil
		}
		result := analyzer.Analyze(fragments, pg.width, pg.height)
		doc.Elements = append(doc.Elements, conv.convert(pg.index, result.Elements, found)...)
	}

	texts, outline, err := extractPageText(tmpPath)
	if err != nil {
		logger.Warn("page text extraction failed, fallback to layout text", zap.Error(err))
	}
	doc.Outline = outline
	hasText := false
	for i := range doc.Pages {
		if i < len(texts) {
			doc.Pages[i].Text = texts[i].text
			doc.Pages[i].Lines = texts[i].lines
		}
		if strings.TrimSpace(doc.Pages[i].Text) == "" {
			doc.Pages[i].Text = fragmentText(raw[i].fragments)
		}
		if strings.TrimSpace(doc.Pages[i].Text) != "" {
			hasText = true
		}
	}
	if !hasText && len(doc.Elements) == 0 {
		return nil, inputError(FormatPDF, errors.New("no extractable text"))
	}
	logger.Info("pdf parsed",
		zap.Int("pages", pageCount),
		zap.Int("elements", len(doc.Elements)),
		zap.Int("outline_entries", len(doc.Outline)),
	)
	return doc, nil
}

func detectHeaderFooter(raw []pdfPage) *layout.HeaderFooterResult {
	if len(raw) < 2 {
		return nil
	}
	pages := make([]layout.PageFragments, 0, len(raw))
	for _, pg := range raw {
		pages = append(pages, layout.PageFragments{
			PageIndex:  pg.index,
			PageWidth:  pg.width,
			PageHeight: pg.height,
			Fragments:  pg.fragments,
		})
	}
	return layout.NewHeaderFooterDetector().Detect(pages)
}

func toModelFragments(fragments []text.TextFragment) []tabmodel.TextFragment {
	out := make([]tabmodel.TextFragment, len(fragments))
	for i, f := range fragments {
		out[i] = tabmodel.TextFragment{
			Text:     f.Text,
			BBox:     tabmodel.BBox{X: f.X, Y: f.Y, Width: f.Width, Height: f.Height},
			FontSize: f.FontSize,
			FontName: f.FontName,
		}
	}
	return out
}

func fragmentText(fragments []text.TextFragment) string {
	parts := make([]string, 0, len(fragments))
	for _, f := range fragments {
		if t := strings.TrimSpace(f.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
