package detect

import (
	"context"
	"math"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/supportrag/internal/model"
)

const (
	fullPageHeightRatio = 0.70
	fullPageWidthRatio  = 0.60
)

// FullPageTables adds to excluded every page hosting a table that covers at
// least 70% of the page height and more than 60% of its width. Pages that
// are already excluded are not inspected.
func FullPageTables(ctx context.Context, elements []model.Element, pages []model.Page, excluded model.PageSet) model.PageSet {
	for _, el := range elements {
		if el.Kind != model.ElementKindTable || !el.HasPage() || excluded.Has(el.PageIndex) {
			continue
		}
		if el.PageIndex >= len(pages) {
			continue
		}
		page := pages[el.PageIndex]
		if page.Width <= 0 || page.Height <= 0 {
			continue
		}
		heightRatio := round2(el.BBox.Height / page.Height)
		widthRatio := round2(el.BBox.Width / page.Width)
		if heightRatio >= fullPageHeightRatio && widthRatio > fullPageWidthRatio {
			excluded.Add(el.PageIndex)
			logutil.GetLogger(ctx).Debug("full page table found",
				zap.Int("page", el.PageIndex),
				zap.Float64("height_ratio", heightRatio),
				zap.Float64("width_ratio", widthRatio),
			)
		}
	}
	return excluded
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
