package detect

import (
	"context"
	"errors"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/supportrag/internal/model"
	appErr "github.com/xxxsen/supportrag/internal/pkg/errors"
)

type Detector struct {
	lang     LanguageDetector
	target   string
	langRule Rule
	rules    []Rule
}

type Option func(d *Detector)

func WithLanguageDetector(l LanguageDetector) Option {
	return func(d *Detector) {
		d.lang = l
	}
}

// WithTargetLanguage sets the language pages must be written in, "en" by default.
func WithTargetLanguage(tag string) Option {
	return func(d *Detector) {
		d.target = tag
	}
}

func New(opts ...Option) (*Detector, error) {
	d := &Detector{target: "en"}
	for _, opt := range opts {
		opt(d)
	}
	if d.lang == nil {
		d.lang = NewLanguageDetector()
	}
	base, err := baseLanguage(d.target)
	if err != nil {
		return nil, errors.Join(appErr.ErrInvalid, err)
	}
	d.target = base
	d.langRule = languageRule(base)
	d.rules = []Rule{
		titlePageRule(),
		noticesRule(),
		tocSectionRule(),
	}
	return d, nil
}

// IrrelevantPages evaluates the page rules in page order, then the toc entry
// denylist. A page in another language is excluded on its own: the other
// rules never see it and the toc section state is left as it was. The
// result only holds indices in [0, len(pages)).
func (d *Detector) IrrelevantPages(ctx context.Context, pages []model.Page, outline []model.TOCEntry) model.PageSet {
	logger := logutil.GetLogger(ctx)
	out := model.NewPageSet()
	state := &scanState{}
	for _, page := range pages {
		pc := newPageContext(page.Index, page.Text, len(pages), state)
		pc.Language = d.detectLanguage(ctx, page)
		if hits := d.langRule.Apply(pc); len(hits) > 0 {
			out.Add(page.Index)
			logger.Debug("page rule matched", zap.String("rule", d.langRule.Name()), zap.Int("page", page.Index))
			continue
		}
		for _, rule := range d.rules {
			hits := rule.Apply(pc)
			for _, p := range hits {
				out.Add(p)
			}
			if len(hits) > 0 {
				logger.Debug("page rule matched", zap.String("rule", rule.Name()), zap.Int("page", page.Index))
			}
		}
	}
	toc := ExtractTOC(pages, outline)
	for p := range tocEntryExclusions(toc, len(pages)) {
		out.Add(p)
	}
	out.Clamp(len(pages))
	logger.Info("irrelevant pages detected",
		zap.Int("pages", len(pages)),
		zap.Int("toc_entries", len(toc)),
		zap.Ints("excluded", out.Sorted()),
	)
	return out
}

func (d *Detector) detectLanguage(ctx context.Context, page model.Page) string {
	code, err := d.lang.Detect(page.Text)
	if err != nil {
		logutil.GetLogger(ctx).Debug("language undetermined, keep page",
			zap.Int("page", page.Index), zap.Error(err))
		return ""
	}
	base, err := baseLanguage(code)
	if err != nil {
		logutil.GetLogger(ctx).Warn("language code unparsable, keep page",
			zap.Int("page", page.Index), zap.String("code", code), zap.Error(err))
		return ""
	}
	return base
}
