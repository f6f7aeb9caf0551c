package detect

import (
	"regexp"
	"strings"
)

const (
	titlePageMaxWords = 100
	noticesMaxIndex   = 10
	tocMaxIndex       = 20
	tocMinDottedLines = 3
)

var (
	titlePageRegex = regexp.MustCompile(`\b(by|author|copyright|all rights reserved)\b`)
	noticesRegex   = regexp.MustCompile(`\b(notices|acknowledgments|acknowledgements)\b`)
	tocPatterns    = []*regexp.Regexp{
		regexp.MustCompile(`(?m)^\s*(table of )?contents\b`),
		regexp.MustCompile(`chapter\s+\d+.*?\.{2,}.*?\d+`),
		regexp.MustCompile(`(?m)^\s*\d+\..*?\.{2,}.*?\d+`),
		regexp.MustCompile(`(?m)^\s*[ivx]+\.`),
		regexp.MustCompile(`(?m)^\s*\d+\s*\.{2,}\s*\d+$`),
	}
	dottedLineRegex = regexp.MustCompile(`(?m).*?\.{2,}.*?\d+$`)
)

// PageContext is what a rule sees of one page. Text is lowercased.
type PageContext struct {
	Index     int
	Text      string
	Words     int
	Language  string
	PageCount int
	state     *scanState
}

type scanState struct {
	inTOC bool
}

// Rule returns the page indices it wants excluded for the given page.
type Rule interface {
	Name() string
	Apply(pc *PageContext) []int
}

type ruleFunc struct {
	name string
	fn   func(pc *PageContext) []int
}

func (r ruleFunc) Name() string {
	return r.name
}

func (r ruleFunc) Apply(pc *PageContext) []int {
	return r.fn(pc)
}

func NewRule(name string, fn func(pc *PageContext) []int) Rule {
	return ruleFunc{name: name, fn: fn}
}

func languageRule(target string) Rule {
	return NewRule("language", func(pc *PageContext) []int {
		if pc.Language == "" || pc.Language == target {
			return nil
		}
		return []int{pc.Index}
	})
}

func titlePageRule() Rule {
	return NewRule("title_page", func(pc *PageContext) []int {
		if pc.Index != 0 {
			return nil
		}
		if pc.Words < titlePageMaxWords || titlePageRegex.MatchString(pc.Text) {
			return []int{0}
		}
		return nil
	})
}

func noticesRule() Rule {
	return NewRule("notices", func(pc *PageContext) []int {
		if pc.Index <= noticesMaxIndex && noticesRegex.MatchString(pc.Text) {
			return []int{pc.Index}
		}
		return nil
	})
}

// tocSectionRule flags table of contents pages. Entering a toc block also
// flags every earlier page; any non matching page leaves the block.
func tocSectionRule() Rule {
	return NewRule("toc_section", func(pc *PageContext) []int {
		if !isTOCPage(pc.Text, pc.state.inTOC) || pc.Index >= tocMaxIndex {
			pc.state.inTOC = false
			return nil
		}
		out := []int{pc.Index}
		if !pc.state.inTOC {
			for i := 0; i < pc.Index; i++ {
				out = append(out, i)
			}
		}
		pc.state.inTOC = true
		return out
	})
}

func isTOCPage(text string, inTOC bool) bool {
	for _, re := range tocPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return inTOC && len(dottedLineRegex.FindAllString(text, -1)) >= tocMinDottedLines
}

func newPageContext(index int, text string, pageCount int, state *scanState) *PageContext {
	lower := strings.ToLower(text)
	return &PageContext{
		Index:     index,
		Text:      lower,
		Words:     len(strings.Fields(lower)),
		PageCount: pageCount,
		state:     state,
	}
}
