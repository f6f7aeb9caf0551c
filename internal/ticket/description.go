// Package ticket cleans raw support ticket descriptions before they are
// summarised or used as a retrieval query.
package ticket

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	appErr "github.com/xxxsen/supportrag/internal/pkg/errors"
)

// MinDescriptionLength is the shortest unstructured description worth indexing.
const MinDescriptionLength = 150

type SectionKind int

const (
	SectionText SectionKind = iota
	SectionFields
)

type Field struct {
	Key   string
	Value string
}

// Section is one headline block of a structured description. Text is set for
// SectionText, Fields for SectionFields. Title may be empty for untitled
// blocks of the ruler format.
type Section struct {
	Kind   SectionKind
	Title  string
	Text   string
	Fields []Field
}

// Description is either a list of sections or, when no headline format was
// recognised, plain text.
type Description struct {
	Sections []Section
	Plain    string
}

func (d Description) Structured() bool {
	return len(d.Sections) > 0
}

func (d Description) String() string {
	if !d.Structured() {
		return d.Plain
	}
	var sb strings.Builder
	for _, s := range d.Sections {
		switch s.Kind {
		case SectionFields:
			sb.WriteString(s.Title + ":\n")
			for _, f := range s.Fields {
				sb.WriteString("  " + f.Key + ": " + f.Value + "\n")
			}
		default:
			if s.Title != "" {
				sb.WriteString(s.Title + ":\n")
			}
			sb.WriteString(s.Text + "\n\n")
		}
	}
	return blankRunRegex.ReplaceAllString(sb.String(), "\n\n")
}

var (
	mailRegex         = regexp.MustCompile(`[\w\-\.]+@[\w-]+(\.[a-zA-Z]{2,})+`)
	headlineFormat1   = regexp.MustCompile(`[A-Z]+:\n===+\n`)
	headlineFormat2   = regexp.MustCompile(`=====\n+[A-Za-z ]+:`)
	headlineLineRegex = regexp.MustCompile(`^[A-Z ]+:$`)
	rulerLineRegex    = regexp.MustCompile(`^=+$`)
	rulerSplitRegex   = regexp.MustCompile(`=+\n+`)
	leadingTitleRegex = regexp.MustCompile(`^([a-zA-Z ]+):`)
	blankRunRegex     = regexp.MustCompile(`\n\n\n+`)
)

// sections of the headline format that never help diagnosing a fault
var format1Denylist = map[string]bool{
	"AGREEMENT":         true,
	"DELIVERY":          true,
	"PARTORDERS":        true,
	"CONTACT":           true,
	"ENTITLEMENT":       true,
	"PARTS SHIPPED TO":  true,
	"ATTACHMENTS":       true,
	"ALTERNATE CONTACT": true,
	"WHERE":             true,
}

var format1FieldSections = map[string]bool{
	"MISC":            true,
	"WORKORDER":       true,
	"SKILLSETS":       true,
	"CASE DETAILS":    true,
	"CONTACT DETAILS": true,
}

var format2Denylist = map[string]bool{
	"BOOKING DETAILS":                     true,
	"ACCOUNT":                             true,
	"DEVICE":                              true,
	"CONTACT":                             true,
	"SKILLS":                              true,
	"OTHER":                               true,
	"PARTS SHIPPED TO":                    true,
	"Kontakt Terminabstimmung":            true,
	"Additional info":                     true,
	"Contact Details for Onsite would be": true,
	"DISPATCHERS":                         true,
}

// RemoveMailAddresses replaces every e-mail address with a space.
func RemoveMailAddresses(text string) string {
	return mailRegex.ReplaceAllString(text, " ")
}

// Parse strips e-mail addresses and splits a recognised headline format into sections.
func Parse(raw string) Description {
	text := strings.ReplaceAll(raw, "\r\n", "\n")
	text = RemoveMailAddresses(text)
	switch {
	case headlineFormat1.MatchString(text):
		return Description{Sections: parseFormat1(text)}
	case headlineFormat2.MatchString(text):
		return Description{Sections: parseFormat2(text)}
	}
	return Description{Plain: text}
}

// Process returns the cleaned description. With minLength set, unstructured
// descriptions of MinDescriptionLength characters or fewer are rejected.
func Process(raw string, minLength bool) (string, error) {
	desc := Parse(raw)
	if !desc.Structured() && minLength && utf8.RuneCountInString(desc.Plain) <= MinDescriptionLength {
		return "", fmt.Errorf("description too short to index: %w", appErr.ErrValidation)
	}
	return desc.String(), nil
}

func parseFormat1(text string) []Section {
	lines := strings.Split(text, "\n")
	var (
		out     []Section
		title   string
		body    []string
		started bool
	)
	flush := func() {
		if !started {
			return
		}
		value := strings.Join(body, "\n")
		if format1Denylist[title] || isEmptyValue(value) {
			return
		}
		if format1FieldSections[title] {
			out = append(out, Section{Kind: SectionFields, Title: title, Fields: parseFields(value)})
			return
		}
		out = append(out, Section{Kind: SectionText, Title: title, Text: strings.TrimSpace(value)})
	}
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if headlineLineRegex.MatchString(line) && i+1 < len(lines) && rulerLineRegex.MatchString(lines[i+1]) {
			flush()
			title = strings.TrimSuffix(line, ":")
			body = nil
			started = true
			i++
			continue
		}
		if started {
			body = append(body, line)
		}
	}
	flush()
	return out
}

// parseFields reads "key: value" lines; lines without a colon are dropped.
func parseFields(value string) []Field {
	var fields []Field
	for _, line := range strings.Split(value, "\n") {
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		fields = append(fields, Field{Key: key, Value: strings.TrimSpace(val)})
	}
	return fields
}

func parseFormat2(text string) []Section {
	var out []Section
	for _, block := range rulerSplitRegex.Split(text, -1) {
		block = strings.TrimLeft(block, "\n")
		title := ""
		if m := leadingTitleRegex.FindStringSubmatch(block); m != nil {
			title = strings.TrimSpace(m[1])
			block = block[len(m[0]):]
		}
		value := strings.TrimSpace(block)
		if format2Denylist[title] || isEmptyValue(value) {
			continue
		}
		out = append(out, Section{Kind: SectionText, Title: title, Text: value})
	}
	return out
}

func isEmptyValue(v string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == "null"
}
