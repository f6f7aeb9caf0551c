package chunker

import (
	"context"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/supportrag/internal/model"
)

const DefaultMaxLength = 2500

type Config struct {
	MaxLength int
	Overlap   bool
}

type Chunker struct {
	maxLen  int
	overlap bool
}

func New(cfg Config) *Chunker {
	maxLen := cfg.MaxLength
	if maxLen <= 0 {
		maxLen = DefaultMaxLength
	}
	return &Chunker{maxLen: maxLen, overlap: cfg.Overlap}
}

func isHeading(text string) bool {
	return len(text) > 1 && text[0] == '#'
}

// Chunk greedily merges segments up to the length bound. A heading always
// opens a new chunk and a chunk's page is the smallest page seen in it.
func (c *Chunker) Chunk(ctx context.Context, segments []model.TextSegment) []model.Chunk {
	logger := logutil.GetLogger(ctx)
	var (
		chunks  []model.Chunk
		current strings.Builder
		page    int
		last    string
	)

	seal := func() {
		if current.Len() == 0 {
			return
		}
		chunks = append(chunks, model.Chunk{Text: current.String(), PageNo: page})
		current.Reset()
		page = 0
	}
	start := func(text string, pageNo int) {
		current.WriteString(text)
		page = pageNo
	}

	for _, seg := range segments {
		if seg.Text == "" {
			continue
		}
		if isHeading(seg.Text) {
			seal()
			start(seg.Text, seg.PageNo)
			last = ""
			continue
		}
		if current.Len() == 0 {
			start(seg.Text, seg.PageNo)
			last = seg.Text
			continue
		}
		if current.Len()+1+len(seg.Text) <= c.maxLen {
			current.WriteByte(' ')
			current.WriteString(seg.Text)
			if seg.PageNo > 0 && (page == 0 || seg.PageNo < page) {
				page = seg.PageNo
			}
			last = seg.Text
			continue
		}
		seal()
		if c.overlap && last != "" && len(last)+1+len(seg.Text) <= c.maxLen {
			start(last+" "+seg.Text, seg.PageNo)
		} else {
			start(seg.Text, seg.PageNo)
		}
		last = seg.Text
	}
	seal()

	logger.Debug("chunking finished", zap.Int("segments", len(segments)), zap.Int("chunks", len(chunks)))
	return chunks
}
