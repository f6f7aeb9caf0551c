package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/supportrag/internal/ai"
	"github.com/xxxsen/supportrag/internal/config"
	"github.com/xxxsen/supportrag/internal/filestore"
	"github.com/xxxsen/supportrag/internal/model"
	appErr "github.com/xxxsen/supportrag/internal/pkg/errors"
)

type fakeEmbedder struct {
	mu     sync.Mutex
	calls  int
	failOn string
	tasks  []string
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	f.mu.Lock()
	f.calls++
	f.tasks = append(f.tasks, taskType)
	f.mu.Unlock()
	if f.failOn != "" && strings.Contains(text, f.failOn) {
		return nil, errors.New("embed failed")
	}
	vec := make([]float32, model.EmbeddingDimensions)
	vec[0] = float32(len(text))
	return vec, nil
}

func (f *fakeEmbedder) ModelName() string { return "fake:embed" }

type fakeManuals struct {
	mu   sync.Mutex
	rows []*model.ManualChunk
}

func (f *fakeManuals) BulkInsert(ctx context.Context, chunks []*model.ManualChunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, chunks...)
	return nil
}

func (f *fakeManuals) CountByURL(ctx context.Context, url string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.rows {
		if r.URL == url {
			n++
		}
	}
	return n, nil
}

type fakeTickets struct {
	rows []*model.TicketChunk
}

func (f *fakeTickets) BulkInsert(ctx context.Context, chunks []*model.TicketChunk) error {
	f.rows = append(f.rows, chunks...)
	return nil
}

func (f *fakeTickets) CountByTicketID(ctx context.Context, ticketID string) (int, error) {
	n := 0
	for _, r := range f.rows {
		if r.TicketID == ticketID {
			n++
		}
	}
	return n, nil
}

type fakeAI struct {
	summaryInput string
	answerRefs   []string
	answerDesc   string
}

func (f *fakeAI) QueryString(ctx context.Context, description string) (*ai.TicketQuery, error) {
	return &ai.TicketQuery{Description: "Printer shows 50.4", QueryString: "error 50.4 fuser"}, nil
}

func (f *fakeAI) SummarizeTicket(ctx context.Context, description string) (string, error) {
	f.summaryInput = description
	return "Fuser replaced, error 50.4 gone.", nil
}

func (f *fakeAI) Answer(ctx context.Context, description string, references []string) (string, error) {
	f.answerDesc = description
	f.answerRefs = references
	return "Replace the fuser.", nil
}

type memFiles struct {
	mu    sync.Mutex
	items map[string][]byte
}

func (m *memFiles) Type() string { return "mem" }

func (m *memFiles) Save(ctx context.Context, key string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items == nil {
		m.items = map[string][]byte{}
	}
	m.items[key] = data
	return nil
}

func (m *memFiles) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.items[key]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

type fakeSearcher struct {
	manuals    []*model.ManualResult
	tickets    []*model.TicketResult
	err        error
	lastQuery  string
	lastDevice string
}

func (f *fakeSearcher) SearchManuals(ctx context.Context, query string, embedding []float32, deviceType string) ([]*model.ManualResult, error) {
	f.lastDevice = deviceType
	return f.manuals, f.err
}

func (f *fakeSearcher) SearchTickets(ctx context.Context, query string, embedding []float32) ([]*model.TicketResult, error) {
	f.lastQuery = query
	return f.tickets, nil
}

const manualMarkdown = `# LaserJet Service Manual

## Error 50.4

The fuser reports a power fault. Turn the printer off and check the fuser connector.

- Remove the rear door
- Reseat the fuser
- Power on and print a test page
`

func newTestIngest(t *testing.T, embedder *fakeEmbedder, manuals *fakeManuals, tickets *fakeTickets, gen *fakeAI, files *memFiles) *IngestService {
	cfg := config.IngestConfig{
		MaxChunkLength:  2500,
		TargetLanguage:  "en",
		WorkerPoolSize:  2,
		DocumentWorkers: 2,
	}
	var store filestore.Store
	if files != nil {
		store = files
	}
	svc, err := NewIngestService(cfg, manuals, tickets, embedder, gen, store)
	require.NoError(t, err)
	t.Cleanup(svc.Release)
	return svc
}

func TestIsRelevant(t *testing.T) {
	cases := []struct {
		name string
		in   model.ManualInput
		want bool
	}{
		{name: "content type", in: model.ManualInput{ContentType: "Service Manual"}, want: true},
		{name: "category", in: model.ManualInput{ContentType: "Guide", Categories: []string{"Troubleshooting guides"}}, want: true},
		{name: "none", in: model.ManualInput{ContentType: "User Guide", Categories: []string{"Setup"}}, want: false},
		{name: "empty", in: model.ManualInput{}, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsRelevant(&tc.in))
		})
	}
}

func TestIngestManualMarkdown(t *testing.T) {
	embedder := &fakeEmbedder{}
	manuals := &fakeManuals{}
	files := &memFiles{}
	svc := newTestIngest(t, embedder, manuals, &fakeTickets{}, &fakeAI{}, files)

	report, err := svc.IngestManual(context.Background(), &model.ManualInput{
		URL:         "https://example.com/docs/laserjet.md",
		DeviceType:  "LaserJet Pro",
		ContentType: "Service Manual",
		Data:        []byte(manualMarkdown),
	})
	require.NoError(t, err)
	require.Equal(t, "markdown", report.DocType)
	require.Equal(t, 0, report.Pages)
	require.Empty(t, report.ExcludedPages)
	require.Positive(t, report.Chunks)
	require.Len(t, manuals.rows, report.Chunks)
	require.Equal(t, report.Chunks, embedder.calls)

	var all strings.Builder
	for _, row := range manuals.rows {
		require.Equal(t, "LaserJet Pro", row.DeviceType)
		require.Equal(t, "markdown", row.DocType)
		require.Equal(t, 0, row.PageNumber)
		require.Len(t, row.Embedding, model.EmbeddingDimensions)
		require.Equal(t, float32(len(row.Chunk)), row.Embedding[0])
		all.WriteString(row.Chunk)
	}
	require.Contains(t, all.String(), "Reseat the fuser")
	for _, task := range embedder.tasks {
		require.Equal(t, ai.TaskRetrievalDocument, task)
	}

	require.True(t, strings.HasPrefix(report.ArchiveKey, "manuals/laserjet_pro/"))
	require.True(t, strings.HasSuffix(report.ArchiveKey, ".markdown"))
	require.Equal(t, []byte(manualMarkdown), files.items[report.ArchiveKey])
	require.False(t, report.Reingested)

	again, err := svc.IngestManual(context.Background(), &model.ManualInput{
		URL:         "https://example.com/docs/laserjet.md",
		DeviceType:  "LaserJet Pro",
		ContentType: "Service Manual",
		Data:        []byte(manualMarkdown),
	})
	require.NoError(t, err)
	require.True(t, again.Reingested)
	require.Len(t, manuals.rows, 2*report.Chunks)
}

func TestIngestManualIrrelevant(t *testing.T) {
	manuals := &fakeManuals{}
	files := &memFiles{}
	svc := newTestIngest(t, &fakeEmbedder{}, manuals, &fakeTickets{}, &fakeAI{}, files)

	in := &model.ManualInput{
		URL:         "https://example.com/setup.md",
		DeviceType:  "LaserJet Pro",
		ContentType: "Setup poster",
		Data:        []byte(manualMarkdown),
	}
	_, err := svc.IngestManual(context.Background(), in)
	require.ErrorIs(t, err, appErr.ErrIrrelevant)
	require.Empty(t, manuals.rows)
	require.Empty(t, files.items)

	in.Force = true
	_, err = svc.IngestManual(context.Background(), in)
	require.NoError(t, err)
	require.NotEmpty(t, manuals.rows)
}

func TestIngestManualValidation(t *testing.T) {
	svc := newTestIngest(t, &fakeEmbedder{}, &fakeManuals{}, &fakeTickets{}, &fakeAI{}, nil)
	ctx := context.Background()

	_, err := svc.IngestManual(ctx, &model.ManualInput{URL: "a.md", Data: []byte("x"), Force: true})
	require.ErrorIs(t, err, appErr.ErrValidation)

	_, err = svc.IngestManual(ctx, &model.ManualInput{URL: "a.md", DeviceType: "x", Force: true})
	require.ErrorIs(t, err, appErr.ErrInputFormat)
	require.NotErrorIs(t, err, appErr.ErrValidation)

	_, err = svc.IngestManual(ctx, &model.ManualInput{URL: "a.docx", DeviceType: "x", Data: []byte("x"), Force: true})
	require.ErrorIs(t, err, appErr.ErrInputFormat)
}

func TestIngestManualEmbedFailure(t *testing.T) {
	manuals := &fakeManuals{}
	svc := newTestIngest(t, &fakeEmbedder{failOn: "fuser"}, manuals, &fakeTickets{}, &fakeAI{}, nil)

	_, err := svc.IngestManual(context.Background(), &model.ManualInput{
		URL:        "manual.md",
		DeviceType: "LaserJet Pro",
		Force:      true,
		Data:       []byte(manualMarkdown),
	})
	require.Error(t, err)
	require.Empty(t, manuals.rows)
}

func TestIngestManuals(t *testing.T) {
	manuals := &fakeManuals{}
	svc := newTestIngest(t, &fakeEmbedder{}, manuals, &fakeTickets{}, &fakeAI{}, nil)

	reports := svc.IngestManuals(context.Background(), []*model.ManualInput{
		{URL: "one.md", DeviceType: "A", ContentType: "repair", Data: []byte(manualMarkdown)},
		{URL: "two.md", DeviceType: "A", ContentType: "brochure", Data: []byte(manualMarkdown)},
		{URL: "three.md", DeviceType: "B", ContentType: "maintenance", Data: []byte(manualMarkdown)},
	})
	require.Len(t, reports, 3)
	require.NoError(t, reports[0].Err)
	require.Equal(t, "one.md", reports[0].URL)
	require.ErrorIs(t, reports[1].Err, appErr.ErrIrrelevant)
	require.Equal(t, "two.md", reports[1].URL)
	require.NoError(t, reports[2].Err)
	require.Equal(t, reports[0].Chunks+reports[2].Chunks, len(manuals.rows))
}

func TestAddTicket(t *testing.T) {
	embedder := &fakeEmbedder{}
	tickets := &fakeTickets{}
	gen := &fakeAI{}
	svc := newTestIngest(t, embedder, &fakeManuals{}, tickets, gen, nil)

	desc := "The printer shows error 50.4 right after power on and does not print anymore. " +
		"The customer already restarted it twice, contact them at jane.doe@example.com for access to the building."
	row, err := svc.AddTicket(context.Background(), &model.TicketInput{
		TicketID:    "T-100",
		DeviceType:  "LaserJet Pro",
		Description: desc,
		Worknote:    "Replaced fuser unit.",
		Success:     true,
		SpareParts:  []string{"Fuser 220V", "Rear door"},
	})
	require.NoError(t, err)
	require.Equal(t, "Fuser replaced, error 50.4 gone.\nSpare Parts used:\nFuser 220V\nRear door", row.Chunk)
	require.Len(t, tickets.rows, 1)
	require.Equal(t, "T-100", tickets.rows[0].TicketID)
	require.Len(t, tickets.rows[0].Embedding, model.EmbeddingDimensions)

	require.Contains(t, gen.summaryInput, "Worknote:\nReplaced fuser unit.")
	require.Contains(t, gen.summaryInput, "Successful?:\ntrue")
	require.Contains(t, gen.summaryInput, "Remote fix?:\nfalse")
	require.NotContains(t, gen.summaryInput, "jane.doe@example.com")
}

func TestAddTicketRejectsShortDescription(t *testing.T) {
	tickets := &fakeTickets{}
	gen := &fakeAI{}
	svc := newTestIngest(t, &fakeEmbedder{}, &fakeManuals{}, tickets, gen, nil)

	_, err := svc.AddTicket(context.Background(), &model.TicketInput{
		TicketID:    "T-1",
		DeviceType:  "LaserJet Pro",
		Description: "Printer broken.",
	})
	require.ErrorIs(t, err, appErr.ErrValidation)
	require.Empty(t, gen.summaryInput)
	require.Empty(t, tickets.rows)
}

func TestRetrieve(t *testing.T) {
	embedder := &fakeEmbedder{}
	searcher := &fakeSearcher{
		tickets: []*model.TicketResult{{TicketChunk: model.TicketChunk{ID: 1, TicketID: "T-1"}}},
		manuals: []*model.ManualResult{{ManualChunk: model.ManualChunk{ID: 7, URL: "m.pdf", PageNumber: 3}}},
	}
	svc := NewRetrievalService(searcher, embedder)

	res, err := svc.Retrieve(context.Background(), "  fuser error  ", "LaserJet Pro")
	require.NoError(t, err)
	require.Len(t, res.Tickets, 1)
	require.Len(t, res.Manuals, 1)
	require.Equal(t, "fuser error", searcher.lastQuery)
	require.Equal(t, "LaserJet Pro", searcher.lastDevice)
	require.Equal(t, []string{ai.TaskRetrievalQuery}, embedder.tasks)

	_, err = svc.Retrieve(context.Background(), " ", "LaserJet Pro")
	require.ErrorIs(t, err, appErr.ErrValidation)
	_, err = svc.Retrieve(context.Background(), "fuser", "")
	require.ErrorIs(t, err, appErr.ErrValidation)

	searcher.err = appErr.NewStoreError(model.CorpusManuals, "search", errors.New("boom"))
	_, err = svc.Retrieve(context.Background(), "fuser", "LaserJet Pro")
	require.ErrorIs(t, err, appErr.ErrStore)
}

func TestProcessTicket(t *testing.T) {
	searcher := &fakeSearcher{
		tickets: []*model.TicketResult{{TicketChunk: model.TicketChunk{ID: 1, TicketID: "T-1", Chunk: "fuser swapped"}}},
		manuals: []*model.ManualResult{
			{ManualChunk: model.ManualChunk{ID: 7, URL: "m.pdf", PageNumber: 3, DocType: "pdf", Chunk: "check fuser"}},
			{ManualChunk: model.ManualChunk{ID: 8, URL: "kb.html", DocType: "html", Chunk: "error list"}},
		},
	}
	gen := &fakeAI{}
	svc := NewAssistService(gen, NewRetrievalService(searcher, &fakeEmbedder{}))

	res, err := svc.ProcessTicket(context.Background(), "Error 50.4, mail me at a.b@example.com", "LaserJet Pro")
	require.NoError(t, err)
	require.Equal(t, "Replace the fuser.", res.Answer)
	require.Equal(t, "error 50.4 fuser", res.Summary.QueryString)
	require.Equal(t, "error 50.4 fuser", searcher.lastQuery)
	require.Equal(t, []string{"T-1"}, res.Context.Tickets)
	require.Equal(t, []model.ManualReference{
		{ID: 7, URL: "m.pdf", PageNumber: 3, DocType: "pdf"},
		{ID: 8, URL: "kb.html", DocType: "html"},
	}, res.Context.Manuals)
	require.NotContains(t, gen.answerDesc, "a.b@example.com")
	require.Equal(t, []string{
		"Ticket T-1:\nfuser swapped",
		"Manual m.pdf (page 3):\ncheck fuser",
		"Manual kb.html:\nerror list",
	}, gen.answerRefs)

	_, err = svc.ProcessTicket(context.Background(), "   ", "LaserJet Pro")
	require.ErrorIs(t, err, appErr.ErrValidation)
}
