package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/common/webapi"

	"github.com/xxxsen/supportrag/internal/handler"
	"github.com/xxxsen/supportrag/internal/middleware"
	"github.com/xxxsen/supportrag/internal/model"
)

type fakeBackend struct {
	retrieveErr error
	lastManual  *model.ManualInput
	lastTicket  *model.TicketInput
	manualErr   error
}

func (f *fakeBackend) Retrieve(ctx context.Context, query, deviceType string) (*model.RetrievalResult, error) {
	if f.retrieveErr != nil {
		return nil, f.retrieveErr
	}
	return &model.RetrievalResult{
		Tickets: []*model.TicketResult{{TicketChunk: model.TicketChunk{ID: 1, TicketID: "T-1", Chunk: query}}},
		Manuals: []*model.ManualResult{{ManualChunk: model.ManualChunk{ID: 2, DeviceType: deviceType, PageNumber: 4}}},
	}, nil
}

func (f *fakeBackend) AddTicket(ctx context.Context, in *model.TicketInput) (*model.TicketChunk, error) {
	f.lastTicket = in
	return &model.TicketChunk{TicketID: in.TicketID, Chunk: "summary"}, nil
}

func (f *fakeBackend) ProcessTicket(ctx context.Context, description, deviceType string) (*model.AssistResult, error) {
	return &model.AssistResult{
		Answer:  "replace the fuser",
		Summary: model.AssistSummary{Description: description, QueryString: "fuser"},
		Context: model.AssistContext{Tickets: []string{"T-1"}},
	}, nil
}

func (f *fakeBackend) IngestManual(ctx context.Context, in *model.ManualInput) (*model.IngestReport, error) {
	f.lastManual = in
	if f.manualErr != nil {
		return nil, f.manualErr
	}
	return &model.IngestReport{URL: in.URL, DocType: "markdown", Chunks: 2}, nil
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"message"`
	Data json.RawMessage `json:"data"`
}

func setupRouter(t *testing.T, backend *fakeBackend, maxUpload int64) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	deps := handler.RouterDeps{
		Retrieval: handler.NewRetrievalHandler(backend),
		Tickets:   handler.NewTicketHandler(backend, backend),
		Manuals:   handler.NewManualHandler(backend, maxUpload),
	}
	engine, err := webapi.NewEngine(
		"/api/v1",
		"",
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(nil),
		),
	)
	require.NoError(t, err)
	return engine
}

func postJSON(t *testing.T, router http.Handler, path string, body interface{}) envelope {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return serve(t, router, req)
}

func serve(t *testing.T, router http.Handler, req *http.Request) envelope {
	t.Helper()
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	var out envelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	return out
}
