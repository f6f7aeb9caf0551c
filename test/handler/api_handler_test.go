package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/supportrag/internal/model"
	appErr "github.com/xxxsen/supportrag/internal/pkg/errors"
	"github.com/xxxsen/supportrag/internal/pkg/errcode"
)

func TestRetrieveHandler(t *testing.T) {
	backend := &fakeBackend{}
	router := setupRouter(t, backend, 0)

	resp := postJSON(t, router, "/api/v1/retrieve", map[string]string{"query": "fuser", "device_type": "LaserJet"})
	require.Equal(t, 0, resp.Code)
	var result model.RetrievalResult
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	require.Len(t, result.Tickets, 1)
	require.Equal(t, "fuser", result.Tickets[0].Chunk)
	require.Equal(t, "LaserJet", result.Manuals[0].DeviceType)
	require.Equal(t, 4, result.Manuals[0].PageNumber)
}

func TestRetrieveHandlerErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{name: "validation", err: fmt.Errorf("query is required: %w", appErr.ErrValidation), code: errcode.ErrValidation},
		{name: "store", err: appErr.NewStoreError(model.CorpusManuals, "search", fmt.Errorf("boom")), code: errcode.ErrStore},
		{name: "connection", err: appErr.NewStoreError(model.CorpusTickets, "search", fmt.Errorf("%w: dial", appErr.ErrStoreConnection)), code: errcode.ErrStoreConnection},
		{name: "ai", err: fmt.Errorf("embed: %w", appErr.ErrUnavailable), code: errcode.ErrAIUnavailable},
		{name: "unknown", err: fmt.Errorf("boom"), code: errcode.ErrInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := setupRouter(t, &fakeBackend{retrieveErr: tc.err}, 0)
			resp := postJSON(t, router, "/api/v1/retrieve", map[string]string{"query": "q", "device_type": "d"})
			require.Equal(t, tc.code, resp.Code)
		})
	}
}

func TestRetrieveHandlerBadBody(t *testing.T) {
	router := setupRouter(t, &fakeBackend{}, 0)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/retrieve", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	resp := serve(t, router, req)
	require.Equal(t, errcode.ErrInvalid, resp.Code)
}

func TestTicketHandlers(t *testing.T) {
	backend := &fakeBackend{}
	router := setupRouter(t, backend, 0)

	resp := postJSON(t, router, "/api/v1/tickets", map[string]interface{}{
		"ticket_id":   "T-9",
		"device_type": "LaserJet",
		"description": "paper jam",
		"spare_parts": []string{"roller"},
	})
	require.Equal(t, 0, resp.Code)
	require.Equal(t, "T-9", backend.lastTicket.TicketID)
	require.Equal(t, []string{"roller"}, backend.lastTicket.SpareParts)

	resp = postJSON(t, router, "/api/v1/tickets/process", map[string]string{
		"description": "error 50.4",
		"device_type": "LaserJet",
	})
	require.Equal(t, 0, resp.Code)
	var result model.AssistResult
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	require.Equal(t, "replace the fuser", result.Answer)
	require.Equal(t, "fuser", result.Summary.QueryString)
	require.Equal(t, []string{"T-1"}, result.Context.Tickets)
}

func newUpload(t *testing.T, fields map[string][]string, filename string, content []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for key, values := range fields {
		for _, v := range values {
			require.NoError(t, w.WriteField(key, v))
		}
	}
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/manuals", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestManualUpload(t *testing.T) {
	backend := &fakeBackend{}
	router := setupRouter(t, backend, 1<<20)

	req := newUpload(t, map[string][]string{
		"device_type":  {"LaserJet"},
		"content_type": {"Service Manual"},
		"categories":   {"Printers", "Repair"},
		"force":        {"true"},
	}, "manual.md", []byte("# Manual\n\ntext"))
	resp := serve(t, router, req)
	require.Equal(t, 0, resp.Code)
	require.Equal(t, "manual.md", backend.lastManual.URL)
	require.Equal(t, "LaserJet", backend.lastManual.DeviceType)
	require.Equal(t, []string{"Printers", "Repair"}, backend.lastManual.Categories)
	require.True(t, backend.lastManual.Force)
	require.False(t, backend.lastManual.DeviceModelUsed)
	require.Equal(t, []byte("# Manual\n\ntext"), backend.lastManual.Data)
}

func TestManualUploadErrors(t *testing.T) {
	backend := &fakeBackend{}
	router := setupRouter(t, backend, 64)

	resp := serve(t, router, newUpload(t, map[string][]string{"device_type": {"x"}}, "", nil))
	require.Equal(t, errcode.ErrInvalidFile, resp.Code)

	resp = serve(t, router, newUpload(t, nil, "big.pdf", bytes.Repeat([]byte("a"), 512)))
	require.Equal(t, errcode.ErrInvalidFile, resp.Code)
	require.Contains(t, resp.Msg, "exceeds")

	backend.manualErr = fmt.Errorf("manual: %w", appErr.ErrIrrelevant)
	router = setupRouter(t, backend, 0)
	resp = serve(t, router, newUpload(t, map[string][]string{"device_type": {"x"}}, "a.md", []byte("# a")))
	require.Equal(t, errcode.ErrIrrelevant, resp.Code)
}
