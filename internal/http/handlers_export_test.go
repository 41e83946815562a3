package httpx

import (
	"archive/zip"
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/titulapp/thesis-api/internal/domain/model"
	"github.com/titulapp/thesis-api/internal/mocks"
	"github.com/titulapp/thesis-api/internal/service"
)

type exportFixture struct {
	svc      *service.ExportService
	registry *service.ExportRegistry
	lister   *mocks.MockRecordLister
	gateway  *mocks.MockFileGateway
	handler  http.Handler
}

func newExportFixture(t *testing.T) *exportFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	lister := mocks.NewMockRecordLister(ctrl)
	gateway := mocks.NewMockFileGateway(ctrl)
	registry := service.NewExportRegistry()

	svc := service.MustNewExportService(service.ExportServiceOptions{
		Registry: registry,
		Lister:   lister,
		Gateway:  gateway,
	})

	handler := NewRouter(RouterServices{
		Export:         svc,
		StreamInterval: 10 * time.Millisecond,
	})

	return &exportFixture{
		svc:      svc,
		registry: registry,
		lister:   lister,
		gateway:  gateway,
		handler:  handler,
	}
}

func (f *exportFixture) waitTerminal(t *testing.T, id string) model.ExportSnapshot {
	t.Helper()
	var snap model.ExportSnapshot
	require.Eventually(t, func() bool {
		s, err := f.svc.Snapshot(id)
		if err != nil {
			return false
		}
		snap = s
		return snap.Status.Terminal()
	}, 2*time.Second, 5*time.Millisecond)
	return snap
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestStartExport_Returns202WithJobID(t *testing.T) {
	f := newExportFixture(t)
	f.lister.EXPECT().ListWithStorageHandle(gomock.Any()).Return(nil, nil)

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/export", nil))

	require.Equal(t, http.StatusAccepted, rec.Code)
	body := decodeBody(t, rec)
	jobID, ok := body["job_id"].(string)
	require.True(t, ok)
	assert.NotEmpty(t, jobID)

	// The runner lands the empty export in the error state on its own
	snap := f.waitTerminal(t, jobID)
	assert.Equal(t, model.ExportStatusError, snap.Status)
}

func TestGetProgress(t *testing.T) {
	f := newExportFixture(t)
	f.lister.EXPECT().ListWithStorageHandle(gomock.Any()).
		Return([]model.ThesisRecord{{ID: "t1", Name: "Thesis One", StorageHandle: "h1"}}, nil)
	f.gateway.EXPECT().ResolveDownloadLink(gomock.Any(), "h1").Return("http://files/1", nil)
	f.gateway.EXPECT().FetchBytes(gomock.Any(), "http://files/1").Return([]byte("%PDF"), nil)

	id, err := f.svc.Start(context.Background())
	require.NoError(t, err)
	f.waitTerminal(t, id)

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/export/jobs/"+id, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, id, body["job_id"])
	assert.Equal(t, "completed", body["status"])
	assert.Equal(t, float64(100), body["progress"])
	assert.Equal(t, "/api/export/jobs/"+id+"/download", body["download_url"])
}

func TestGetProgress_UnknownJob(t *testing.T) {
	f := newExportFixture(t)

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/export/jobs/nope", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "job_not_found", body["error"])
}

func TestGetResult_DownloadAndRepeat(t *testing.T) {
	f := newExportFixture(t)
	f.lister.EXPECT().ListWithStorageHandle(gomock.Any()).
		Return([]model.ThesisRecord{{ID: "t1", Name: "Thesis One", StorageHandle: "h1"}}, nil)
	f.gateway.EXPECT().ResolveDownloadLink(gomock.Any(), "h1").Return("http://files/1", nil)
	f.gateway.EXPECT().FetchBytes(gomock.Any(), "http://files/1").Return([]byte("%PDF one"), nil)

	id, err := f.svc.Start(context.Background())
	require.NoError(t, err)
	f.waitTerminal(t, id)

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/export/jobs/"+id+"/download", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="theses_export_`+id+`.zip"`, rec.Header().Get("Content-Disposition"))

	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)

	// A second download serves the identical archive
	rec2 := httptest.NewRecorder()
	f.handler.ServeHTTP(rec2, httptest.NewRequest(http.MethodGet, "/api/export/jobs/"+id+"/download", nil))
	require.Equal(t, http.StatusOK, rec2.Code)
	assert.Equal(t, rec.Body.Bytes(), rec2.Body.Bytes())
}

func TestGetResult_NotReady(t *testing.T) {
	f := newExportFixture(t)

	_, err := f.registry.Create("job-1")
	require.NoError(t, err)
	require.True(t, f.registry.Transition("job-1", model.ExportStatusProcessing))
	require.True(t, f.registry.Update("job-1", func(j *model.ExportJob) {
		j.Total = 2
		j.Current = 1
	}))

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/export/jobs/job-1/download", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "not_ready", body["error"])
	assert.Equal(t, "processing", body["status"])
	assert.Equal(t, float64(50), body["progress"])
}

func TestGetResult_UnknownJob(t *testing.T) {
	f := newExportFixture(t)

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/export/jobs/nope/download", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "job_not_found", body["error"])
}

// sseFrame is one decoded data frame from the event stream.
type sseFrame struct {
	event string
	data  string
}

// readSSEFrames consumes the stream until the server closes it.
func readSSEFrames(t *testing.T, body *bufio.Scanner) []sseFrame {
	t.Helper()
	var frames []sseFrame
	current := sseFrame{}
	for body.Scan() {
		line := body.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			current.event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			current.data = strings.TrimPrefix(line, "data: ")
		case line == "":
			if current.data != "" {
				frames = append(frames, current)
				current = sseFrame{}
			}
		}
	}
	return frames
}

func TestStreamProgress_EmitsSnapshotsAndFinalFrame(t *testing.T) {
	f := newExportFixture(t)

	release := make(chan struct{})
	f.lister.EXPECT().ListWithStorageHandle(gomock.Any()).
		Return([]model.ThesisRecord{{ID: "t1", Name: "Thesis One", StorageHandle: "h1"}}, nil)
	f.gateway.EXPECT().ResolveDownloadLink(gomock.Any(), "h1").Return("http://files/1", nil)
	f.gateway.EXPECT().FetchBytes(gomock.Any(), "http://files/1").DoAndReturn(
		func(context.Context, string) ([]byte, error) {
			<-release
			return []byte("%PDF one"), nil
		})

	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	id, err := f.svc.Start(context.Background())
	require.NoError(t, err)

	resp, err := http.Get(srv.URL + "/api/export/jobs/" + id + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// Let the stream observe the in-flight state before the job finishes
	time.Sleep(50 * time.Millisecond)
	close(release)

	frames := readSSEFrames(t, bufio.NewScanner(resp.Body))
	require.GreaterOrEqual(t, len(frames), 2, "expected at least one snapshot and the final frame")

	var first, last model.ExportSnapshot
	require.NoError(t, json.Unmarshal([]byte(frames[0].data), &first))
	require.NoError(t, json.Unmarshal([]byte(frames[len(frames)-1].data), &last))

	assert.False(t, first.Final)
	assert.False(t, first.Status.Terminal())

	assert.True(t, last.Final, "stream closes with a final-marked frame")
	assert.Equal(t, model.ExportStatusCompleted, last.Status)
	require.NotNil(t, last.DownloadURL)

	// The frame before the final marker carries the same terminal snapshot
	var beforeLast model.ExportSnapshot
	require.NoError(t, json.Unmarshal([]byte(frames[len(frames)-2].data), &beforeLast))
	assert.Equal(t, model.ExportStatusCompleted, beforeLast.Status)
	assert.False(t, beforeLast.Final)
}

func TestStreamProgress_TerminalJobClosesImmediately(t *testing.T) {
	f := newExportFixture(t)
	f.lister.EXPECT().ListWithStorageHandle(gomock.Any()).Return(nil, nil)

	id, err := f.svc.Start(context.Background())
	require.NoError(t, err)
	f.waitTerminal(t, id)

	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/export/jobs/" + id + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()

	frames := readSSEFrames(t, bufio.NewScanner(resp.Body))
	require.Len(t, frames, 2, "one terminal snapshot plus the final frame")

	var last model.ExportSnapshot
	require.NoError(t, json.Unmarshal([]byte(frames[1].data), &last))
	assert.True(t, last.Final)
	assert.Equal(t, model.ExportStatusError, last.Status)
}

func TestStreamProgress_UnknownJobSendsErrorEvent(t *testing.T) {
	f := newExportFixture(t)

	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/export/jobs/nope/events")
	require.NoError(t, err)
	defer resp.Body.Close()

	frames := readSSEFrames(t, bufio.NewScanner(resp.Body))
	require.Len(t, frames, 1)
	assert.Equal(t, "error", frames[0].event)
	assert.Contains(t, frames[0].data, "job not found")
}

func TestHealthz(t *testing.T) {
	f := newExportFixture(t)

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "ok", body["status"])

	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.Bytes())
}
