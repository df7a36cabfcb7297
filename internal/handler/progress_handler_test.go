package handler_test

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"placement/internal/handler"
	"placement/internal/service"
)

type MockProgressSource struct {
	mock.Mock
}

func (m *MockProgressSource) GetFileProgress(fileName string) *service.ProgressInfo {
	args := m.Called(fileName)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*service.ProgressInfo)
}

func (m *MockProgressSource) GetAllFileProgress() []*service.ProgressInfo {
	args := m.Called()
	return args.Get(0).([]*service.ProgressInfo)
}

func (m *MockProgressSource) RegisterProgressListener(ch chan *service.ProgressInfo) {
	m.Called(ch)
}

func (m *MockProgressSource) UnregisterProgressListener(ch chan *service.ProgressInfo) {
	m.Called(ch)
}

func TestGetFileProgress(t *testing.T) {
	source := new(MockProgressSource)
	source.On("GetFileProgress", "marks.csv").Return(&service.ProgressInfo{
		FileName:     "marks.csv",
		TotalRecords: 10,
		Processed:    4,
		Status:       service.StatusProcessing,
	})
	source.On("GetFileProgress", "missing.csv").Return(nil)

	h := handler.NewProgressHandler(source, nil)

	tests := []struct {
		name           string
		target         string
		expectedStatus int
	}{
		{"existing file", "/progress/file?fileName=marks.csv", http.StatusOK},
		{"path is reduced to base name", "/progress/file?fileName=uploads/marks.csv", http.StatusOK},
		{"unknown file", "/progress/file?fileName=missing.csv", http.StatusNotFound},
		{"missing parameter", "/progress/file", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.GetFileProgress(rr, httptest.NewRequest("GET", tt.target, nil))
			require.Equal(t, tt.expectedStatus, rr.Code)

			if tt.expectedStatus == http.StatusOK {
				var progress service.ProgressInfo
				require.NoError(t, json.NewDecoder(rr.Body).Decode(&progress))
				assert.Equal(t, "marks.csv", progress.FileName)
				assert.Equal(t, 4, progress.Processed)
			}
		})
	}
}

func TestGetAllProgress(t *testing.T) {
	source := new(MockProgressSource)
	source.On("GetAllFileProgress").Return([]*service.ProgressInfo{
		{FileName: "a.csv", Status: service.StatusCompleted},
		{FileName: "b.xlsx", Status: service.StatusError, Error: "failed to open file"},
	})

	h := handler.NewProgressHandler(source, nil)
	rr := httptest.NewRecorder()
	h.GetAllProgress(rr, httptest.NewRequest("GET", "/progress", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var progress []service.ProgressInfo
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&progress))
	require.Len(t, progress, 2)
	assert.Equal(t, "failed to open file", progress[1].Error)
}

func TestStreamProgress(t *testing.T) {
	svc := service.NewImportService(setupTestDB(t), nil)
	h := handler.NewProgressHandler(svc, nil)

	server := httptest.NewServer(http.HandlerFunc(h.StreamProgress))
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				svc.BroadcastProgress(&service.ProgressInfo{FileName: "marks.csv", Processed: 3})
			}
		}
	}()

	lines := make(chan string, 1)
	go func() {
		line, _ := bufio.NewReader(resp.Body).ReadString('\n')
		lines <- line
	}()

	select {
	case line := <-lines:
		require.True(t, strings.HasPrefix(line, "data: "), "unexpected line %q", line)
		var progress service.ProgressInfo
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &progress))
		assert.Equal(t, "marks.csv", progress.FileName)
		assert.Equal(t, 3, progress.Processed)
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout waiting for progress event")
	}
}
