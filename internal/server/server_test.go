package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"memorybook-parser/internal/cache"
	"memorybook-parser/internal/domain"
	"memorybook-parser/internal/pkg/config"
	"memorybook-parser/internal/ports"
)

// Mock implementation for ExportProcessor
type mockProcessor struct {
	mock.Mock
}

func (m *mockProcessor) ProcessExport(ctx context.Context, ds ports.DataSource) (*domain.ParseSessionResult, error) {
	args := m.Called(ctx, ds)
	if res := args.Get(0); res != nil {
		return res.(*domain.ParseSessionResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.Server{Host: "localhost", Port: 8080, MaxUploadSizeMB: 10},
	}
}

func sampleResult(messageCount int) *domain.ParseSessionResult {
	messages := make([]domain.NormalizedMessage, messageCount)
	for i := range messages {
		messages[i] = domain.NormalizedMessage{
			ID:        fmt.Sprintf("msg-%d", i+1),
			Sender:    "Alice",
			Content:   fmt.Sprintf("message %d", i+1),
			Timestamp: time.Date(2023, time.March, 15, 14, 0, i, 0, time.UTC),
		}
	}
	return &domain.ParseSessionResult{
		Messages: messages,
		Images:   map[string]string{},
		Metadata: domain.SessionMetadata{
			TotalMessages: messageCount,
			Participants:  []string{"Alice"},
		},
	}
}

func uploadRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/api/v1/process", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestServer(t *testing.T) {
	cfg := testConfig()
	mockProc := new(mockProcessor)
	taskStore := NewTaskStore()
	cacheStore := cache.NewCacheStore()

	srv, err := New(cfg, mockProc, taskStore, cacheStore)
	require.NoError(t, err)

	t.Run("Health Check", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/health", nil)
		rr := httptest.NewRecorder()
		srv.HTTPServer.Handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		var resp map[string]string
		err := json.NewDecoder(rr.Body).Decode(&resp)
		require.NoError(t, err)
		assert.Equal(t, "ok", resp["status"])
	})

	t.Run("Process Endpoint", func(t *testing.T) {
		mockProc.On("ProcessExport", mock.Anything, mock.Anything).Return(sampleResult(1), nil).Once()

		req := uploadRequest(t, "chat.txt", []byte("[15/03/2023, 14:32:05] Alice: Hello"))
		rr := httptest.NewRecorder()
		srv.HTTPServer.Handler.ServeHTTP(rr, req)

		require.Equal(t, http.StatusAccepted, rr.Code)

		var resp map[string]string
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		taskID := resp["task_id"]
		require.NotEmpty(t, taskID)

		// Обработка идет в горутине, ждем завершения
		require.Eventually(t, func() bool {
			task, getErr := taskStore.GetTask(taskID)
			return getErr == nil && task.Status == TaskStatusCompleted
		}, 2*time.Second, 10*time.Millisecond)

		mockProc.AssertExpectations(t)
	})

	t.Run("Process Endpoint Failure", func(t *testing.T) {
		mockProc.On("ProcessExport", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("archive corrupt")).Once()

		req := uploadRequest(t, "broken.zip", []byte("not a zip"))
		rr := httptest.NewRecorder()
		srv.HTTPServer.Handler.ServeHTTP(rr, req)

		require.Equal(t, http.StatusAccepted, rr.Code)

		var resp map[string]string
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		taskID := resp["task_id"]

		require.Eventually(t, func() bool {
			task, getErr := taskStore.GetTask(taskID)
			return getErr == nil && task.Status == TaskStatusFailed
		}, 2*time.Second, 10*time.Millisecond)

		// Пользователю уходит общее сообщение, без внутренних деталей
		task, getErr := taskStore.GetTask(taskID)
		require.NoError(t, getErr)
		assert.Equal(t, "could not read this file", task.ErrorMessage)
	})

	t.Run("Process Endpoint Without File", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/v1/process", bytes.NewReader(nil))
		rr := httptest.NewRecorder()
		srv.HTTPServer.Handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Task Status Endpoint", func(t *testing.T) {
		taskStore.CreateTask("status-task", time.Minute)

		req := httptest.NewRequest("GET", "/api/v1/tasks/status-task", nil)
		rr := httptest.NewRecorder()
		srv.HTTPServer.Handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		var resp map[string]interface{}
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, "status-task", resp["task_id"])
		assert.Equal(t, string(TaskStatusPending), resp["status"])
	})

	t.Run("Task Status Not Found", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/tasks/missing", nil)
		rr := httptest.NewRecorder()
		srv.HTTPServer.Handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("Result Endpoint With Pagination", func(t *testing.T) {
		taskStore.CreateTask("result-task", time.Minute)
		require.NoError(t, taskStore.UpdateTaskResult("result-task", sampleResult(5)))

		req := httptest.NewRequest("GET", "/api/v1/tasks/result-task/result?page=2&page_size=2", nil)
		rr := httptest.NewRecorder()
		srv.HTTPServer.Handler.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)

		var resp struct {
			Pagination struct {
				CurrentPage int `json:"current_page"`
				PageSize    int `json:"page_size"`
				TotalItems  int `json:"total_items"`
				TotalPages  int `json:"total_pages"`
			} `json:"pagination"`
			Metadata domain.SessionMetadata     `json:"metadata"`
			Data     []domain.NormalizedMessage `json:"data"`
		}
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))

		assert.Equal(t, 2, resp.Pagination.CurrentPage)
		assert.Equal(t, 5, resp.Pagination.TotalItems)
		assert.Equal(t, 3, resp.Pagination.TotalPages)
		require.Len(t, resp.Data, 2)
		assert.Equal(t, "msg-3", resp.Data[0].ID)
		assert.Equal(t, "msg-4", resp.Data[1].ID)
		assert.Equal(t, 5, resp.Metadata.TotalMessages)
	})

	t.Run("Result Survives Cache Cleanup", func(t *testing.T) {
		// Кеш и задача держат один указатель; TTL кеша короче TTL задачи
		shared := sampleResult(1)
		shared.Images["a.jpg"] = "data:uri-a"
		cacheStore.Put("shared-hash", shared, -1*time.Minute)
		taskStore.CreateTask("shared-task", time.Minute)
		require.NoError(t, taskStore.UpdateTaskResult("shared-task", shared))

		cacheStore.CleanupExpired()

		req := httptest.NewRequest("GET", "/api/v1/tasks/shared-task/result", nil)
		rr := httptest.NewRecorder()
		srv.HTTPServer.Handler.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)

		var resp struct {
			Images map[string]string `json:"images"`
		}
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, "data:uri-a", resp.Images["a.jpg"])
	})

	t.Run("Result Endpoint For Incomplete Task", func(t *testing.T) {
		taskStore.CreateTask("pending-task", time.Minute)

		req := httptest.NewRequest("GET", "/api/v1/tasks/pending-task/result", nil)
		rr := httptest.NewRecorder()
		srv.HTTPServer.Handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Process By Hash Cache Hit", func(t *testing.T) {
		cacheStore.Put("known-hash", sampleResult(1), time.Minute)

		body := bytes.NewBufferString(`{"hash":"known-hash"}`)
		req := httptest.NewRequest("POST", "/api/v1/process-by-hash", body)
		rr := httptest.NewRecorder()
		srv.HTTPServer.Handler.ServeHTTP(rr, req)

		require.Equal(t, http.StatusAccepted, rr.Code)

		var resp map[string]string
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		taskID := resp["task_id"]

		require.Eventually(t, func() bool {
			task, getErr := taskStore.GetTask(taskID)
			return getErr == nil && task.Status == TaskStatusCompleted
		}, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("Process By Hash Cache Miss", func(t *testing.T) {
		body := bytes.NewBufferString(`{"hash":"unknown-hash"}`)
		req := httptest.NewRequest("POST", "/api/v1/process-by-hash", body)
		rr := httptest.NewRecorder()
		srv.HTTPServer.Handler.ServeHTTP(rr, req)

		require.Equal(t, http.StatusAccepted, rr.Code)

		var resp map[string]string
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		taskID := resp["task_id"]

		require.Eventually(t, func() bool {
			task, getErr := taskStore.GetTask(taskID)
			return getErr == nil && task.Status == TaskStatusFailed
		}, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("Shutdown Stops Cleanup Tickers", func(t *testing.T) {
		ownSrv, err := New(testConfig(), new(mockProcessor), NewTaskStore(), cache.NewCacheStore())
		require.NoError(t, err)

		cancelled := false
		innerCancel := ownSrv.cleanupCancel
		ownSrv.cleanupCancel = func() {
			cancelled = true
			innerCancel()
		}

		require.NoError(t, ownSrv.Shutdown(context.Background()))
		assert.True(t, cancelled, "Shutdown должен отменять контекст тикеров очистки")
	})

	t.Run("Process By Hash Without Hash", func(t *testing.T) {
		body := bytes.NewBufferString(`{}`)
		req := httptest.NewRequest("POST", "/api/v1/process-by-hash", body)
		rr := httptest.NewRecorder()
		srv.HTTPServer.Handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
