package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"memorybook-parser/internal/adapters/source"
	"memorybook-parser/internal/cache"
	"memorybook-parser/internal/domain"
	"memorybook-parser/internal/pkg/config"
	"memorybook-parser/internal/ports"
)

// ExportProcessor определяет интерфейс для варианта использования, который обрабатывает экспорты.
type ExportProcessor interface {
	ProcessExport(ctx context.Context, ds ports.DataSource) (*domain.ParseSessionResult, error)
}

// Server представляет HTTP-сервер
type Server struct {
	HTTPServer    *http.Server
	cfg           *config.Config
	taskStore     *TaskStore
	cacheStore    *cache.CacheStore
	processor     ExportProcessor
	cleanupCancel context.CancelFunc
}

// New создает новый экземпляр Server
func New(cfg *config.Config, processor ExportProcessor, taskStore *TaskStore, cacheStore *cache.CacheStore) (*Server, error) {
	chiRouter := chi.NewRouter()

	// Промежуточное ПО
	chiRouter.Use(middleware.Logger)
	chiRouter.Use(middleware.Recoverer)

	// Конечная точка для проверки работоспособности
	chiRouter.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "ok",
		})
	})

	// Маршруты API
	chiRouter.Route("/api/v1", func(r chi.Router) {
		// Конечная точка для запуска новой задачи обработки
		r.Post("/process", func(w http.ResponseWriter, r *http.Request) {
			// Разбор мультипарт-формы
			maxUpload := int64(cfg.Server.MaxUploadSizeMB) << 20
			err := r.ParseMultipartForm(maxUpload)
			if err != nil {
				http.Error(w, "Не удалось разобрать форму", http.StatusBadRequest)
				return
			}

			file, fileHeader, err := r.FormFile("file")
			if err != nil {
				http.Error(w, "Не удалось получить файл из формы", http.StatusBadRequest)
				return
			}
			defer file.Close()

			uploadData, err := io.ReadAll(file)
			if err != nil {
				http.Error(w, "Не удалось прочитать загруженный файл", http.StatusInternalServerError)
				return
			}
			uploadName := fileHeader.Filename

			// Генерация уникального идентификатора задачи
			taskID := uuid.NewString()

			slog.Info("Загрузка принята сервером",
				"task_id", taskID,
				"filename", uploadName,
				"content_length", len(uploadData))

			// Создание задачи в хранилище
			taskStore.CreateTask(taskID, 24*time.Hour) // TTL для записи о задаче

			// Запуск обработки в горутине
			go func() {
				// Обновление статуса до "в обработке"
				taskStore.UpdateTaskStatus(taskID, TaskStatusProcessing)

				// Создание контекста для задачи с таймаутом из конфигурации.
				taskCtx := context.Background()
				if cfg.Processing.TaskTimeoutSeconds > 0 {
					var cancel context.CancelFunc
					taskCtx, cancel = context.WithTimeout(context.Background(), time.Duration(cfg.Processing.TaskTimeoutSeconds)*time.Second)
					defer cancel()
				}

				// Обработка экспорта с использованием контекста, который может иметь таймаут.
				result, err := processor.ProcessExport(taskCtx, source.NewMemorySource(uploadName, uploadData))
				if err != nil {
					// Пользователю уходит одно общее сообщение; детали
					// остаются в журнале для разработчиков.
					slog.Error("Обработка загрузки не удалась", "task_id", taskID, "error", err)
					taskStore.UpdateTaskError(taskID, "could not read this file")
					return
				}

				// Обновление задачи с результатом
				taskStore.UpdateTaskResult(taskID, result)
			}()

			// Возврат идентификатора задачи
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusAccepted)
			json.NewEncoder(w).Encode(map[string]string{"task_id": taskID})
		})

		// Конечная точка для запуска новой задачи обработки по хешу
		r.Post("/process-by-hash", func(w http.ResponseWriter, r *http.Request) {
			// Разбор тела запроса
			var req struct {
				Hash string `json:"hash"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "Не удалось декодировать тело запроса", http.StatusBadRequest)
				return
			}

			if req.Hash == "" {
				http.Error(w, "Требуется хеш", http.StatusBadRequest)
				return
			}

			// Генерация уникального идентификатора задачи
			taskID := uuid.NewString()

			// Создание задачи в хранилище
			taskStore.CreateTask(taskID, 24*time.Hour) // TTL для записи о задаче

			// Запуск обработки в горутине
			go func() {
				// Обновление статуса до "в обработке"
				taskStore.UpdateTaskStatus(taskID, TaskStatusProcessing)

				// Попытка получить результат из кеша
				if cachedItem, found := cacheStore.Get(req.Hash); found {
					// Если найдено в кеше, обновить задачу кешированным результатом
					taskStore.UpdateTaskResult(taskID, cachedItem.Data)
					slog.Info("Попадание в кеш для хеша", "hash", req.Hash, "task_id", taskID)
					return
				}

				// Если в кеше не найдено, нам нужен сам файл для обработки.
				taskStore.UpdateTaskError(taskID, "Файл не найден в кеше для данного хеша")
				slog.Info("Промах кеша для хеша", "hash", req.Hash, "task_id", taskID)
			}()

			// Возврат идентификатора задачи
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusAccepted)
			json.NewEncoder(w).Encode(map[string]string{"task_id": taskID})
		})

		// Конечная точка для проверки статуса задачи
		r.Get("/tasks/{taskID}", func(w http.ResponseWriter, r *http.Request) {
			taskID := chi.URLParam(r, "taskID")

			task, err := taskStore.GetTask(taskID)
			if err != nil {
				http.Error(w, "Задача не найдена", http.StatusNotFound)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"task_id":       task.ID,
				"status":        task.Status,
				"error_message": task.ErrorMessage,
			})
		})

		// Конечная точка для получения результата задачи с пагинацией сообщений
		r.Get("/tasks/{taskID}/result", func(w http.ResponseWriter, r *http.Request) {
			taskID := chi.URLParam(r, "taskID")

			task, err := taskStore.GetTask(taskID)
			if err != nil {
				http.Error(w, "Задача не найдена", http.StatusNotFound)
				return
			}

			if task.Status != TaskStatusCompleted {
				http.Error(w, "Задача не завершена", http.StatusBadRequest)
				return
			}

			// Получение параметров пагинации, по умолчанию 1 и 50
			parsedPage := 1
			parsedPageSize := 50
			if page := r.URL.Query().Get("page"); page != "" {
				if v, convErr := strconv.Atoi(page); convErr == nil && v > 0 {
					parsedPage = v
				}
			}
			if pageSize := r.URL.Query().Get("page_size"); pageSize != "" {
				if v, convErr := strconv.Atoi(pageSize); convErr == nil && v > 0 {
					parsedPageSize = v
				}
			}

			messages := task.Result.Messages

			// Вычисление смещения и нарезка сообщений
			startIndex := (parsedPage - 1) * parsedPageSize
			endIndex := startIndex + parsedPageSize

			if startIndex >= len(messages) {
				startIndex = len(messages)
				endIndex = len(messages)
			}
			if endIndex > len(messages) {
				endIndex = len(messages)
			}

			paginatedMessages := messages[startIndex:endIndex]

			// Вычисление метаданных пагинации
			totalItems := len(messages)
			totalPages := (totalItems + parsedPageSize - 1) / parsedPageSize // Округление вверх

			// Подготовка ответа
			response := struct {
				Pagination struct {
					CurrentPage int `json:"current_page"`
					PageSize    int `json:"page_size"`
					TotalItems  int `json:"total_items"`
					TotalPages  int `json:"total_pages"`
				} `json:"pagination"`
				Metadata domain.SessionMetadata     `json:"metadata"`
				Images   map[string]string          `json:"images"`
				Data     []domain.NormalizedMessage `json:"data"`
			}{
				Pagination: struct {
					CurrentPage int `json:"current_page"`
					PageSize    int `json:"page_size"`
					TotalItems  int `json:"total_items"`
					TotalPages  int `json:"total_pages"`
				}{
					CurrentPage: parsedPage,
					PageSize:    parsedPageSize,
					TotalItems:  totalItems,
					TotalPages:  totalPages,
				},
				Metadata: task.Result.Metadata,
				Images:   task.Result.Images,
				Data:     paginatedMessages,
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(response)
		})
	})

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      chiRouter,
		ReadTimeout:  config.DefaultReadTimeout,
		WriteTimeout: config.DefaultWriteTimeout,
		IdleTimeout:  config.DefaultIdleTimeout,
	}

	s := &Server{
		HTTPServer: httpServer,
		cfg:        cfg,
		taskStore:  taskStore,
		cacheStore: cacheStore,
		processor:  processor,
	}

	// Запуск тикеров для очистки просроченных задач и элементов кеша.
	// Контекст тикеров отменяется в Shutdown.
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	s.cleanupCancel = cleanupCancel
	s.taskStore.StartCleanupTicker(cleanupCtx, config.DefaultCleanupInterval)
	s.cacheStore.StartCleanupTicker(cleanupCtx, config.DefaultCleanupInterval)

	return s, nil
}

// ListenAndServe запускает HTTP-сервер
func (s *Server) ListenAndServe() error {
	return s.HTTPServer.ListenAndServe()
}

// Shutdown корректно завершает работу HTTP-сервера
// и останавливает тикеры очистки.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Завершение работы HTTP-сервера")
	s.cleanupCancel()
	return s.HTTPServer.Shutdown(ctx)
}
