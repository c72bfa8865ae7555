// Package config предоставляет управление конфигурацией приложения
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Server содержит конфигурацию сервера
type Server struct {
	Host                   string `json:"host" yaml:"host"`
	Port                   int    `json:"port" yaml:"port"`
	ShutdownTimeoutSeconds int    `json:"shutdown_timeout_seconds" yaml:"shutdown_timeout_seconds"`
	MaxUploadSizeMB        int    `json:"max_upload_size_mb" yaml:"max_upload_size_mb"`
}

// Processing содержит конфигурацию обработки
type Processing struct {
	TaskTimeoutSeconds int `json:"task_timeout_seconds" yaml:"task_timeout_seconds"` // 0 - без ограничений
	CacheTTLMinutes    int `json:"cache_ttl_minutes" yaml:"cache_ttl_minutes"`
}

// Extraction содержит конфигурацию извлечения изображений
type Extraction struct {
	PoolSize int `json:"pool_size" yaml:"pool_size"`
}

// Logging содержит конфигурацию логирования
type Logging struct {
	Level  string `json:"level" yaml:"level"`   // debug, info, warn, error
	Format string `json:"format" yaml:"format"` // json, text
}

// Config содержит конфигурацию приложения
type Config struct {
	Server     Server     `json:"server" yaml:"server"`
	Processing Processing `json:"processing" yaml:"processing"`
	Extraction Extraction `json:"extraction" yaml:"extraction"`
	Logging    Logging    `json:"logging" yaml:"logging"`
}

// LoadConfig загружает конфигурацию приложения из переменных окружения, .env файла или config.yml
func LoadConfig() (*Config, error) {
	// Загрузка переменных окружения из .env файла, если он существует
	if err := godotenv.Load(); err != nil {
		// Если .env файла не существует, это нормально, мы будем полагаться на переменные окружения или config.yml
	}

	// Попытка загрузки из config.yml сначала
	cfg, err := loadFromYAML("config.yml")
	if err != nil {
		// Если загрузка YAML не удалась, используем переменные окружения
		cfg, err = loadFromEnv()
		if err != nil {
			return nil, fmt.Errorf("не удалось загрузить конфигурацию из env: %w", err)
		}
	}

	cfg.applyDefaults()
	return cfg, nil
}

// loadFromYAML загружает конфигурацию из YAML-файла
func loadFromYAML(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать файл конфигурации %s: %w", filename, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("не удалось разобрать YAML конфигурацию: %w", err)
	}

	return &cfg, nil
}

// loadFromEnv загружает конфигурацию из переменных окружения
func loadFromEnv() (*Config, error) {
	host := getEnv("SERVER_HOST", DefaultServerHost)
	portStr := getEnv("SERVER_PORT", strconv.Itoa(DefaultServerPort))
	taskTimeoutStr := getEnv("TASK_TIMEOUT_SECONDS", strconv.Itoa(int(DefaultTaskTimeout/time.Second)))
	cacheTTLStr := getEnv("CACHE_TTL_MINUTES", strconv.Itoa(int(DefaultCacheTTL/time.Minute)))
	poolSizeStr := getEnv("EXTRACTION_POOL_SIZE", strconv.Itoa(DefaultExtractionPoolSize))

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("недопустимый SERVER_PORT: %w", err)
	}

	taskTimeout, err := strconv.Atoi(taskTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("недопустимый TASK_TIMEOUT_SECONDS: %w", err)
	}

	cacheTTL, err := strconv.Atoi(cacheTTLStr)
	if err != nil {
		return nil, fmt.Errorf("недопустимый CACHE_TTL_MINUTES: %w", err)
	}

	poolSize, err := strconv.Atoi(poolSizeStr)
	if err != nil {
		return nil, fmt.Errorf("недопустимый EXTRACTION_POOL_SIZE: %w", err)
	}

	return &Config{
		Server: Server{
			Host: host,
			Port: port,
		},
		Processing: Processing{
			TaskTimeoutSeconds: taskTimeout,
			CacheTTLMinutes:    cacheTTL,
		},
		Extraction: Extraction{
			PoolSize: poolSize,
		},
		Logging: Logging{
			Level:  getEnv("LOG_LEVEL", DefaultLogLevel),
			Format: getEnv("LOG_FORMAT", DefaultLogFormat),
		},
	}, nil
}

// applyDefaults заполняет нулевые поля значениями по умолчанию
func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = DefaultServerHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if c.Server.ShutdownTimeoutSeconds == 0 {
		c.Server.ShutdownTimeoutSeconds = int(DefaultShutdownTimeout / time.Second)
	}
	if c.Server.MaxUploadSizeMB == 0 {
		c.Server.MaxUploadSizeMB = DefaultMaxUploadSizeMB
	}
	if c.Processing.CacheTTLMinutes == 0 {
		c.Processing.CacheTTLMinutes = int(DefaultCacheTTL / time.Minute)
	}
	if c.Extraction.PoolSize == 0 {
		c.Extraction.PoolSize = DefaultExtractionPoolSize
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
}

// Address возвращает адрес сервера в формате "host:port"
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// ShutdownTimeout возвращает таймаут завершения работы сервера
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}

// CacheTTL возвращает срок жизни элементов кеша результатов
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Processing.CacheTTLMinutes) * time.Minute
}

// Validate проверяет, являются ли значения конфигурации допустимыми
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port должен быть действительным номером порта (1-65535)")
	}

	if c.Server.ShutdownTimeoutSeconds <= 0 {
		return fmt.Errorf("server.shutdown_timeout_seconds должно быть положительным")
	}

	if c.Server.MaxUploadSizeMB <= 0 {
		return fmt.Errorf("server.max_upload_size_mb должно быть положительным")
	}

	if c.Processing.TaskTimeoutSeconds < 0 {
		return fmt.Errorf("processing.task_timeout_seconds должно быть неотрицательным (0 для отсутствия ограничений)")
	}

	if c.Processing.CacheTTLMinutes <= 0 {
		return fmt.Errorf("processing.cache_ttl_minutes должно быть положительным целым числом")
	}

	if c.Extraction.PoolSize <= 0 {
		return fmt.Errorf("extraction.pool_size должно быть положительным")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// all good
	default:
		return fmt.Errorf("logging.level должен быть одним из: debug, info, warn, error")
	}

	switch c.Logging.Format {
	case "json", "text":
		// all good
	default:
		return fmt.Errorf("logging.format должен быть одним из: json, text")
	}

	return nil
}

// getEnv извлекает значение переменной окружения или возвращает значение по умолчанию, если она не установлена
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
