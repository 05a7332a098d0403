// Package config предоставляет управление конфигурацией приложения
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Server содержит конфигурацию HTTP-сервера
type Server struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
}

// Telegram содержит конфигурацию транспорта
type Telegram struct {
	Token string `yaml:"token"`
	// WebhookURL — внешний базовый адрес сервиса. Пустое значение включает long polling.
	WebhookURL         string        `yaml:"webhook_url"`
	WebhookSecret      string        `yaml:"webhook_secret"`
	ParseMode          string        `yaml:"parse_mode"` // MarkdownV2 или HTML
	DisableLinkPreview bool          `yaml:"disable_link_preview"`
	PollingTimeout     int           `yaml:"polling_timeout"`
	HTTPTimeout        time.Duration `yaml:"http_timeout"`
	SendInterval       time.Duration `yaml:"send_interval"` // пауза между частями одного ответа
}

// Catalog содержит конфигурацию API каталога товаров
type Catalog struct {
	BaseURL  string        `yaml:"base_url"`
	Origin   string        `yaml:"origin"`
	ClientID string        `yaml:"client_id"`
	Timeout  time.Duration `yaml:"timeout"`
	PageSize int           `yaml:"page_size"`
	Variants []string      `yaml:"variants"`
}

// Redirect содержит конфигурацию разрешения коротких ссылок
type Redirect struct {
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

// Rendering содержит политику оформления ответа
type Rendering struct {
	ChunkSize   int      `yaml:"chunk_size"`
	DiscountMin int      `yaml:"discount_min"`
	DiscountMax int      `yaml:"discount_max"`
	Titles      []string `yaml:"titles"`
}

// Dispatcher содержит конфигурацию фоновой обработки
type Dispatcher struct {
	Workers            int           `yaml:"workers"`
	QueueSize          int           `yaml:"queue_size"`
	JobTimeout         time.Duration `yaml:"job_timeout"`
	ResolveConcurrency int           `yaml:"resolve_concurrency"`
}

// Logging содержит конфигурацию логирования
type Logging struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// Config содержит конфигурацию приложения
type Config struct {
	Server     Server     `yaml:"server"`
	Telegram   Telegram   `yaml:"telegram"`
	Catalog    Catalog    `yaml:"catalog"`
	Redirect   Redirect   `yaml:"redirect"`
	Rendering  Rendering  `yaml:"rendering"`
	Dispatcher Dispatcher `yaml:"dispatcher"`
	Logging    Logging    `yaml:"logging"`
}

// defaultConfig возвращает конфигурацию со значениями по умолчанию.
func defaultConfig() *Config {
	return &Config{
		Server: Server{
			Host:            DefaultServerHost,
			Port:            DefaultServerPort,
			ShutdownTimeout: DefaultShutdownTimeout,
			MaxBodyBytes:    DefaultMaxBodyBytes,
		},
		Telegram: Telegram{
			ParseMode:          DefaultParseMode,
			DisableLinkPreview: DefaultDisableLinkPreview,
			PollingTimeout:     DefaultPollingTimeout,
			HTTPTimeout:        DefaultTelegramHTTPTimeout,
			SendInterval:       DefaultTelegramSendInterval,
		},
		Catalog: Catalog{
			BaseURL:  DefaultCatalogBaseURL,
			Origin:   DefaultCatalogOrigin,
			ClientID: DefaultCatalogClientID,
			Timeout:  DefaultCatalogTimeout,
			PageSize: DefaultCatalogPageSize,
			Variants: append([]string(nil), DefaultCatalogVariants...),
		},
		Redirect: Redirect{
			Timeout:   DefaultRedirectTimeout,
			UserAgent: DefaultRedirectUserAgent,
		},
		Rendering: Rendering{
			ChunkSize:   DefaultChunkSize,
			DiscountMin: DefaultDiscountMin,
			DiscountMax: DefaultDiscountMax,
			Titles:      append([]string(nil), DefaultTitles...),
		},
		Dispatcher: Dispatcher{
			Workers:            DefaultWorkers,
			QueueSize:          DefaultQueueSize,
			JobTimeout:         DefaultJobTimeout,
			ResolveConcurrency: DefaultResolveConcurrency,
		},
		Logging: Logging{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// LoadConfig загружает конфигурацию: значения по умолчанию, затем YAML-файл
// (если он существует), затем переменные окружения и .env файл.
func LoadConfig(path string) (*Config, error) {
	// .env необязателен, уже выставленные переменные окружения он не перезаписывает
	_ = godotenv.Load()

	cfg := defaultConfig()
	if path == "" {
		path = DefaultConfigFile
	}
	if err := loadFromYAML(path, cfg); err != nil {
		return nil, err
	}
	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию из env: %w", err)
	}
	return cfg, nil
}

// loadFromYAML накладывает YAML-файл поверх cfg. Отсутствие файла не является ошибкой.
func loadFromYAML(filename string, cfg *Config) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("не удалось прочитать файл конфигурации %s: %w", filename, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("не удалось разобрать YAML конфигурацию: %w", err)
	}
	return nil
}

// loadFromEnv накладывает переменные окружения поверх cfg
func loadFromEnv(cfg *Config) error {
	setString(&cfg.Telegram.Token, "BOT_TOKEN")
	setString(&cfg.Telegram.WebhookURL, "WEBHOOK_URL")
	setString(&cfg.Telegram.WebhookSecret, "WEBHOOK_SECRET")
	setString(&cfg.Telegram.ParseMode, "PARSE_MODE")
	setString(&cfg.Server.Host, "HOST")
	setString(&cfg.Catalog.BaseURL, "CATALOG_BASE_URL")
	setString(&cfg.Catalog.Origin, "CATALOG_ORIGIN")
	setString(&cfg.Catalog.ClientID, "CATALOG_CLIENT_ID")
	setString(&cfg.Logging.Level, "LOG_LEVEL")
	setString(&cfg.Logging.Format, "LOG_FORMAT")

	ints := []struct {
		key string
		dst *int
	}{
		{"PORT", &cfg.Server.Port},
		{"CHUNK_SIZE", &cfg.Rendering.ChunkSize},
		{"DISCOUNT_MIN", &cfg.Rendering.DiscountMin},
		{"DISCOUNT_MAX", &cfg.Rendering.DiscountMax},
		{"WORKERS", &cfg.Dispatcher.Workers},
		{"QUEUE_SIZE", &cfg.Dispatcher.QueueSize},
	}
	for _, it := range ints {
		if err := setInt(it.dst, it.key); err != nil {
			return err
		}
	}
	return nil
}

// EnsureWebhookSecret генерирует секрет пути вебхука, если он не задан.
// Возвращает true, если секрет был сгенерирован.
func (c *Config) EnsureWebhookSecret() bool {
	if c.Telegram.WebhookSecret != "" {
		return false
	}
	c.Telegram.WebhookSecret = strings.ReplaceAll(uuid.NewString(), "-", "")
	return true
}

// Address возвращает адрес сервера в формате "host:port"
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// WebhookPath возвращает путь входящего вебхука, содержащий секрет.
func (c *Config) WebhookPath() string {
	return DefaultWebhookPathPrefix + "/" + c.Telegram.WebhookSecret
}

// WebhookEndpoint возвращает полный внешний адрес для регистрации вебхука.
func (c *Config) WebhookEndpoint() string {
	return strings.TrimRight(c.Telegram.WebhookURL, "/") + c.WebhookPath()
}

// UsePolling сообщает, что вебхук не настроен и обновления нужно получать опросом.
func (c *Config) UsePolling() bool {
	return strings.TrimSpace(c.Telegram.WebhookURL) == ""
}

// Validate проверяет, являются ли значения конфигурации допустимыми
func (c *Config) Validate() error {
	if err := c.ValidatePipeline(); err != nil {
		return err
	}

	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram.token не может быть пустым (BOT_TOKEN)")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port должен быть действительным номером порта (1-65535)")
	}

	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout должно быть положительным")
	}

	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes должно быть положительным")
	}

	if c.Telegram.HTTPTimeout <= 0 {
		return fmt.Errorf("telegram.http_timeout должно быть положительным")
	}

	if c.Telegram.SendInterval < 0 {
		return fmt.Errorf("telegram.send_interval должно быть неотрицательным")
	}

	if c.Dispatcher.Workers <= 0 || c.Dispatcher.Workers > DefaultMaxWorkers {
		return fmt.Errorf("dispatcher.workers должно быть в диапазоне 1-%d", DefaultMaxWorkers)
	}

	if c.Dispatcher.QueueSize <= 0 {
		return fmt.Errorf("dispatcher.queue_size должно быть положительным")
	}

	if c.Dispatcher.JobTimeout <= 0 {
		return fmt.Errorf("dispatcher.job_timeout должно быть положительным")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// all good
	default:
		return fmt.Errorf("logging.level должен быть одним из: debug, info, warn, error")
	}

	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format должен быть одним из: json, text")
	}

	return nil
}

// ValidatePipeline проверяет только то, что нужно конвейеру разрешения ссылок.
// Используется офлайн-командой resolve, которой не нужен токен бота.
func (c *Config) ValidatePipeline() error {
	if c.Catalog.BaseURL == "" {
		return fmt.Errorf("catalog.base_url не может быть пустым")
	}

	if c.Catalog.ClientID == "" {
		return fmt.Errorf("catalog.client_id не может быть пустым")
	}

	if c.Catalog.Timeout <= 0 {
		return fmt.Errorf("catalog.timeout должно быть положительным")
	}

	if c.Catalog.PageSize <= 0 {
		return fmt.Errorf("catalog.page_size должно быть положительным")
	}

	if len(c.Catalog.Variants) == 0 {
		return fmt.Errorf("catalog.variants не может быть пустым")
	}

	if c.Redirect.Timeout <= 0 {
		return fmt.Errorf("redirect.timeout должно быть положительным")
	}

	if c.Rendering.ChunkSize <= 0 {
		return fmt.Errorf("rendering.chunk_size должно быть положительным")
	}

	if c.Rendering.DiscountMin < 0 || c.Rendering.DiscountMax > 100 || c.Rendering.DiscountMin > c.Rendering.DiscountMax {
		return fmt.Errorf("rendering.discount_min/discount_max должны задавать диапазон внутри 0-100")
	}

	if len(c.Rendering.Titles) == 0 {
		return fmt.Errorf("rendering.titles не может быть пустым")
	}

	switch c.Telegram.ParseMode {
	case "MarkdownV2", "HTML":
	default:
		return fmt.Errorf("telegram.parse_mode должен быть одним из: MarkdownV2, HTML")
	}

	if c.Dispatcher.ResolveConcurrency <= 0 {
		return fmt.Errorf("dispatcher.resolve_concurrency должно быть положительным")
	}

	return nil
}

func setString(dst *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}

func setInt(dst *int, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("недопустимый %s: %w", key, err)
	}
	*dst = n
	return nil
}
