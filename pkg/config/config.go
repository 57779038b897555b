// Package config загружает конфигурацию приложения из YAML.
//
// API ключи в config.yaml задаются через переменные окружения:
// строки вида ${OPENAI_API_KEY} подставляются перед парсингом.
// Опционально подхватывается .env файл из рабочей директории.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppConfig — корневая структура конфигурации.
// Она зеркалит структуру config.yaml.
type AppConfig struct {
	Models          ModelsConfig          `yaml:"models"`
	Tools           map[string]ToolConfig `yaml:"tools"`
	HTTP            HTTPConfig            `yaml:"http"`
	S3              S3Config              `yaml:"s3"`
	Data            DataConfig            `yaml:"data"`
	ImageProcessing ImageProcConfig       `yaml:"image_processing"`
	App             AppSpecific           `yaml:"app"`
}

// ModelsConfig — настройки AI моделей.
type ModelsConfig struct {
	DefaultVision string              `yaml:"default_vision"` // Алиас vision модели по умолчанию
	DefaultChat   string              `yaml:"default_chat"`   // Алиас чат-модели по умолчанию
	Definitions   map[string]ModelDef `yaml:"definitions"`    // Словарь определений моделей
}

// ModelDef — параметры конкретной модели.
type ModelDef struct {
	Provider    string   `yaml:"provider"`   // "openai", "deepseek", "openrouter", "ollama", "compat"
	ModelName   string   `yaml:"model_name"` // Реальное имя в API
	APIKey      string   `yaml:"api_key"`    // Поддерживает ${VAR}
	BaseURL     string   `yaml:"base_url"`   // Пусто = дефолт провайдера
	MaxTokens   int      `yaml:"max_tokens"`
	Temperature float64  `yaml:"temperature"`
	TopP        float64  `yaml:"top_p"`
	Timeout     Duration `yaml:"timeout"` // Строки вида "60s", "2m"
}

// ToolConfig — настройки инструментов.
type ToolConfig struct {
	Enabled bool     `yaml:"enabled"`
	Timeout Duration `yaml:"timeout"`
}

// HTTPConfig — настройки исходящих HTTP запросов (web scraping, каталоги).
type HTTPConfig struct {
	UserAgent     string   `yaml:"user_agent"`
	Timeout       Duration `yaml:"timeout"`
	RateLimit     int      `yaml:"rate_limit"`    // Запросов в минуту на хост
	RetryAttempts int      `yaml:"retry_attempts"`
	MaxBodyBytes  int64    `yaml:"max_body_bytes"`
}

// GetDefaults возвращает дефолтные значения для незаполненных полей.
func (c *HTTPConfig) GetDefaults() HTTPConfig {
	result := *c // Копируем текущие значения

	if result.UserAgent == "" {
		result.UserAgent = "praktika-ai/1.0 (+https://github.com/ilkoid/praktika-ai)"
	}
	if result.Timeout == 0 {
		result.Timeout = Duration(20 * time.Second)
	}
	if result.RateLimit == 0 {
		result.RateLimit = 60 // запросов в минуту на хост
	}
	if result.RetryAttempts == 0 {
		result.RetryAttempts = 3
	}
	if result.MaxBodyBytes == 0 {
		result.MaxBodyBytes = 2 << 20 // 2 MiB достаточно для текстовых страниц
	}

	return result
}

// S3Config — настройки объектного хранилища для архива артефактов.
// Секция опциональна: пустой endpoint выключает архивирование.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"` // Поддерживает ${VAR}
	SecretKey string `yaml:"secret_key"` // Поддерживает ${VAR}
	UseSSL    bool   `yaml:"use_ssl"`
}

// Enabled сообщает настроено ли хранилище.
func (c S3Config) Enabled() bool {
	return c.Endpoint != ""
}

// DataConfig — настройки работы с датасетами (CSV, SQLite).
type DataConfig struct {
	Dir    string `yaml:"dir"`    // Директория с CSV файлами
	SQLite string `yaml:"sqlite"` // DSN базы: путь к файлу или ":memory:"
}

// GetDefaults возвращает дефолтные значения для незаполненных полей.
func (c *DataConfig) GetDefaults() DataConfig {
	result := *c

	if result.Dir == "" {
		result.Dir = "data"
	}
	if result.SQLite == "" {
		result.SQLite = ":memory:"
	}

	return result
}

// ImageProcConfig — настройки обработки изображений для vision запросов.
type ImageProcConfig struct {
	MaxWidth int `yaml:"max_width"`
	Quality  int `yaml:"quality"`
}

// GetDefaults возвращает дефолтные значения для незаполненных полей.
func (c *ImageProcConfig) GetDefaults() ImageProcConfig {
	result := *c

	if result.MaxWidth == 0 {
		result.MaxWidth = 1024
	}
	if result.Quality == 0 {
		result.Quality = 85
	}

	return result
}

// AppSpecific — общие настройки приложения.
type AppSpecific struct {
	Debug      bool            `yaml:"debug"`
	PromptsDir string          `yaml:"prompts_dir"`
	Streaming  StreamingConfig `yaml:"streaming"`
}

// StreamingConfig — настройки потокового режима для интерактивных UI.
type StreamingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Duration оборачивает time.Duration для YAML значений вида "30s", "1m".
// Голое число интерпретируется как секунды.
type Duration time.Duration

// UnmarshalYAML реализует yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, perr := time.ParseDuration(s)
		if perr != nil {
			return fmt.Errorf("invalid duration %q: %w", s, perr)
		}
		*d = Duration(parsed)
		return nil
	}

	var n int64
	if err := value.Decode(&n); err == nil {
		*d = Duration(time.Duration(n) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value at line %d", value.Line)
}

// Std возвращает стандартный time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Load читает YAML файл, подставляет ENV переменные и возвращает готовую структуру.
func Load(path string) (*AppConfig, error) {
	// 0. Подхватываем .env если он есть. Отсутствие файла — не ошибка:
	// в проде ключи приходят из окружения напрямую.
	_ = godotenv.Load()

	// 1. Проверяем существование файла
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found at: %s", path)
	}

	// 2. Читаем файл целиком
	rawBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// 3. Подставляем переменные окружения.
	// os.ExpandEnv заменяет ${VAR} или $VAR на значение из системы.
	contentWithEnv := os.ExpandEnv(string(rawBytes))

	// 4. Парсим YAML в структуру
	var cfg AppConfig
	if err := yaml.Unmarshal([]byte(contentWithEnv), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}

	// 5. Валидируем критические настройки
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	// 6. Заполняем дефолты опциональных секций
	cfg.HTTP = cfg.HTTP.GetDefaults()
	cfg.Data = cfg.Data.GetDefaults()
	cfg.ImageProcessing = cfg.ImageProcessing.GetDefaults()

	return &cfg, nil
}

// validate проверяет обязательные поля.
func (c *AppConfig) validate() error {
	for alias, def := range c.Models.Definitions {
		if def.Provider == "" {
			return fmt.Errorf("model '%s': provider is required", alias)
		}
		if def.ModelName == "" {
			return fmt.Errorf("model '%s': model_name is required", alias)
		}
	}

	if c.Models.DefaultChat != "" {
		if _, ok := c.Models.Definitions[c.Models.DefaultChat]; !ok {
			return fmt.Errorf("default_chat model '%s' is not defined in definitions", c.Models.DefaultChat)
		}
	}
	if c.Models.DefaultVision != "" {
		if _, ok := c.Models.Definitions[c.Models.DefaultVision]; !ok {
			return fmt.Errorf("default_vision model '%s' is not defined in definitions", c.Models.DefaultVision)
		}
	}

	// S3 опционален, но если endpoint задан — bucket обязателен
	if c.S3.Enabled() && c.S3.Bucket == "" {
		return fmt.Errorf("s3.bucket is required when s3.endpoint is set")
	}

	return nil
}

// Helper методы для удобства доступа (Syntactic sugar)

// GetChatModel возвращает конфигурацию чат-модели по умолчанию или по имени.
func (c *AppConfig) GetChatModel(name string) (ModelDef, bool) {
	if name == "" {
		name = c.Models.DefaultChat
	}
	m, ok := c.Models.Definitions[name]
	return m, ok
}

// GetVisionModel возвращает конфигурацию vision модели по умолчанию или по имени.
func (c *AppConfig) GetVisionModel(name string) (ModelDef, bool) {
	if name == "" {
		name = c.Models.DefaultVision
	}
	m, ok := c.Models.Definitions[name]
	return m, ok
}

// ToolEnabled сообщает включен ли инструмент в конфигурации.
// Инструменты, не упомянутые в config.yaml, считаются выключенными.
func (c *AppConfig) ToolEnabled(name string) bool {
	tool, ok := c.Tools[name]
	return ok && tool.Enabled
}
