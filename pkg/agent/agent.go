// Фасад Client собирает агента из конфигурации в один вызов.
//
// Client скрывает инициализацию компонентов (AppConfig, models.Registry,
// tools.Registry, системный промпт, Loop) и ведёт историю диалога между
// запросами. Для продвинутых сценариев реестры доступны через геттеры,
// а stateless Loop можно использовать напрямую.
//
// Basic usage:
//
//	client, _ := agent.NewClient(ctx, agent.ClientConfig{ConfigPath: "config.yaml"})
//	defer client.Close()
//	answer, _ := client.Run(ctx, "Какая погода в Праге?")
//	answer, _ = client.Run(ctx, "А завтра?") // история сохраняется
package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/ilkoid/praktika-ai/pkg/archive"
	"github.com/ilkoid/praktika-ai/pkg/config"
	"github.com/ilkoid/praktika-ai/pkg/dataset"
	"github.com/ilkoid/praktika-ai/pkg/events"
	"github.com/ilkoid/praktika-ai/pkg/llm"
	"github.com/ilkoid/praktika-ai/pkg/models"
	"github.com/ilkoid/praktika-ai/pkg/prompt"
	"github.com/ilkoid/praktika-ai/pkg/scrape"
	"github.com/ilkoid/praktika-ai/pkg/tools"
	"github.com/ilkoid/praktika-ai/pkg/tools/std"
	"github.com/ilkoid/praktika-ai/pkg/utils"
)

// ClientConfig определяет параметры создания агента.
//
// Все поля опциональны: пустые значения заменяются данными из config.yaml.
type ClientConfig struct {
	// ConfigPath — путь к config.yaml. Пусто = "config.yaml".
	ConfigPath string

	// Model — алиас модели из конфигурации. Пусто = models.default_chat.
	Model string

	// SystemPrompt переопределяет промпт из prompts/agent_system.yaml.
	SystemPrompt string

	// MaxIterations — лимит итераций цикла. 0 = DefaultMaxIterations.
	MaxIterations int
}

// Client — агент с историей диалога поверх stateless Loop.
//
// Thread-safe: история защищена mutex, остальные зависимости
// immutable после NewClient.
type Client struct {
	loop          *Loop
	modelRegistry *models.Registry
	toolsRegistry *tools.Registry
	config        *config.AppConfig
	modelName     string

	// store не nil только когда включен dataset_query
	store *dataset.Store

	historyMu sync.Mutex
	history   []llm.Message
}

// Ensure Client implements Agent interface
var _ Agent = (*Client)(nil)

// NewClient создаёт агента из YAML конфигурации.
//
// Последовательность инициализации:
//  1. config.Load (с .env и ${VAR} подстановкой)
//  2. реестр моделей из definitions
//  3. выбор чат-модели: cfg.Model → models.default_chat
//  4. регистрация инструментов с enabled: true
//  5. системный промпт из prompts/ (или override)
//  6. tool-calling Loop
//
// Выключенные или недоступные инструменты (нет S3, нет датасетов)
// пропускаются с warning — агент остаётся работоспособным.
func NewClient(ctx context.Context, cfg ClientConfig) (*Client, error) {
	cfgPath := cfg.ConfigPath
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	appCfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", cfgPath, err)
	}
	utils.Info("Config loaded", "path", cfgPath)

	modelRegistry, err := models.NewRegistryFromConfig(appCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build model registry: %w", err)
	}

	provider, _, actualName, err := modelRegistry.GetWithFallback(cfg.Model, appCfg.Models.DefaultChat)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve chat model: %w", err)
	}
	utils.Info("Chat model resolved", "model", actualName)

	toolsRegistry, store, err := setupTools(ctx, appCfg, modelRegistry)
	if err != nil {
		return nil, fmt.Errorf("failed to setup tools: %w", err)
	}

	systemPrompt := cfg.SystemPrompt
	if systemPrompt == "" {
		systemPrompt, err = prompt.LoadAgentSystemPrompt(appCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load system prompt: %w", err)
		}
	}

	loopOpts := []Option{
		WithSystemPrompt(systemPrompt),
		WithStreaming(appCfg.App.Streaming.Enabled),
	}
	if cfg.MaxIterations > 0 {
		loopOpts = append(loopOpts, WithMaxIterations(cfg.MaxIterations))
	}

	client := &Client{
		loop:          New(provider, toolsRegistry, loopOpts...),
		modelRegistry: modelRegistry,
		toolsRegistry: toolsRegistry,
		config:        appCfg,
		modelName:     actualName,
		store:         store,
	}

	utils.Info("Agent created",
		"model", actualName,
		"tools", toolsRegistry.Names(),
		"streaming", appCfg.App.Streaming.Enabled)
	return client, nil
}

// setupTools регистрирует инструменты с enabled: true из конфигурации.
//
// Factory switch: новый инструмент добавляется одним case. Инструменты
// с недоступными зависимостями пропускаются с warning, неизвестные
// имена в конфиге — тоже.
func setupTools(ctx context.Context, cfg *config.AppConfig, modelRegistry *models.Registry) (*tools.Registry, *dataset.Store, error) {
	registry := tools.NewRegistry()

	var fetcher *scrape.Fetcher
	if cfg.ToolEnabled("web_fetch") || cfg.ToolEnabled("page_title") {
		fetcher = scrape.NewFetcher(cfg.HTTP)
	}

	var store *dataset.Store

	for name := range cfg.Tools {
		if !cfg.ToolEnabled(name) {
			continue
		}

		var tool tools.Tool

		switch name {
		case "current_time":
			tool = std.NewCurrentTimeTool()

		case "current_weather":
			tool = std.NewCurrentWeatherTool()

		case "web_fetch":
			tool = std.NewWebFetchTool(fetcher)

		case "page_title":
			tool = std.NewPageTitleTool(fetcher)

		case "dataset_query":
			s, schema, err := openDataset(ctx, cfg.Data)
			if err != nil {
				utils.Warn("Dataset unavailable, skipping dataset_query", "error", err)
				continue
			}
			store = s
			tool = std.NewDatasetQueryTool(store, schema)

		case "ping_llm_provider":
			tool = std.NewLLMPingTool(modelRegistry, cfg)

		case "archive_save":
			if !cfg.S3.Enabled() {
				utils.Warn("S3 is not configured, skipping archive_save")
				continue
			}
			archiveStore, err := archive.New(cfg.S3)
			if err != nil {
				utils.Warn("Archive unavailable, skipping archive_save", "error", err)
				continue
			}
			if err := archiveStore.EnsureBucket(ctx); err != nil {
				utils.Warn("Archive bucket unavailable, skipping archive_save", "error", err)
				continue
			}
			tool = std.NewArchiveSaveTool(archiveStore)

		default:
			utils.Warn("Unknown tool in config, skipping", "name", name)
			continue
		}

		if err := registry.Register(tool); err != nil {
			return nil, nil, fmt.Errorf("failed to register tool '%s': %w", name, err)
		}
		utils.Debug("Tool registered", "name", name)
	}

	return registry, store, nil
}

// openDataset открывает SQLite базу и загружает CSV файлы из data.dir.
// Возвращает store и текстовую схему для описания инструмента.
func openDataset(ctx context.Context, cfg config.DataConfig) (*dataset.Store, string, error) {
	store, err := dataset.Open(cfg.SQLite)
	if err != nil {
		return nil, "", err
	}

	if _, err := store.LoadDir(ctx, cfg.Dir); err != nil {
		// База без CSV остаётся рабочей: возможно таблицы уже внутри
		utils.Warn("CSV load failed", "dir", cfg.Dir, "error", err)
	}

	schema, err := store.Schema(ctx)
	if err != nil {
		store.Close()
		return nil, "", err
	}
	return store, schema, nil
}

// Run выполняет запрос пользователя с учётом накопленной истории.
//
// История обновляется только при успехе: после ошибки диалог остаётся
// в состоянии до запроса и Run можно повторить.
//
// Thread-safe.
func (c *Client) Run(ctx context.Context, query string) (string, error) {
	c.historyMu.Lock()
	history := append([]llm.Message(nil), c.history...)
	c.historyMu.Unlock()

	answer, updated, err := c.loop.Run(ctx, history, query)
	if err != nil {
		return "", err
	}

	c.historyMu.Lock()
	c.history = updated
	c.historyMu.Unlock()
	return answer, nil
}

// RegisterTool регистрирует дополнительный инструмент поверх
// загруженных из config.yaml.
func (c *Client) RegisterTool(tool tools.Tool) error {
	if err := c.toolsRegistry.Register(tool); err != nil {
		return fmt.Errorf("failed to register tool '%s': %w", tool.Definition().Name, err)
	}
	utils.Info("Tool registered", "name", tool.Definition().Name)
	return nil
}

// SetEmitter устанавливает emitter для событий агента.
//
// Port & Adapter: UI подписывается на события, не зная о Loop.
//
// Thread-safe.
func (c *Client) SetEmitter(emitter events.Emitter) {
	c.loop.SetEmitter(emitter)
}

// Subscribe возвращает Subscriber для чтения событий агента.
//
// Thread-safe.
func (c *Client) Subscribe() events.Subscriber {
	return c.loop.Subscribe()
}

// GetHistory возвращает копию истории диалога.
//
// Thread-safe.
func (c *Client) GetHistory() []llm.Message {
	c.historyMu.Lock()
	defer c.historyMu.Unlock()
	return append([]llm.Message(nil), c.history...)
}

// ResetHistory очищает историю диалога.
//
// Thread-safe.
func (c *Client) ResetHistory() {
	c.historyMu.Lock()
	defer c.historyMu.Unlock()
	c.history = nil
}

// ModelName возвращает алиас активной чат-модели.
func (c *Client) ModelName() string {
	return c.modelName
}

// GetModelRegistry возвращает реестр моделей для продвинутых сценариев.
func (c *Client) GetModelRegistry() *models.Registry {
	return c.modelRegistry
}

// GetToolsRegistry возвращает реестр инструментов.
func (c *Client) GetToolsRegistry() *tools.Registry {
	return c.toolsRegistry
}

// GetConfig возвращает конфигурацию приложения.
func (c *Client) GetConfig() *config.AppConfig {
	return c.config
}

// Close освобождает ресурсы агента (открытые базы данных).
func (c *Client) Close() error {
	if c.store != nil {
		return c.store.Close()
	}
	return nil
}
