// Package prompt предоставляет функции для загрузки и рендеринга промптов.
package prompt

import (
	"fmt"
	"os"

	"github.com/ilkoid/praktika-ai/pkg/config"
)

// LoadAgentSystemPrompt загружает системный промпт для AI-агента.
//
// Пытается загрузить промпт из файла {PromptsDir}/agent_system.yaml.
// Если файл не существует или ошибка загрузки — возвращает дефолтный промпт.
//
// Дефолтный промпт базовый и может быть переопределён через YAML файл
// для кастомизации поведения агента под конкретные задачи.
func LoadAgentSystemPrompt(cfg *config.AppConfig) (string, error) {
	// 1. Формируем путь к файлу промпта
	promptPath := fmt.Sprintf("%s/agent_system.yaml", cfg.App.PromptsDir)

	// 2. Проверяем существование файла
	if _, err := os.Stat(promptPath); os.IsNotExist(err) {
		// Файл не существует — возвращаем дефолтный промпт
		return getDefaultAgentPrompt(), nil
	}

	// 3. Загружаем файл
	pf, err := Load(promptPath)
	if err != nil {
		return "", fmt.Errorf("failed to load agent prompt from %s: %w", promptPath, err)
	}

	// 4. Проверяем наличие сообщений
	if len(pf.Messages) == 0 {
		return getDefaultAgentPrompt(), nil
	}

	// 5. Возвращаем контент первого сообщения (системного)
	// Предполагаем что первое сообщение — системный промпт агента
	if pf.Messages[0].Content != "" {
		return pf.Messages[0].Content, nil
	}

	return getDefaultAgentPrompt(), nil
}

// getDefaultAgentPrompt возвращает дефолтный системный промпт агента.
//
// Используется как fallback когда:
// - Файл agent_system.yaml не существует
// - Файл пустой или некорректный
func getDefaultAgentPrompt() string {
	return `Ты AI-ассистент с доступом к внешним данным через инструменты.

## Твои возможности

У тебя есть доступ к инструментам (tools) для получения актуальных данных:
- current_time — текущие дата и время (у тебя нет встроенных часов)
- current_weather — погода в указанном городе
- web_fetch / page_title — загрузка и чтение веб-страниц
- dataset_query — SQL запросы (только SELECT) к загруженным CSV данным
- ping_llm_provider — проверка доступности LLM провайдеров
- archive_save — сохранение готовых отчётов в постоянный архив

## Правила работы

1. Используй tools когда нужно получить актуальные данные — не выдумывай
2. Анализируй запрос пользователя перед вызовом инструмента
3. Формируй понятные структурированные ответы
4. Если инструмент вернул ошибку — прочитай её, исправь аргументы и повтори
5. Если данных недостаточно — спроси уточняющий вопрос

## Примеры

Запрос: "какая погода в Праге?"
Действие: Вызвать current_weather с city="Prague" и оформить ответ

Запрос: "сколько инженеров в данных?"
Действие:
  1. Посмотреть схему таблиц в описании dataset_query
  2. Вызвать dataset_query с SELECT COUNT(*) ...
  3. Оформить ответ пользователю
`
}

// LoadVisionSystemPrompt загружает системный промпт для Vision LLM.
//
// Пытается загрузить {PromptsDir}/vision_system.yaml, иначе дефолт.
func LoadVisionSystemPrompt(cfg *config.AppConfig) (string, error) {
	promptPath := fmt.Sprintf("%s/vision_system.yaml", cfg.App.PromptsDir)

	if _, err := os.Stat(promptPath); os.IsNotExist(err) {
		return getDefaultVisionPrompt(), nil
	}

	pf, err := Load(promptPath)
	if err != nil {
		return "", fmt.Errorf("failed to load vision prompt from %s: %w", promptPath, err)
	}
	if len(pf.Messages) == 0 || pf.Messages[0].Content == "" {
		return getDefaultVisionPrompt(), nil
	}
	return pf.Messages[0].Content, nil
}

func getDefaultVisionPrompt() string {
	return `Ты эксперт по анализу изображений.

Твоя задача - посмотреть на изображение и описать:
1. Что изображено (объекты, люди, текст)
2. Композицию и фон
3. Заметные детали и цвета

Отвечай кратко и по делу, на русском языке.`
}
