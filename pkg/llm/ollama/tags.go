// Список установленных моделей через GET /api/tags.

package ollama

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// ModelDetails — сведения о формате и квантизации модели.
type ModelDetails struct {
	Format            string `json:"format"`
	Family            string `json:"family"`
	ParameterSize     string `json:"parameter_size"`
	QuantizationLevel string `json:"quantization_level"`
}

// ModelInfo — одна установленная модель из /api/tags.
type ModelInfo struct {
	Name       string       `json:"name"`
	Model      string       `json:"model"`
	ModifiedAt time.Time    `json:"modified_at"`
	Size       int64        `json:"size"`
	Digest     string       `json:"digest"`
	Details    ModelDetails `json:"details"`
}

// TagsResponse — ответ /api/tags.
type TagsResponse struct {
	Models []ModelInfo `json:"models"`
}

// Tags возвращает список моделей, установленных на сервере.
//
// Полезен для диагностики ("установлена ли модель из конфига?") и для
// сводных таблиц моделей.
func (c *Client) Tags(ctx context.Context) ([]ModelInfo, error) {
	var resp TagsResponse
	if err := c.doJSON(ctx, "tags", http.MethodGet, "/api/tags", nil, &resp); err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return resp.Models, nil
}

// VersionResponse — ответ /api/version.
type VersionResponse struct {
	Version string `json:"version"`
}

// Version возвращает версию сервера Ollama.
//
// Самый дешёвый способ проверить что сервер жив: не трогает модели
// и отвечает мгновенно.
func (c *Client) Version(ctx context.Context) (string, error) {
	var resp VersionResponse
	if err := c.doJSON(ctx, "version", http.MethodGet, "/api/version", nil, &resp); err != nil {
		return "", fmt.Errorf("get version: %w", err)
	}
	return resp.Version, nil
}
