// Completion режим через POST /api/generate.
//
// В отличие от /api/chat здесь нет ролей и истории: один prompt,
// один ответ. Формат демонстрационный, для чата используйте Generate.

package ollama

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ilkoid/praktika-ai/pkg/llm"
	"github.com/ilkoid/praktika-ai/pkg/utils"
)

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	System  string          `json:"system,omitempty"`
	Format  json.RawMessage `json:"format,omitempty"`
	Options map[string]any  `json:"options,omitempty"`
	Stream  bool            `json:"stream"`
}

type generateResponse struct {
	Model     string `json:"model"`
	CreatedAt string `json:"created_at"`
	Response  string `json:"response"`
	Done      bool   `json:"done"`
	EvalCount int    `json:"eval_count,omitempty"`
}

// Complete выполняет нестриминговый completion запрос.
//
// args принимает llm.GenerateOption для переопределения модели и
// параметров сэмплирования.
func (c *Client) Complete(ctx context.Context, prompt string, args ...any) (string, error) {
	startTime := time.Now()

	req := c.buildGenerateRequest(prompt, args, false)

	utils.Debug("Ollama generate started", "model", req.Model, "prompt_length", len(prompt))

	var resp generateResponse
	if err := c.doJSON(ctx, "generate", http.MethodPost, "/api/generate", req, &resp); err != nil {
		utils.Error("Ollama generate failed",
			"error", err,
			"model", req.Model,
			"duration_ms", time.Since(startTime).Milliseconds())
		return "", fmt.Errorf("ollama api error: %w", err)
	}

	utils.Info("Ollama generate completed",
		"model", req.Model,
		"response_length", len(resp.Response),
		"eval_count", resp.EvalCount,
		"duration_ms", time.Since(startTime).Milliseconds())

	return resp.Response, nil
}

// CompleteStream выполняет completion запрос с потоковой передачей.
//
// Дельты приходят в callback чанками ChunkContent; возвращается
// полный собранный текст.
func (c *Client) CompleteStream(ctx context.Context, prompt string, callback func(llm.StreamChunk), args ...any) (string, error) {
	if callback == nil {
		callback = func(llm.StreamChunk) {}
	}

	startTime := time.Now()

	req := c.buildGenerateRequest(prompt, args, true)

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal body: %w", err)
	}

	limiter := c.getOrCreateLimiter("generate")
	if err := limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait: %w", err)
	}

	resp, err := c.send(ctx, http.MethodPost, "/api/generate", body)
	if err != nil {
		callback(llm.StreamChunk{Type: llm.ChunkError, Error: err})
		return "", fmt.Errorf("ollama stream error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := readCapped(resp.Body, 4096)
		err := fmt.Errorf("ollama api error: status %d, body: %s", resp.StatusCode, errBody)
		callback(llm.StreamChunk{Type: llm.ChunkError, Error: err})
		return "", err
	}

	var content strings.Builder

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var chunk generateResponse
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			parseErr := fmt.Errorf("parse stream line: %w", err)
			callback(llm.StreamChunk{Type: llm.ChunkError, Error: parseErr})
			return "", parseErr
		}

		if chunk.Response != "" {
			content.WriteString(chunk.Response)
			callback(llm.StreamChunk{
				Type:    llm.ChunkContent,
				Content: content.String(),
				Delta:   chunk.Response,
			})
		}

		if chunk.Done {
			break
		}
	}

	if err := scanner.Err(); err != nil {
		scanErr := fmt.Errorf("read stream: %w", err)
		callback(llm.StreamChunk{Type: llm.ChunkError, Error: scanErr})
		return "", scanErr
	}

	callback(llm.StreamChunk{Type: llm.ChunkDone, Content: content.String(), Done: true})

	utils.Info("Ollama generate stream completed",
		"model", req.Model,
		"response_length", content.Len(),
		"duration_ms", time.Since(startTime).Milliseconds())

	return content.String(), nil
}

// buildGenerateRequest собирает completion запрос.
func (c *Client) buildGenerateRequest(prompt string, args []any, stream bool) generateRequest {
	req := generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: stream,
	}

	opts := llm.BuildOptions(args...)
	if opts.Model != "" {
		req.Model = opts.Model
	}
	if opts.Format == llm.FormatJSON {
		req.Format = json.RawMessage(`"json"`)
	}
	if opts.Format == llm.FormatJSONSchema && opts.JSONSchema != nil {
		req.Format = opts.JSONSchema.Schema
	}

	options := c.samplingOptions(opts)
	if len(options) > 0 {
		req.Options = options
	}

	return req
}
