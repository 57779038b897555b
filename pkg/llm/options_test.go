package llm

import (
	"strings"
	"testing"
)

// TestBuildOptions тестирует сборку опций из смешанного списка аргументов.
func TestBuildOptions(t *testing.T) {
	tests := []struct {
		name  string
		args  []any
		check func(t *testing.T, opts GenerateOptions)
	}{
		{
			name: "empty args give zero options",
			args: nil,
			check: func(t *testing.T, opts GenerateOptions) {
				if opts.Model != "" || opts.Temperature != nil || opts.TopP != nil {
					t.Errorf("expected zero options, got %+v", opts)
				}
			},
		},
		{
			name: "model and sampling params",
			args: []any{WithModel("deepseek-chat"), WithTemperature(0.3), WithTopP(0.95), WithMaxTokens(100)},
			check: func(t *testing.T, opts GenerateOptions) {
				if opts.Model != "deepseek-chat" {
					t.Errorf("expected model deepseek-chat, got %s", opts.Model)
				}
				if opts.Temperature == nil || *opts.Temperature != 0.3 {
					t.Errorf("expected temperature 0.3, got %v", opts.Temperature)
				}
				if opts.TopP == nil || *opts.TopP != 0.95 {
					t.Errorf("expected top_p 0.95, got %v", opts.TopP)
				}
				if opts.MaxTokens != 100 {
					t.Errorf("expected max tokens 100, got %d", opts.MaxTokens)
				}
			},
		},
		{
			name: "explicit zero temperature is set",
			args: []any{WithTemperature(0)},
			check: func(t *testing.T, opts GenerateOptions) {
				if opts.Temperature == nil {
					t.Fatal("expected temperature pointer, got nil")
				}
				if *opts.Temperature != 0 {
					t.Errorf("expected temperature 0, got %v", *opts.Temperature)
				}
			},
		},
		{
			name: "non-option args are ignored",
			args: []any{"something", 42, WithModel("gpt-4o-mini")},
			check: func(t *testing.T, opts GenerateOptions) {
				if opts.Model != "gpt-4o-mini" {
					t.Errorf("expected model gpt-4o-mini, got %s", opts.Model)
				}
			},
		},
		{
			name: "json mode sets format",
			args: []any{WithJSONMode()},
			check: func(t *testing.T, opts GenerateOptions) {
				if opts.Format != FormatJSON {
					t.Errorf("expected format json_object, got %s", opts.Format)
				}
			},
		},
		{
			name: "json schema sets format and schema",
			args: []any{WithJSONSchema(MustSchema("person", true, map[string]any{"type": "object"}))},
			check: func(t *testing.T, opts GenerateOptions) {
				if opts.Format != FormatJSONSchema {
					t.Errorf("expected format json_schema, got %s", opts.Format)
				}
				if opts.JSONSchema == nil || opts.JSONSchema.Name != "person" {
					t.Errorf("expected schema person, got %+v", opts.JSONSchema)
				}
				if !strings.Contains(string(opts.JSONSchema.Schema), `"object"`) {
					t.Errorf("expected marshaled schema, got %s", opts.JSONSchema.Schema)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, BuildOptions(tt.args...))
		})
	}
}

// TestIsStreamingMode проверяет opt-out дизайн стриминга.
func TestIsStreamingMode(t *testing.T) {
	if !IsStreamingMode() {
		t.Error("expected streaming enabled by default")
	}
	if IsStreamingMode(WithStream(false)) {
		t.Error("expected streaming disabled via WithStream(false)")
	}
	if !IsStreamingMode(WithStream(true), WithModel("x")) {
		t.Error("expected streaming enabled via WithStream(true)")
	}
	if !IsStreamingMode(WithThinkingOnly(true)) {
		t.Error("thinking-only option must not disable streaming")
	}
}

// TestIsThinkingOnly проверяет дефолт и переопределение thinking-only режима.
func TestIsThinkingOnly(t *testing.T) {
	if IsThinkingOnly() {
		t.Error("expected all chunks forwarded by default")
	}
	if !IsThinkingOnly(WithThinkingOnly(true)) {
		t.Error("expected thinking only via option")
	}
}
