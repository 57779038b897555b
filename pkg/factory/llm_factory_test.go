package factory

import (
	"testing"

	"github.com/ilkoid/praktika-ai/pkg/config"
)

// TestNewLLMProvider тестирует выбор провайдера по конфигурации.
func TestNewLLMProvider(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		wantErr  bool
	}{
		{"openai", "openai", false},
		{"deepseek", "deepseek", false},
		{"openrouter", "openrouter", false},
		{"compat", "compat", false},
		{"ollama", "ollama", false},
		{"unknown provider", "anthropic", true},
		{"empty provider", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := config.ModelDef{
				Provider:  tt.provider,
				ModelName: "test-model",
				APIKey:    "test-key",
			}

			provider, err := NewLLMProvider(def)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if provider == nil {
				t.Error("expected provider, got nil")
			}
		})
	}
}

// TestNewStreamingProvider тестирует что оба клиента отдают стриминговый интерфейс.
func TestNewStreamingProvider(t *testing.T) {
	for _, providerName := range []string{"openai", "ollama"} {
		t.Run(providerName, func(t *testing.T) {
			sp, err := NewStreamingProvider(config.ModelDef{
				Provider:  providerName,
				ModelName: "test-model",
				APIKey:    "test-key",
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if sp == nil {
				t.Error("expected streaming provider, got nil")
			}
		})
	}
}
