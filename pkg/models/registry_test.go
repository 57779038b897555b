package models

import (
	"context"
	"strings"
	"testing"

	"github.com/ilkoid/praktika-ai/pkg/config"
	"github.com/ilkoid/praktika-ai/pkg/llm"
)

// stubProvider — минимальный провайдер для тестов реестра.
type stubProvider struct {
	name string
}

func (s *stubProvider) Generate(_ context.Context, _ []llm.Message, _ ...any) (llm.Message, error) {
	return llm.Message{Role: llm.RoleAssistant, Content: s.name}, nil
}

func testDef(model string) config.ModelDef {
	return config.ModelDef{Provider: "openai", ModelName: model, APIKey: "k"}
}

// TestRegistry_RegisterAndGet тестирует базовый цикл регистрации.
func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()

	if err := r.Register("fast", testDef("gpt-4o-mini"), &stubProvider{name: "fast"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	provider, def, err := r.Get("fast")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider == nil {
		t.Fatal("expected provider")
	}
	if def.ModelName != "gpt-4o-mini" {
		t.Errorf("unexpected model def: %+v", def)
	}

	if !r.Has("fast") {
		t.Error("expected Has to report registered model")
	}
	if r.Has("missing") {
		t.Error("expected Has to be false for missing model")
	}
}

// TestRegistry_DuplicateRegister тестирует запрет повторной регистрации.
func TestRegistry_DuplicateRegister(t *testing.T) {
	r := NewRegistry()

	if err := r.Register("m", testDef("a"), &stubProvider{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Register("m", testDef("b"), &stubProvider{}); err == nil {
		t.Error("expected error for duplicate registration")
	}
}

// TestRegistry_GetMissing тестирует ошибку для незарегистрированной модели.
func TestRegistry_GetMissing(t *testing.T) {
	r := NewRegistry()

	_, _, err := r.Get("ghost")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("unexpected error text: %v", err)
	}
}

// TestRegistry_GetWithFallback тестирует приоритет запрошенной модели.
func TestRegistry_GetWithFallback(t *testing.T) {
	r := NewRegistry()
	_ = r.Register("primary", testDef("deepseek-chat"), &stubProvider{name: "primary"})
	_ = r.Register("default", testDef("gpt-4o-mini"), &stubProvider{name: "default"})

	t.Run("requested model wins", func(t *testing.T) {
		_, _, actual, err := r.GetWithFallback("primary", "default")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if actual != "primary" {
			t.Errorf("expected primary, got %s", actual)
		}
	})

	t.Run("falls back to default", func(t *testing.T) {
		_, _, actual, err := r.GetWithFallback("missing", "default")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if actual != "default" {
			t.Errorf("expected default, got %s", actual)
		}
	})

	t.Run("both missing", func(t *testing.T) {
		_, _, _, err := r.GetWithFallback("missing", "also-missing")
		if err == nil {
			t.Error("expected error when nothing found")
		}
	})
}

// TestRegistry_ListNames тестирует сортировку списка имён.
func TestRegistry_ListNames(t *testing.T) {
	r := NewRegistry()
	_ = r.Register("zeta", testDef("z"), &stubProvider{})
	_ = r.Register("alpha", testDef("a"), &stubProvider{})

	names := r.ListNames()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "zeta" {
		t.Errorf("expected sorted names, got %v", names)
	}
}

// TestNewRegistryFromConfig тестирует создание реестра из конфигурации.
func TestNewRegistryFromConfig(t *testing.T) {
	cfg := &config.AppConfig{
		Models: config.ModelsConfig{
			DefaultChat: "chat",
			Definitions: map[string]config.ModelDef{
				"chat":  {Provider: "openai", ModelName: "gpt-4o-mini", APIKey: "k"},
				"local": {Provider: "ollama", ModelName: "llama3.2"},
			},
		},
	}

	r, err := NewRegistryFromConfig(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(r.ListNames()) != 2 {
		t.Errorf("expected 2 models, got %v", r.ListNames())
	}

	t.Run("unknown provider fails", func(t *testing.T) {
		bad := &config.AppConfig{
			Models: config.ModelsConfig{
				Definitions: map[string]config.ModelDef{
					"bad": {Provider: "watson", ModelName: "x"},
				},
			},
		}
		if _, err := NewRegistryFromConfig(bad); err == nil {
			t.Error("expected error for unknown provider")
		}
	})
}
