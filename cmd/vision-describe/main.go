// vision-describe — описание изображения vision моделью.
//
// Картинка с диска уменьшается до разумного размера, кодируется в
// base64 data URI и отправляется модели вместе с вопросом. Системный
// промпт берётся из prompts/vision_system.yaml если файл существует.
//
// Использование:
//   go run cmd/vision-describe/main.go photo.jpg
//   go run cmd/vision-describe/main.go -model vision -prompt "Что за здание на фото?" photo.jpg
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilkoid/praktika-ai/pkg/config"
	"github.com/ilkoid/praktika-ai/pkg/llm"
	"github.com/ilkoid/praktika-ai/pkg/models"
	"github.com/ilkoid/praktika-ai/pkg/prompt"
	"github.com/ilkoid/praktika-ai/pkg/utils"
)

var (
	configFlag = flag.String("config", "config.yaml", "Путь к config.yaml")
	modelFlag  = flag.String("model", "", "Алиас vision модели (по умолчанию default_vision)")
	promptFlag = flag.String("prompt", "Опиши что изображено на картинке. Отвечай на русском.", "Вопрос к модели")
)

func main() {
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Println("Использование: vision-describe [flags] <файл изображения>")
		os.Exit(1)
	}
	imagePath := flag.Arg(0)

	// 1. Конфигурация и vision модель
	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	registry, err := models.NewRegistryFromConfig(cfg)
	if err != nil {
		log.Fatalf("Ошибка создания реестра моделей: %v", err)
	}

	defaultVision := cfg.Models.DefaultVision
	if defaultVision == "" {
		log.Fatalf("default_vision модель не настроена в config.yaml")
	}

	provider, modelDef, resolved, err := registry.GetWithFallback(*modelFlag, defaultVision)
	if err != nil {
		log.Fatalf("Ошибка выбора модели: %v", err)
	}

	systemPrompt, err := prompt.LoadVisionSystemPrompt(cfg)
	if err != nil {
		log.Fatalf("Ошибка загрузки vision промпта: %v", err)
	}

	// 2. Картинка → data URI, ширина из image_processing.max_width
	imageURI, err := utils.LoadImageAsDataURI(imagePath, cfg.ImageProcessing.MaxWidth)
	if err != nil {
		log.Fatalf("Ошибка подготовки изображения: %v", err)
	}

	fmt.Printf("🤖 Модель: %s (%s)\n", resolved, modelDef.ModelName)
	fmt.Printf("🖼  Изображение: %s (%d KB в запросе)\n\n", imagePath, len(imageURI)/1024)

	// 3. Запрос с изображением
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	response, err := provider.Generate(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{
			Role:    llm.RoleUser,
			Content: *promptFlag,
			Images:  []string{imageURI},
		},
	})
	if err != nil {
		log.Fatalf("Ошибка генерации: %v", err)
	}

	fmt.Println(response.Content)
}
