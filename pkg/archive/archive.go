// Package archive сохраняет артефакты работы (отчёты, расшифровки диалогов)
// в S3-совместимое хранилище через minio-go.
//
// Ключи раскладываются по дате: reports/<YYYY-MM-DD>/<имя> для отчётов,
// transcripts/<YYYY-MM-DD>/<uuid>.md для диалогов. Bucket создаётся
// лениво через EnsureBucket.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ilkoid/praktika-ai/pkg/config"
	"github.com/ilkoid/praktika-ai/pkg/llm"
	"github.com/ilkoid/praktika-ai/pkg/utils"
)

// objectAPI — срез minio.Client, который реально используется.
// Интерфейс нужен для мокания хранилища в тестах.
type objectAPI interface {
	PutObject(ctx context.Context, bucket, key string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
}

// Store — клиент архива поверх S3.
type Store struct {
	api    objectAPI
	bucket string
	region string
	now    func() time.Time
}

// New создает Store, используя наш конфиг.
func New(cfg config.S3Config) (*Store, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("s3 is not configured (empty endpoint)")
	}

	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}

	return &Store{
		api:    minioClient,
		bucket: cfg.Bucket,
		region: cfg.Region,
		now:    time.Now,
	}, nil
}

// EnsureBucket создаёт bucket, если его ещё нет.
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.api.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket '%s': %w", s.bucket, err)
	}
	if exists {
		return nil
	}

	if err := s.api.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return fmt.Errorf("failed to create bucket '%s': %w", s.bucket, err)
	}
	utils.Info("Created archive bucket", "bucket", s.bucket)
	return nil
}

// SaveReport загружает готовый отчёт и возвращает ключ объекта.
// Имя попадает в ключ как есть (после чистки от путей), поэтому
// повторная загрузка с тем же именем в тот же день перезапишет объект.
func (s *Store) SaveReport(ctx context.Context, name string, data []byte) (string, error) {
	name = path.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == "/" {
		return "", fmt.Errorf("report name is empty")
	}

	key := fmt.Sprintf("reports/%s/%s", s.now().Format("2006-01-02"), name)
	if err := s.put(ctx, key, data, contentTypeFor(name)); err != nil {
		return "", err
	}
	return key, nil
}

// SaveTranscript рендерит историю диалога в markdown и загружает её.
// Ключ содержит uuid, поэтому расшифровки никогда не перезаписываются.
func (s *Store) SaveTranscript(ctx context.Context, sessionID string, history []llm.Message) (string, error) {
	if len(history) == 0 {
		return "", fmt.Errorf("history is empty")
	}

	data := renderTranscript(sessionID, history, s.now())
	key := fmt.Sprintf("transcripts/%s/%s.md", s.now().Format("2006-01-02"), uuid.NewString())
	if err := s.put(ctx, key, data, "text/markdown"); err != nil {
		return "", err
	}
	return key, nil
}

func (s *Store) put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.api.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("failed to upload '%s': %w", key, err)
	}
	utils.Info("Archived object", "key", key, "size", len(data))
	return nil
}

// contentTypeFor подбирает Content-Type по расширению имени.
func contentTypeFor(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".md":
		return "text/markdown"
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	case ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
