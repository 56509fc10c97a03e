package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"quizgen_gateway/internal/config"
	"quizgen_gateway/internal/model"
	"quizgen_gateway/internal/util"
	"quizgen_gateway/pkg/logger"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// StorageProvider 定义通用存储接口
type StorageProvider interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	GetURL(key string) string
}

// LocalStorageProvider 本地存储实现
type LocalStorageProvider struct {
	Root string
}

func (p *LocalStorageProvider) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	dst := filepath.Join(p.Root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", err
	}

	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, reader); err != nil {
		return "", err
	}
	return p.GetURL(key), nil
}

func (p *LocalStorageProvider) Delete(ctx context.Context, key string) error {
	err := os.Remove(filepath.Join(p.Root, filepath.FromSlash(key)))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// GetURL materials/<owner>/<jobID>/<file> 映射为 /api/materials/<jobID>/<file>，属主由身份决定
func (p *LocalStorageProvider) GetURL(key string) string {
	parts := strings.SplitN(key, "/", 3)
	if len(parts) == 3 && parts[0] == util.MaterialPrefix {
		return "/api/" + util.MaterialPrefix + "/" + parts[2]
	}
	return "/api/" + key
}

// MinioStorageProvider MinIO存储实现
type MinioStorageProvider struct {
	Bucket string
	Client *minio.Client
}

func NewMinioStorageProvider(cfg *config.StorageConfig) (*MinioStorageProvider, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: cfg.MinioSecure,
	})
	if err != nil {
		return nil, err
	}
	return &MinioStorageProvider{Bucket: cfg.MinioBucket, Client: client}, nil
}

func (p *MinioStorageProvider) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	_, err := p.Client.PutObject(ctx, p.Bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return p.GetURL(key), nil
}

func (p *MinioStorageProvider) Delete(ctx context.Context, key string) error {
	return p.Client.RemoveObject(ctx, p.Bucket, key, minio.RemoveObjectOptions{})
}

func (p *MinioStorageProvider) GetURL(key string) string {
	return "/" + p.Bucket + "/" + key
}

// OSSStorageProvider 阿里云OSS存储实现
type OSSStorageProvider struct {
	Endpoint string
	Bucket   string
	Client   *oss.Client
}

func NewOSSStorageProvider(cfg *config.StorageConfig) (*OSSStorageProvider, error) {
	client, err := oss.New(cfg.OSSEndpoint, cfg.OSSAccessKey, cfg.OSSSecretKey)
	if err != nil {
		return nil, err
	}
	return &OSSStorageProvider{Endpoint: cfg.OSSEndpoint, Bucket: cfg.OSSBucket, Client: client}, nil
}

func (p *OSSStorageProvider) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	bucket, err := p.Client.Bucket(p.Bucket)
	if err != nil {
		return "", err
	}
	if err := bucket.PutObject(key, reader, oss.ContentType(contentType), oss.WithContext(ctx)); err != nil {
		return "", err
	}
	return p.GetURL(key), nil
}

func (p *OSSStorageProvider) Delete(ctx context.Context, key string) error {
	bucket, err := p.Client.Bucket(p.Bucket)
	if err != nil {
		return err
	}
	return bucket.DeleteObject(key, oss.WithContext(ctx))
}

func (p *OSSStorageProvider) GetURL(key string) string {
	return fmt.Sprintf("https://%s.%s/%s", p.Bucket, p.Endpoint, key)
}

// StorageService 学习资料归档
type StorageService struct {
	Provider StorageProvider
	enabled  bool
}

func NewStorageService(cfg *config.Config) *StorageService {
	var provider StorageProvider
	switch cfg.Storage.Type {
	case util.StorageMinio:
		p, err := NewMinioStorageProvider(&cfg.Storage)
		if err != nil {
			logger.Log.Warn("MinIO unavailable, falling back to local storage", zap.Error(err))
		} else {
			provider = p
		}
	case util.StorageOSS:
		p, err := NewOSSStorageProvider(&cfg.Storage)
		if err != nil {
			logger.Log.Warn("OSS unavailable, falling back to local storage", zap.Error(err))
		} else {
			provider = p
		}
	}

	if provider == nil {
		provider = &LocalStorageProvider{Root: cfg.Storage.LocalPath}
	}

	return &StorageService{Provider: provider, enabled: cfg.Storage.ArchiveMaterials}
}

func NewStorageServiceWithProvider(provider StorageProvider) *StorageService {
	return &StorageService{Provider: provider, enabled: provider != nil}
}

func (s *StorageService) Enabled() bool {
	return s != nil && s.enabled && s.Provider != nil
}

func MaterialKey(owner model.RemoteID, jobID, filename string) string {
	return path.Join(util.MaterialPrefix, util.SafeFilename(owner.String()), util.SafeFilename(jobID), util.SafeFilename(filename))
}

// ArchiveMaterials 保存到 materials/<owner>/<jobID>/<filename>，失败时回滚已上传部分
func (s *StorageService) ArchiveMaterials(ctx context.Context, owner model.RemoteID, jobID string, files []model.MaterialFile) ([]string, error) {
	if !s.Enabled() {
		return nil, nil
	}

	urls := make([]string, 0, len(files))
	keys := make([]string, 0, len(files))
	for _, f := range files {
		key := MaterialKey(owner, jobID, f.Name)
		url, err := s.Provider.Upload(ctx, key, bytes.NewReader(f.Data), int64(len(f.Data)), f.ContentType)
		if err != nil {
			s.DeleteMaterials(ctx, keys)
			return nil, fmt.Errorf("archive %s: %w", key, err)
		}
		keys = append(keys, key)
		urls = append(urls, url)
	}
	return urls, nil
}

func (s *StorageService) DeleteMaterials(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.Provider.Delete(ctx, key); err != nil {
			logger.Log.Warn("Failed to delete archived material", zap.String("key", key), zap.Error(err))
		}
	}
}

// LocalMaterialPath 返回本地归档文件路径，仅限属主访问；非本地存储或文件不存在时返回 ErrNotFound
func (s *StorageService) LocalMaterialPath(owner model.RemoteID, jobID, filename string) (string, error) {
	if !s.Enabled() {
		return "", util.ErrNotFound
	}
	local, ok := s.Provider.(*LocalStorageProvider)
	if !ok {
		return "", util.ErrNotFound
	}
	if util.SafeFilename(filename) != filename || util.SafeFilename(jobID) != jobID {
		return "", util.ErrNotFound
	}

	dst := filepath.Join(local.Root, filepath.FromSlash(MaterialKey(owner, jobID, filename)))
	info, err := os.Stat(dst)
	if err != nil || info.IsDir() {
		return "", util.ErrNotFound
	}
	return dst, nil
}
