package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"uzum_erp_v1_202608/internal/apperr"
)

// ==================== 接口定义 ====================

// StorageProvider 图片托管提供者接口
type StorageProvider interface {
	// Upload 上传文件，返回永久公开 URL
	Upload(ctx context.Context, data []byte, filename string, contentType string) (url string, err error)

	// Delete 删除文件（部分图床不支持，返回 Unsupported）
	Delete(ctx context.Context, url string) error
}

// ==================== 配置 ====================

type StorageConfig struct {
	Provider  string // "imgbb" | "s3" | "local"
	ImgbbKey  string // imgbb API key
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	CDNDomain string // CDN 域名（可选）
	BasePath  string // 路径前缀
	LocalDir  string // local 模式落盘目录
}

// ==================== 工厂方法 ====================

func NewStorageProvider(cfg *StorageConfig) (StorageProvider, error) {
	switch cfg.Provider {
	case "imgbb":
		return NewImgbbStorage(cfg)
	case "s3":
		return NewS3Storage(cfg)
	case "local":
		return NewLocalStorage(cfg)
	default:
		return nil, fmt.Errorf("不支持的存储提供者: %s", cfg.Provider)
	}
}

// ==================== StorageService 包装层 ====================

// StorageService 存储服务，包装 StorageProvider
type StorageService struct {
	provider StorageProvider
	config   *StorageConfig
}

// NewStorageService 创建存储服务
func NewStorageService(cfg *StorageConfig) (*StorageService, error) {
	provider, err := NewStorageProvider(cfg)
	if err != nil {
		return nil, err
	}
	return &StorageService{provider: provider, config: cfg}, nil
}

// Upload 上传文件
func (s *StorageService) Upload(ctx context.Context, data []byte, filename string, contentType string) (string, error) {
	return s.provider.Upload(ctx, data, filename, contentType)
}

// Delete 删除文件
func (s *StorageService) Delete(ctx context.Context, url string) error {
	return s.provider.Delete(ctx, url)
}

// SaveBase64 保存 base64 图片
func (s *StorageService) SaveBase64(ctx context.Context, base64Data string, prefix string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(base64Data)
	if err != nil {
		return "", fmt.Errorf("base64 解码失败: %w", err)
	}
	filename := fmt.Sprintf("%s_%s.png", prefix, uuid.NewString()[:8])
	return s.provider.Upload(ctx, data, filename, "image/png")
}

// ==================== imgbb 实现 ====================

// ImgbbStorage 图床上传：multipart POST，响应 {data:{url}}
// URL 是唯一保留的产物
type ImgbbStorage struct {
	client *resty.Client
	apiKey string
}

const imgbbEndpoint = "https://api.imgbb.com/1/upload"

func NewImgbbStorage(cfg *StorageConfig) (*ImgbbStorage, error) {
	if cfg.ImgbbKey == "" {
		return nil, fmt.Errorf("IMGBB_API_KEY 未配置")
	}
	client := resty.New().SetTimeout(30 * time.Second)
	return &ImgbbStorage{client: client, apiKey: cfg.ImgbbKey}, nil
}

type imgbbResponse struct {
	Data struct {
		URL string `json:"url"`
	} `json:"data"`
	Success bool `json:"success"`
	Status  int  `json:"status"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (s *ImgbbStorage) Upload(ctx context.Context, data []byte, filename string, contentType string) (string, error) {
	var body imgbbResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("key", s.apiKey).
		SetMultipartField("image", filename, contentType, strings.NewReader(base64.StdEncoding.EncodeToString(data))).
		SetResult(&body).
		SetError(&body).
		Post(imgbbEndpoint)

	if err != nil {
		return "", apperr.Wrap(apperr.KindUpstream, "imgbb 上传失败", err)
	}
	if resp.StatusCode() == 429 {
		return "", apperr.New(apperr.KindRateLimited, "imgbb 限流")
	}
	if resp.StatusCode() != 200 || !body.Success || body.Data.URL == "" {
		msg := fmt.Sprintf("imgbb 拒绝上传 [%d]", resp.StatusCode())
		if body.Error != nil {
			msg += ": " + body.Error.Message
		}
		return "", apperr.New(apperr.KindUpstream, msg)
	}
	return body.Data.URL, nil
}

func (s *ImgbbStorage) Delete(ctx context.Context, url string) error {
	// imgbb 匿名上传无删除接口
	return apperr.New(apperr.KindUnsupported, "imgbb 不支持删除")
}

// ==================== S3 实现 ====================

type S3Storage struct {
	client    *s3.Client
	bucket    string
	cdnDomain string
	basePath  string
}

func NewS3Storage(cfg *StorageConfig) (*S3Storage, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("加载 AWS 配置失败: %w", err)
	}

	return &S3Storage{
		client:    s3.NewFromConfig(awsCfg),
		bucket:    cfg.Bucket,
		cdnDomain: cfg.CDNDomain,
		basePath:  cfg.BasePath,
	}, nil
}

func (s *S3Storage) objectKey(filename string) string {
	if s.basePath == "" {
		return filename
	}
	return strings.TrimSuffix(s.basePath, "/") + "/" + filename
}

func (s *S3Storage) Upload(ctx context.Context, data []byte, filename string, contentType string) (string, error) {
	key := s.objectKey(filename)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", apperr.Wrap(apperr.KindUpstream, "S3 上传失败", err)
	}

	if s.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", s.cdnDomain, key), nil
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, key), nil
}

func (s *S3Storage) Delete(ctx context.Context, url string) error {
	idx := strings.Index(url, ".com/")
	if idx < 0 {
		return fmt.Errorf("无法从 URL 提取对象键: %s", url)
	}
	key := url[idx+5:]
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

// ==================== 本地实现（开发环境） ====================

type LocalStorage struct {
	dir string
}

func NewLocalStorage(cfg *StorageConfig) (*LocalStorage, error) {
	dir := cfg.LocalDir
	if dir == "" {
		dir = "./uploads"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &LocalStorage{dir: dir}, nil
}

func (s *LocalStorage) Upload(ctx context.Context, data []byte, filename string, contentType string) (string, error) {
	path := filepath.Join(s.dir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return "file://" + path, nil
}

func (s *LocalStorage) Delete(ctx context.Context, url string) error {
	return os.Remove(strings.TrimPrefix(url, "file://"))
}
