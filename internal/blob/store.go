package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
)

// ErrNotFound 引用的对象不存在
var ErrNotFound = errors.New("blob not found")

// ErrInvalidRef 引用格式非法
var ErrInvalidRef = errors.New("invalid payload reference")

// ErrTooLarge 超过大小上限
var ErrTooLarge = errors.New("payload exceeds maximum size")

var refPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,127}$`)

// Store 对象存储接口,payloadRef 对工作流不透明
type Store interface {
	Store(ctx context.Context, data []byte) (string, error)
	Fetch(ctx context.Context, ref string) ([]byte, error)
	Exists(ctx context.Context, ref string) (bool, error)
	Delete(ctx context.Context, ref string) error
}

// afsStore 基于 viant/afs 的存储,支持 file:// mem:// s3:// 等 scheme
type afsStore struct {
	baseURL string
	maxSize int64
	fs      afs.Service
}

// New 创建对象存储,baseURL 不存在时自动创建
func New(ctx context.Context, baseURL string, maxSize int64) (Store, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("blob base url cannot be empty")
	}
	fs := afs.New()
	baseURL = url.Normalize(baseURL, file.Scheme)

	exists, _ := fs.Exists(ctx, baseURL)
	if !exists {
		if err := fs.Create(ctx, baseURL, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("failed to create blob base %s: %w", baseURL, err)
		}
	}
	return &afsStore{baseURL: baseURL, maxSize: maxSize, fs: fs}, nil
}

func (s *afsStore) objectURL(ref string) (string, error) {
	if !refPattern.MatchString(ref) {
		return "", fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	return url.Join(s.baseURL, ref), nil
}

// Store 写入内容并返回新的引用
func (s *afsStore) Store(ctx context.Context, data []byte) (string, error) {
	if s.maxSize > 0 && int64(len(data)) > s.maxSize {
		return "", fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, len(data), s.maxSize)
	}
	ref := uuid.NewString()
	objectURL, _ := s.objectURL(ref)
	if err := s.fs.Upload(ctx, objectURL, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("failed to upload blob: %w", err)
	}
	return ref, nil
}

// Fetch 读取引用的内容
func (s *afsStore) Fetch(ctx context.Context, ref string) ([]byte, error) {
	objectURL, err := s.objectURL(ref)
	if err != nil {
		return nil, err
	}
	exists, err := s.fs.Exists(ctx, objectURL)
	if err != nil {
		return nil, fmt.Errorf("failed to check blob: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	data, err := s.fs.DownloadWithURL(ctx, objectURL)
	if err != nil {
		return nil, fmt.Errorf("failed to download blob: %w", err)
	}
	return data, nil
}

// Exists 判断引用是否存在
func (s *afsStore) Exists(ctx context.Context, ref string) (bool, error) {
	objectURL, err := s.objectURL(ref)
	if err != nil {
		return false, err
	}
	exists, err := s.fs.Exists(ctx, objectURL)
	if err != nil {
		return false, fmt.Errorf("failed to check blob: %w", err)
	}
	return exists, nil
}

// Delete 删除引用的内容
func (s *afsStore) Delete(ctx context.Context, ref string) error {
	objectURL, err := s.objectURL(ref)
	if err != nil {
		return err
	}
	exists, err := s.fs.Exists(ctx, objectURL)
	if err != nil {
		return fmt.Errorf("failed to check blob: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	if err := s.fs.Delete(ctx, objectURL); err != nil {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}
