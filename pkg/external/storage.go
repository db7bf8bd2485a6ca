// Package external is the entry point to external blob storage.
//
// A Storage is built once at startup from configuration and passed to every
// caller that needs it. It is either Disabled (no external storage configured,
// everything stays inline in the database) or Active (one backend, shared by
// all requests).
package external

import (
	"context"
	"errors"
	"io"
	"time"

	"rtblob/pkg/core"
	"rtblob/pkg/metrics"
	"rtblob/pkg/storage"
	"rtblob/pkg/storage/cache"
	"rtblob/pkg/types"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrNotConfigured: 没有可用的后端 (未配置，或者初始化失败)
	ErrNotConfigured = errors.New("external storage is not configured")
	// ErrWriteDisabled: 后端只读 (迁移期间只服务已外置的内容)
	ErrWriteDisabled = errors.New("external storage is read-only (Write is disabled)")
	// ErrNoDirectLink: 后端不支持直链
	ErrNoDirectLink = errors.New("external storage backend does not provide direct links")
)

// Mode 显式区分两种状态，调用方必须处理 Disabled
type Mode int

const (
	Disabled Mode = iota
	Active
)

func (m Mode) String() string {
	if m == Active {
		return "active"
	}
	return "disabled"
}

// Config 对应配置文件里的 external_storage 段
type Config struct {
	Type    string
	Write   bool
	Options storage.Options
	Cache   CacheConfig
}

type CacheConfig struct {
	RedisURL string
	TTL      time.Duration
}

// Storage 持有当前唯一的后端实例
// 初始化之后只读，可以被任意多个 goroutine 并发使用
type Storage struct {
	mode    Mode
	backend storage.Backend
	write   bool
	logger  *zap.Logger
	flight  singleflight.Group
}

// Open 根据配置初始化后端
//   - 没有配置 Type：返回 Disabled，err == nil (这是默认的安全状态)
//   - 初始化失败：返回 Disabled 以及错误；调用方负责记录这个运维错误，进程照常运行
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*Storage, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Type == "" {
		return NewDisabled(logger), nil
	}

	backend, err := storage.Open(ctx, cfg.Type, cfg.Options)
	if err != nil {
		return NewDisabled(logger), err
	}

	if cfg.Cache.RedisURL != "" {
		cached, err := cache.NewCachedBackend(backend, cache.Config{RedisURL: cfg.Cache.RedisURL, TTL: cfg.Cache.TTL}, logger)
		if err != nil {
			// 缓存只是优化：记日志，继续使用未加缓存的后端
			logger.Warn("external storage cache disabled", zap.Error(err))
		} else {
			backend = cached.Backend()
		}
	}

	return New(backend, cfg.Write, logger), nil
}

// New 用现成的后端构造 Active 状态的 Storage (依赖注入、测试用)
func New(backend storage.Backend, write bool, logger *zap.Logger) *Storage {
	if backend == nil {
		return NewDisabled(logger)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Storage{
		mode:    Active,
		backend: backend,
		write:   write,
		logger:  logger.Named("external").With(zap.String("backend", backend.Name())),
	}
}

// NewDisabled 返回纯数据库模式下的 Storage
func NewDisabled(logger *zap.Logger) *Storage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Storage{mode: Disabled, logger: logger.Named("external")}
}

func (s *Storage) Mode() Mode { return s.mode }

// Enabled 表示可以读 (Get)
func (s *Storage) Enabled() bool { return s.mode == Active }

// Writable 表示可以写 (Store)；Write=false 的部署仍然可以读
func (s *Storage) Writable() bool { return s.mode == Active && s.write }

// BackendName 返回后端类型名；Disabled 时返回 ""
func (s *Storage) BackendName() string {
	if s.backend == nil {
		return ""
	}
	return s.backend.Name()
}

// Store 计算内容地址并交给后端
// 同一进程里并发 Store 相同内容，只会有一次后端调用 (其余调用者共享结果)
// 共享的那次调用不跟随任何一个调用者的取消，每个调用者都等到它完成或失败
func (s *Storage) Store(ctx context.Context, content []byte) (types.Key, error) {
	if s.mode != Active {
		return "", ErrNotConfigured
	}
	if !s.write {
		return "", ErrWriteDisabled
	}

	key := core.ContentKey(content)
	shareCtx := context.WithoutCancel(ctx)
	_, err, shared := s.flight.Do(key.String(), func() (any, error) {
		err := s.backend.Store(shareCtx, key, content)
		metrics.RecordStore(s.backend.Name(), len(content), err)
		return nil, err
	})
	if err != nil {
		s.logger.Warn("external store failed",
			zap.String("key", key.String()),
			zap.Int("size", len(content)),
			zap.Error(err))
		return "", err
	}
	if shared {
		s.logger.Debug("external store coalesced", zap.String("key", key.String()))
	}
	return key, nil
}

// Get 返回 key 对应的原始字节
func (s *Storage) Get(ctx context.Context, key types.Key) ([]byte, error) {
	if s.mode != Active {
		return nil, ErrNotConfigured
	}
	if !key.IsValid() {
		return nil, storage.Wrap(s.backend.Name(), "get", key, storage.ErrInvalidKey)
	}
	data, err := s.backend.Get(ctx, key)
	metrics.RecordGet(s.backend.Name(), err)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Has 检查对象是否已经在后端里
func (s *Storage) Has(ctx context.Context, key types.Key) (bool, error) {
	if s.mode != Active {
		return false, ErrNotConfigured
	}
	return s.backend.Has(ctx, key)
}

// URLFor 返回直链 (后端支持时)
func (s *Storage) URLFor(ctx context.Context, key types.Key) (string, error) {
	if s.mode != Active {
		return "", ErrNotConfigured
	}
	u, ok := s.backend.(storage.URLer)
	if !ok {
		return "", ErrNoDirectLink
	}
	return u.URLFor(ctx, key)
}

// Close 释放后端持有的资源 (数据库句柄、Redis 连接)
func (s *Storage) Close() error {
	if c, ok := s.backend.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
