package cache

import (
	"context"
	"fmt"
	"time"

	"rtblob/pkg/core"
	"rtblob/pkg/storage"
	"rtblob/pkg/types"

	"github.com/fxamacker/cbor/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CachedBackend 是一个装饰器，它为底层的 storage.Backend 添加 Redis 存在性缓存
// 对 S3 这类远端后端，每次 Store 前的 HEAD 请求都是一次网络往返；命中缓存就可以省掉
type CachedBackend struct {
	backend   storage.Backend // 被装饰的底层存储 (如 S3)
	client    *redis.Client   // Redis 客户端
	ttl       time.Duration   // 缓存过期时间 (例如 24h)
	namespace string          // 底层目的地的指纹，同一个 Redis 可以被多个部署共用
	logger    *zap.Logger
}

type Config struct {
	RedisURL string        // 标准连接字符串: redis://<user>:<password>@<host>:<port>/<db>
	TTL      time.Duration // 过期时间
}

// Entry 是缓存里存的值 (CBOR 编码)，只存元数据，不存 Blob 本身
type Entry struct {
	Size     int64 `cbor:"1,keyasint"`
	StoredAt int64 `cbor:"2,keyasint"`
}

func NewCachedBackend(backend storage.Backend, cfg Config, logger *zap.Logger) (*CachedBackend, error) {
	// 解析 URL
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, &storage.ConfigError{Backend: "RedisCache", Option: "redis_url", Reason: "invalid redis url", Err: err}
	}

	client := redis.NewClient(opts)

	// Fail-fast 连接检查
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, &storage.ConfigError{Backend: "RedisCache", Reason: "failed to connect to redis", Err: err}
	}

	return newWithClient(backend, client, cfg.TTL, logger), nil
}

func newWithClient(backend storage.Backend, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedBackend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedBackend{
		backend:   backend,
		client:    client,
		ttl:       ttl,
		namespace: namespaceOf(backend),
		logger:    logger.Named("cache"),
	}
}

// namespaceOf 把后端标识压成定长前缀
// 换 bucket、换类型之后旧的缓存条目不会再被命中
func namespaceOf(backend storage.Backend) string {
	return core.ContentKey([]byte(storage.IdentityOf(backend))).String()[:16]
}

// Backend 返回对外使用的后端
// 底层支持直链时结果同时实现 storage.URLer，否则不实现
func (s *CachedBackend) Backend() storage.Backend {
	if _, ok := s.backend.(storage.URLer); ok {
		return &linkingBackend{s}
	}
	return s
}

// linkingBackend 在 CachedBackend 之上透传 URLFor
type linkingBackend struct {
	*CachedBackend
}

func (l *linkingBackend) URLFor(ctx context.Context, key types.Key) (string, error) {
	return l.backend.(storage.URLer).URLFor(ctx, key)
}

// Name 透传底层后端的名字，日志里看到的仍然是真正存数据的那个后端
func (s *CachedBackend) Name() string { return s.backend.Name() }

func (s *CachedBackend) Identity() string { return storage.IdentityOf(s.backend) }

// cacheKey 生成 Redis Key：固定前缀 + 目的地指纹 + 内容地址
func (s *CachedBackend) cacheKey(key types.Key) string {
	return "rtblob:obj:" + s.namespace + ":" + string(key)
}

// Has 优先查 Redis，实现毫秒级去重
func (s *CachedBackend) Has(ctx context.Context, key types.Key) (bool, error) {
	ck := s.cacheKey(key)

	// 1. 查 Redis
	val, err := s.client.Exists(ctx, ck).Result()
	if err != nil {
		// 缓存故障降级：Redis 挂了不影响主流程，退化为无缓存模式
		s.logger.Warn("redis exists failed, falling back to backend", zap.String("key", key.String()), zap.Error(err))
	} else if val > 0 {
		return true, nil
	}

	// 2. 缓存未命中 (Cache Miss)，查底层存储
	found, err := s.backend.Has(ctx, key)
	if err != nil {
		return false, err
	}

	// 3. 缓存回填 (Cache Fill)
	if found {
		s.remember(ctx, key, -1)
	}
	return found, nil
}

// Store 利用 Has 的缓存能力进行预检
func (s *CachedBackend) Store(ctx context.Context, key types.Key, data []byte) error {
	exists, err := s.Has(ctx, key)
	if err != nil {
		return err
	}
	if exists {
		return nil // 幂等性：已存在
	}

	// 穿透到底层存储；底层自己还会再做一次存在性检查
	if err := s.backend.Store(ctx, key, data); err != nil {
		return err
	}

	// 只有底层写成功了，才写 Redis
	s.remember(ctx, key, int64(len(data)))
	return nil
}

// Get 透传 - 我们不缓存 Blob 数据
// 附件可能很大，Redis 内存宝贵，只存存在性
func (s *CachedBackend) Get(ctx context.Context, key types.Key) ([]byte, error) {
	return s.backend.Get(ctx, key)
}

// Close 关闭 Redis 连接，并在底层后端持有资源时一并关闭
func (s *CachedBackend) Close() error {
	err := s.client.Close()
	if c, ok := s.backend.(interface{ Close() error }); ok {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// Lookup 返回缓存里的元数据；未命中返回 (nil, nil)
func (s *CachedBackend) Lookup(ctx context.Context, key types.Key) (*Entry, error) {
	raw, err := s.client.Get(ctx, s.cacheKey(key)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var e Entry
	if err := cbor.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("decode cache entry: %w", err)
	}
	return &e, nil
}

// remember 写缓存；size < 0 表示大小未知 (由 Has 回填)
// 写失败只记日志，缓存永远不能影响正确性
func (s *CachedBackend) remember(ctx context.Context, key types.Key, size int64) {
	raw, err := cbor.Marshal(Entry{Size: size, StoredAt: time.Now().Unix()})
	if err != nil {
		s.logger.Warn("encode cache entry failed", zap.Error(err))
		return
	}
	if err := s.client.Set(ctx, s.cacheKey(key), raw, s.ttl).Err(); err != nil {
		s.logger.Warn("redis set failed", zap.String("key", key.String()), zap.Error(err))
	}
}
