package storage

import (
	"context"

	"rtblob/pkg/types"
)

// Backend defines the interface for an external storage backend.
// Implementations can be local disk, a cloud object store, a synced folder or an embedded KV.
// 所有实现必须是并发安全的：一个进程里只有一个 Backend 实例，被所有请求共享。
type Backend interface {
	// Name 返回后端类型名 (比如 "AmazonS3")，用于日志和错误信息
	Name() string

	// Store 把 data 持久化到 key 下
	// 必须是幂等的：key 已存在时直接返回 nil，而且要在写之前检查 (避免重复传输)
	Store(ctx context.Context, key types.Key, data []byte) error

	// Get 返回之前写入 key 的原始字节
	// key 不存在时返回的错误 Unwrap 后是 ErrNotFound
	Get(ctx context.Context, key types.Key) ([]byte, error)

	// Has 检查对象是否存在 (用于去重逻辑)
	Has(ctx context.Context, key types.Key) (bool, error)

	// Delete 故意不提供：对象不可变，孤儿对象的回收不在本项目范围内
}

// URLer 是可选能力：后端可以直接给出下载链接 (比如 S3 预签名 URL)
// 这样 Web 层可以让浏览器直接去后端下载，不必经过应用进程
type URLer interface {
	URLFor(ctx context.Context, key types.Key) (string, error)
}

// Identifier 是可选能力：区分同一类型下的不同目的地 (bucket、根目录)
// 共享的缓存用它隔离不同部署写进去的对象
type Identifier interface {
	Identity() string
}

// IdentityOf 返回后端的标识；没有实现 Identifier 的后端退化为 Name()
func IdentityOf(b Backend) string {
	if id, ok := b.(Identifier); ok {
		return id.Identity()
	}
	return b.Name()
}
