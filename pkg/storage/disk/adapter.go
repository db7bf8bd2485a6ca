package disk

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"rtblob/pkg/storage"
	"rtblob/pkg/types"
)

// TypeName 是配置里 Type 的取值
const TypeName = "Disk"

func init() {
	storage.Register(TypeName, func(ctx context.Context, opts storage.Options) (storage.Backend, error) {
		if err := opts.Require(TypeName, "Path"); err != nil {
			return nil, err
		}
		return NewAdapter(opts.Get("Path"))
	})
}

// Adapter 实现了 storage.Backend 接口
type Adapter struct {
	rootPath string // 比如: /var/lib/rt/external
}

// NewAdapter 创建一个新的磁盘存储适配器
// 目录不存在会被创建；存在但不可写则初始化失败
func NewAdapter(root string) (*Adapter, error) {
	if root == "" {
		return nil, &storage.ConfigError{Backend: TypeName, Option: "Path"}
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, &storage.ConfigError{Backend: TypeName, Option: "Path", Reason: "invalid path", Err: err}
	}
	// 确保根目录存在
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, &storage.ConfigError{Backend: TypeName, Option: "Path", Reason: "failed to create root storage dir", Err: err}
	}
	if err := storage.ProbeWritable(abs); err != nil {
		return nil, &storage.ConfigError{Backend: TypeName, Option: "Path", Reason: abs, Err: err}
	}
	return &Adapter{rootPath: abs}, nil
}

func (s *Adapter) Name() string { return TypeName }

// Identity 是类型名加上根目录的绝对路径
func (s *Adapter) Identity() string {
	root, err := filepath.Abs(s.rootPath)
	if err != nil {
		root = s.rootPath
	}
	return TypeName + ":" + root
}

// Root 返回存储根目录的绝对路径
func (s *Adapter) Root() string { return s.rootPath }

// layout 返回 Key 对应的物理路径
// 策略：两级 Sharding，避免单目录下文件过多
// Example: key "aabbcc..." -> root/aa/bb/cc...
func (s *Adapter) layout(key types.Key) string {
	k := string(key)
	return filepath.Join(s.rootPath, k[:2], k[2:4], k[4:])
}

func (s *Adapter) Store(ctx context.Context, key types.Key, data []byte) error {
	if err := storage.CheckKey(TypeName, "store", key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return storage.Wrap(TypeName, "store", key, err)
	}
	targetPath := s.layout(key)

	// 1. 检查是否存在 (幂等性)
	exists, err := storage.FileExists(targetPath)
	if err != nil {
		return storage.Wrap(TypeName, "store", key, err)
	}
	if exists {
		return nil // 已经存在，直接跳过 (CAS 的好处)
	}

	// 2. 准备目录
	if err := os.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
		return storage.Wrap(TypeName, "store", key, err)
	}

	// 3. 原子写入 (Atomic Write)
	// 并发写同一个 Key 时两边都可能 Rename 成功，内容相同所以覆盖无害
	if err := storage.WriteFileAtomic(targetPath, data, "temp-*"); err != nil {
		return storage.Wrap(TypeName, "store", key, fmt.Errorf("write %s: %w", targetPath, err))
	}
	return nil
}

func (s *Adapter) Get(ctx context.Context, key types.Key) ([]byte, error) {
	if err := storage.CheckKey(TypeName, "get", key); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, storage.Wrap(TypeName, "get", key, err)
	}

	data, err := os.ReadFile(s.layout(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, storage.Wrap(TypeName, "get", key, storage.ErrNotFound)
	}
	if err != nil {
		return nil, storage.Wrap(TypeName, "get", key, err)
	}
	return data, nil
}

func (s *Adapter) Has(ctx context.Context, key types.Key) (bool, error) {
	if err := storage.CheckKey(TypeName, "stat", key); err != nil {
		return false, err
	}
	exists, err := storage.FileExists(s.layout(key))
	if err != nil {
		return false, storage.Wrap(TypeName, "stat", key, err)
	}
	return exists, nil
}
