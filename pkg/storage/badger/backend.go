package badger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"rtblob/pkg/storage"
	"rtblob/pkg/types"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"go.uber.org/zap"
)

const (
	TypeName  = "Badger"
	keyPrefix = "blob:"
)

func init() {
	storage.Register(TypeName, func(ctx context.Context, opts storage.Options) (storage.Backend, error) {
		inMemory := opts.Bool("InMemory", false)
		if !inMemory {
			if err := opts.Require(TypeName, "Path"); err != nil {
				return nil, err
			}
		}
		return Open(opts.Get("Path"), inMemory)
	})
}

// Backend 把对象存进一个嵌入式 BadgerDB
// 适合单机部署：没有对象存储，但又不想让附件撑大关系数据库
type Backend struct {
	db   *badger.DB
	path string // 内存模式下为空
}

// badgerLogger adapts zap to the badger.Logger interface.
type badgerLogger struct {
	logger *zap.SugaredLogger
}

var _ badger.Logger = (*badgerLogger)(nil)

func (l *badgerLogger) Errorf(msg string, items ...any)   { l.logger.Errorf(msg, items...) }
func (l *badgerLogger) Warningf(msg string, items ...any) { l.logger.Warnf(msg, items...) }
func (l *badgerLogger) Infof(msg string, items ...any)    { l.logger.Debugf(msg, items...) }
func (l *badgerLogger) Debugf(msg string, items ...any)   { l.logger.Debugf(msg, items...) }

// Open 打开 (或创建) path 下的数据库；inMemory 用于测试
func Open(path string, inMemory bool) (*Backend, error) {
	var opts badger.Options
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0755); err != nil {
			return nil, &storage.ConfigError{Backend: TypeName, Option: "Path", Reason: "failed to create database dir", Err: err}
		}
		opts = badger.DefaultOptions(path)
	}
	// 附件通常已经是压缩格式 (图片、zip)，再压一遍只浪费 CPU
	opts.Compression = options.None
	opts.Logger = &badgerLogger{logger: zap.L().Named("badger").Sugar()}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, &storage.ConfigError{Backend: TypeName, Reason: "failed to open database", Err: err}
	}
	return &Backend{db: db, path: path}, nil
}

func (b *Backend) Name() string { return TypeName }

// Identity 区分不同的数据库目录；内存库每个实例都不同
func (b *Backend) Identity() string {
	if b.path == "" {
		return fmt.Sprintf("%s:memory:%p", TypeName, b)
	}
	if abs, err := filepath.Abs(b.path); err == nil {
		return TypeName + ":" + abs
	}
	return TypeName + ":" + b.path
}

// Close closes the BadgerDB database.
func (b *Backend) Close() error {
	return b.db.Close()
}

func dbKey(key types.Key) []byte {
	return []byte(keyPrefix + string(key))
}

func (b *Backend) Store(ctx context.Context, key types.Key, data []byte) error {
	if err := storage.CheckKey(TypeName, "store", key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return storage.Wrap(TypeName, "store", key, err)
	}

	err := b.db.Update(func(txn *badger.Txn) error {
		// 先查再写，已存在直接返回
		_, err := txn.Get(dbKey(key))
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(dbKey(key), data)
	})
	// 两个事务同时写同一个 Key 时后提交的会冲突
	// 内容是一样的，所以只要对象现在在库里就算成功
	if errors.Is(err, badger.ErrConflict) {
		if ok, hasErr := b.Has(ctx, key); hasErr == nil && ok {
			return nil
		}
	}
	return storage.Wrap(TypeName, "store", key, err)
}

func (b *Backend) Get(ctx context.Context, key types.Key) ([]byte, error) {
	if err := storage.CheckKey(TypeName, "get", key); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, storage.Wrap(TypeName, "get", key, err)
	}

	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(dbKey(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, storage.Wrap(TypeName, "get", key, storage.ErrNotFound)
	}
	if err != nil {
		return nil, storage.Wrap(TypeName, "get", key, fmt.Errorf("read value: %w", err))
	}
	return data, nil
}

func (b *Backend) Has(ctx context.Context, key types.Key) (bool, error) {
	if err := storage.CheckKey(TypeName, "stat", key); err != nil {
		return false, err
	}
	err := b.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(dbKey(key))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, storage.Wrap(TypeName, "stat", key, err)
	}
	return true, nil
}
