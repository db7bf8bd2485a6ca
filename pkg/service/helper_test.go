package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"rtblob/pkg/app"
	"rtblob/pkg/external"
	"rtblob/pkg/meta"
	"rtblob/pkg/policy"
	"rtblob/pkg/storage"
	"rtblob/pkg/storage/disk"
	"rtblob/pkg/types"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testCutoff 让测试不需要构造 10MiB 的内容
const testCutoff = 1024

// setupRepo 返回一个独立的内存数据库
func setupRepo(t *testing.T) *meta.Repository {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	metaDB := meta.NewWithConn(db)
	require.NoError(t, metaDB.AutoMigrate(meta.Models()...))
	t.Cleanup(func() { metaDB.Close() })
	return meta.NewRepository(metaDB)
}

// setupTestApp 是所有 Service 测试共享的基础设施初始化逻辑
func setupTestApp(t *testing.T, repo *meta.Repository, st *external.Storage) *app.App {
	t.Helper()
	a := &app.App{
		Logger:     zap.NewNop(),
		Policy:     policy.New(testCutoff),
		Repository: repo,
	}
	a.UseStorage(st)
	return a
}

// newDiskStorage 返回一个落在临时目录的外部存储，以及它的磁盘适配器
func newDiskStorage(t *testing.T, write bool) (*external.Storage, *disk.Adapter) {
	t.Helper()
	adapter, err := disk.NewAdapter(t.TempDir())
	require.NoError(t, err)
	return external.New(adapter, write, zap.NewNop()), adapter
}

// brokenBackend 写入总是失败
type brokenBackend struct{}

func (brokenBackend) Name() string { return "Broken" }

func (brokenBackend) Store(ctx context.Context, key types.Key, data []byte) error {
	return storage.Wrap("Broken", "store", key, errors.New("disk quota exceeded"))
}

func (brokenBackend) Get(ctx context.Context, key types.Key) ([]byte, error) {
	return nil, storage.Wrap("Broken", "get", key, storage.ErrNotFound)
}

func (brokenBackend) Has(ctx context.Context, key types.Key) (bool, error) {
	return false, nil
}
