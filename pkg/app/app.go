// pkg/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"rtblob/pkg/config"
	"rtblob/pkg/external"
	"rtblob/pkg/lob"
	"rtblob/pkg/logging"
	"rtblob/pkg/meta"
	"rtblob/pkg/policy"

	// 注册所有后端 (Type -> Factory)
	_ "rtblob/pkg/storage/badger"
	_ "rtblob/pkg/storage/disk"
	_ "rtblob/pkg/storage/dropbox"
	_ "rtblob/pkg/storage/s3"

	"go.uber.org/zap"
)

// App 是整个应用程序的依赖容器 (Dependency Container)
// 外部存储只在第一次使用时初始化一次，之后所有调用者共享同一个实例
type App struct {
	Logger     *zap.Logger
	Policy     policy.Policy
	Repository *meta.Repository

	StorageConfig external.Config

	db *meta.DB

	once       sync.Once
	storage    *external.Storage
	storageErr error
	decode     lob.DecodeFunc
}

// NewApp 是工厂函数，负责组装这一台机器
// 它遵循 Viper 的配置，但不知道具体的 CLI 命令
func NewApp(ctx context.Context) (*App, error) {
	// 1. Logger
	logger, err := logging.New(config.Log())
	if err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}

	// 2. 记录层
	db, err := meta.NewDB(ctx, config.Database())
	if err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	return &App{
		Logger:        logger,
		Policy:        config.Policy(),
		Repository:    meta.NewRepository(db),
		StorageConfig: config.Storage(),
		db:            db,
	}, nil
}

// Storage 返回外部存储 (永远不为 nil)
// 初始化失败时记录运维错误，返回 Disabled 状态；进程照常运行，内容留在数据库里
// 初始化只有一次，不受触发它的那个请求被取消或超时的影响
func (a *App) Storage(ctx context.Context) *external.Storage {
	a.once.Do(func() {
		logger := a.logger()
		st, err := external.Open(context.WithoutCancel(ctx), a.StorageConfig, logger)
		if err != nil {
			logger.Error("external storage initialization failed, keeping content in the database",
				zap.String("type", a.StorageConfig.Type),
				zap.Error(err))
		} else if st.Enabled() {
			logger.Info("external storage ready",
				zap.String("type", st.BackendName()),
				zap.Bool("write", st.Writable()))
		}
		a.storage = st
		a.storageErr = err
		a.decode = lob.WithExternalStorage(lob.Decode, st, logger)
	})
	return a.storage
}

// UseStorage 注入一个现成的外部存储，必须在第一次调用 Storage 之前使用
func (a *App) UseStorage(st *external.Storage) {
	a.once.Do(func() {
		a.storage = st
		a.decode = lob.WithExternalStorage(lob.Decode, st, a.logger())
	})
}

// StorageErr 返回外部存储初始化时的错误 (没有初始化或者成功时为 nil)
func (a *App) StorageErr() error {
	return a.storageErr
}

// Decoder 返回带外部存储拦截的解码函数
func (a *App) Decoder(ctx context.Context) lob.DecodeFunc {
	a.Storage(ctx)
	return a.decode
}

func (a *App) logger() *zap.Logger {
	if a.Logger == nil {
		a.Logger = zap.NewNop()
	}
	return a.Logger
}

// Close 释放外部存储和数据库连接
func (a *App) Close() error {
	var errs []error
	if a.storage != nil {
		errs = append(errs, a.storage.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	return errors.Join(errs...)
}
