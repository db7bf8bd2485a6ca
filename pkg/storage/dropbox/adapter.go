package dropbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"rtblob/pkg/storage"
	"rtblob/pkg/types"
)

const TypeName = "Dropbox"

func init() {
	storage.Register(TypeName, func(ctx context.Context, opts storage.Options) (storage.Backend, error) {
		if err := opts.Require(TypeName, "Path"); err != nil {
			return nil, err
		}
		return NewAdapter(opts.Get("Path"))
	})
}

// Adapter 把对象写进一个由同步客户端 (Dropbox 之类) 管理的文件夹
// 与 Disk 的区别：
//  1. 目录归同步客户端所有，我们只校验、不创建 (目录不存在通常意味着客户端没装好)
//  2. 平铺布局 <Path>/<key>，和远端的文件名一一对应
//  3. 临时文件以 "." 开头，同步客户端默认不会上传半截文件
type Adapter struct {
	folder string
}

func NewAdapter(folder string) (*Adapter, error) {
	if folder == "" {
		return nil, &storage.ConfigError{Backend: TypeName, Option: "Path"}
	}
	info, err := os.Stat(folder)
	if err != nil {
		return nil, &storage.ConfigError{Backend: TypeName, Option: "Path", Reason: "sync folder is not available", Err: err}
	}
	if !info.IsDir() {
		return nil, &storage.ConfigError{Backend: TypeName, Option: "Path", Reason: fmt.Sprintf("%s is not a directory", folder)}
	}
	if err := storage.ProbeWritable(folder); err != nil {
		return nil, &storage.ConfigError{Backend: TypeName, Option: "Path", Reason: folder, Err: err}
	}
	return &Adapter{folder: folder}, nil
}

func (a *Adapter) Name() string { return TypeName }

func (a *Adapter) Identity() string {
	folder, err := filepath.Abs(a.folder)
	if err != nil {
		folder = a.folder
	}
	return TypeName + ":" + folder
}

func (a *Adapter) path(key types.Key) string {
	return filepath.Join(a.folder, string(key))
}

func (a *Adapter) Store(ctx context.Context, key types.Key, data []byte) error {
	if err := storage.CheckKey(TypeName, "store", key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return storage.Wrap(TypeName, "store", key, err)
	}

	exists, err := storage.FileExists(a.path(key))
	if err != nil {
		return storage.Wrap(TypeName, "store", key, err)
	}
	if exists {
		return nil
	}
	return storage.Wrap(TypeName, "store", key, storage.WriteFileAtomic(a.path(key), data, ".rtblob-*"))
}

func (a *Adapter) Get(ctx context.Context, key types.Key) ([]byte, error) {
	if err := storage.CheckKey(TypeName, "get", key); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, storage.Wrap(TypeName, "get", key, err)
	}
	data, err := os.ReadFile(a.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, storage.Wrap(TypeName, "get", key, storage.ErrNotFound)
	}
	if err != nil {
		return nil, storage.Wrap(TypeName, "get", key, err)
	}
	return data, nil
}

func (a *Adapter) Has(ctx context.Context, key types.Key) (bool, error) {
	if err := storage.CheckKey(TypeName, "stat", key); err != nil {
		return false, err
	}
	exists, err := storage.FileExists(a.path(key))
	if err != nil {
		return false, storage.Wrap(TypeName, "stat", key, err)
	}
	return exists, nil
}
