package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// WriteFileAtomic 先写临时文件再 Rename
// 保证要么文件不存在，要么文件是完整的。Disk 和 Dropbox 后端共用。
// tempPattern 允许调用方控制临时文件名 (同步盘需要隐藏文件，避免把半个文件传上去)
func WriteFileAtomic(path string, data []byte, tempPattern string) error {
	dir := filepath.Dir(path)
	tempFile, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return err
	}
	// 如果成功 Rename 了，这个删除会失败，但无害
	defer os.Remove(tempFile.Name())

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return err
	}
	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		return err
	}
	// 必须先关闭才能 Rename
	if err := tempFile.Close(); err != nil {
		return err
	}
	return os.Rename(tempFile.Name(), path)
}

// ProbeWritable 在 dir 里创建并删除一个探测文件，确认目录可写
func ProbeWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return fmt.Errorf("directory is not writable: %w", err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

// FileExists 是 os.Stat 的三态封装：存在 / 不存在 / 出错
func FileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}
