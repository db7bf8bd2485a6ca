package storage

import (
	"errors"
	"fmt"

	"rtblob/pkg/types"
)

var (
	ErrNotFound = errors.New("object not found")

	// ErrInvalidKey 与 types.ErrInvalidKey 是同一个值，方便调用方只依赖 storage 包
	ErrInvalidKey = types.ErrInvalidKey
)

// ConfigError 表示初始化阶段的配置问题 (缺少选项、目录不可写、远端 bucket 列表不可达)
// 它和“根本没有配置外部存储”是两回事：后者是正常状态，前者是运维错误，必须记日志。
type ConfigError struct {
	Backend string
	Option  string
	Reason  string
	Err     error
}

func (e *ConfigError) Error() string {
	msg := e.Backend + ": "
	switch {
	case e.Option != "" && e.Reason == "":
		msg += "required option " + e.Option + " is not set"
	case e.Option != "":
		msg += "option " + e.Option + ": " + e.Reason
	default:
		msg += e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

// BackendError 包装后端在 Store/Get/Has 时的失败
// 信息里必须带上后端名和底层原因 (比如 S3 返回的错误文本)，方便运维排查
type BackendError struct {
	Backend string
	Op      string
	Key     types.Key
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: failed to %s %s: %v", e.Backend, e.Op, e.Key, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// Wrap 是后端实现里构造 BackendError 的快捷方式；err 为 nil 时返回 nil
func Wrap(backend, op string, key types.Key, err error) error {
	if err == nil {
		return nil
	}
	return &BackendError{Backend: backend, Op: op, Key: key, Err: err}
}

// CheckKey 在后端入口统一校验 Key 格式
// 对文件系统后端来说这也是防止路径穿越的唯一关卡
func CheckKey(backend, op string, key types.Key) error {
	if !key.IsValid() {
		return Wrap(backend, op, key, ErrInvalidKey)
	}
	return nil
}
