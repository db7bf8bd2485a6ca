package storage

import (
	"fmt"
	"strconv"
	"strings"
)

// Options 是后端的配置项 (Type, Path, Bucket, AccessKeyId ...)
// Key 不区分大小写：viper 会把 YAML 里的 key 全部转成小写，这里统一按小写存取
type Options map[string]string

// NewOptions 把 viper.GetStringMap 之类的结果转换为 Options
// 嵌套的 map (比如 cache 段) 会被忽略，它们不属于后端配置
func NewOptions(raw map[string]any) Options {
	opts := make(Options, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
			continue
		case map[string]any:
			continue
		case string:
			opts[strings.ToLower(k)] = val
		default:
			opts[strings.ToLower(k)] = fmt.Sprint(val)
		}
	}
	return opts
}

// Get 返回去掉首尾空白的值，不存在时返回 ""
func (o Options) Get(name string) string {
	return strings.TrimSpace(o[strings.ToLower(name)])
}

// Set 返回自身，方便在测试里链式构造
func (o Options) Set(name, value string) Options {
	o[strings.ToLower(name)] = value
	return o
}

// Bool 解析布尔选项；无法解析时返回 def
func (o Options) Bool(name string, def bool) bool {
	v := o.Get(name)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// Require 按顺序检查必填项，返回第一个缺失项的 ConfigError
// 错误信息使用调用方给出的名字 (保留 AccessKeyId 这种大小写)，而不是小写 key
func (o Options) Require(backend string, names ...string) error {
	for _, name := range names {
		if o.Get(name) == "" {
			return &ConfigError{Backend: backend, Option: name}
		}
	}
	return nil
}
