package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Factory 对应后端的 Init：校验配置、建立会话，返回可用的 Backend
type Factory func(ctx context.Context, opts Options) (Backend, error)

var (
	registryMu sync.RWMutex
	factories  = make(map[string]registration)
)

type registration struct {
	name    string
	factory Factory
}

// Register 注册一个后端类型，通常在具体后端包的 init() 里调用
// 和 database/sql.Register 一样，重复注册或 nil factory 会 panic
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if f == nil {
		panic("storage: Register factory is nil")
	}
	key := strings.ToLower(name)
	if _, dup := factories[key]; dup {
		panic("storage: Register called twice for backend " + name)
	}
	factories[key] = registration{name: name, factory: f}
}

// Open 根据配置里的 Type 选择后端并初始化
// Type 不区分大小写；未知类型返回 ConfigError
func Open(ctx context.Context, typ string, opts Options) (Backend, error) {
	registryMu.RLock()
	reg, ok := factories[strings.ToLower(strings.TrimSpace(typ))]
	registryMu.RUnlock()
	if !ok {
		return nil, &ConfigError{
			Backend: "ExternalStorage",
			Option:  "Type",
			Reason:  fmt.Sprintf("unsupported storage type %q (known: %s)", typ, strings.Join(Types(), ", ")),
		}
	}
	return reg.factory(ctx, opts)
}

// Types 返回已注册的后端类型名 (排序后)
func Types() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(factories))
	for _, reg := range factories {
		names = append(names, reg.name)
	}
	sort.Strings(names)
	return names
}
