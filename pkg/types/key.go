// pkg/types/key.go
package types

import (
	"errors"
	"strings"
)

// KeyLength 是 SHA-256 十六进制摘要的长度
const KeyLength = 64

var ErrInvalidKey = errors.New("invalid content key")

// Key 代表外部对象的内容地址 (SHA-256 Hex String, 小写)
// 这是一个“值对象”，相同的字节永远得到相同的 Key。
type Key string

func (k Key) String() string { return string(k) }

func (k Key) IsZero() bool { return k == "" }

// IsValid 检查长度以及字符集 (只接受小写 hex)
func (k Key) IsValid() bool {
	if len(k) != KeyLength {
		return false
	}
	for i := 0; i < len(k); i++ {
		c := k[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// Short 返回前 8 位，用于日志
func (k Key) Short() string {
	if len(k) < 8 {
		return string(k)
	}
	return string(k[:8])
}

// ParseKey 把用户/数据库给的字符串转换成 Key
// 数据库里的旧数据可能带空白或大写，这里统一清洗
func ParseKey(s string) (Key, error) {
	k := Key(strings.ToLower(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", ErrInvalidKey
	}
	return k, nil
}
