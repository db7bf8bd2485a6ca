package core

import (
	"crypto/sha256"
	"encoding/hex"
	"io"

	"rtblob/pkg/types"
)

// ContentKey 计算原始字节的内容地址
// 纯函数：相同内容 -> 相同 Key，这就是去重的全部机制
func ContentKey(data []byte) types.Key {
	sum := sha256.Sum256(data)
	return types.Key(hex.EncodeToString(sum[:]))
}

// ContentKeyFromReader 流式计算 Key，避免为了算 Hash 把大文件整个读进内存
// 返回 Key 和读取的字节数
func ContentKeyFromReader(r io.Reader) (types.Key, int64, error) {
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", n, err
	}
	return types.Key(hex.EncodeToString(h.Sum(nil))), n, nil
}
