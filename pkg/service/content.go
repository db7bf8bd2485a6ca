package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"rtblob/pkg/external"
	"rtblob/pkg/lob"
	"rtblob/pkg/types"

	"go.uber.org/zap"
)

// ErrNotEligible: 策略判断这份内容应该留在数据库里
var ErrNotEligible = errors.New("content is not eligible for external storage")

// inlineEncoding 选择入库时的传输编码：合法 UTF-8 的文本原样存，其余 base64
func inlineEncoding(contentType string, raw []byte) string {
	ct := strings.ToLower(contentType)
	textual := strings.HasPrefix(ct, "text/") || strings.HasPrefix(ct, "message/")
	if textual && utf8.Valid(raw) {
		return lob.EncodingNone
	}
	return lob.EncodingBase64
}

// placeContent 决定一份新内容怎么落库
// 返回 (encoding, 要写进行里的字节)：
//   - 应该外置且外部存储可写：先 Store，成功则返回 external + Key
//   - Store 失败：记录警告，退回到内联存储 (数据不能丢)
//   - 其他情况：内联存储
func placeContent(ctx context.Context, st *external.Storage, eligible bool, contentType string, raw []byte, logger *zap.Logger) (string, []byte, error) {
	if eligible && st.Writable() {
		key, err := st.Store(ctx, raw)
		if err == nil {
			return lob.EncodingExternal, []byte(key), nil
		}
		logger.Warn("failed to store content externally, keeping it inline",
			zap.String("backend", st.BackendName()),
			zap.Int("size", len(raw)),
			zap.Error(err))
	}

	enc := inlineEncoding(contentType, raw)
	encoded, err := lob.Encode(enc, raw)
	if err != nil {
		return "", nil, err
	}
	return enc, encoded, nil
}

// moveOut 把一行已有的内联内容写到外部存储，返回 Key
// 行本身由调用方更新；这里失败时行保持原样
func moveOut(ctx context.Context, st *external.Storage, encoding string, content []byte) (types.Key, error) {
	if !lob.KnownEncoding(encoding) {
		return "", fmt.Errorf("cannot externalize content with encoding %q", encoding)
	}
	raw, err := lob.Unwrap(encoding, content)
	if err != nil {
		return "", err
	}
	return st.Store(ctx, raw)
}
