package lob

import (
	"context"

	"rtblob/pkg/metrics"
	"rtblob/pkg/types"

	"go.uber.org/zap"
)

// Source 是解码时读取外部内容的最小接口；*external.Storage 满足它
type Source interface {
	Enabled() bool
	Get(ctx context.Context, key types.Key) ([]byte, error)
}

// WithExternalStorage 包装 next：
// 非 external 的内容原样交给 next；external 的内容先从 src 取回字节，再以 "none" 编码交给 next。
// 外部存储不可用或者读取失败时记录错误并返回空内容，不向上返回错误。
func WithExternalStorage(next DecodeFunc, src Source, logger *zap.Logger) DecodeFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("lob")

	return func(ctx context.Context, obj LOB) ([]byte, error) {
		if obj.Encoding != EncodingExternal {
			return next(ctx, obj)
		}

		if src == nil || !src.Enabled() {
			metrics.RecordDecodeFailure("not_configured")
			logger.Error("failed to load external content: external storage is not configured",
				zap.ByteString("key", obj.Content))
			return []byte{}, nil
		}

		key, err := types.ParseKey(string(obj.Content))
		if err != nil {
			metrics.RecordDecodeFailure("invalid_key")
			logger.Error("failed to load external content",
				zap.ByteString("key", obj.Content),
				zap.Error(err))
			return []byte{}, nil
		}

		content, err := src.Get(ctx, key)
		if err != nil {
			metrics.RecordDecodeFailure("get_failed")
			logger.Error("failed to load external content",
				zap.String("key", key.String()),
				zap.Error(err))
			return []byte{}, nil
		}

		obj.Encoding = EncodingNone
		obj.Content = content
		return next(ctx, obj)
	}
}
