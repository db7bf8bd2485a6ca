package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"rtblob/pkg/app"
	"rtblob/pkg/lob"
	"rtblob/pkg/meta"
	"rtblob/pkg/types"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// AttachmentService 是附件的写入/读取路径
type AttachmentService struct {
	app    *app.App
	logger *zap.Logger
}

func NewAttachmentService(application *app.App) *AttachmentService {
	logger := application.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttachmentService{
		app:    application,
		logger: logger.Named("attachments"),
	}
}

// NewAttachment 是创建附件的入参
type NewAttachment struct {
	TicketID    uint64
	Filename    string
	ContentType string
	Headers     map[string]string
	Content     []byte
}

// Create 保存一个新附件
// 满足外置策略时内容直接写到外部存储；外部存储失败时内容留在数据库里，不返回错误
func (s *AttachmentService) Create(ctx context.Context, in NewAttachment) (*meta.Attachment, error) {
	eligible := s.app.Policy.Attachment(in.ContentType, int64(len(in.Content)))
	enc, content, err := placeContent(ctx, s.app.Storage(ctx), eligible, in.ContentType, in.Content, s.logger)
	if err != nil {
		return nil, err
	}

	a := &meta.Attachment{
		TicketID:        in.TicketID,
		Filename:        in.Filename,
		ContentType:     in.ContentType,
		ContentEncoding: enc,
		Content:         content,
		Length:          int64(len(in.Content)),
	}
	if len(in.Headers) > 0 {
		raw, err := json.Marshal(in.Headers)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal headers: %w", err)
		}
		a.Headers = datatypes.JSON(raw)
	}

	if err := s.app.Repository.CreateAttachment(ctx, a); err != nil {
		return nil, err
	}
	s.logger.Debug("attachment created",
		zap.Uint64("id", a.ID),
		zap.String("encoding", a.ContentEncoding),
		zap.Int64("length", a.Length))
	return a, nil
}

// Externalize 把已有的内联附件移到外部存储
// 已经外置的附件直接返回它的 Key；任何一步失败，行都保持内联
func (s *AttachmentService) Externalize(ctx context.Context, id uint64) (types.Key, error) {
	a, err := s.app.Repository.GetAttachment(ctx, id)
	if err != nil {
		return "", err
	}
	if a.ContentEncoding == lob.EncodingExternal {
		return types.Key(a.Content), nil
	}
	if !s.app.Policy.Attachment(a.ContentType, a.Length) {
		return "", ErrNotEligible
	}

	key, err := moveOut(ctx, s.app.Storage(ctx), a.ContentEncoding, a.Content)
	if err != nil {
		return "", fmt.Errorf("externalize attachment %d: %w", id, err)
	}

	err = s.app.Repository.MarkAttachmentExternal(ctx, id, key)
	if errors.Is(err, meta.ErrAlreadyExternal) {
		// 并发的另一次调用已经完成了
		latest, gerr := s.app.Repository.GetAttachment(ctx, id)
		if gerr != nil {
			return "", gerr
		}
		return types.Key(latest.Content), nil
	}
	if err != nil {
		return "", err
	}

	s.logger.Info("attachment externalized", zap.Uint64("id", id), zap.String("key", key.String()))
	return key, nil
}

// Content 返回附件解码后的内容
// 外部内容读取失败时返回空内容 (错误已记录)，只有记录本身不存在时才返回错误
func (s *AttachmentService) Content(ctx context.Context, id uint64) ([]byte, *meta.Attachment, error) {
	a, err := s.app.Repository.GetAttachment(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	data, err := s.app.Decoder(ctx)(ctx, lob.LOB{
		ContentType: a.ContentType,
		Encoding:    a.ContentEncoding,
		Content:     a.Content,
	})
	if err != nil {
		return nil, a, err
	}
	return data, a, nil
}
