package service

import (
	"context"
	"errors"
	"fmt"

	"rtblob/pkg/app"
	"rtblob/pkg/lob"
	"rtblob/pkg/meta"
	"rtblob/pkg/types"

	"go.uber.org/zap"
)

// CustomFieldService 是大字段 (Binary / Image) 自定义字段值的写入/读取路径
type CustomFieldService struct {
	app    *app.App
	logger *zap.Logger
}

func NewCustomFieldService(application *app.App) *CustomFieldService {
	logger := application.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CustomFieldService{
		app:    application,
		logger: logger.Named("customfields"),
	}
}

type NewCustomFieldValue struct {
	ObjectType  string
	ObjectID    uint64
	CustomField string
	FieldType   string
	ContentType string
	Content     []byte
}

func (s *CustomFieldService) Create(ctx context.Context, in NewCustomFieldValue) (*meta.CustomFieldValue, error) {
	eligible := s.app.Policy.CustomFieldValue(in.FieldType, int64(len(in.Content)))
	enc, content, err := placeContent(ctx, s.app.Storage(ctx), eligible, in.ContentType, in.Content, s.logger)
	if err != nil {
		return nil, err
	}

	v := &meta.CustomFieldValue{
		ObjectType:      in.ObjectType,
		ObjectID:        in.ObjectID,
		CustomField:     in.CustomField,
		FieldType:       in.FieldType,
		ContentType:     in.ContentType,
		ContentEncoding: enc,
		LargeContent:    content,
		Length:          int64(len(in.Content)),
	}
	if err := s.app.Repository.CreateCustomFieldValue(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *CustomFieldService) Externalize(ctx context.Context, id uint64) (types.Key, error) {
	v, err := s.app.Repository.GetCustomFieldValue(ctx, id)
	if err != nil {
		return "", err
	}
	if v.ContentEncoding == lob.EncodingExternal {
		return types.Key(v.LargeContent), nil
	}
	if !s.app.Policy.CustomFieldValue(v.FieldType, v.Length) {
		return "", ErrNotEligible
	}

	key, err := moveOut(ctx, s.app.Storage(ctx), v.ContentEncoding, v.LargeContent)
	if err != nil {
		return "", fmt.Errorf("externalize custom field value %d: %w", id, err)
	}

	err = s.app.Repository.MarkCustomFieldValueExternal(ctx, id, key)
	if errors.Is(err, meta.ErrAlreadyExternal) {
		latest, gerr := s.app.Repository.GetCustomFieldValue(ctx, id)
		if gerr != nil {
			return "", gerr
		}
		return types.Key(latest.LargeContent), nil
	}
	if err != nil {
		return "", err
	}

	s.logger.Info("custom field value externalized", zap.Uint64("id", id), zap.String("key", key.String()))
	return key, nil
}

func (s *CustomFieldService) Content(ctx context.Context, id uint64) ([]byte, *meta.CustomFieldValue, error) {
	v, err := s.app.Repository.GetCustomFieldValue(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	data, err := s.app.Decoder(ctx)(ctx, lob.LOB{
		ContentType: v.ContentType,
		Encoding:    v.ContentEncoding,
		Content:     v.LargeContent,
	})
	if err != nil {
		return nil, v, err
	}
	return data, v, nil
}
