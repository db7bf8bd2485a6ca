package meta

import (
	"context"
	"errors"
	"fmt"

	"rtblob/pkg/lob"
	"rtblob/pkg/types"

	"gorm.io/gorm"
)

var (
	ErrAttachmentNotFound = errors.New("attachment not found")
	ErrValueNotFound      = errors.New("custom field value not found")
	// ErrAlreadyExternal: 行已经是 external，不会再改写
	ErrAlreadyExternal = errors.New("content is already stored externally")
)

// Repository 封装所有对 SQL 数据库的操作
type Repository struct {
	db *DB
}

func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// -----------------------------------------------------------------------------
// 1. 附件 (Attachments)
// -----------------------------------------------------------------------------

func (r *Repository) CreateAttachment(ctx context.Context, a *Attachment) error {
	if a.ContentEncoding == "" {
		a.ContentEncoding = lob.EncodingNone
	}
	if err := r.db.GetConn().WithContext(ctx).Create(a).Error; err != nil {
		return fmt.Errorf("failed to create attachment: %w", err)
	}
	return nil
}

func (r *Repository) GetAttachment(ctx context.Context, id uint64) (*Attachment, error) {
	var a Attachment
	err := r.db.GetConn().WithContext(ctx).
		Where("id = ?", id).
		First(&a).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAttachmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAttachments 按创建顺序返回一个工单的全部附件
func (r *Repository) ListAttachments(ctx context.Context, ticketID uint64) ([]Attachment, error) {
	var out []Attachment
	err := r.db.GetConn().WithContext(ctx).
		Where("ticket_id = ?", ticketID).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

// MarkAttachmentExternal 把附件内容替换为外部 Key
// 条件更新：只改还没外置的行，重复调用返回 ErrAlreadyExternal
func (r *Repository) MarkAttachmentExternal(ctx context.Context, id uint64, key types.Key) error {
	return r.markExternal(ctx, &Attachment{}, "content", id, key, ErrAttachmentNotFound)
}

// ExternalAttachmentKeys 返回所有外置附件引用的 Key (去重)
func (r *Repository) ExternalAttachmentKeys(ctx context.Context) ([]types.Key, error) {
	var raw [][]byte
	err := r.db.GetConn().WithContext(ctx).
		Model(&Attachment{}).
		Where("content_encoding = ?", lob.EncodingExternal).
		Distinct().
		Pluck("content", &raw).Error
	if err != nil {
		return nil, err
	}
	keys := make([]types.Key, 0, len(raw))
	for _, b := range raw {
		keys = append(keys, types.Key(b))
	}
	return keys, nil
}

// -----------------------------------------------------------------------------
// 2. 自定义字段值 (Custom Field Values)
// -----------------------------------------------------------------------------

func (r *Repository) CreateCustomFieldValue(ctx context.Context, v *CustomFieldValue) error {
	if v.ContentEncoding == "" {
		v.ContentEncoding = lob.EncodingNone
	}
	if err := r.db.GetConn().WithContext(ctx).Create(v).Error; err != nil {
		return fmt.Errorf("failed to create custom field value: %w", err)
	}
	return nil
}

func (r *Repository) GetCustomFieldValue(ctx context.Context, id uint64) (*CustomFieldValue, error) {
	var v CustomFieldValue
	err := r.db.GetConn().WithContext(ctx).
		Where("id = ?", id).
		First(&v).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrValueNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *Repository) MarkCustomFieldValueExternal(ctx context.Context, id uint64, key types.Key) error {
	return r.markExternal(ctx, &CustomFieldValue{}, "large_content", id, key, ErrValueNotFound)
}

func (r *Repository) markExternal(ctx context.Context, model any, column string, id uint64, key types.Key, notFound error) error {
	return r.db.GetConn().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// SQL: UPDATE ... SET content_encoding = 'external', <column> = ? WHERE id = ? AND content_encoding <> 'external'
		result := tx.Model(model).
			Where("id = ? AND content_encoding <> ?", id, lob.EncodingExternal).
			Updates(map[string]any{
				"content_encoding": lob.EncodingExternal,
				column:             []byte(key),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			return nil
		}

		// 影响行数为 0：要么行不存在，要么已经外置
		var count int64
		if err := tx.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return notFound
		}
		return ErrAlreadyExternal
	})
}
