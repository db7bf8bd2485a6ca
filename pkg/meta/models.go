package meta

import (
	"time"

	"gorm.io/datatypes"
)

// Attachment 是工单附件的一行记录
// ContentEncoding 为 "external" 时 Content 里存的是外部存储的 Key
type Attachment struct {
	ID       uint64 `gorm:"primaryKey"`
	TicketID uint64 `gorm:"index;not null"`

	Filename    string `gorm:"type:varchar(255)"`
	ContentType string `gorm:"type:varchar(255);not null"`

	// ContentEncoding: none | base64 | quoted-printable | external
	ContentEncoding string `gorm:"type:varchar(32);not null;default:none"`
	Content         []byte

	// Length 是解码后的原始字节数，外置之后仍然保留，策略判断靠它
	Length int64 `gorm:"not null;default:0"`

	// Headers: MIME 头，原样存成 JSON
	Headers datatypes.JSON

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CustomFieldValue 是大字段类型 (Binary / Image) 自定义字段的值
type CustomFieldValue struct {
	ID          uint64 `gorm:"primaryKey"`
	ObjectType  string `gorm:"type:varchar(64);index:idx_ocfv_object;not null"`
	ObjectID    uint64 `gorm:"index:idx_ocfv_object;not null"`
	CustomField string `gorm:"type:varchar(200);not null"`

	// FieldType: Binary | Image | Freeform | Text ...
	FieldType string `gorm:"type:varchar(32);not null"`

	// Content 存小值；大值放在 LargeContent 里 (或者外置)
	Content         string `gorm:"type:varchar(255)"`
	ContentType     string `gorm:"type:varchar(255)"`
	ContentEncoding string `gorm:"type:varchar(32);not null;default:none"`
	LargeContent    []byte
	Length          int64 `gorm:"not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName 强制指定表名
func (CustomFieldValue) TableName() string {
	return "object_custom_field_values"
}

// Models 返回需要迁移的全部模型
func Models() []any {
	return []any{&Attachment{}, &CustomFieldValue{}}
}
