// Package policy decides which content is worth moving out of the database.
package policy

import "strings"

// DefaultCutoff 小于等于这个大小的文本和图片留在数据库里，渲染时不需要再访问后端
const DefaultCutoff int64 = 10 * 1024 * 1024

// 自定义字段的类型取值
const (
	FieldTypeBinary = "Binary"
	FieldTypeImage  = "Image"
)

// Policy 只看类型和大小，写入时同步求值
type Policy struct {
	Cutoff int64
}

// New 返回一个 Policy；cutoff <= 0 时使用 DefaultCutoff
func New(cutoff int64) Policy {
	if cutoff <= 0 {
		cutoff = DefaultCutoff
	}
	return Policy{Cutoff: cutoff}
}

func (p Policy) cutoff() int64 {
	if p.Cutoff <= 0 {
		return DefaultCutoff
	}
	return p.Cutoff
}

// Attachment 判断附件是否应该外置
func (p Policy) Attachment(contentType string, length int64) bool {
	if length <= 0 {
		return false
	}
	switch mediaClass(contentType) {
	case "multipart":
		// 结构性容器，不是叶子节点
		return false
	case "text", "message", "image":
		return length > p.cutoff()
	default:
		return true
	}
}

// CustomFieldValue 判断大字段值是否应该外置
func (p Policy) CustomFieldValue(fieldType string, length int64) bool {
	if length <= 0 {
		return false
	}
	switch {
	case strings.EqualFold(fieldType, FieldTypeBinary):
		return true
	case strings.EqualFold(fieldType, FieldTypeImage):
		return length > p.cutoff()
	default:
		return false
	}
}

// mediaClass 取出 "text/plain; charset=utf-8" 里的 "text"
func mediaClass(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexAny(ct, "/;"); i >= 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(ct)
}
