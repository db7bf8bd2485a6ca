// Package lob holds the decode pipeline for large object content stored on
// attachment and custom field rows.
package lob

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/quotedprintable"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// 内容编码标记
const (
	EncodingNone            = "none"
	EncodingBase64          = "base64"
	EncodingQuotedPrintable = "quoted-printable"
	// EncodingExternal 表示 Content 里存的是外部存储的 Key，而不是内容本身
	EncodingExternal = "external"
)

// LOB 是一行记录里与解码相关的三个字段
type LOB struct {
	ContentType string
	Encoding    string
	Content     []byte
}

// DecodeFunc 把数据库里存的内容还原成原始字节
type DecodeFunc func(ctx context.Context, obj LOB) ([]byte, error)

// Decode 是默认的解码流程：先去掉传输编码，再把非 UTF-8 的文本转成 UTF-8
func Decode(ctx context.Context, obj LOB) ([]byte, error) {
	raw, err := Unwrap(obj.Encoding, obj.Content)
	if err != nil {
		return nil, err
	}
	if obj.Encoding != "" && !KnownEncoding(obj.Encoding) {
		return raw, nil
	}
	return toUTF8(obj.ContentType, raw), nil
}

// Unwrap 只处理传输编码
// 未知编码不报错，返回一段说明文字 (渲染端直接显示)
func Unwrap(encoding string, content []byte) ([]byte, error) {
	switch strings.ToLower(encoding) {
	case "", EncodingNone:
		return content, nil
	case EncodingBase64:
		out := make([]byte, base64.StdEncoding.DecodedLen(len(content)))
		n, err := base64.StdEncoding.Decode(out, bytes.TrimSpace(content))
		if err != nil {
			return nil, fmt.Errorf("decode base64 content: %w", err)
		}
		return out[:n], nil
	case EncodingQuotedPrintable:
		out, err := io.ReadAll(quotedprintable.NewReader(bytes.NewReader(content)))
		if err != nil {
			return nil, fmt.Errorf("decode quoted-printable content: %w", err)
		}
		return out, nil
	default:
		return []byte("Unknown ContentEncoding " + encoding), nil
	}
}

// Encode 是 Unwrap 的逆操作，写入行时使用
func Encode(encoding string, raw []byte) ([]byte, error) {
	switch strings.ToLower(encoding) {
	case "", EncodingNone:
		return raw, nil
	case EncodingBase64:
		out := make([]byte, base64.StdEncoding.EncodedLen(len(raw)))
		base64.StdEncoding.Encode(out, raw)
		return out, nil
	case EncodingQuotedPrintable:
		var buf bytes.Buffer
		w := quotedprintable.NewWriter(&buf)
		// 按二进制处理，换行符不会被改写成 CRLF
		w.Binary = true
		if _, err := w.Write(raw); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("cannot encode with %q", encoding)
	}
}

// KnownEncoding 表示 enc 是 Unwrap 能还原的传输编码 (不含 external)
func KnownEncoding(enc string) bool {
	switch strings.ToLower(enc) {
	case "", EncodingNone, EncodingBase64, EncodingQuotedPrintable:
		return true
	}
	return false
}

// toUTF8 只转换 text/* 且声明了非 UTF-8 charset 的内容；无法识别的 charset 原样返回
func toUTF8(contentType string, raw []byte) []byte {
	if contentType == "" || len(raw) == 0 {
		return raw
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "text/") {
		return raw
	}
	charset := strings.ToLower(strings.TrimSpace(params["charset"]))
	if charset == "" || charset == "utf-8" || charset == "utf8" || charset == "us-ascii" {
		return raw
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return raw
	}
	out, _, err := transform.Bytes(enc.NewDecoder(), raw)
	if err != nil {
		return raw
	}
	return out
}
