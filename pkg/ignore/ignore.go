// Package ignore filters the files picked up when a directory is stored in
// bulk (rtblob store --recursive).
package ignore

import (
	"io/fs"
	"os"
	"path/filepath"

	gitignore "github.com/sabhiram/go-gitignore"
)

// FileName 是用户自定义规则文件，语法与 .gitignore 相同
const FileName = ".rtblobignore"

// 这些规则总是生效：配置目录和凭据文件不能被上传到外部存储
var defaultRules = []string{
	".rtblob",
	".git",
	FileName,
	"config.yaml",
	".env",
	".DS_Store",
	"Thumbs.db",
}

// Matcher 判断一个相对路径是否应该跳过
type Matcher struct {
	rules *gitignore.GitIgnore
}

// NewMatcher 编译默认规则；root 下存在 .rtblobignore 时一起编译
func NewMatcher(root string) (*Matcher, error) {
	path := filepath.Join(root, FileName)
	if _, err := os.Stat(path); err != nil {
		return &Matcher{rules: gitignore.CompileIgnoreLines(defaultRules...)}, nil
	}

	rules, err := gitignore.CompileIgnoreFileAndLines(path, defaultRules...)
	if err != nil {
		return nil, err
	}
	return &Matcher{rules: rules}, nil
}

// Matches: path 是相对于 root 的路径，true 表示跳过
func (m *Matcher) Matches(path string) bool {
	if m == nil || m.rules == nil {
		return false
	}
	return m.rules.MatchesPath(filepath.ToSlash(path))
}

// Files 递归列出 root 下所有未被忽略的普通文件 (返回完整路径，按字典序)
// 被忽略的目录整个跳过
func (m *Matcher) Files(root string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if m.Matches(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			out = append(out, path)
		}
		return nil
	})
	return out, err
}
