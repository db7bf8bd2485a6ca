package ignore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcher_Defaults(t *testing.T) {
	matcher, err := NewMatcher(t.TempDir())
	require.NoError(t, err)

	tests := []struct {
		path     string
		shouldIg bool
	}{
		{".rtblob", true},
		{".rtblob/rt.db", true}, // 子路径也应该被忽略
		{".git", true},
		{"config.yaml", true},
		{".env", true},
		{".DS_Store", true},
		{"scan.pdf", false},
		{"tickets/42/trace.log", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.shouldIg, matcher.Matches(tt.path), "Path: %s", tt.path)
		})
	}
}

func TestMatcher_WithUserFile(t *testing.T) {
	tmpDir := t.TempDir()
	rules := `
# 临时文件
*.tmp
drafts
!keep.tmp
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, FileName), []byte(rules), 0644))

	matcher, err := NewMatcher(tmpDir)
	require.NoError(t, err)

	tests := []struct {
		path     string
		shouldIg bool
	}{
		{".rtblob", true},
		{"config.yaml", true},
		{"upload.tmp", true},
		{"inbox/upload.tmp", true},
		{"drafts", true},
		{"drafts/reply.txt", true},
		{"scan.pdf", false},
		{"keep.tmp", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.shouldIg, matcher.Matches(tt.path), "Path: %s", tt.path)
		})
	}
}

func TestMatcher_Files(t *testing.T) {
	root := t.TempDir()
	write := func(rel string) {
		p := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(rel), 0644))
	}
	write("a.pdf")
	write("tickets/1/scan.png")
	write("tickets/1/notes.tmp")
	write(".rtblob/config.yaml")
	write(".git/HEAD")
	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), []byte("*.tmp\n"), 0644))

	matcher, err := NewMatcher(root)
	require.NoError(t, err)

	files, err := matcher.Files(root)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.pdf"),
		filepath.Join(root, "tickets", "1", "scan.png"),
	}, files)
}
