package core

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentKey_KnownVector(t *testing.T) {
	// sha256("hello")
	want := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	assert.Equal(t, want, ContentKey([]byte("hello")).String())
}

func TestContentKey_Deterministic(t *testing.T) {
	a := []byte(strings.Repeat("attachment body ", 1024))
	b := append([]byte(nil), a...) // 不同的底层数组，相同的内容

	assert.Equal(t, ContentKey(a), ContentKey(b), "same bytes must give same key")
	assert.True(t, ContentKey(a).IsValid())

	b[0] = 'A'
	assert.NotEqual(t, ContentKey(a), ContentKey(b), "one flipped byte must change the key")
}

func TestContentKey_Empty(t *testing.T) {
	// 空内容也有合法的 Key (sha256 of "")
	k := ContentKey(nil)
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", k.String())
	assert.Equal(t, k, ContentKey([]byte{}))
}

func TestContentKeyFromReader(t *testing.T) {
	data := bytes.Repeat([]byte{0xde, 0xad, 0xbe, 0xef}, 4096)

	k, n, err := ContentKeyFromReader(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), n)
	assert.Equal(t, ContentKey(data), k)
}
