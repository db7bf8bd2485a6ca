package types

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		input Key
		want  bool
	}{
		{
			name:  "Valid Key (64 chars)",
			input: Key(strings.Repeat("a", 64)),
			want:  true,
		},
		{
			name:  "Too Short",
			input: Key("abc"),
			want:  false,
		},
		{
			name:  "Empty",
			input: Key(""),
			want:  false,
		},
		{
			name:  "Too Long",
			input: Key(strings.Repeat("a", 65)),
			want:  false,
		},
		{
			name:  "Upper case hex",
			input: Key(strings.Repeat("A", 64)),
			want:  false,
		},
		{
			name:  "Path traversal",
			input: Key("../" + strings.Repeat("a", 61)),
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.input.IsValid())
		})
	}
}

func TestKey_String(t *testing.T) {
	s := "aabbcc"
	k := Key(s)
	assert.Equal(t, s, k.String())
	assert.False(t, k.IsZero())
	assert.Equal(t, "aabbcc", k.Short())

	var zero Key
	assert.True(t, zero.IsZero())
}

func TestParseKey(t *testing.T) {
	raw := "  " + strings.Repeat("AB", 32) + "\n"

	k, err := ParseKey(raw)
	require.NoError(t, err)
	assert.Equal(t, Key(strings.Repeat("ab", 32)), k)
	assert.Equal(t, "abababab", k.Short())

	_, err = ParseKey("not-a-key")
	assert.ErrorIs(t, err, ErrInvalidKey)
}
