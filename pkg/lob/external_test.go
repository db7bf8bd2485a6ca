package lob

import (
	"context"
	"errors"
	"strings"
	"testing"

	"rtblob/pkg/core"
	"rtblob/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// fakeSource 是内存里的外部存储
type fakeSource struct {
	enabled bool
	objects map[types.Key][]byte
	gets    int
}

func (f *fakeSource) Enabled() bool { return f.enabled }

func (f *fakeSource) Get(ctx context.Context, key types.Key) ([]byte, error) {
	f.gets++
	data, ok := f.objects[key]
	if !ok {
		return nil, errors.New("Fake: failed to get " + key.Short() + ": object not found")
	}
	return data, nil
}

func newObserved() (*zap.Logger, *observer.ObservedLogs) {
	obs, logs := observer.New(zapcore.DebugLevel)
	return zap.New(obs), logs
}

func TestWithExternalStorage_PassThrough(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{enabled: true}
	decode := WithExternalStorage(Decode, src, zap.NewNop())

	for _, obj := range []LOB{
		{ContentType: "text/plain", Encoding: "none", Content: []byte("hello")},
		{ContentType: "text/plain", Encoding: "base64", Content: []byte("aGVsbG8=")},
		{ContentType: "text/plain", Encoding: "x-weird", Content: []byte("??")},
	} {
		direct, derr := Decode(ctx, obj)
		wrapped, werr := decode(ctx, obj)
		assert.Equal(t, derr, werr)
		assert.Equal(t, direct, wrapped, obj.Encoding)
	}
	assert.Zero(t, src.gets, "inline content never touches external storage")
}

func TestWithExternalStorage_Hit(t *testing.T) {
	ctx := context.Background()
	key := core.ContentKey([]byte("hello"))
	src := &fakeSource{enabled: true, objects: map[types.Key][]byte{key: []byte("hello")}}
	decode := WithExternalStorage(Decode, src, zap.NewNop())

	got, err := decode(ctx, LOB{ContentType: "text/plain", Encoding: EncodingExternal, Content: []byte(key)})
	require.NoError(t, err)

	inline, err := Decode(ctx, LOB{ContentType: "text/plain", Encoding: EncodingNone, Content: []byte("hello")})
	require.NoError(t, err)
	assert.Equal(t, inline, got)
}

func TestWithExternalStorage_HitGoesThroughCharset(t *testing.T) {
	ctx := context.Background()
	latin1 := []byte{'c', 'a', 'f', 0xe9}
	key := core.ContentKey(latin1)
	src := &fakeSource{enabled: true, objects: map[types.Key][]byte{key: latin1}}

	got, err := WithExternalStorage(Decode, src, nil)(ctx, LOB{
		ContentType: "text/plain; charset=iso-8859-1",
		Encoding:    EncodingExternal,
		Content:     []byte(key),
	})
	require.NoError(t, err)
	assert.Equal(t, "café", string(got))
}

func TestWithExternalStorage_Miss(t *testing.T) {
	logger, logs := newObserved()
	key := core.ContentKey([]byte("gone"))
	src := &fakeSource{enabled: true, objects: map[types.Key][]byte{}}

	got, err := WithExternalStorage(Decode, src, logger)(context.Background(), LOB{
		Encoding: EncodingExternal,
		Content:  []byte(key),
	})
	require.NoError(t, err, "read path degrades instead of failing")
	assert.Empty(t, got)

	entries := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, key.String(), fields["key"])
	assert.Contains(t, fields["error"], "object not found")
}

func TestWithExternalStorage_NotConfigured(t *testing.T) {
	logger, logs := newObserved()
	key := core.ContentKey([]byte("somewhere"))

	for _, src := range []Source{nil, &fakeSource{enabled: false}} {
		got, err := WithExternalStorage(Decode, src, logger)(context.Background(), LOB{
			Encoding: EncodingExternal,
			Content:  []byte(key),
		})
		require.NoError(t, err)
		assert.Empty(t, got)
	}

	entries := logs.FilterMessageSnippet("not configured").All()
	require.Len(t, entries, 2)
	assert.Equal(t, key.String(), entries[0].ContextMap()["key"])
}

func TestWithExternalStorage_KeyIsCleaned(t *testing.T) {
	ctx := context.Background()
	key := core.ContentKey([]byte("legacy row"))
	src := &fakeSource{enabled: true, objects: map[types.Key][]byte{key: []byte("legacy row")}}
	decode := WithExternalStorage(Decode, src, zap.NewNop())

	// char 列补齐的空白、旧数据里的大写
	stored := []byte(strings.ToUpper(key.String()) + "   \n")
	got, err := decode(ctx, LOB{ContentType: "text/plain", Encoding: EncodingExternal, Content: stored})
	require.NoError(t, err)
	assert.Equal(t, "legacy row", string(got))
}

func TestWithExternalStorage_MalformedKey(t *testing.T) {
	logger, logs := newObserved()
	src := &fakeSource{enabled: true}

	got, err := WithExternalStorage(Decode, src, logger)(context.Background(), LOB{
		Encoding: EncodingExternal,
		Content:  []byte("not-a-content-key"),
	})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, src.gets, "a malformed key never reaches the backend")

	entries := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, entries, 1)
	assert.Equal(t, "not-a-content-key", entries[0].ContextMap()["key"])
	assert.Contains(t, entries[0].ContextMap()["error"], "invalid content key")
}
