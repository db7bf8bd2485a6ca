package external

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"rtblob/pkg/core"
	"rtblob/pkg/storage"
	_ "rtblob/pkg/storage/disk"
	_ "rtblob/pkg/storage/s3"
	"rtblob/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// -----------------------------------------------------------------------------
// SpyBackend: 行为和真实后端一致 (先查存在性再写)，同时统计物理传输次数
// -----------------------------------------------------------------------------
type SpyBackend struct {
	mu        sync.Mutex
	objects   map[types.Key][]byte
	transfers int32
	delay     time.Duration
	storeErr  error

	// gate 非 nil 时，传输会一直等到 gate 关闭或者 ctx 被取消
	gate    chan struct{}
	entered chan struct{}
}

func NewSpyBackend() *SpyBackend {
	return &SpyBackend{objects: make(map[types.Key][]byte)}
}

func (s *SpyBackend) Name() string { return "Spy" }

func (s *SpyBackend) Has(ctx context.Context, key types.Key) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok, nil
}

func (s *SpyBackend) Store(ctx context.Context, key types.Key, data []byte) error {
	if s.storeErr != nil {
		return storage.Wrap("Spy", "store", key, s.storeErr)
	}
	if ok, _ := s.Has(ctx, key); ok {
		return nil
	}
	time.Sleep(s.delay)
	if s.gate != nil {
		close(s.entered)
		select {
		case <-ctx.Done():
			return storage.Wrap("Spy", "store", key, ctx.Err())
		case <-s.gate:
		}
	}
	atomic.AddInt32(&s.transfers, 1)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = append([]byte(nil), data...)
	return nil
}

func (s *SpyBackend) Get(ctx context.Context, key types.Key) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, storage.Wrap("Spy", "get", key, storage.ErrNotFound)
	}
	return data, nil
}

// -----------------------------------------------------------------------------
// 写路径
// -----------------------------------------------------------------------------

func TestStorage_SameContentSameKey(t *testing.T) {
	st := New(NewSpyBackend(), true, zap.NewNop())
	ctx := context.Background()

	b1 := []byte("ticket attachment")
	b2 := append([]byte(nil), b1...)

	k1, err := st.Store(ctx, b1)
	require.NoError(t, err)
	k2, err := st.Store(ctx, b2)
	require.NoError(t, err)

	assert.Equal(t, k1, k2)
	assert.Equal(t, core.ContentKey(b1), k1, "key is sha256 hex of the content")
	assert.True(t, k1.IsValid())
}

func TestStorage_RoundTrip(t *testing.T) {
	st := New(NewSpyBackend(), true, zap.NewNop())
	ctx := context.Background()

	for _, content := range [][]byte{
		[]byte("hello"),
		bytes.Repeat([]byte{0x00, 0xff}, 1<<16),
		{},
	} {
		key, err := st.Store(ctx, content)
		require.NoError(t, err)

		got, err := st.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, len(content), len(got))
		assert.True(t, bytes.Equal(content, got))
	}
}

func TestStorage_StoreTwiceTransfersOnce(t *testing.T) {
	spy := NewSpyBackend()
	st := New(spy, true, zap.NewNop())
	ctx := context.Background()

	_, err := st.Store(ctx, []byte("dedupe me"))
	require.NoError(t, err)
	_, err = st.Store(ctx, []byte("dedupe me"))
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&spy.transfers))
}

func TestStorage_ConcurrentStoreTransfersOnce(t *testing.T) {
	spy := NewSpyBackend()
	spy.delay = 20 * time.Millisecond // 放大竞态窗口
	st := New(spy, true, zap.NewNop())
	ctx := context.Background()

	var wg sync.WaitGroup
	keys := make([]types.Key, 8)
	for i := range keys {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			k, err := st.Store(ctx, []byte("identical content"))
			assert.NoError(t, err)
			keys[i] = k
		}(i)
	}
	wg.Wait()

	for _, k := range keys {
		assert.Equal(t, keys[0], k)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&spy.transfers), "concurrent writers share one transfer")
}

func TestStorage_CoalescedStoreIgnoresOtherCallersCancel(t *testing.T) {
	spy := NewSpyBackend()
	spy.gate = make(chan struct{})
	spy.entered = make(chan struct{})
	st := New(spy, true, zap.NewNop())
	content := []byte("shared upload")

	// A 发起传输，随后被取消 (比如浏览器中断了请求)
	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := st.Store(ctxA, content)
		errA <- err
	}()
	<-spy.entered

	// B 的 ctx 一直有效，合并到同一次传输上
	errB := make(chan error, 1)
	keyB := make(chan types.Key, 1)
	go func() {
		k, err := st.Store(context.Background(), content)
		keyB <- k
		errB <- err
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	time.Sleep(20 * time.Millisecond)
	close(spy.gate)

	require.NoError(t, <-errB, "one caller's cancel must not fail another caller's write")
	assert.Equal(t, core.ContentKey(content), <-keyB)
	assert.NoError(t, <-errA, "the transfer runs to completion")
	assert.Equal(t, int32(1), atomic.LoadInt32(&spy.transfers))

	got, err := st.Get(context.Background(), core.ContentKey(content))
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestStorage_StoreFailureIsReturned(t *testing.T) {
	spy := NewSpyBackend()
	spy.storeErr = errors.New("permission denied")
	st := New(spy, true, zap.NewNop())

	key, err := st.Store(context.Background(), []byte("x"))
	assert.Empty(t, key)
	var backendErr *storage.BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Contains(t, err.Error(), "Spy")
	assert.Contains(t, err.Error(), "permission denied")
}

func TestStorage_WriteDisabled(t *testing.T) {
	spy := NewSpyBackend()
	seed := New(spy, true, zap.NewNop())
	key, err := seed.Store(context.Background(), []byte("already external"))
	require.NoError(t, err)

	// 同一个后端，只读部署
	ro := New(spy, false, zap.NewNop())
	assert.True(t, ro.Enabled())
	assert.False(t, ro.Writable())

	_, err = ro.Store(context.Background(), []byte("new content"))
	assert.ErrorIs(t, err, ErrWriteDisabled)

	got, err := ro.Get(context.Background(), key)
	require.NoError(t, err, "read-only deployments still serve existing content")
	assert.Equal(t, []byte("already external"), got)
}

// -----------------------------------------------------------------------------
// Disabled 状态
// -----------------------------------------------------------------------------

func TestStorage_Disabled(t *testing.T) {
	st, err := Open(context.Background(), Config{}, nil)
	require.NoError(t, err, "no configuration is the normal, silent state")

	assert.Equal(t, Disabled, st.Mode())
	assert.Equal(t, "disabled", st.Mode().String())
	assert.False(t, st.Enabled())
	assert.False(t, st.Writable())
	assert.Empty(t, st.BackendName())

	_, err = st.Store(context.Background(), []byte("data"))
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Contains(t, err.Error(), "not configured")

	_, err = st.Get(context.Background(), core.ContentKey([]byte("data")))
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = st.URLFor(context.Background(), core.ContentKey([]byte("data")))
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = st.Has(context.Background(), core.ContentKey([]byte("data")))
	assert.ErrorIs(t, err, ErrNotConfigured)

	assert.NoError(t, st.Close())
}

func TestOpen_InitFailureLeavesNoBackend(t *testing.T) {
	cases := []struct {
		name   string
		opts   storage.Options
		option string
	}{
		{"missing access key", storage.Options{}.Set("SecretAccessKey", "s").Set("Bucket", "b"), "AccessKeyId"},
		{"missing secret key", storage.Options{}.Set("AccessKeyId", "a").Set("Bucket", "b"), "SecretAccessKey"},
		{"missing bucket", storage.Options{}.Set("AccessKeyId", "a").Set("SecretAccessKey", "s"), "Bucket"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st, err := Open(context.Background(), Config{Type: "AmazonS3", Write: true, Options: tc.opts}, zap.NewNop())

			var cfgErr *storage.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tc.option, cfgErr.Option)

			// 初始化失败后仍然拿到一个可用的 (Disabled) Storage，而不是 nil
			require.NotNil(t, st)
			assert.Equal(t, Disabled, st.Mode())
			_, err = st.Store(context.Background(), []byte("x"))
			assert.ErrorIs(t, err, ErrNotConfigured)
			_, err = st.Get(context.Background(), core.ContentKey([]byte("x")))
			assert.ErrorIs(t, err, ErrNotConfigured)
		})
	}
}

func TestOpen_UnknownType(t *testing.T) {
	st, err := Open(context.Background(), Config{Type: "Tape"}, zap.NewNop())
	assert.ErrorContains(t, err, "unsupported storage type")
	assert.Equal(t, Disabled, st.Mode())
}

func TestOpen_Disk(t *testing.T) {
	root := t.TempDir()
	st, err := Open(context.Background(), Config{
		Type:    "Disk",
		Write:   true,
		Options: storage.Options{}.Set("Path", root),
	}, zap.NewNop())
	require.NoError(t, err)
	defer st.Close()

	assert.Equal(t, Active, st.Mode())
	assert.Equal(t, "Disk", st.BackendName())

	key, err := st.Store(context.Background(), []byte("on disk"))
	require.NoError(t, err)
	got, err := st.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "on disk", string(got))

	ok, err := st.Has(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = st.URLFor(context.Background(), key)
	assert.ErrorIs(t, err, ErrNoDirectLink)
}

func TestStorage_GetInvalidKey(t *testing.T) {
	st := New(NewSpyBackend(), true, zap.NewNop())
	_, err := st.Get(context.Background(), "not-a-key")
	assert.ErrorIs(t, err, storage.ErrInvalidKey)
}
