package verification

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roombook/api/internal/infrastructure/memcache"
	"github.com/roombook/api/internal/infrastructure/redisx"
)

func newLocalOnly(t *testing.T) *Service {
	t.Helper()
	local := memcache.New(time.Hour)
	t.Cleanup(local.Close)
	return NewService(NoBackend{}, local, nil)
}

func newWithRedis(t *testing.T) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	local := memcache.New(time.Hour)
	t.Cleanup(func() {
		local.Close()
		_ = rdb.Close()
		mr.Close()
	})
	return NewService(redisx.NewCache(rdb), local, nil), mr
}

// stuckBackend reports itself available but never answers within any
// reasonable deadline, simulating a reachable-but-hung Redis.
type stuckBackend struct {
	delay time.Duration
}

func (b stuckBackend) Available() bool { return true }

func (b stuckBackend) Get(context.Context, string) (string, bool, error) {
	time.Sleep(b.delay)
	return "", false, nil
}

func (b stuckBackend) SetEx(context.Context, string, string, time.Duration) error {
	time.Sleep(b.delay)
	return nil
}

func (b stuckBackend) Del(context.Context, string) (bool, error) {
	time.Sleep(b.delay)
	return false, nil
}

func (b stuckBackend) Exists(context.Context, string) (bool, error) {
	time.Sleep(b.delay)
	return false, nil
}

func TestGenerateCode_SixDigits(t *testing.T) {
	s := newLocalOnly(t)
	for range 200 {
		code, err := s.GenerateCode()
		require.NoError(t, err)
		require.Len(t, code, 6)
		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 100000)
		assert.LessOrEqual(t, n, 999999)
	}
}

func TestStoreVerify_LocalOnly(t *testing.T) {
	s := newLocalOnly(t)
	ctx := context.Background()

	s.Store(ctx, "user@owu.edu", "STUDENT", "123456")

	res, ok := s.Verify(ctx, "user@owu.edu", "123456")
	require.True(t, ok)
	assert.Equal(t, "STUDENT", res.Role)
	assert.Equal(t, "user@owu.edu", res.Email)

	// One-time use: the match consumed the record.
	_, ok = s.Verify(ctx, "user@owu.edu", "123456")
	assert.False(t, ok)
}

func TestVerify_UnknownEmail(t *testing.T) {
	s := newLocalOnly(t)
	_, ok := s.Verify(context.Background(), "nobody@owu.edu", "123456")
	assert.False(t, ok)
}

func TestStoreVerify_NormalizesEmail(t *testing.T) {
	s := newLocalOnly(t)
	ctx := context.Background()

	s.Store(ctx, "Foo@Bar.com ", "FACULTY", "123456")

	res, ok := s.Verify(ctx, "  Foo@Bar.com", "123456")
	require.True(t, ok)
	assert.Equal(t, "foo@bar.com", res.Email)
}

func TestVerify_MismatchDoesNotConsume(t *testing.T) {
	s := newLocalOnly(t)
	ctx := context.Background()

	s.Store(ctx, "user@owu.edu", "STUDENT", "123456")

	_, ok := s.Verify(ctx, "user@owu.edu", "000000")
	assert.False(t, ok)

	_, ok = s.Verify(ctx, "user@owu.edu", "123456")
	assert.True(t, ok)
}

func TestVerify_LeadingZerosCompareAsStrings(t *testing.T) {
	s := newLocalOnly(t)
	ctx := context.Background()

	s.Store(ctx, "user@owu.edu", "STUDENT", "007123")

	_, ok := s.Verify(ctx, "user@owu.edu", "7123")
	assert.False(t, ok)

	_, ok = s.Verify(ctx, "user@owu.edu", "007123")
	assert.True(t, ok)
}

func TestStore_OverwritesPreviousCode(t *testing.T) {
	s := newLocalOnly(t)
	ctx := context.Background()

	s.Store(ctx, "user@owu.edu", "STUDENT", "111111")
	s.Store(ctx, "user@owu.edu", "STUDENT", "222222")

	_, ok := s.Verify(ctx, "user@owu.edu", "111111")
	assert.False(t, ok)

	_, ok = s.Verify(ctx, "user@owu.edu", "222222")
	assert.True(t, ok)
}

func TestVerify_ExpiredCode(t *testing.T) {
	s := newLocalOnly(t)
	s.ttl = 10 * time.Millisecond
	ctx := context.Background()

	s.Store(ctx, "user@owu.edu", "STUDENT", "123456")
	time.Sleep(20 * time.Millisecond)

	_, ok := s.Verify(ctx, "user@owu.edu", "123456")
	assert.False(t, ok)
}

func TestHasPending_LocalOnly(t *testing.T) {
	s := newLocalOnly(t)
	ctx := context.Background()

	assert.False(t, s.HasPending(ctx, "user@owu.edu"))

	s.Store(ctx, "user@owu.edu", "STUDENT", "123456")

	assert.True(t, s.HasPending(ctx, "User@OWU.edu "))
	// Non-destructive: the code is still verifiable.
	_, ok := s.Verify(ctx, "user@owu.edu", "123456")
	assert.True(t, ok)
}

func TestVerify_MalformedPayloadIsNotFound(t *testing.T) {
	local := memcache.New(time.Hour)
	defer local.Close()
	s := NewService(NoBackend{}, local, nil)

	local.Put(keyPrefix+"user@owu.edu", "{not json", CodeTTL)

	_, ok := s.Verify(context.Background(), "user@owu.edu", "123456")
	assert.False(t, ok)
}

func TestConcurrentVerify_ExactlyOneWinner(t *testing.T) {
	s := newLocalOnly(t)
	ctx := context.Background()

	s.Store(ctx, "user@owu.edu", "STUDENT", "123456")

	const n = 8
	var wg sync.WaitGroup
	results := make(chan bool, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := s.Verify(ctx, "user@owu.edu", "123456")
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	winners := 0
	for ok := range results {
		if ok {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
}

func TestStoreVerify_RedisPath(t *testing.T) {
	s, mr := newWithRedis(t)
	ctx := context.Background()

	s.Store(ctx, "user@owu.edu", "ADMIN", "654321")
	assert.True(t, mr.Exists(keyPrefix+"user@owu.edu"))

	res, ok := s.Verify(ctx, "user@owu.edu", "654321")
	require.True(t, ok)
	assert.Equal(t, "ADMIN", res.Role)
	assert.False(t, mr.Exists(keyPrefix+"user@owu.edu"))

	_, ok = s.Verify(ctx, "user@owu.edu", "654321")
	assert.False(t, ok)
}

func TestHasPending_RedisPath(t *testing.T) {
	s, _ := newWithRedis(t)
	ctx := context.Background()

	assert.False(t, s.HasPending(ctx, "user@owu.edu"))
	s.Store(ctx, "user@owu.edu", "ADMIN", "654321")
	assert.True(t, s.HasPending(ctx, "user@owu.edu"))
}

func TestVerify_RedisExpiry(t *testing.T) {
	s, mr := newWithRedis(t)
	ctx := context.Background()

	s.Store(ctx, "user@owu.edu", "ADMIN", "654321")
	mr.FastForward(CodeTTL + time.Minute)

	_, ok := s.Verify(ctx, "user@owu.edu", "654321")
	assert.False(t, ok)
}

func TestConcurrentVerify_RedisPath_ExactlyOneWinner(t *testing.T) {
	s, _ := newWithRedis(t)
	ctx := context.Background()

	s.Store(ctx, "user@owu.edu", "STUDENT", "123456")

	const n = 8
	var wg sync.WaitGroup
	results := make(chan bool, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := s.Verify(ctx, "user@owu.edu", "123456")
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	winners := 0
	for ok := range results {
		if ok {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
}

func TestStore_RedisDownFallsBackToMemory(t *testing.T) {
	s, mr := newWithRedis(t)
	ctx := context.Background()
	mr.Close()

	s.Store(ctx, "user@owu.edu", "STUDENT", "123456")

	res, ok := s.Verify(ctx, "user@owu.edu", "123456")
	require.True(t, ok)
	assert.Equal(t, "STUDENT", res.Role)
}

// noDeleteBackend serves reads and writes from a map but cannot confirm
// deletes: Del errors out, or hangs when delay is set.
type noDeleteBackend struct {
	mu    sync.Mutex
	data  map[string]string
	delay time.Duration
}

func newNoDeleteBackend(delay time.Duration) *noDeleteBackend {
	return &noDeleteBackend{data: make(map[string]string), delay: delay}
}

func (b *noDeleteBackend) Available() bool { return true }

func (b *noDeleteBackend) Get(_ context.Context, key string) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.data[key]
	return v, ok, nil
}

func (b *noDeleteBackend) SetEx(_ context.Context, key, value string, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = value
	return nil
}

func (b *noDeleteBackend) Del(context.Context, string) (bool, error) {
	if b.delay > 0 {
		time.Sleep(b.delay)
	}
	return false, errors.New("connection reset")
}

func (b *noDeleteBackend) Exists(_ context.Context, key string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.data[key]
	return ok, nil
}

func TestVerify_RedisDeleteFailsStillConsumes(t *testing.T) {
	local := memcache.New(time.Hour)
	defer local.Close()
	s := NewService(newNoDeleteBackend(0), local, nil)
	ctx := context.Background()

	s.Store(ctx, "user@owu.edu", "STUDENT", "123456")
	// A stale copy in the local tier, as left behind by an earlier
	// fallback write. The unconfirmed redis delete must clear it.
	local.Put("verification:code:user@owu.edu", `{"code":"123456","role":"STUDENT","email":"user@owu.edu"}`, time.Hour)

	res, ok := s.Verify(ctx, "user@owu.edu", "123456")
	require.True(t, ok)
	assert.Equal(t, "STUDENT", res.Role)
	assert.False(t, local.Has("verification:code:user@owu.edu"))
}

func TestVerify_RedisDeleteHangsStillConsumes(t *testing.T) {
	local := memcache.New(time.Hour)
	defer local.Close()
	s := NewService(newNoDeleteBackend(time.Second), local, nil)
	s.verifyTimeout = 30 * time.Millisecond
	ctx := context.Background()

	s.Store(ctx, "user@owu.edu", "STUDENT", "123456")
	local.Put("verification:code:user@owu.edu", `{"code":"123456","role":"STUDENT","email":"user@owu.edu"}`, time.Hour)

	start := time.Now()
	res, ok := s.Verify(ctx, "user@owu.edu", "123456")
	require.True(t, ok)
	assert.Equal(t, "STUDENT", res.Role)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.False(t, local.Has("verification:code:user@owu.edu"))
}

func TestStore_HungRedisBoundedLatency(t *testing.T) {
	local := memcache.New(time.Hour)
	defer local.Close()
	s := NewService(stuckBackend{delay: time.Second}, local, nil)
	s.storeTimeout = 20 * time.Millisecond
	s.verifyTimeout = 30 * time.Millisecond
	ctx := context.Background()

	start := time.Now()
	s.Store(ctx, "user@owu.edu", "STUDENT", "123456")
	assert.Less(t, time.Since(start), 200*time.Millisecond)

	// The record landed in the local tier and the hung backend does not
	// block verification either.
	start = time.Now()
	res, ok := s.Verify(ctx, "user@owu.edu", "123456")
	require.True(t, ok)
	assert.Equal(t, "STUDENT", res.Role)
	assert.Less(t, time.Since(start), 200*time.Millisecond)
}

func TestHasPending_HungRedisFallsBackToMemory(t *testing.T) {
	local := memcache.New(time.Hour)
	defer local.Close()
	s := NewService(stuckBackend{delay: time.Second}, local, nil)
	s.storeTimeout = 20 * time.Millisecond
	s.verifyTimeout = 30 * time.Millisecond
	ctx := context.Background()

	s.Store(ctx, "user@owu.edu", "STUDENT", "123456")
	assert.True(t, s.HasPending(ctx, "user@owu.edu"))
}

func TestTimeoutOrdering(t *testing.T) {
	s := newLocalOnly(t)
	assert.LessOrEqual(t, s.storeTimeout, s.verifyTimeout)
}
