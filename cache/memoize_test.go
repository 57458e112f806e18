package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jikan4/jikan4/call"
	"github.com/jikan4/jikan4/observe"
)

// countingAdd mirrors a decorated add(a, b) with a call counter.
type countingAdd struct {
	calls atomic.Int64
}

func (c *countingAdd) Call(_ context.Context, in Args) (int, error) {
	c.calls.Add(1)
	sum := 0
	for _, v := range in.Positional {
		sum += v.(int)
	}
	for _, v := range in.Named {
		sum += v.(int)
	}
	return sum, nil
}

// recordingMetrics captures cache telemetry.
type recordingMetrics struct {
	mu        sync.Mutex
	hits      int
	misses    int
	evictions int
}

func (r *recordingMetrics) RecordCall(context.Context, observe.CallMeta, time.Duration, error) {}
func (r *recordingMetrics) RecordThrottle(context.Context, observe.CallMeta, time.Duration)    {}

func (r *recordingMetrics) RecordCacheLookup(_ context.Context, _ observe.CallMeta, hit bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if hit {
		r.hits++
	} else {
		r.misses++
	}
}

func (r *recordingMetrics) RecordEviction(context.Context, observe.CallMeta) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evictions++
}

func TestMemoize_DecoratedAdd(t *testing.T) {
	lru := mustLRU[int](t, 2)
	add := &countingAdd{}
	m := Memoize[Args, int](lru, add)
	ctx := context.Background()

	steps := []struct {
		args Args
		want int
	}{
		{A(1, 2), 3},
		{A(1, 5), 6},
		{A(1, 3), 4},
		{A(1, 2), 3},
		{A(4, 3), 7},
	}
	for _, s := range steps {
		got, err := m.Call(ctx, s.args)
		if err != nil {
			t.Fatalf("Call(%v) error = %v", s.args, err)
		}
		if got != s.want {
			t.Errorf("Call(%v) = %d, want %d", s.args.Positional, got, s.want)
		}
	}

	if lru.Len() != 2 {
		t.Errorf("Len() = %d, want 2", lru.Len())
	}
	for _, args := range []Args{A(1, 2), A(4, 3)} {
		if !lru.Contains(m.Key(args)) {
			t.Errorf("cache should hold %v", args.Positional)
		}
	}
	for _, args := range []Args{A(1, 3), A(1, 5)} {
		if lru.Contains(m.Key(args)) {
			t.Errorf("cache should not hold %v", args.Positional)
		}
	}

	// Named arguments take part in the key.
	if _, err := m.Call(ctx, A(1).With("b", 2)); err != nil {
		t.Fatal(err)
	}
	if !lru.Contains(m.Key(A(1).With("b", 2))) {
		t.Error("cache should hold the named-argument call")
	}
	if m.Key(A(1, 2)) == m.Key(A(1).With("b", 2)) {
		t.Error("positional and named calls must not share a key")
	}
}

func TestMemoize_IdempotentHit(t *testing.T) {
	add := &countingAdd{}
	m := Memoize[Args, int](mustLRU[int](t, DefaultCapacity), add)
	ctx := context.Background()

	first, _ := m.Call(ctx, A(1, 2))
	second, _ := m.Call(ctx, A(1, 2))

	if first != second {
		t.Errorf("results differ: %d vs %d", first, second)
	}
	if n := add.calls.Load(); n != 1 {
		t.Errorf("inner calls = %d, want 1", n)
	}
}

func TestMemoize_NamedOrderInsensitive(t *testing.T) {
	add := &countingAdd{}
	m := Memoize[Args, int](mustLRU[int](t, 4), add)
	ctx := context.Background()

	_, _ = m.Call(ctx, Args{Named: map[string]any{"a": 1, "b": 2}})
	_, _ = m.Call(ctx, Args{Named: map[string]any{"b": 2, "a": 1}})

	if n := add.calls.Load(); n != 1 {
		t.Errorf("inner calls = %d, want 1", n)
	}
}

func TestMemoize_FailureNotCached(t *testing.T) {
	boom := errors.New("upstream 503")
	var calls int
	flaky := call.Func[int, string](func(_ context.Context, in int) (string, error) {
		calls++
		if calls == 1 {
			return "", boom
		}
		return "ok", nil
	})

	lru := mustLRU[string](t, 4)
	m := Memoize[int, string](lru, flaky)
	ctx := context.Background()

	if _, err := m.Call(ctx, 1); !errors.Is(err, boom) {
		t.Fatalf("first Call() error = %v, want %v", err, boom)
	}
	if lru.Len() != 0 {
		t.Errorf("failure populated the cache: Len() = %d", lru.Len())
	}

	got, err := m.Call(ctx, 1)
	if err != nil || got != "ok" {
		t.Fatalf("second Call() = (%q, %v), want (ok, nil)", got, err)
	}
	if calls != 2 {
		t.Errorf("inner calls = %d, want 2", calls)
	}

	if _, err := m.Call(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("success was not cached: inner calls = %d", calls)
	}
}

func TestMemoize_HitIndependentOfInnerLatency(t *testing.T) {
	slow := call.Func[string, string](func(_ context.Context, in string) (string, error) {
		time.Sleep(50 * time.Millisecond)
		return in, nil
	})
	m := Memoize[string, string](mustLRU[string](t, 4), slow)
	ctx := context.Background()

	if _, err := m.Call(ctx, "naruto"); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	for i := 0; i < 100; i++ {
		if _, err := m.Call(ctx, "naruto"); err != nil {
			t.Fatal(err)
		}
	}
	if elapsed := time.Since(start); elapsed > 25*time.Millisecond {
		t.Errorf("100 hits took %v, want far less than one inner call", elapsed)
	}
}

func TestMemoize_ConcurrentMissesNotDeduplicated(t *testing.T) {
	var calls atomic.Int64
	arrived := make(chan struct{}, 2)
	release := make(chan struct{})

	inner := call.Func[int, int](func(_ context.Context, in int) (int, error) {
		calls.Add(1)
		arrived <- struct{}{}
		<-release
		return in, nil
	})
	m := Memoize[int, int](mustLRU[int](t, 4), inner)

	f1 := call.Go[int, int](context.Background(), m, 1)
	f2 := call.Go[int, int](context.Background(), m, 1)
	<-arrived
	<-arrived
	close(release)

	if _, err := call.AwaitAll(context.Background(), f1, f2); err != nil {
		t.Fatal(err)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("inner calls = %d, want 2 without singleflight", n)
	}
	if m.Cache().Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Cache().Len())
	}
}

func TestMemoize_SingleflightCoalesces(t *testing.T) {
	var calls atomic.Int64
	started := make(chan struct{})
	release := make(chan struct{})

	inner := call.Func[int, int](func(_ context.Context, in int) (int, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		return in * 10, nil
	})
	m := Memoize[int, int](mustLRU[int](t, 4), inner, WithSingleflight())

	leader := call.Go[int, int](context.Background(), m, 3)
	<-started

	followers := make([]*call.Future[int], 4)
	for i := range followers {
		followers[i] = call.Go[int, int](context.Background(), m, 3)
	}
	// Give followers time to join the in-flight call.
	time.Sleep(20 * time.Millisecond)
	close(release)

	results, err := call.AwaitAll(context.Background(), append(followers, leader)...)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range results {
		if r != 30 {
			t.Errorf("result = %d, want 30", r)
		}
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("inner calls = %d, want 1 with singleflight", n)
	}
}

func TestMemoize_SingleflightLeaderCancelDoesNotFailFollowers(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int64

	inner := call.Func[int, int](func(ctx context.Context, in int) (int, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		select {
		case <-release:
			return in * 10, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	})
	m := Memoize[int, int](mustLRU[int](t, 4), inner, WithSingleflight())

	leaderCtx, cancel := context.WithCancel(context.Background())
	leader := call.Go[int, int](leaderCtx, m, 3)
	<-started

	follower := call.Go[int, int](context.Background(), m, 3)
	// Give the follower time to join the in-flight call.
	time.Sleep(20 * time.Millisecond)

	cancel()
	if _, err := leader.Await(context.Background()); !errors.Is(err, context.Canceled) {
		t.Errorf("leader err = %v, want context.Canceled", err)
	}
	close(release)

	got, err := follower.Await(context.Background())
	if err != nil || got != 30 {
		t.Errorf("follower = (%d, %v), want (30, nil)", got, err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("inner calls = %d, want 1", n)
	}
	if v, ok := m.Cache().Get(m.Key(3)); !ok || v != 30 {
		t.Errorf("cached = (%d, %v), want (30, true)", v, ok)
	}
}

func TestMemoize_SingleflightFailureNotCached(t *testing.T) {
	boom := errors.New("boom")
	inner := call.Func[int, any](func(_ context.Context, _ int) (any, error) {
		return nil, boom
	})
	m := Memoize[int, any](mustLRU[any](t, 4), inner, WithSingleflight())

	v, err := m.Call(context.Background(), 1)
	if !errors.Is(err, boom) || v != nil {
		t.Errorf("Call() = (%v, %v), want (nil, boom)", v, err)
	}
	if m.Cache().Len() != 0 {
		t.Error("failure populated the cache")
	}
}

func TestMemoize_ReportsTelemetry(t *testing.T) {
	rec := &recordingMetrics{}
	m := Memoize[Args, int](mustLRU[int](t, 1), &countingAdd{},
		WithMetrics(rec),
		WithLogger(observe.NopLogger()),
		WithCallMeta(observe.CallMeta{Component: "test", Name: "add"}),
	)
	ctx := context.Background()

	_, _ = m.Call(ctx, A(1, 1)) // miss
	_, _ = m.Call(ctx, A(1, 1)) // hit
	_, _ = m.Call(ctx, A(2, 2)) // miss, evicts (1,1)

	if rec.hits != 1 || rec.misses != 2 || rec.evictions != 1 {
		t.Errorf("hits=%d misses=%d evictions=%d, want 1/2/1", rec.hits, rec.misses, rec.evictions)
	}
}

func TestMemoize_CustomKeyer(t *testing.T) {
	add := &countingAdd{}
	byFirst := KeyFunc(func(in any) Key {
		return NewCodec().Key(in.(Args).Positional[0])
	})
	m := Memoize[Args, int](mustLRU[int](t, 4), add, WithKeyer(byFirst))
	ctx := context.Background()

	_, _ = m.Call(ctx, A(1, 2))
	got, _ := m.Call(ctx, A(1, 99))

	if got != 3 || add.calls.Load() != 1 {
		t.Errorf("custom keyer ignored: got=%d calls=%d", got, add.calls.Load())
	}
}

func TestMemoize_NilCache(t *testing.T) {
	m := Memoize[Args, int](nil, &countingAdd{})
	if _, err := m.Call(context.Background(), A(1)); !errors.Is(err, ErrNilCache) {
		t.Errorf("Call() error = %v, want %v", err, ErrNilCache)
	}
}

func TestWrap_ChainsWithCall(t *testing.T) {
	add := &countingAdd{}
	lru := mustLRU[int](t, 4)
	c := call.Chain[Args, int](add, Wrap[Args, int](lru))

	for i := 0; i < 3; i++ {
		if _, err := c.Call(context.Background(), A(2, 2)); err != nil {
			t.Fatal(err)
		}
	}
	if add.calls.Load() != 1 {
		t.Errorf("inner calls = %d, want 1", add.calls.Load())
	}
}

func TestMemoize_SuspendingStyleSameSemantics(t *testing.T) {
	add := &countingAdd{}
	m := Memoize[Args, int](mustLRU[int](t, 4), add)
	ctx := context.Background()

	first, err := call.Go[Args, int](ctx, m, A(5, 5)).Await(ctx)
	if err != nil {
		t.Fatal(err)
	}
	second, err := call.Go[Args, int](ctx, m, A(5, 5)).Await(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if first != 10 || second != 10 {
		t.Errorf("results = %d, %d, want 10", first, second)
	}
	if add.calls.Load() != 1 {
		t.Errorf("inner calls = %d, want 1", add.calls.Load())
	}
}
