package call

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestFunc_Call(t *testing.T) {
	double := Func[int, int](func(_ context.Context, in int) (int, error) {
		return in * 2, nil
	})

	got, err := double.Call(context.Background(), 21)
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if got != 42 {
		t.Errorf("Call() = %d, want 42", got)
	}
}

func TestChain_Order(t *testing.T) {
	var trace []string

	inner := Func[string, string](func(_ context.Context, in string) (string, error) {
		trace = append(trace, "inner")
		return in, nil
	})

	tag := func(name string) Wrapper[string, string] {
		return func(next Callable[string, string]) Callable[string, string] {
			return Func[string, string](func(ctx context.Context, in string) (string, error) {
				trace = append(trace, name)
				return next.Call(ctx, in)
			})
		}
	}

	c := Chain[string, string](inner, tag("outer"), nil, tag("middle"))
	if _, err := c.Call(context.Background(), "x"); err != nil {
		t.Fatalf("Call() error = %v", err)
	}

	if got := strings.Join(trace, ","); got != "outer,middle,inner" {
		t.Errorf("call order = %s, want outer,middle,inner", got)
	}
}

func TestGo_AwaitReturnsResult(t *testing.T) {
	slow := Func[int, int](func(_ context.Context, in int) (int, error) {
		time.Sleep(5 * time.Millisecond)
		return in + 1, nil
	})

	f := Go[int, int](context.Background(), slow, 1)
	got, err := f.Await(context.Background())
	if err != nil {
		t.Fatalf("Await() error = %v", err)
	}
	if got != 2 {
		t.Errorf("Await() = %d, want 2", got)
	}

	select {
	case <-f.Done():
	default:
		t.Error("Done() not closed after Await returned")
	}
}

func TestGo_PropagatesError(t *testing.T) {
	boom := errors.New("boom")
	failing := Func[int, int](func(_ context.Context, _ int) (int, error) {
		return 0, boom
	})

	_, err := Go[int, int](context.Background(), failing, 1).Await(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("Await() error = %v, want %v", err, boom)
	}
}

func TestGo_AwaitCancelledLeavesCallRunning(t *testing.T) {
	release := make(chan struct{})
	var finished atomic.Bool
	blocked := Func[int, int](func(_ context.Context, in int) (int, error) {
		<-release
		finished.Store(true)
		return in, nil
	})

	f := Go[int, int](context.Background(), blocked, 7)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.Await(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Await() error = %v, want context.Canceled", err)
	}

	close(release)
	got, err := f.Await(context.Background())
	if err != nil || got != 7 {
		t.Errorf("Await() = (%d, %v), want (7, nil)", got, err)
	}
	if !finished.Load() {
		t.Error("underlying call did not complete")
	}
}

func TestGo_RunsConcurrently(t *testing.T) {
	sleep := Func[int, int](func(_ context.Context, in int) (int, error) {
		time.Sleep(20 * time.Millisecond)
		return in, nil
	})

	start := time.Now()
	futures := make([]*Future[int], 5)
	for i := range futures {
		futures[i] = Go[int, int](context.Background(), sleep, i)
	}

	got, err := AwaitAll(context.Background(), futures...)
	if err != nil {
		t.Fatalf("AwaitAll() error = %v", err)
	}
	for i, v := range got {
		if v != i {
			t.Errorf("result[%d] = %d, want %d", i, v, i)
		}
	}

	if elapsed := time.Since(start); elapsed > 90*time.Millisecond {
		t.Errorf("5 concurrent 20ms calls took %v, want well under 100ms", elapsed)
	}
}
