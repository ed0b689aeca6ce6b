package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func counter(n *int, value string, topics ...Topic) LoadFunc[string] {
	return func(context.Context) (string, []Topic, error) {
		*n++
		return value, topics, nil
	}
}

func TestLoadCachesUntilInvalidated(t *testing.T) {
	t.Parallel()

	r := New(time.Minute)
	ctx := context.Background()
	calls := 0
	topics := []Topic{StreamTopic("Stream SP"), AppTopic(1)}

	for i := 0; i < 3; i++ {
		v, err := Load(ctx, r, "stream:sp", counter(&calls, "v1", topics...))
		if err != nil || v != "v1" {
			t.Fatalf("Load() = %q, %v", v, err)
		}
	}
	if calls != 1 {
		t.Fatalf("loads = %d, want 1", calls)
	}

	r.Invalidate(AppTopic(2))
	if _, err := Load(ctx, r, "stream:sp", counter(&calls, "v1", topics...)); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Fatalf("unrelated invalidation reloaded: loads = %d", calls)
	}

	r.Invalidate(AppTopic(1))
	v, err := Load(ctx, r, "stream:sp", counter(&calls, "v2", topics...))
	if err != nil || v != "v2" {
		t.Fatalf("Load() after invalidate = %q, %v", v, err)
	}
	if calls != 2 {
		t.Fatalf("loads = %d, want 2", calls)
	}
}

func TestStreamTopicNormalizesName(t *testing.T) {
	t.Parallel()

	if StreamTopic("Stream SP") != StreamTopic("sp") {
		t.Fatalf("%q != %q", StreamTopic("Stream SP"), StreamTopic("sp"))
	}
	if got := AppTopic(7).Kind(); got != "app" {
		t.Fatalf("Kind() = %q, want app", got)
	}
}

func TestNilRegistryPassesThrough(t *testing.T) {
	t.Parallel()

	var r *Registry
	if r.Enabled() {
		t.Fatal("nil registry reports enabled")
	}
	if New(0) != nil {
		t.Fatal("New(0) should disable caching")
	}
	calls := 0
	for i := 0; i < 2; i++ {
		if _, err := Load(context.Background(), r, "k", counter(&calls, "v")); err != nil {
			t.Fatal(err)
		}
	}
	if calls != 2 {
		t.Fatalf("loads = %d, want 2", calls)
	}
	r.Invalidate(StreamsAll)
	r.Flush()
	if r.Len() != 0 {
		t.Fatal("nil registry has entries")
	}
}

func TestLoadErrorsAreNotCached(t *testing.T) {
	t.Parallel()

	r := New(time.Minute)
	boom := errors.New("boom")
	calls := 0
	var load LoadFunc[int] = func(context.Context) (int, []Topic, error) {
		calls++
		if calls == 1 {
			return 0, nil, boom
		}
		return 42, nil, nil
	}
	if _, err := Load(context.Background(), r, "k", load); !errors.Is(err, boom) {
		t.Fatalf("Load() error = %v, want boom", err)
	}
	v, err := Load(context.Background(), r, "k", load)
	if err != nil || v != 42 {
		t.Fatalf("Load() = %d, %v", v, err)
	}
}

func TestInvalidationDuringLoadSkipsStore(t *testing.T) {
	t.Parallel()

	r := New(time.Minute)
	calls := 0
	var load LoadFunc[string] = func(context.Context) (string, []Topic, error) {
		calls++
		r.Invalidate(ConnectionTypesAll)
		return "stale", []Topic{ConnectionTypesAll}, nil
	}
	if _, err := Load(context.Background(), r, "k", load); err != nil {
		t.Fatal(err)
	}
	if r.Len() != 0 {
		t.Fatalf("Len() = %d, want stale value dropped", r.Len())
	}
	if _, err := Load(context.Background(), r, "k", load); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Fatalf("loads = %d, want 2", calls)
	}
}

func TestFlush(t *testing.T) {
	t.Parallel()

	r := New(time.Minute)
	calls := 0
	_, _ = Load(context.Background(), r, "a", counter(&calls, "a", StreamsAll))
	_, _ = Load(context.Background(), r, "b", counter(&calls, "b"))
	if r.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", r.Len())
	}
	r.Flush()
	if r.Len() != 0 {
		t.Fatalf("Len() = %d after Flush", r.Len())
	}
}
