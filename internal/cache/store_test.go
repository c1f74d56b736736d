package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type profile struct {
	Name      string
	Followers int
}

func TestReadWriteRoundTrip(t *testing.T) {
	s := New()

	_, ok := s.Read("profile:alice")
	assert.False(t, ok)

	s.Write("profile:alice", profile{Name: "alice", Followers: 3})

	got, ok := Get[profile](s, "profile:alice")
	require.True(t, ok)
	assert.Equal(t, "alice", got.Name)
	assert.Equal(t, 3, got.Followers)

	// 重复读取不改变内容
	again, ok := Get[profile](s, "profile:alice")
	require.True(t, ok)
	assert.Equal(t, got, again)
}

func TestPatchAbsentKeyIsNoop(t *testing.T) {
	s := New()

	applied := s.Patch("profile:ghost", func(v any) any {
		t.Fatal("updater must not run for absent keys")
		return v
	})
	assert.False(t, applied)
	assert.Equal(t, 0, s.Len())
}

func TestPatchValueSkipsOtherTypes(t *testing.T) {
	s := New()
	s.Write("k", "a string")

	ok := PatchValue(s, "k", func(p profile) profile {
		p.Followers++
		return p
	})
	assert.True(t, ok)

	v, _ := Get[string](s, "k")
	assert.Equal(t, "a string", v)
}

func TestPatchMany(t *testing.T) {
	s := New()
	s.Write("users:search:a:1", profile{Followers: 1})
	s.Write("users:search:a:2", profile{Followers: 1})
	s.Write("threads:feed:1", profile{Followers: 1})

	n := s.PatchMany(func(key string) bool {
		return len(key) > 6 && key[:6] == "users:"
	}, func(key string, v any) any {
		p := v.(profile)
		p.Followers++
		return p
	})
	assert.Equal(t, 2, n)

	p, _ := Get[profile](s, "threads:feed:1")
	assert.Equal(t, 1, p.Followers)
}

func TestReconcileEntityFansOutToAllHolders(t *testing.T) {
	s := New()
	ref := UserRef("bob")
	s.WriteWithRefs("profile:bob", profile{Name: "bob", Followers: 5}, ref)
	s.WriteWithRefs("users:followers:alice:1", profile{Name: "bob", Followers: 5}, ref)
	s.Write("profile:carol", profile{Name: "carol"})

	n := s.ReconcileEntity(ref, func(key string, v any) any {
		p := v.(profile)
		p.Followers++
		return p
	})
	assert.Equal(t, 2, n)

	p1, _ := Get[profile](s, "profile:bob")
	p2, _ := Get[profile](s, "users:followers:alice:1")
	p3, _ := Get[profile](s, "profile:carol")
	assert.Equal(t, 6, p1.Followers)
	assert.Equal(t, 6, p2.Followers)
	assert.Equal(t, 0, p3.Followers)
}

func TestWriteWithRefsReplacesOldRefs(t *testing.T) {
	s := New()
	s.WriteWithRefs("k", profile{Name: "bob"}, UserRef("bob"))
	s.WriteWithRefs("k", profile{Name: "dan"}, UserRef("dan"))

	n := s.ReconcileEntity(UserRef("bob"), func(key string, v any) any { return v })
	assert.Equal(t, 0, n)
	n = s.ReconcileEntity(UserRef("dan"), func(key string, v any) any { return v })
	assert.Equal(t, 1, n)
}

func TestInvalidateMarksByPrefix(t *testing.T) {
	s := New()
	s.Write("reveals:sent:1", 1)
	s.Write("reveals:sent:2", 2)
	s.Write("profile:bob", 3)

	s.Invalidate("reveals:sent:")

	assert.True(t, s.Stale("reveals:sent:1"))
	assert.True(t, s.Stale("reveals:sent:2"))
	assert.False(t, s.Stale("profile:bob"))

	// 失效的条目仍然可读
	v, ok := Get[int](s, "reveals:sent:1")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	// 重新写入后不再失效
	s.Write("reveals:sent:1", 10)
	assert.False(t, s.Stale("reveals:sent:1"))
}

func TestDropRemovesByPrefix(t *testing.T) {
	s := New()
	s.WriteWithRefs("thread:t1", 1, ThreadRef("t1"))
	s.Write("thread:t2", 2)
	s.Write("profile:bob", 3)

	s.Drop("thread:")

	_, ok := s.Read("thread:t1")
	assert.False(t, ok)
	_, ok = s.Read("thread:t2")
	assert.False(t, ok)
	_, ok = s.Read("profile:bob")
	assert.True(t, ok)

	// refs of dropped entries are gone too
	assert.Equal(t, 0, s.ReconcileEntity(ThreadRef("t1"), func(key string, v any) any { return v }))
}

func TestClear(t *testing.T) {
	s := New()
	s.Write("a", 1)
	s.Write("b", 2)
	s.Clear()
	assert.Equal(t, 0, s.Len())
}

func TestStaleSubscribedEntryTriggersRefetch(t *testing.T) {
	s := New()
	s.Write("count", 1)

	fetched := make(chan struct{})
	s.RegisterRefetch("count", func(ctx context.Context) (any, error) {
		close(fetched)
		return 2, nil
	})

	release := s.Subscribe("count")
	defer release()

	s.Invalidate("count")

	// stale read still serves the old value and kicks off the refetch
	v, ok := Get[int](s, "count")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	select {
	case <-fetched:
	case <-time.After(2 * time.Second):
		t.Fatal("refetch was not triggered")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if v, _ := Get[int](s, "count"); v == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("refetched value never landed")
		}
		time.Sleep(5 * time.Millisecond)
	}
	assert.False(t, s.Stale("count"))
}

func TestStaleUnsubscribedEntryDoesNotRefetch(t *testing.T) {
	s := New()
	s.Write("count", 1)
	s.RegisterRefetch("count", func(ctx context.Context) (any, error) {
		t.Error("refetch must not run without subscribers")
		return nil, nil
	})

	s.Invalidate("count")
	_, _ = s.Read("count")

	time.Sleep(50 * time.Millisecond)
	v, _ := Get[int](s, "count")
	assert.Equal(t, 1, v)
}

func TestFailedRefetchKeepsStaleValue(t *testing.T) {
	s := New()
	s.Write("count", 1)
	s.RegisterRefetch("count", func(ctx context.Context) (any, error) {
		return nil, errors.New("backend down")
	})

	release := s.Subscribe("count")
	defer release()
	s.Invalidate("count")

	_, _ = s.Read("count")
	time.Sleep(50 * time.Millisecond)

	v, ok := Get[int](s, "count")
	require.True(t, ok)
	assert.Equal(t, 1, v)
	assert.True(t, s.Stale("count"))
}

func TestSubscribeReleaseIsIdempotent(t *testing.T) {
	s := New()
	s.Write("k", 1)

	r1 := s.Subscribe("k")
	r2 := s.Subscribe("k")
	r1()
	r1() // double release must not eat r2's subscription
	_ = r2

	refetched := make(chan struct{})
	s.RegisterRefetch("k", func(ctx context.Context) (any, error) {
		close(refetched)
		return 2, nil
	})
	s.Invalidate("k")
	_, _ = s.Read("k")

	select {
	case <-refetched:
	case <-time.After(2 * time.Second):
		t.Fatal("remaining subscription should keep refetch alive")
	}
}
