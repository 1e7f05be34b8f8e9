package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryBackendStringTTL(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()

	if err := b.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	val, ok, err := b.Get(ctx, "k")
	if err != nil || !ok || val != "v" {
		t.Fatalf("Get = %q, %v, %v", val, ok, err)
	}

	b.Now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, ok, err = b.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Fatal("expected expired key to be gone")
	}
}

func TestMemoryBackendHashIncrement(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()

	if err := b.HSet(ctx, "h", map[string]string{"count": "5", "title": "t"}); err != nil {
		t.Fatalf("HSet failed: %v", err)
	}
	n, err := b.HIncrBy(ctx, "h", "count", 2)
	if err != nil {
		t.Fatalf("HIncrBy failed: %v", err)
	}
	if n != 7 {
		t.Fatalf("expected 7, got %d", n)
	}

	// Incrementing an absent field starts from zero.
	n, err = b.HIncrBy(ctx, "h", "other", 3)
	if err != nil {
		t.Fatalf("HIncrBy failed: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3, got %d", n)
	}

	fields, err := b.HGetAll(ctx, "h")
	if err != nil {
		t.Fatalf("HGetAll failed: %v", err)
	}
	if fields["count"] != "7" || fields["title"] != "t" {
		t.Fatalf("unexpected hash: %+v", fields)
	}
}

func TestMemoryBackendListTrim(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()

	if err := b.RPush(ctx, "l", "a", "b", "c", "d", "e"); err != nil {
		t.Fatalf("RPush failed: %v", err)
	}
	if err := b.LTrim(ctx, "l", -3, -1); err != nil {
		t.Fatalf("LTrim failed: %v", err)
	}

	items, err := b.LRange(ctx, "l", 0, -1)
	if err != nil {
		t.Fatalf("LRange failed: %v", err)
	}
	if len(items) != 3 || items[0] != "c" || items[2] != "e" {
		t.Fatalf("expected [c d e], got %v", items)
	}

	n, err := b.LLen(ctx, "l")
	if err != nil || n != 3 {
		t.Fatalf("LLen = %d, %v", n, err)
	}

	tail, err := b.LRange(ctx, "l", -2, -1)
	if err != nil {
		t.Fatalf("LRange failed: %v", err)
	}
	if len(tail) != 2 || tail[0] != "d" {
		t.Fatalf("expected [d e], got %v", tail)
	}
}

func TestMemoryBackendSet(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()

	if err := b.SAdd(ctx, "s", "x", "y", "x"); err != nil {
		t.Fatalf("SAdd failed: %v", err)
	}
	members, err := b.SMembers(ctx, "s")
	if err != nil {
		t.Fatalf("SMembers failed: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %v", members)
	}

	if err := b.SRem(ctx, "s", "x"); err != nil {
		t.Fatalf("SRem failed: %v", err)
	}
	members, _ = b.SMembers(ctx, "s")
	if len(members) != 1 || members[0] != "y" {
		t.Fatalf("expected [y], got %v", members)
	}
}

func TestMemoryBackendSortedSetWindow(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()

	for i, score := range []float64{100, 200, 300} {
		if err := b.ZAdd(ctx, "z", score, string(rune('a'+i))); err != nil {
			t.Fatalf("ZAdd failed: %v", err)
		}
	}

	if err := b.ZRemRangeByScore(ctx, "z", 0, 150); err != nil {
		t.Fatalf("ZRemRangeByScore failed: %v", err)
	}
	n, err := b.ZCard(ctx, "z")
	if err != nil {
		t.Fatalf("ZCard failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 members after trim, got %d", n)
	}
}

func TestMemoryBackendDelAndExpire(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()

	_ = b.Set(ctx, "a", "1", 0)
	_ = b.Set(ctx, "b", "2", 0)
	if err := b.Del(ctx, "a", "b"); err != nil {
		t.Fatalf("Del failed: %v", err)
	}
	if _, ok, _ := b.Get(ctx, "a"); ok {
		t.Fatal("expected a deleted")
	}

	_ = b.Set(ctx, "c", "3", 0)
	if err := b.Expire(ctx, "c", time.Minute); err != nil {
		t.Fatalf("Expire failed: %v", err)
	}
	b.Now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, ok, _ := b.Get(ctx, "c"); ok {
		t.Fatal("expected c expired")
	}
}
