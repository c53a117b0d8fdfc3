package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestClient(t *testing.T) (*RedisClient, *miniredis.Miniredis) {
	mini := miniredis.RunT(t)
	client := NewRedisClientFromClient(redis.NewClient(&redis.Options{Addr: mini.Addr()}))
	t.Cleanup(func() { _ = client.Close() })
	return client, mini
}

func TestGetMissReturnsErrCacheMiss(t *testing.T) {
	client, _ := newTestClient(t)
	if _, err := client.Get(context.Background(), "nope"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}
}

func TestJSONRoundTripWithTTL(t *testing.T) {
	client, mini := newTestClient(t)
	ctx := context.Background()

	type row struct {
		Text string `json:"text"`
	}
	if err := client.SetJSON(ctx, "k", []row{{Text: "hello"}}, time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if ttl := mini.TTL("k"); ttl != time.Minute {
		t.Fatalf("expected 1m ttl, got %v", ttl)
	}

	var got []row
	if err := client.GetJSON(ctx, "k", &got); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(got) != 1 || got[0].Text != "hello" {
		t.Fatalf("unexpected value: %+v", got)
	}

	mini.FastForward(2 * time.Minute)
	if err := client.GetJSON(ctx, "k", &got); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected expiry, got %v", err)
	}
}

func TestDeleteRemovesKeys(t *testing.T) {
	client, mini := newTestClient(t)
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c"} {
		if err := client.SetJSON(ctx, k, k, time.Minute); err != nil {
			t.Fatalf("set %s failed: %v", k, err)
		}
	}
	if err := client.Delete(ctx, "a", "b", "missing"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if mini.Exists("a") || mini.Exists("b") {
		t.Fatal("deleted keys still present")
	}
	if !mini.Exists("c") {
		t.Fatal("untouched key was deleted")
	}
}
