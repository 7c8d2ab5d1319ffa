package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"cpathways/cprules/pkg/audit"
)

func newRedisStorage(t *testing.T) (*RedisStorage, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStorageFromClient(client, "test:"), mr
}

func TestRedisStorage_DuplicateID(t *testing.T) {
	s, _ := newRedisStorage(t)
	ctx := context.Background()

	r := newRecord(1, "elements.move", "allow", true)
	if err := s.Store(ctx, r); err != nil {
		t.Fatalf("first Store() failed: %v", err)
	}
	err := s.Store(ctx, r)
	if !errors.Is(err, errDuplicateID) {
		t.Fatalf("expected duplicate ID error, got %v", err)
	}
	if n, _ := s.Count(ctx, &audit.Query{}); n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
}

func TestRedisStorage_Keys(t *testing.T) {
	s, mr := newRedisStorage(t)

	if err := s.Store(context.Background(), newRecord(7, "elements.move", "allow", true)); err != nil {
		t.Fatal(err)
	}
	if !mr.Exists("test:record:rec-007") {
		t.Error("record key missing")
	}
	members, err := mr.ZMembers("test:index")
	if err != nil || len(members) != 1 || members[0] != "rec-007" {
		t.Errorf("index = %v, %v", members, err)
	}
	score, _ := mr.ZScore("test:index", "rec-007")
	if want := float64(baseTime.Add(7 * time.Minute).UnixMicro()); score != want {
		t.Errorf("score = %v, want %v", score, want)
	}
}

func TestRedisStorage_SkipsStaleIndex(t *testing.T) {
	s, mr := newRedisStorage(t)
	seed(t, s)

	mr.Del("test:record:rec-003")

	records, err := s.Query(context.Background(), &audit.Query{SortOrder: "asc"})
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("got %d records, want 4", len(records))
	}
	for _, r := range records {
		if r.ID == "rec-003" {
			t.Error("deleted record returned")
		}
	}
}

func TestRedisStorage_SubMicrosecondBounds(t *testing.T) {
	s, _ := newRedisStorage(t)
	ctx := context.Background()

	r := newRecord(1, "elements.move", "allow", true)
	r.EvaluatedAt = baseTime.Add(500 * time.Nanosecond)
	if err := s.Store(ctx, r); err != nil {
		t.Fatal(err)
	}

	// Same microsecond as the record, but before it.
	end := baseTime.Add(100 * time.Nanosecond)
	if n, _ := s.Count(ctx, &audit.Query{EndTime: &end}); n != 0 {
		t.Errorf("Count(end before record) = %d, want 0", n)
	}
	start := baseTime.Add(100 * time.Nanosecond)
	if n, _ := s.Count(ctx, &audit.Query{StartTime: &start}); n != 1 {
		t.Errorf("Count(start before record) = %d, want 1", n)
	}
}

func TestRedisStorage_CloseKeepsSharedClient(t *testing.T) {
	s, _ := newRedisStorage(t)
	if err := s.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if err := s.client.Ping(context.Background()).Err(); err != nil {
		t.Errorf("shared client closed: %v", err)
	}
}

func TestNewRedisStorage_Unreachable(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	addr := mr.Addr()
	mr.Close()

	_, err = NewRedisStorage(&RedisConfig{Address: addr, DialTimeout: 200 * time.Millisecond})
	var se *audit.StorageError
	if !errors.As(err, &se) || se.Operation != "connect" {
		t.Fatalf("expected connect StorageError, got %v", err)
	}
}
