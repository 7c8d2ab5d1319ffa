package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"cpathways/cprules/pkg/audit"
)

// errDuplicateID is returned when a record ID is already stored.
var errDuplicateID = errors.New("record ID already exists")

// redisBatch bounds the keys sent in one MGET or DEL.
const redisBatch = 500

// RedisConfig holds configuration for RedisStorage.
type RedisConfig struct {
	// Address is "host:port".
	// Default: "localhost:6379"
	Address string

	Password string
	DB       int

	// Prefix namespaces every key.
	// Default: "cprules:audit:"
	Prefix string

	// DialTimeout bounds connecting and the startup ping.
	// Default: 5s
	DialTimeout time.Duration
}

// DefaultRedisConfig returns a RedisConfig with defaults.
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Address:     "localhost:6379",
		Prefix:      "cprules:audit:",
		DialTimeout: 5 * time.Second,
	}
}

// RedisStorage implements audit.Storage on Redis. Each record is a JSON
// string under "<prefix>record:<id>"; a sorted set "<prefix>index" scores
// record IDs by evaluation time in microseconds.
type RedisStorage struct {
	client     *redis.Client
	prefix     string
	ownsClient bool
}

// NewRedisStorage connects to Redis and verifies the connection.
func NewRedisStorage(config *RedisConfig) (*RedisStorage, error) {
	defaults := DefaultRedisConfig()
	if config == nil {
		config = defaults
	}
	addr := config.Address
	if addr == "" {
		addr = defaults.Address
	}
	dialTimeout := config.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = defaults.DialTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    config.Password,
		DB:          config.DB,
		DialTimeout: dialTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, audit.NewStorageError("redis", "connect", fmt.Errorf("ping %s: %w", addr, err))
	}

	s := NewRedisStorageFromClient(client, config.Prefix)
	s.ownsClient = true
	return s, nil
}

// NewRedisStorageFromClient wraps an existing client. Close leaves the
// client open.
func NewRedisStorageFromClient(client *redis.Client, prefix string) *RedisStorage {
	if prefix == "" {
		prefix = DefaultRedisConfig().Prefix
	}
	return &RedisStorage{client: client, prefix: prefix}
}

func (s *RedisStorage) recordKey(id string) string {
	return s.prefix + "record:" + id
}

func (s *RedisStorage) indexKey() string {
	return s.prefix + "index"
}

// Store persists a record. Duplicate IDs are rejected.
func (s *RedisStorage) Store(ctx context.Context, record *audit.Record) error {
	if record == nil || record.ID == "" {
		return audit.NewStorageError("redis", "store", errMissingID)
	}

	data, err := json.Marshal(record)
	if err != nil {
		return audit.NewStorageError("redis", "store", fmt.Errorf("failed to marshal record: %w", err))
	}

	ok, err := s.client.SetNX(ctx, s.recordKey(record.ID), data, 0).Result()
	if err != nil {
		return audit.NewStorageError("redis", "store", err)
	}
	if !ok {
		return audit.NewStorageError("redis", "store", fmt.Errorf("%w: %s", errDuplicateID, record.ID))
	}

	err = s.client.ZAdd(ctx, s.indexKey(), redis.Z{
		Score:  float64(record.EvaluatedAt.UnixMicro()),
		Member: record.ID,
	}).Err()
	if err != nil {
		s.client.Del(ctx, s.recordKey(record.ID))
		return audit.NewStorageError("redis", "store", err)
	}
	return nil
}

// scan loads every record whose index score falls in the query's time range
// and applies the remaining filters in process.
func (s *RedisStorage) scan(ctx context.Context, query *audit.Query) ([]*audit.Record, error) {
	if query == nil {
		query = &audit.Query{}
	}

	// Scores are truncated microseconds, so the range may be slightly wide;
	// matchesQuery applies the exact bounds.
	rng := &redis.ZRangeBy{Min: "-inf", Max: "+inf"}
	if query.StartTime != nil {
		rng.Min = strconv.FormatInt(query.StartTime.UnixMicro(), 10)
	}
	if query.EndTime != nil {
		rng.Max = strconv.FormatInt(query.EndTime.UnixMicro(), 10)
	}

	var ids []string
	if len(query.IDs) > 0 {
		ids = slices.Clone(query.IDs)
		slices.Sort(ids)
		ids = slices.Compact(ids)
	} else {
		var err error
		ids, err = s.client.ZRangeByScore(ctx, s.indexKey(), rng).Result()
		if err != nil {
			return nil, err
		}
	}

	records := make([]*audit.Record, 0, len(ids))
	for start := 0; start < len(ids); start += redisBatch {
		end := min(start+redisBatch, len(ids))

		keys := make([]string, 0, end-start)
		for _, id := range ids[start:end] {
			keys = append(keys, s.recordKey(id))
		}

		values, err := s.client.MGet(ctx, keys...).Result()
		if err != nil {
			return nil, err
		}
		for _, v := range values {
			raw, ok := v.(string)
			if !ok {
				// Index entry without a record.
				continue
			}
			var record audit.Record
			if err := json.Unmarshal([]byte(raw), &record); err != nil {
				return nil, fmt.Errorf("failed to decode record: %w", err)
			}
			if matchesQuery(&record, query) {
				records = append(records, &record)
			}
		}
	}
	return records, nil
}

// Query retrieves records matching the query filters. A zero limit returns every match.
func (s *RedisStorage) Query(ctx context.Context, query *audit.Query) ([]*audit.Record, error) {
	if query == nil {
		query = &audit.Query{}
	}

	records, err := s.scan(ctx, query)
	if err != nil {
		return nil, audit.NewStorageError("redis", "query", err)
	}

	sortRecords(records, query.SortOrder)
	return paginate(records, query), nil
}

// Count returns the number of records matching the query filters.
func (s *RedisStorage) Count(ctx context.Context, query *audit.Query) (int64, error) {
	records, err := s.scan(ctx, query)
	if err != nil {
		return 0, audit.NewStorageError("redis", "count", err)
	}
	return int64(len(records)), nil
}

// Delete removes records matching the query filters.
func (s *RedisStorage) Delete(ctx context.Context, query *audit.Query) (int64, error) {
	records, err := s.scan(ctx, query)
	if err != nil {
		return 0, audit.NewStorageError("redis", "delete", err)
	}

	for start := 0; start < len(records); start += redisBatch {
		end := min(start+redisBatch, len(records))

		keys := make([]string, 0, end-start)
		members := make([]any, 0, end-start)
		for _, r := range records[start:end] {
			keys = append(keys, s.recordKey(r.ID))
			members = append(members, r.ID)
		}

		pipe := s.client.TxPipeline()
		pipe.Del(ctx, keys...)
		pipe.ZRem(ctx, s.indexKey(), members...)
		if _, err := pipe.Exec(ctx); err != nil {
			return int64(start), audit.NewStorageError("redis", "delete", err)
		}
	}
	return int64(len(records)), nil
}

// Close closes the client if NewRedisStorage created it.
func (s *RedisStorage) Close() error {
	if !s.ownsClient {
		return nil
	}
	return s.client.Close()
}
