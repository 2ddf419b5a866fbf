package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"amsplayer/internal/block"
	"amsplayer/pkg/config"
)

const blockKeyPrefix = "ams:block:"

func recordFromSeed(s config.BlockSeed) block.Record {
	fields := map[string]any{}
	for k, v := range s.Fields {
		fields[k] = v
	}
	return block.Record{UsageID: s.UsageID, Org: s.Org, CourseID: s.CourseID, Fields: fields}
}

type MemoryFieldStore struct {
	mu   sync.RWMutex
	recs map[string]block.Record
}

func NewMemoryFieldStore(seeds []config.BlockSeed) *MemoryFieldStore {
	s := &MemoryFieldStore{recs: map[string]block.Record{}}
	for _, b := range seeds {
		s.recs[b.UsageID] = recordFromSeed(b)
	}
	return s
}

func (s *MemoryFieldStore) Load(_ context.Context, usageID string) (block.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.recs[usageID]
	if !ok {
		return block.Record{}, block.ErrBlockNotFound
	}
	// callers may mutate Fields
	cp := make(map[string]any, len(r.Fields))
	for k, v := range r.Fields {
		cp[k] = v
	}
	r.Fields = cp
	return r, nil
}

func (s *MemoryFieldStore) Save(_ context.Context, rec block.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[rec.UsageID] = rec
	return nil
}

// RedisFieldStore keeps each block record as JSON under ams:block:<usage id>.
type RedisFieldStore struct {
	rdb *redis.Client
}

func NewRedisFieldStore(rdb *redis.Client) *RedisFieldStore { return &RedisFieldStore{rdb: rdb} }

func (s *RedisFieldStore) Load(ctx context.Context, usageID string) (block.Record, error) {
	raw, err := s.rdb.Get(ctx, blockKeyPrefix+usageID).Bytes()
	if errors.Is(err, redis.Nil) {
		return block.Record{}, block.ErrBlockNotFound
	}
	if err != nil {
		return block.Record{}, fmt.Errorf("load block %s: %w", usageID, err)
	}
	var rec block.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return block.Record{}, fmt.Errorf("decode block %s: %w", usageID, err)
	}
	return rec, nil
}

func (s *RedisFieldStore) Save(ctx context.Context, rec block.Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, blockKeyPrefix+rec.UsageID, raw, 0).Err()
}

// Seed stores the seeded blocks that are not in Redis yet; edits made
// through the studio survive restarts.
func (s *RedisFieldStore) Seed(ctx context.Context, seeds []config.BlockSeed) (int, error) {
	n := 0
	for _, b := range seeds {
		raw, err := json.Marshal(recordFromSeed(b))
		if err != nil {
			return n, fmt.Errorf("encode seed %s: %w", b.UsageID, err)
		}
		set, err := s.rdb.SetNX(ctx, blockKeyPrefix+b.UsageID, raw, 0).Result()
		if err != nil {
			return n, err
		}
		if set {
			n++
		}
	}
	return n, nil
}
