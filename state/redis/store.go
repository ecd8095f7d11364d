// Package redis persists workflow threads and checkpoints in Redis with a
// TTL, and provides the thread lock used to serialize concurrent resumes.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/postpilothq/postpilot/state"
)

const (
	defaultTTL    = 72 * time.Hour
	defaultLimit  = 50
	defaultPrefix = "postpilot"
)

type Store struct {
	client   *goredis.Client
	ttl      time.Duration
	prefix   string
	addr     string
	db       int
	password string
}

type Option func(*Store)

func WithPassword(password string) Option {
	return func(s *Store) {
		s.password = password
	}
}

func WithDB(db int) Option {
	return func(s *Store) {
		s.db = db
	}
}

func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if strings.TrimSpace(prefix) != "" {
			s.prefix = strings.TrimSpace(prefix)
		}
	}
}

func WithClient(client *goredis.Client) Option {
	return func(s *Store) {
		if client != nil {
			s.client = client
		}
	}
}

func New(addr string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, fmt.Errorf("redis addr is required")
	}

	s := &Store{
		ttl:    defaultTTL,
		prefix: defaultPrefix,
		addr:   addr,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = goredis.NewClient(&goredis.Options{
			Addr:     s.addr,
			Password: s.password,
			DB:       s.db,
		})
	}

	if err := s.client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return s, nil
}

func (s *Store) SaveThread(ctx context.Context, thread state.ThreadRecord) error {
	if thread.ThreadID == "" {
		return fmt.Errorf("thread_id is required")
	}
	if thread.UpdatedAt == nil {
		now := time.Now().UTC()
		thread.UpdatedAt = &now
	}
	if thread.CreatedAt == nil {
		now := time.Now().UTC()
		thread.CreatedAt = &now
	}
	if thread.Metadata == nil {
		thread.Metadata = map[string]any{}
	}

	threadRaw, err := json.Marshal(thread)
	if err != nil {
		return fmt.Errorf("failed to marshal thread: %w", err)
	}

	updatedUnix := float64(thread.UpdatedAt.Unix())
	threadKey := s.threadKey(thread.ThreadID)

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, threadKey, string(threadRaw), s.ttl)
	if thread.UserID != "" {
		userIdx := s.userIndexKey(thread.UserID)
		pipe.ZAdd(ctx, userIdx, goredis.Z{
			Score:  updatedUnix,
			Member: thread.ThreadID,
		})
		pipe.Expire(ctx, userIdx, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save thread in redis: %w", err)
	}
	return nil
}

func (s *Store) LoadThread(ctx context.Context, threadID string) (state.ThreadRecord, error) {
	if threadID == "" {
		return state.ThreadRecord{}, fmt.Errorf("thread_id is required")
	}

	raw, err := s.client.Get(ctx, s.threadKey(threadID)).Result()
	if err != nil {
		if err == goredis.Nil {
			return state.ThreadRecord{}, state.ErrNotFound
		}
		return state.ThreadRecord{}, fmt.Errorf("failed to load thread from redis: %w", err)
	}

	var thread state.ThreadRecord
	if err := json.Unmarshal([]byte(raw), &thread); err != nil {
		return state.ThreadRecord{}, fmt.Errorf("failed to decode thread from redis: %w", err)
	}
	return thread, nil
}

func (s *Store) ListThreads(ctx context.Context, query state.ListThreadsQuery) ([]state.ThreadRecord, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	offset := query.Offset
	if offset < 0 {
		offset = 0
	}

	ids := make([]string, 0, limit)
	if query.UserID != "" {
		values, err := s.client.ZRevRange(ctx, s.userIndexKey(query.UserID), int64(offset), int64(offset+limit-1)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to list thread ids by user: %w", err)
		}
		ids = append(ids, values...)
	} else {
		var cursor uint64
		match := s.threadPattern()
		for len(ids) < limit {
			keys, next, err := s.client.Scan(ctx, cursor, match, int64(limit)).Result()
			if err != nil {
				return nil, fmt.Errorf("failed to scan redis thread keys: %w", err)
			}
			for _, key := range keys {
				if id := s.threadIDFromKey(key); id != "" {
					ids = append(ids, id)
				}
				if len(ids) >= limit {
					break
				}
			}
			cursor = next
			if cursor == 0 {
				break
			}
		}
	}

	if len(ids) == 0 {
		return []state.ThreadRecord{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.threadKey(id)
	}

	loaded, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to mget threads from redis: %w", err)
	}

	out := make([]state.ThreadRecord, 0, len(loaded))
	staleIDs := make([]string, 0)
	for i, raw := range loaded {
		if raw == nil {
			staleIDs = append(staleIDs, ids[i])
			continue
		}
		var thread state.ThreadRecord
		if err := json.Unmarshal([]byte(fmt.Sprintf("%v", raw)), &thread); err != nil {
			continue
		}
		if query.Status != "" && thread.Status != query.Status {
			continue
		}
		out = append(out, thread)
	}

	if query.UserID != "" && len(staleIDs) > 0 {
		members := make([]any, 0, len(staleIDs))
		for _, id := range staleIDs {
			members = append(members, id)
		}
		_ = s.client.ZRem(ctx, s.userIndexKey(query.UserID), members...).Err()
	}

	sort.Slice(out, func(i, j int) bool {
		left := time.Time{}
		if out[i].UpdatedAt != nil {
			left = *out[i].UpdatedAt
		}
		right := time.Time{}
		if out[j].UpdatedAt != nil {
			right = *out[j].UpdatedAt
		}
		return left.After(right)
	})

	return out, nil
}

func (s *Store) SaveCheckpoint(ctx context.Context, checkpoint state.CheckpointRecord) error {
	if checkpoint.ThreadID == "" {
		return fmt.Errorf("thread_id is required")
	}
	if checkpoint.State == nil {
		checkpoint.State = map[string]any{}
	}
	if checkpoint.CreatedAt.IsZero() {
		checkpoint.CreatedAt = time.Now().UTC()
	}

	raw, err := json.Marshal(checkpoint)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	seqKey := s.checkpointSeqKey(checkpoint.ThreadID, checkpoint.Seq)
	ok, err := s.client.SetNX(ctx, seqKey, string(raw), s.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to save checkpoint in redis: %w", err)
	}
	if !ok {
		return state.ErrConflict
	}

	latestKey := s.latestCheckpointKey(checkpoint.ThreadID)
	latestRaw, err := s.client.Get(ctx, latestKey).Result()
	if err != nil && err != goredis.Nil {
		return fmt.Errorf("failed to read latest checkpoint: %w", err)
	}

	updateLatest := true
	if err == nil && latestRaw != "" {
		var latest state.CheckpointRecord
		if json.Unmarshal([]byte(latestRaw), &latest) == nil && latest.Seq > checkpoint.Seq {
			updateLatest = false
		}
	}
	if updateLatest {
		if err := s.client.Set(ctx, latestKey, string(raw), s.ttl).Err(); err != nil {
			return fmt.Errorf("failed to set latest checkpoint: %w", err)
		}
	}
	return nil
}

func (s *Store) LoadLatestCheckpoint(ctx context.Context, threadID string) (state.CheckpointRecord, error) {
	if threadID == "" {
		return state.CheckpointRecord{}, fmt.Errorf("thread_id is required")
	}

	raw, err := s.client.Get(ctx, s.latestCheckpointKey(threadID)).Result()
	if err != nil {
		if err == goredis.Nil {
			return state.CheckpointRecord{}, state.ErrNotFound
		}
		return state.CheckpointRecord{}, fmt.Errorf("failed to load latest checkpoint: %w", err)
	}

	var checkpoint state.CheckpointRecord
	if err := json.Unmarshal([]byte(raw), &checkpoint); err != nil {
		return state.CheckpointRecord{}, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	return checkpoint, nil
}

func (s *Store) ListCheckpoints(ctx context.Context, threadID string, limit int) ([]state.CheckpointRecord, error) {
	if threadID == "" {
		return nil, fmt.Errorf("thread_id is required")
	}
	if limit <= 0 {
		limit = defaultLimit
	}

	pattern := s.checkpointSeqPattern(threadID)
	var (
		cursor uint64
		keys   []string
	)
	for len(keys) < limit {
		found, next, err := s.client.Scan(ctx, cursor, pattern, int64(limit)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan checkpoints: %w", err)
		}
		keys = append(keys, found...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	if len(keys) == 0 {
		return []state.CheckpointRecord{}, nil
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint values: %w", err)
	}
	out := make([]state.CheckpointRecord, 0, len(values))
	for _, raw := range values {
		if raw == nil {
			continue
		}
		var checkpoint state.CheckpointRecord
		if err := json.Unmarshal([]byte(fmt.Sprintf("%v", raw)), &checkpoint); err != nil {
			continue
		}
		out = append(out, checkpoint)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Seq > out[j].Seq
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) AcquireThreadLock(ctx context.Context, threadID, owner string, ttl time.Duration) (bool, error) {
	if threadID == "" || owner == "" {
		return false, fmt.Errorf("thread_id and owner are required")
	}
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	ok, err := s.client.SetNX(ctx, s.lockKey(threadID), owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire thread lock: %w", err)
	}
	return ok, nil
}

func (s *Store) ReleaseThreadLock(ctx context.Context, threadID, owner string) error {
	if threadID == "" || owner == "" {
		return fmt.Errorf("thread_id and owner are required")
	}

	script := goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)
	if _, err := script.Run(ctx, s.client, []string{s.lockKey(threadID)}, owner).Result(); err != nil {
		return fmt.Errorf("failed to release thread lock: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *Store) threadKey(threadID string) string {
	return fmt.Sprintf("%s:thread:%s", s.prefix, threadID)
}

func (s *Store) threadPattern() string {
	return fmt.Sprintf("%s:thread:*", s.prefix)
}

func (s *Store) threadIDFromKey(key string) string {
	prefix := fmt.Sprintf("%s:thread:", s.prefix)
	if !strings.HasPrefix(key, prefix) {
		return ""
	}
	return strings.TrimPrefix(key, prefix)
}

func (s *Store) userIndexKey(userID string) string {
	return fmt.Sprintf("%s:threadidx:user:%s", s.prefix, userID)
}

func (s *Store) latestCheckpointKey(threadID string) string {
	return fmt.Sprintf("%s:ckpt:latest:%s", s.prefix, threadID)
}

func (s *Store) checkpointSeqKey(threadID string, seq int) string {
	return fmt.Sprintf("%s:ckpt:%s:%d", s.prefix, threadID, seq)
}

func (s *Store) checkpointSeqPattern(threadID string) string {
	return fmt.Sprintf("%s:ckpt:%s:*", s.prefix, threadID)
}

func (s *Store) lockKey(threadID string) string {
	return fmt.Sprintf("%s:lock:thread:%s", s.prefix, threadID)
}
