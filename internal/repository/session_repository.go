package repository

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"quizgen_gateway/internal/model"
	"quizgen_gateway/internal/util"

	"github.com/go-redis/redis/v8"
)

// SessionRepository 保存进行中的考试会话快照
type SessionRepository interface {
	Save(ctx context.Context, snap model.ExamSnapshot) error
	Get(ctx context.Context, sessionID string) (model.ExamSnapshot, error)
	Delete(ctx context.Context, sessionID string) error
}

type memoryEntry struct {
	snap      model.ExamSnapshot
	expiresAt time.Time
}

type MemorySessionRepository struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemorySessionRepository(ttl time.Duration) *MemorySessionRepository {
	return &MemorySessionRepository{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (r *MemorySessionRepository) Save(ctx context.Context, snap model.ExamSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := memoryEntry{snap: cloneSnapshot(snap)}
	if r.ttl > 0 {
		e.expiresAt = r.now().Add(r.ttl)
	}
	r.entries[snap.SessionID] = e
	return nil
}

func (r *MemorySessionRepository) Get(ctx context.Context, sessionID string) (model.ExamSnapshot, error) {
	r.mu.RLock()
	e, ok := r.entries[sessionID]
	r.mu.RUnlock()
	if !ok || (!e.expiresAt.IsZero() && r.now().After(e.expiresAt)) {
		return model.ExamSnapshot{}, util.ErrNotFound
	}
	return cloneSnapshot(e.snap), nil
}

// cloneSnapshot 与调用方隔离，避免未保存的修改泄漏到存储
func cloneSnapshot(snap model.ExamSnapshot) model.ExamSnapshot {
	questions := make([]model.AnsweredQuestion, len(snap.Questions))
	copy(questions, snap.Questions)
	snap.Questions = questions
	return snap
}

func (r *MemorySessionRepository) Delete(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, sessionID)
	return nil
}

// EvictExpired 由定时任务调用
func (r *MemorySessionRepository) EvictExpired() int {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, e := range r.entries {
		if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
			delete(r.entries, id)
			n++
		}
	}
	return n
}

const sessionKeyPrefix = "exam_session:"

type RedisSessionRepository struct {
	Redis *redis.Client
	ttl   time.Duration
}

func NewRedisSessionRepository(rdb *redis.Client, ttl time.Duration) *RedisSessionRepository {
	return &RedisSessionRepository{Redis: rdb, ttl: ttl}
}

func (r *RedisSessionRepository) Save(ctx context.Context, snap model.ExamSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return r.Redis.Set(ctx, sessionKeyPrefix+snap.SessionID, data, r.ttl).Err()
}

func (r *RedisSessionRepository) Get(ctx context.Context, sessionID string) (model.ExamSnapshot, error) {
	var snap model.ExamSnapshot
	data, err := r.Redis.Get(ctx, sessionKeyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return snap, util.ErrNotFound
	}
	if err != nil {
		return snap, err
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, err
	}
	return snap, nil
}

func (r *RedisSessionRepository) Delete(ctx context.Context, sessionID string) error {
	return r.Redis.Del(ctx, sessionKeyPrefix+sessionID).Err()
}
