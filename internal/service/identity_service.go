package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"quizgen_gateway/internal/model"
	"quizgen_gateway/internal/util"
	"quizgen_gateway/pkg/logger"

	"go.uber.org/zap"
)

type IdentityAPI interface {
	ValidateToken(ctx context.Context, token string) (*model.Identity, error)
}

type cachedIdentity struct {
	identity  model.Identity
	expiresAt time.Time
}

// IdentityService 按请求从 token 还原身份，短时缓存远程校验结果
type IdentityService struct {
	api   IdentityAPI
	ttl   time.Duration
	now   func() time.Time
	mu    sync.Mutex
	cache map[string]cachedIdentity
}

func NewIdentityService(api IdentityAPI, ttl time.Duration) *IdentityService {
	return &IdentityService{
		api:   api,
		ttl:   ttl,
		now:   time.Now,
		cache: make(map[string]cachedIdentity),
	}
}

func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Hydrate 过期的 JWT 直接拒绝，不访问远程服务
func (s *IdentityService) Hydrate(ctx context.Context, token string) (*model.Identity, error) {
	if token == "" {
		return nil, util.ErrUnauthorized
	}
	now := s.now()
	exp, err := util.CheckTokenExpiry(token, now)
	if err != nil {
		return nil, err
	}

	key := tokenKey(token)
	s.mu.Lock()
	if c, ok := s.cache[key]; ok {
		if now.Before(c.expiresAt) {
			s.mu.Unlock()
			id := c.identity
			id.Token = token
			return &id, nil
		}
		delete(s.cache, key)
	}
	s.mu.Unlock()

	identity, err := s.api.ValidateToken(ctx, token)
	if err != nil {
		return nil, err
	}
	identity.Token = token

	if s.ttl > 0 {
		expiresAt := now.Add(s.ttl)
		if !exp.IsZero() && exp.Before(expiresAt) {
			expiresAt = exp
		}
		s.mu.Lock()
		s.cache[key] = cachedIdentity{identity: *identity, expiresAt: expiresAt}
		s.mu.Unlock()
	}
	return identity, nil
}

// Teardown 注销时清除缓存
func (s *IdentityService) Teardown(identity *model.Identity) {
	if identity == nil || identity.Token == "" {
		return
	}
	s.mu.Lock()
	delete(s.cache, tokenKey(identity.Token))
	s.mu.Unlock()
	logger.Log.Info("Identity torn down", zap.String("userId", identity.ID.String()))
}

func (s *IdentityService) EvictExpired() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, c := range s.cache {
		if !now.Before(c.expiresAt) {
			delete(s.cache, k)
			n++
		}
	}
	return n
}
