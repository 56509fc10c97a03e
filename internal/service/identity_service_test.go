package service

import (
	"context"
	"testing"
	"time"

	"quizgen_gateway/internal/model"
	"quizgen_gateway/internal/util"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "1",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestIdentityService_HydrateCachesIdentity(t *testing.T) {
	api := newFakeQuizAPI()
	token := signedToken(t, time.Now().Add(time.Hour))
	api.identities[token] = &model.Identity{ID: "1", Name: "Ada", Username: "ada"}
	svc := NewIdentityService(api, time.Minute)

	first, err := svc.Hydrate(context.Background(), token)
	require.NoError(t, err)
	second, err := svc.Hydrate(context.Background(), token)
	require.NoError(t, err)

	assert.Equal(t, model.RemoteID("1"), first.ID)
	assert.Equal(t, token, first.Token)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, api.validateCalls)
}

func TestIdentityService_ExpiredTokenSkipsRemote(t *testing.T) {
	api := newFakeQuizAPI()
	token := signedToken(t, time.Now().Add(-time.Minute))
	api.identities[token] = &model.Identity{ID: "1"}
	svc := NewIdentityService(api, time.Minute)

	_, err := svc.Hydrate(context.Background(), token)

	assert.ErrorIs(t, err, util.ErrUnauthorized)
	assert.Zero(t, api.validateCalls)
}

func TestIdentityService_OpaqueTokenIsValidatedRemotely(t *testing.T) {
	api := newFakeQuizAPI()
	api.identities["opaque"] = &model.Identity{ID: "3"}
	svc := NewIdentityService(api, time.Minute)

	id, err := svc.Hydrate(context.Background(), "opaque")
	require.NoError(t, err)
	assert.Equal(t, model.RemoteID("3"), id.ID)

	_, err = svc.Hydrate(context.Background(), "unknown")
	assert.ErrorIs(t, err, util.ErrUnauthorized)

	_, err = svc.Hydrate(context.Background(), "")
	assert.ErrorIs(t, err, util.ErrUnauthorized)
}

func TestIdentityService_CacheBoundedByTokenExpiry(t *testing.T) {
	api := newFakeQuizAPI()
	now := time.Now()
	token := signedToken(t, now.Add(30*time.Second))
	api.identities[token] = &model.Identity{ID: "1"}
	svc := NewIdentityService(api, time.Hour)
	svc.now = func() time.Time { return now }

	_, err := svc.Hydrate(context.Background(), token)
	require.NoError(t, err)
	assert.Zero(t, svc.EvictExpired())

	now = now.Add(time.Minute)
	assert.Equal(t, 1, svc.EvictExpired())
}

func TestIdentityService_TeardownDropsCache(t *testing.T) {
	api := newFakeQuizAPI()
	api.identities["opaque"] = &model.Identity{ID: "3"}
	svc := NewIdentityService(api, time.Minute)

	id, err := svc.Hydrate(context.Background(), "opaque")
	require.NoError(t, err)
	svc.Teardown(id)
	svc.Teardown(nil)

	_, err = svc.Hydrate(context.Background(), "opaque")
	require.NoError(t, err)
	assert.Equal(t, 2, api.validateCalls)
}
