package util

import (
	"errors"
	"strings"
	"time"

	"quizgen_gateway/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// InspectToken 解析但不校验签名（签名由远程服务校验），返回过期时间
func InspectToken(token string) (time.Time, error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, nil
	}
	return claims.ExpiresAt.Time, nil
}

// CheckTokenExpiry 已过期的 token 直接拒绝；非 JWT 格式交给远程判断
func CheckTokenExpiry(token string, now time.Time) (time.Time, error) {
	exp, err := InspectToken(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return time.Time{}, nil
		}
		return time.Time{}, ErrUnauthorized
	}
	if !exp.IsZero() && !now.Before(exp) {
		return exp, ErrUnauthorized
	}
	return exp, nil
}

// BearerToken 依次读取 Authorization 头、token 查询参数、token cookie
func BearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if t := strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")); t != "" {
			return t
		}
	}
	if t := c.Query("token"); t != "" {
		return t
	}
	if t, err := c.Cookie(TokenCookieName); err == nil && t != "" {
		return t
	}
	return ""
}

func SetIdentity(c *gin.Context, id *model.Identity) {
	c.Set(ContextIdentity, id)
}

func GetIdentity(c *gin.Context) *model.Identity {
	v, exists := c.Get(ContextIdentity)
	if !exists {
		return nil
	}
	id, ok := v.(*model.Identity)
	if !ok {
		return nil
	}
	return id
}
