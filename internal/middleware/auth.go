package middleware

import (
	"quizgen_gateway/internal/service"
	"quizgen_gateway/internal/util"
	"quizgen_gateway/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// IdentityMiddleware 从 Authorization / token 参数 / token cookie 还原当前用户
func IdentityMiddleware(identities *service.IdentityService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := util.BearerToken(c)
		if token == "" {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		identity, err := identities.Hydrate(c.Request.Context(), token)
		if err != nil {
			logger.Log.Debug("Identity hydration failed", zap.String("path", c.FullPath()), zap.Error(err))
			util.RespondError(c, err)
			c.Abort()
			return
		}

		util.SetIdentity(c, identity)
		c.Next()
	}
}
