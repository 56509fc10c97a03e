package controller

import (
	"quizgen_gateway/internal/service"
	"quizgen_gateway/internal/util"

	"github.com/gin-gonic/gin"
)

// SessionController 当前登录身份
type SessionController struct {
	Identities *service.IdentityService
}

func NewSessionController(identities *service.IdentityService) *SessionController {
	return &SessionController{Identities: identities}
}

// Me godoc
// @Summary 当前用户
// @Tags 会话
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=model.Identity}
// @Failure 401 {object} util.Response
// @Router /api/session/me [get]
func (c *SessionController) Me(ctx *gin.Context) {
	util.Success(ctx, util.GetIdentity(ctx))
}

// Logout godoc
// @Summary 注销
// @Description 清除身份缓存与 token cookie
// @Tags 会话
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/session/logout [post]
func (c *SessionController) Logout(ctx *gin.Context) {
	c.Identities.Teardown(util.GetIdentity(ctx))
	ctx.SetCookie(util.TokenCookieName, "", -1, "/", "", ctx.Request.TLS != nil, false)
	util.Success(ctx, nil)
}
