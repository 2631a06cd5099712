package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lugf027/mywebsite/middleware"
	"github.com/lugf027/mywebsite/services"
	"github.com/lugf027/mywebsite/utils"
)

// AuthController handles registration, login and token revocation.
type AuthController struct {
	auth      *services.AuthService
	blacklist *utils.TokenBlacklist
	log       *zap.Logger
}

// NewAuthController creates a new AuthController instance.
func NewAuthController(auth *services.AuthService, blacklist *utils.TokenBlacklist, log *zap.Logger) *AuthController {
	return &AuthController{auth: auth, blacklist: blacklist, log: log}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register creates a local account and returns a token for it.
func (a *AuthController) Register(ctx *gin.Context) {
	var req services.RegisterInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}
	res, err := a.auth.Register(ctx.Request.Context(), req)
	if err != nil {
		respondError(ctx, a.log, err, 50060, "failed to register")
		return
	}
	utils.Success(ctx, res)
}

// Login exchanges credentials for a token.
func (a *AuthController) Login(ctx *gin.Context) {
	var req loginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}
	res, err := a.auth.Login(ctx.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(ctx, a.log, err, 50061, "failed to login")
		return
	}
	utils.Success(ctx, res)
}

// Me returns the current account.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	user, err := a.auth.Me(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, a.log, err, 50062, "failed to load user")
		return
	}
	utils.Success(ctx, user)
}

// Logout revokes the caller's token until it would expire.
func (a *AuthController) Logout(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	value, _ := ctx.Get(middleware.ContextClaimsKey)
	claims, ok := value.(*utils.Claims)
	if token == "" || !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	if claims.ExpiresAt != nil {
		a.blacklist.Revoke(ctx.Request.Context(), token, claims.ExpiresAt.Time)
	}
	utils.Success(ctx, gin.H{"logged_out": true})
}
