package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lugf027/mywebsite/models"
	"github.com/lugf027/mywebsite/utils"
)

const (
	// ContextUserIDKey is the key used to store authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextUsernameKey stores the username inside Gin context.
	ContextUsernameKey = "username"
	// ContextRoleKey stores the principal's role.
	ContextRoleKey = "role"
	// ContextTokenKey stores the raw bearer token for logout.
	ContextTokenKey = "token"
	// ContextClaimsKey stores the parsed *utils.Claims.
	ContextClaimsKey = "claims"
)

type authFailure struct {
	code    int
	message string
}

// bearerClaims extracts and validates the bearer token. A nil failure with nil claims means no header.
func bearerClaims(ctx *gin.Context, blacklist *utils.TokenBlacklist) (*utils.Claims, string, *authFailure) {
	authHeader := ctx.GetHeader("Authorization")
	if authHeader == "" {
		return nil, "", nil
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, "", &authFailure{40102, "invalid authorization header format"}
	}

	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		return nil, "", &authFailure{40103, "empty bearer token"}
	}

	if blacklist != nil && blacklist.IsRevoked(ctx.Request.Context(), tokenString) {
		return nil, "", &authFailure{40104, "token revoked"}
	}

	claims, err := utils.ParseToken(tokenString)
	if err != nil {
		return nil, "", &authFailure{40105, "invalid token"}
	}
	return claims, tokenString, nil
}

func setPrincipal(ctx *gin.Context, claims *utils.Claims, token string) {
	ctx.Set(ContextUserIDKey, claims.UserID)
	ctx.Set(ContextUsernameKey, claims.Username)
	ctx.Set(ContextRoleKey, claims.Role)
	ctx.Set(ContextTokenKey, token)
	ctx.Set(ContextClaimsKey, claims)
}

// OptionalAuth attaches the principal when a valid token is present and otherwise lets the request through.
func OptionalAuth(blacklist *utils.TokenBlacklist) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if claims, token, fail := bearerClaims(ctx, blacklist); fail == nil && claims != nil {
			setPrincipal(ctx, claims, token)
		}
		ctx.Next()
	}
}

// AuthRequired ensures the request is authenticated via JWT.
func AuthRequired(blacklist *utils.TokenBlacklist) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		claims, token, fail := bearerClaims(ctx, blacklist)
		if fail != nil {
			utils.Error(ctx, http.StatusUnauthorized, fail.code, fail.message)
			ctx.Abort()
			return
		}
		if claims == nil {
			utils.Error(ctx, http.StatusUnauthorized, 40101, "authorization header missing")
			ctx.Abort()
			return
		}
		setPrincipal(ctx, claims, token)
		ctx.Next()
	}
}

// AdminRequired rejects principals without the admin role. It must run after AuthRequired.
func AdminRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if role := ctx.GetString(ContextRoleKey); role != string(models.RoleAdmin) {
			utils.Error(ctx, http.StatusForbidden, 40301, "admin role required")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

// UserID returns the authenticated user id, if any.
func UserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(ContextUserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := value.(uint)
	return id, ok
}
