package middleware

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"leavedesk/internal/domain"
	"leavedesk/internal/shared/contextutil"
	"leavedesk/internal/shared/response"
)

// UnauthorizedRecorder is the slice of the audit recorder this middleware
// needs. Declared here so the audit package can keep importing middleware
// for its routes.
type UnauthorizedRecorder interface {
	RecordUnauthorized(ctx context.Context, actor *domain.Principal, action, entityType, entityID string)
}

// AuthMiddleware resolves the authenticated principal from a bearer token or
// the access_token cookie. Downstream code reads the principal from the
// request context; nothing else touches token mechanics. When a recorder is
// supplied, rejected mutating requests leave a FAILURE audit entry.
func AuthMiddleware(recorder ...UnauthorizedRecorder) gin.HandlerFunc {
	var rec UnauthorizedRecorder
	if len(recorder) > 0 {
		rec = recorder[0]
	}

	return func(c *gin.Context) {
		reject := func(code, message string) {
			if rec != nil && c.Request.Method != http.MethodGet {
				rec.RecordUnauthorized(c.Request.Context(), nil, lifecycleAction(c), domain.EntityLeaveRequest, c.Param("id"))
			}
			response.Error(c, http.StatusUnauthorized, code, message, nil)
			c.Abort()
		}

		var tokenString string

		authHeader := c.GetHeader("Authorization")
		tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found {
			tokenString = ""
		}

		if tokenString == "" {
			if cookie, err := c.Cookie("access_token"); err == nil {
				tokenString = cookie
			}
		}

		if tokenString == "" {
			reject("UNAUTHORIZED", "Token not found")
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return []byte(os.Getenv("JWT_SECRET")), nil
		})

		if err != nil || !token.Valid {
			message := "Invalid token"
			if err != nil && strings.Contains(err.Error(), "expired") {
				message = "Token has expired"
			}
			reject("INVALID_TOKEN", message)
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			reject("INVALID_TOKEN", "Invalid token claims")
			return
		}

		userID, ok := claims["user_id"].(string)
		if !ok || userID == "" {
			reject("INVALID_TOKEN", "User ID not found in token")
			return
		}

		email, ok := claims["email"].(string)
		if !ok || email == "" {
			reject("INVALID_TOKEN", "Email not found in token")
			return
		}

		role, _ := claims["role"].(string)
		if !domain.IsKnownRole(role) {
			reject("INVALID_TOKEN", "Role not found in token")
			return
		}

		c.Set("user_id", userID)
		c.Set("email", email)
		c.Set("role", role)

		principal := domain.Principal{ID: userID, Email: email, Role: role}
		ctx := contextutil.WithPrincipal(c.Request.Context(), principal)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// lifecycleAction names the attempted action from the matched route, for
// audit entries written before authentication could resolve an actor.
func lifecycleAction(c *gin.Context) string {
	if c.Request.Method == http.MethodDelete {
		return domain.ActionSoftDelete
	}

	path := c.FullPath()
	switch {
	case strings.HasSuffix(path, "/approve"):
		return domain.ActionApprove
	case strings.HasSuffix(path, "/deny"):
		return domain.ActionDeny
	case strings.HasSuffix(path, "/unarchive"):
		return domain.ActionUnarchive
	case strings.HasSuffix(path, "/archive"):
		return domain.ActionArchive
	case strings.HasSuffix(path, "/restore"):
		return domain.ActionRestore
	default:
		return "submit"
	}
}
