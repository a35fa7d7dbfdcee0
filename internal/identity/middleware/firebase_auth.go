package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/domain"
	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/provider"
	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/reconcile"
)

const (
	CtxPrincipal = "identity_principal"
	CtxProfile   = "identity_profile"
)

// FirebaseAuth validates Firebase ID tokens, reconciles the caller's profile,
// and stores both principal and profile in the request context. A missing
// profile is not a failure; handlers see nil and treat it as "no profile yet".
func FirebaseAuth(verifier provider.TokenVerifier, engine *reconcile.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization token"})
			c.Abort()
			return
		}

		decoded, err := verifier.VerifyIDToken(c.Request.Context(), token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		principal := provider.PrincipalFromToken(decoded)
		c.Set(CtxPrincipal, principal)

		if profile, err := engine.EnsureProfile(c.Request.Context(), *principal); err == nil && profile != nil {
			c.Set(CtxProfile, profile)
		}

		c.Next()
	}
}

// RequireRole gates a route group on the reconciled profile's role.
func RequireRole(role domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		profile := CurrentProfile(c)
		if profile == nil || profile.Role != role {
			c.JSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentPrincipal returns the authenticated principal, or nil.
func CurrentPrincipal(c *gin.Context) *domain.Principal {
	if v, ok := c.Get(CtxPrincipal); ok {
		if p, ok := v.(*domain.Principal); ok {
			return p
		}
	}
	return nil
}

// CurrentProfile returns the reconciled profile, or nil when none exists yet.
func CurrentProfile(c *gin.Context) *domain.Profile {
	if v, ok := c.Get(CtxProfile); ok {
		if p, ok := v.(*domain.Profile); ok {
			return p
		}
	}
	return nil
}

// extractToken extracts the Bearer token from the Authorization header.
func extractToken(c *gin.Context) string {
	bearerToken := c.GetHeader("Authorization")
	if len(bearerToken) > 7 && strings.HasPrefix(bearerToken, "Bearer ") {
		return bearerToken[7:]
	}
	return ""
}
