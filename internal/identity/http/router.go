package http

import (
	"github.com/gin-gonic/gin"

	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/domain"
	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/middleware"
)

// Register mounts the identity routes on an authenticated group.
func (h *Handler) Register(r gin.IRouter) {
	auth := r.Group("/auth")
	auth.GET("/me", h.GetMe)
	auth.PATCH("/me", h.UpdateMe)

	admin := r.Group("/admin")
	admin.Use(middleware.RequireRole(domain.RoleAdmin))
	admin.GET("/profiles/:id", h.GetProfileByID)
}
