package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/domain"
	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/middleware"
	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/reconcile"
	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/repository"
)

type Handler struct {
	engine *reconcile.Engine
	repo   *repository.ProfileRepository
}

func NewHandler(engine *reconcile.Engine, repo *repository.ProfileRepository) *Handler {
	return &Handler{engine: engine, repo: repo}
}

// GetMe returns the caller's reconciled profile. A profile that does not
// exist yet is reported as null rather than an error.
func (h *Handler) GetMe(c *gin.Context) {
	principal := middleware.CurrentPrincipal(c)
	if principal == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	if profile := middleware.CurrentProfile(c); profile != nil {
		c.JSON(http.StatusOK, gin.H{"profile": profile})
		return
	}

	profile, err := h.engine.EnsureProfile(c.Request.Context(), *principal)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// UpdateMe rewrites the caller's mutable profile fields. This sits outside
// the reconciliation core: the engine provisions rows, settings mutate them.
func (h *Handler) UpdateMe(c *gin.Context) {
	principal := middleware.CurrentPrincipal(c)
	if principal == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req struct {
		FirstName *string `json:"first_name,omitempty"`
		LastName  *string `json:"last_name,omitempty"`
		Phone     *string `json:"phone,omitempty"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	profile, err := h.repo.FindByID(c.Request.Context(), principal.ID)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}

	if req.FirstName != nil {
		profile.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		profile.LastName = *req.LastName
	}
	if req.Phone != nil {
		profile.Phone = *req.Phone
	}

	if err := h.repo.Update(c.Request.Context(), profile); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// GetProfileByID is the admin view of any profile.
func (h *Handler) GetProfileByID(c *gin.Context) {
	id := c.Param("id")

	profile, err := h.repo.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"profile": profile})
}
