package advisor

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/middleware"
)

// Handler proxies advisor requests for authenticated students.
type Handler struct {
	client *Client
}

func NewHandler(client *Client) *Handler {
	return &Handler{client: client}
}

// Recommend forwards a recommendation request for the caller's profile.
func (h *Handler) Recommend(c *gin.Context) {
	if middleware.CurrentPrincipal(c) == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req RecommendationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	resp, err := h.client.GetRecommendations(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "advisor engine unavailable"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// AnalyzeInterests scores a raw interest list for the caller.
func (h *Handler) AnalyzeInterests(c *gin.Context) {
	if middleware.CurrentPrincipal(c) == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var interests []string
	if err := c.ShouldBindJSON(&interests); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	resp, err := h.client.AnalyzeInterests(c.Request.Context(), interests)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "advisor engine unavailable"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Pathways serves the engine's career pathway catalog.
func (h *Handler) Pathways(c *gin.Context) {
	resp, err := h.client.CareerPathways(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "advisor engine unavailable"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Colleges serves the engine's college catalog.
func (h *Handler) Colleges(c *gin.Context) {
	resp, err := h.client.Colleges(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "advisor engine unavailable"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Register mounts the advisor routes.
func (h *Handler) Register(r gin.IRouter) {
	g := r.Group("/advisor")
	g.POST("/recommendations", h.Recommend)
	g.POST("/analyze-interests", h.AnalyzeInterests)
	g.GET("/career-pathways", h.Pathways)
	g.GET("/colleges", h.Colleges)
}
