package recommend

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"manhwahub/internal/library"
	"manhwahub/pkg/models"
)

// Handler exposes the resolver. With a focus title in the body it runs
// focus mode; otherwise collection mode seeded from the current library,
// most-recently-saved first.
type Handler struct {
	Resolver *Resolver
	Store    *library.Store
}

func NewHandler(r *Resolver, store *library.Store) *Handler {
	return &Handler{Resolver: r, Store: store}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.resolve)
}

type resolveReq struct {
	Focus *models.Title `json:"focus,omitempty"`
}

func (h *Handler) resolve(c *gin.Context) {
	var req resolveReq
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	if !h.Resolver.Suggester.Enabled() {
		c.JSON(http.StatusOK, gin.H{"items": []models.RecommendedTitle{}, "disabled": true})
		return
	}

	var seeds []models.Title
	if req.Focus == nil {
		for _, e := range h.Store.List() {
			seeds = append(seeds, e.Title)
		}
	}

	recs := h.Resolver.Resolve(c.Request.Context(), seeds, req.Focus)
	if recs == nil {
		recs = []models.RecommendedTitle{}
	}
	c.JSON(http.StatusOK, gin.H{"items": recs})
}
