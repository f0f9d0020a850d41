package library

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"manhwahub/pkg/models"
)

// Handler exposes the store over HTTP. Reads answer from the snapshot;
// mutations return as soon as the optimistic state is applied.
type Handler struct {
	Store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{Store: store}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.list)
	rg.POST("", h.upsert)
	rg.DELETE("/:title_id", h.remove)
	rg.GET("/:title_id/status", h.status)
}

type upsertReq struct {
	Title  models.Title `json:"title"`
	Status string       `json:"status"`
}

func (h *Handler) upsert(c *gin.Context) {
	var req upsertReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	if strings.TrimSpace(req.Title.ID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title.id required"})
		return
	}

	status := models.NormalizeReadingStatus(req.Status)
	if status == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "status must be one of: want_to_read, reading, completed, dropped",
		})
		return
	}

	h.Store.Upsert(c.Request.Context(), req.Title, status)

	// echo the stored entry so callers see the assigned saved_at
	for _, e := range h.Store.List() {
		if e.Title.ID == req.Title.ID {
			c.JSON(http.StatusOK, e)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "saved"})
}

func (h *Handler) list(c *gin.Context) {
	entries := h.Store.List()

	if f := models.NormalizeReadingStatus(c.Query("status")); f != "" {
		filtered := make([]models.LibraryEntry, 0, len(entries))
		for _, e := range entries {
			if e.ReadingStatus == f {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	c.JSON(http.StatusOK, gin.H{
		"owner_scope": h.Store.Owner(),
		"total":       len(entries),
		"items":       entries,
	})
}

func (h *Handler) remove(c *gin.Context) {
	titleID := strings.TrimSpace(c.Param("title_id"))
	if titleID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title_id required"})
		return
	}

	if _, ok := h.Store.StatusOf(titleID); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	h.Store.Remove(c.Request.Context(), titleID)
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func (h *Handler) status(c *gin.Context) {
	titleID := strings.TrimSpace(c.Param("title_id"))
	st, ok := h.Store.StatusOf(titleID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not tracked"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"title_id": titleID, "status": st})
}
