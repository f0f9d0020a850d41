package session

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Handler exposes session transitions over HTTP.
type Handler struct {
	Manager     *Manager
	DeviceScope string
}

func NewHandler(m *Manager, deviceScope string) *Handler {
	return &Handler{Manager: m, DeviceScope: deviceScope}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.current)
	rg.POST("/signin", h.signIn)
	rg.POST("/signout", h.signOut)
}

type signInReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) signIn(c *gin.Context) {
	var req signInReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password required"})
		return
	}

	sess, err := h.Manager.SignIn(c.Request.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, ErrCloudDisabled):
		c.JSON(http.StatusConflict, gin.H{"error": "cloud sync is not configured"})
	case errors.Is(err, ErrAuthRejected):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{"error": "auth provider unavailable"})
	default:
		c.JSON(http.StatusOK, sess)
	}
}

func (h *Handler) signOut(c *gin.Context) {
	h.Manager.SignOut(c.Request.Context(), h.DeviceScope)
	c.JSON(http.StatusOK, h.Manager.Current())
}

func (h *Handler) current(c *gin.Context) {
	c.JSON(http.StatusOK, h.Manager.Current())
}
