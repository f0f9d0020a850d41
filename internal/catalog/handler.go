package catalog

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"manhwahub/internal/cache"
	"manhwahub/pkg/models"
)

// Handler exposes catalog search and trending over HTTP. Provider failures
// degrade to an empty list; the catalog being down never 5xxes a browse.
type Handler struct {
	Client *Client
	Cache  *cache.TitleCache
	Scope  func() string // current session scope, for cache keying
	Log    zerolog.Logger
}

func NewHandler(client *Client, titleCache *cache.TitleCache, scope func() string, log zerolog.Logger) *Handler {
	return &Handler{Client: client, Cache: titleCache, Scope: scope, Log: log}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/search", h.search)
	rg.GET("/trending", h.trending)
}

func (h *Handler) search(c *gin.Context) {
	q := Query{
		Text:          strings.TrimSpace(c.Query("q")),
		Genre:         strings.TrimSpace(c.Query("genre")),
		OriginCountry: strings.TrimSpace(c.Query("origin")),
	}

	titles, err := h.Client.Search(c.Request.Context(), q)
	if err != nil {
		h.Log.Warn().Err(err).Str("text", q.Text).Msg("search failed, returning empty")
		titles = nil
	}
	if titles == nil {
		titles = []models.Title{}
	}
	c.JSON(http.StatusOK, gin.H{"items": titles})
}

func (h *Handler) trending(c *gin.Context) {
	page := 1
	if s := strings.TrimSpace(c.Query("page")); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			page = n
		}
	}

	scope := h.Scope()
	key := fmt.Sprintf("trending:%d", page)
	if cached, ok := h.Cache.Get(scope, key); ok {
		c.JSON(http.StatusOK, gin.H{"page": page, "items": cached, "cached": true})
		return
	}

	titles, err := h.Client.Trending(c.Request.Context(), page)
	if err != nil {
		h.Log.Warn().Err(err).Int("page", page).Msg("trending failed, returning empty")
		titles = nil
	}
	if titles == nil {
		titles = []models.Title{}
	} else {
		h.Cache.Put(scope, key, titles)
	}
	c.JSON(http.StatusOK, gin.H{"page": page, "items": titles})
}
