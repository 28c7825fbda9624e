package api

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/go-settlements/internal/events"
	"github.com/mr1hm/go-settlements/internal/metrics"
	"github.com/mr1hm/go-settlements/internal/models"
	"github.com/mr1hm/go-settlements/internal/view"
)

// cacheSampleSize is how many keys GET /api/cache lists.
const cacheSampleSize = 5

type Enricher interface {
	Select(ctx context.Context, id string) (models.Settlement, bool)
	Reset()
}

type CacheInfo interface {
	Size() int
	Sample(n int) []string
}

type Handler struct {
	view        *view.View
	enricher    Enricher
	cache       CacheInfo
	broadcaster *events.Broadcaster
}

func NewHandler(v *view.View, enricher Enricher, cache CacheInfo, broadcaster *events.Broadcaster) *Handler {
	return &Handler{
		view:        v,
		enricher:    enricher,
		cache:       cache,
		broadcaster: broadcaster,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")
	api.GET("/settlements", h.getPage)
	api.GET("/settlements.geojson", h.getPageGeoJSON)
	api.GET("/settlements/:id", h.getSettlement)

	api.POST("/page/next", h.nextPage)
	api.POST("/page/prev", h.prevPage)
	api.POST("/page/:n", h.goToPage)
	api.PUT("/page-size", h.setPageSize)
	api.PUT("/search", h.setQuery)

	api.GET("/cache", h.getCache)
	api.DELETE("/cache", h.clearCache)

	if h.broadcaster != nil {
		api.GET("/events", h.streamEvents)
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) getPage(c *gin.Context) {
	c.JSON(http.StatusOK, h.view.Snapshot())
}

func (h *Handler) getPageGeoJSON(c *gin.Context) {
	fc := toGeoJSON(h.view.Visible())
	c.Header("Content-Type", "application/geo+json")
	c.JSON(http.StatusOK, fc)
}

func (h *Handler) getSettlement(c *gin.Context) {
	s, ok := h.enricher.Select(c.Request.Context(), c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "settlement not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"settlement":  s,
		"coordinates": s.Coordinates(),
	})
}

// navigate answers with the new page, or 409 with the unchanged page when
// the move was not possible.
func (h *Handler) navigate(c *gin.Context, ok bool) {
	if !ok {
		c.JSON(http.StatusConflict, gin.H{
			"error": "page unchanged",
			"page":  h.view.Snapshot(),
		})
		return
	}
	c.JSON(http.StatusOK, h.view.Snapshot())
}

func (h *Handler) nextPage(c *gin.Context) {
	h.navigate(c, h.view.Next())
}

func (h *Handler) prevPage(c *gin.Context) {
	h.navigate(c, h.view.Prev())
}

func (h *Handler) goToPage(c *gin.Context) {
	n, err := strconv.Atoi(c.Param("n"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page must be a number"})
		return
	}
	h.navigate(c, h.view.GoTo(n))
}

type pageSizeRequest struct {
	Size int `json:"size" binding:"required"`
}

func (h *Handler) setPageSize(c *gin.Context) {
	var req pageSizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if !h.view.SetPageSize(req.Size) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page size must be between 1 and 500"})
		return
	}
	c.JSON(http.StatusOK, h.view.Snapshot())
}

type searchRequest struct {
	Query string `json:"query"`
}

func (h *Handler) setQuery(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	h.view.SetQuery(req.Query)
	c.JSON(http.StatusOK, h.view.Snapshot())
}

func (h *Handler) getCache(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"size": h.cache.Size(),
		"keys": h.cache.Sample(cacheSampleSize),
	})
}

func (h *Handler) clearCache(c *gin.Context) {
	h.enricher.Reset()
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

func (h *Handler) streamEvents(c *gin.Context) {
	id, ch := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(id)

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case e, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(string(e.Kind), e)
			return true
		}
	})
}
