package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"newsflow/internal/service"
	"newsflow/pkg/models"
)

type Handler struct {
	svc *service.Service
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

func RegisterRoutes(r *gin.Engine, h *Handler) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1")
	{
		v1.POST("/news/ingest", h.Ingest)
		v1.GET("/news", h.List)
		v1.GET("/news/search", h.Search)
		v1.GET("/news/category", h.Category)
		v1.GET("/news/trending", h.Trending)
		v1.GET("/news/:id", h.GetArticle)
		v1.GET("/news/:id/similar", h.Similar)
		v1.POST("/news/:id/summary", h.GenerateSummary)

		v1.GET("/feed/personalized", h.PersonalizedFeed)
		v1.GET("/feed/explore", h.ExploreFeed)

		v1.GET("/sources", h.Sources)
		v1.POST("/sources", h.AddSource)
		v1.POST("/sources/:id/scrape", h.ScrapeSource)
		v1.GET("/categories", h.Categories)
		v1.GET("/users/:id/bookmarks", h.Bookmarks)
	}

	// Interaction endpoints used by the reader UI. These identify the user
	// by a user_id field in the JSON body and answer with a status envelope.
	app := r.Group("/api")
	{
		app.POST("/bookmark/", h.ToggleBookmark)
		app.POST("/like/", h.ToggleLike)
		app.POST("/track-click/", h.TrackClick)
		app.POST("/track-share/", h.TrackShare)
		app.POST("/track-summary-view/", h.TrackSummaryView)
		app.GET("/preferences/", h.GetPreferences)
		app.POST("/preferences/", h.UpdatePreferences)
	}
}

// Ingest: POST /v1/news/ingest with a JSON array of articles.
func (h *Handler) Ingest(c *gin.Context) {
	var payload []*models.Article
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json: " + err.Error()})
		return
	}
	if err := h.svc.Ingest(c.Request.Context(), payload); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ingest failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"meta": gin.H{"imported": len(payload)},
	})
}

// List: GET /v1/news?category=tech&limit=20&offset=0
func (h *Handler) List(c *gin.Context) {
	lim := parseLimit(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	category := c.Query("category")
	res, err := h.svc.List(c.Request.Context(), category, lim, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"meta": gin.H{"count": len(res), "limit": lim, "offset": offset},
		"data": res,
	})
}

// GetArticle: GET /v1/news/:id?user_id=... (user_id makes the view count).
func (h *Handler) GetArticle(c *gin.Context) {
	a, err := h.svc.GetArticle(c.Request.Context(), c.Param("id"), c.Query("user_id"))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": a})
}

// Search: GET /v1/news/search?q=...&limit=10
func (h *Handler) Search(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing q parameter"})
		return
	}
	lim := parseLimit(c.DefaultQuery("limit", "10"))
	res, err := h.svc.Search(c.Request.Context(), q, lim)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"meta": gin.H{"query": q, "count": len(res), "limit": lim},
		"data": res,
	})
}

// Category: GET /v1/news/category?category=technology&limit=10
func (h *Handler) Category(c *gin.Context) {
	category := c.Query("category")
	if category == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing category parameter"})
		return
	}
	lim := parseLimit(c.DefaultQuery("limit", "10"))
	res, err := h.svc.List(c.Request.Context(), category, lim, 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"meta": gin.H{"category": category, "count": len(res), "limit": lim},
		"data": res,
	})
}

// Trending: GET /v1/news/trending?category=...&limit=10
func (h *Handler) Trending(c *gin.Context) {
	lim := parseLimit(c.DefaultQuery("limit", "10"))
	category := c.Query("category")
	hours, _ := strconv.Atoi(c.DefaultQuery("hours", "24"))
	res, err := h.svc.Trending(c.Request.Context(), category, hours, lim)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"meta": gin.H{"category": category, "count": len(res), "limit": lim},
		"data": res,
	})
}

// Similar: GET /v1/news/:id/similar?limit=5
func (h *Handler) Similar(c *gin.Context) {
	lim := parseLimit(c.DefaultQuery("limit", "5"))
	res, err := h.svc.Similar(c.Request.Context(), c.Param("id"), lim)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"meta": gin.H{"count": len(res), "limit": lim},
		"data": res,
	})
}

// GenerateSummary: POST /v1/news/:id/summary
func (h *Handler) GenerateSummary(c *gin.Context) {
	id := c.Param("id")
	summary, err := h.svc.Summarize(c.Request.Context(), id)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "summary": summary})
}

// PersonalizedFeed: GET /v1/feed/personalized?user_id=...&limit=20&exclude_read=true
func (h *Handler) PersonalizedFeed(c *gin.Context) {
	lim := parseLimit(c.DefaultQuery("limit", "20"))
	excludeRead := c.DefaultQuery("exclude_read", "true") != "false"
	res, err := h.svc.PersonalizedFeed(c.Request.Context(), c.Query("user_id"), lim, excludeRead)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"meta": gin.H{"count": len(res), "limit": lim, "exclude_read": excludeRead},
		"data": res,
	})
}

// ExploreFeed: GET /v1/feed/explore?user_id=...&limit=20
func (h *Handler) ExploreFeed(c *gin.Context) {
	lim := parseLimit(c.DefaultQuery("limit", "20"))
	res, err := h.svc.ExploreFeed(c.Request.Context(), c.Query("user_id"), lim)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"meta": gin.H{"count": len(res), "limit": lim},
		"data": res,
	})
}

func (h *Handler) Sources(c *gin.Context) {
	res, err := h.svc.Sources(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"meta": gin.H{"count": len(res)},
		"data": res,
	})
}

func (h *Handler) AddSource(c *gin.Context) {
	var src models.Source
	if err := c.BindJSON(&src); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json: " + err.Error()})
		return
	}
	if src.Name == "" || src.Slug == "" || src.BaseURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name, slug and base_url are required"})
		return
	}
	if err := h.svc.AddSource(c.Request.Context(), &src); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": src})
}

// ScrapeSource: POST /v1/sources/:id/scrape runs one scrape immediately.
func (h *Handler) ScrapeSource(c *gin.Context) {
	stats, err := h.svc.ScrapeSourceNow(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": stats})
}

func (h *Handler) Categories(c *gin.Context) {
	res, err := h.svc.Categories(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"meta": gin.H{"count": len(res)},
		"data": res,
	})
}

// Bookmarks: GET /v1/users/:id/bookmarks?limit=50
func (h *Handler) Bookmarks(c *gin.Context) {
	lim := parseLimit(c.DefaultQuery("limit", "50"))
	res, err := h.svc.Bookmarks(c.Request.Context(), c.Param("id"), lim)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"meta": gin.H{"count": len(res), "limit": lim},
		"data": res,
	})
}

// interactionRequest is the body shared by the /api tracking endpoints.
type interactionRequest struct {
	UserID    string `json:"user_id"`
	ArticleID string `json:"article_id"`
	Platform  string `json:"platform"`
}

func (h *Handler) ToggleBookmark(c *gin.Context) {
	req, ok := bindInteraction(c)
	if !ok {
		return
	}
	saved, err := h.svc.Bookmark(c.Request.Context(), req.UserID, req.ArticleID)
	if err != nil {
		statusError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "is_bookmarked": saved})
}

func (h *Handler) ToggleLike(c *gin.Context) {
	req, ok := bindInteraction(c)
	if !ok {
		return
	}
	liked, err := h.svc.Like(c.Request.Context(), req.UserID, req.ArticleID)
	if err != nil {
		statusError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "is_liked": liked})
}

func (h *Handler) TrackClick(c *gin.Context) {
	req, ok := bindInteraction(c)
	if !ok {
		return
	}
	if err := h.svc.TrackClick(c.Request.Context(), req.UserID, req.ArticleID); err != nil {
		statusError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Click tracked"})
}

func (h *Handler) TrackShare(c *gin.Context) {
	req, ok := bindInteraction(c)
	if !ok {
		return
	}
	if err := h.svc.TrackShare(c.Request.Context(), req.UserID, req.ArticleID, req.Platform); err != nil {
		statusError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Share tracked", "platform": req.Platform})
}

func (h *Handler) TrackSummaryView(c *gin.Context) {
	req, ok := bindInteraction(c)
	if !ok {
		return
	}
	if err := h.svc.TrackSummaryView(c.Request.Context(), req.UserID, req.ArticleID); err != nil {
		statusError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Summary view tracked"})
}

// GetPreferences: GET /api/preferences/?user_id=...
func (h *Handler) GetPreferences(c *gin.Context) {
	p, err := h.svc.Preferences(c.Request.Context(), c.Query("user_id"))
	if err != nil {
		statusError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     "success",
		"categories": p.Categories,
		"sources":    p.Sources,
	})
}

// UpdatePreferences: POST /api/preferences/ with user_id, categories, sources.
func (h *Handler) UpdatePreferences(c *gin.Context) {
	var p models.Preference
	if err := c.BindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid json"})
		return
	}
	if err := h.svc.UpdatePreferences(c.Request.Context(), &p); err != nil {
		statusError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Preferences updated"})
}

func bindInteraction(c *gin.Context) (*interactionRequest, bool) {
	var req interactionRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid json"})
		return nil, false
	}
	if req.ArticleID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "article_id is required"})
		return nil, false
	}
	return &req, true
}

// statusError maps service errors into the /api status envelope.
func statusError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAuthRequired):
		c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "Authentication required"})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "Not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
	}
}

// abortWith maps service errors into the /v1 error envelope.
func abortWith(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAuthRequired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func parseLimit(s string) int {
	l, err := strconv.Atoi(s)
	if err != nil || l <= 0 {
		return 10
	}
	if l > 100 {
		return 100
	}
	return l
}
