package server

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"restaurant-scraper/services"
	"restaurant-scraper/utils"
)

// RestaurantService is the slice of the service layer the handlers need.
type RestaurantService interface {
	ScrapeAndSave(ctx context.Context, url, id string) services.ScrapeResult
	Update(ctx context.Context, id string, partial map[string]any) services.UpdateResult
	Get(ctx context.Context, id string) services.GetResult
	BulkRescrape(ctx context.Context, ids []string) []services.ScrapeResult
	ExportCSV(ctx context.Context, w io.Writer) error
}

// Handler holds dependencies for the admin HTTP handlers.
type Handler struct {
	svc    RestaurantService
	logger *utils.Logger
}

// NewHandler creates an HTTP handler over the restaurant service.
func NewHandler(svc RestaurantService, logger *utils.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// HealthCheck reports service liveness.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "restaurant-scraper"})
}

type scrapeRequest struct {
	URL string `json:"url" binding:"required"`
	ID  string `json:"id"`
}

// Scrape runs the scrape pipeline for one listing URL. An id in the body
// makes it a re-scrape of that record.
func (h *Handler) Scrape(c *gin.Context) {
	var req scrapeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "url is required"})
		return
	}

	res := h.svc.ScrapeAndSave(c.Request.Context(), req.URL, req.ID)
	if !res.Success {
		c.JSON(http.StatusBadGateway, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetRestaurant returns one record by id.
func (h *Handler) GetRestaurant(c *gin.Context) {
	res := h.svc.Get(c.Request.Context(), c.Param("id"))
	if !res.Success {
		c.JSON(http.StatusNotFound, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

// UpdateRestaurant applies a manual partial edit to one record. Null
// values in the body are dropped, not written.
func (h *Handler) UpdateRestaurant(c *gin.Context) {
	var partial map[string]any
	if err := c.ShouldBindJSON(&partial); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	res := h.svc.Update(c.Request.Context(), c.Param("id"), partial)
	if !res.Success {
		c.JSON(http.StatusNotFound, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

type rescrapeRequest struct {
	IDs []string `json:"ids" binding:"required,min=1"`
}

// BulkRescrape re-scrapes a batch of records by id.
func (h *Handler) BulkRescrape(c *gin.Context) {
	var req rescrapeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "ids are required"})
		return
	}

	results := h.svc.BulkRescrape(c.Request.Context(), req.IDs)
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// ExportCSV streams the whole collection as a CSV download.
func (h *Handler) ExportCSV(c *gin.Context) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="restaurants.csv"`)

	if err := h.svc.ExportCSV(c.Request.Context(), c.Writer); err != nil {
		h.logger.Error("[http] CSV export failed: %v", err)
		c.Status(http.StatusInternalServerError)
	}
}
